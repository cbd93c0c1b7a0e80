package uploader

import (
	"github.com/google/uuid"

	"appkeyid/core"
)

// EventType identifies a step in the upload event sequence.
type EventType string

const (
	// EventAssetStart fires once, before the first byte of the primary
	// transfer moves.
	EventAssetStart EventType = "assetStart"
	// EventAssetProgress reports cumulative bytes for the primary transfer.
	// Emitted only when the total size is known.
	EventAssetProgress EventType = "assetProgress"
	// EventAssetDescription precedes each derivative transfer.
	EventAssetDescription EventType = "assetUploadDescription"
	// EventAssetUploadEnd fires when the primary transfer has been accepted
	// by storage.
	EventAssetUploadEnd EventType = "assetUploadEnd"
	// EventAssetUploadError terminates a failed primary transfer.
	EventAssetUploadError EventType = "assetUploadError"
	// EventTransactionEnd fires exactly once per asset, after the primary
	// and any derivative transfers have finished.
	EventTransactionEnd EventType = "transactionEnd"
)

// Event is delivered to the handler registered for a transfer. For one task
// the sequence is assetStart, zero or more assetProgress with non-decreasing
// BytesSent, then exactly one of assetUploadEnd or assetUploadError;
// transactionEnd follows once the derivative sequence (if any) is done.
type Event struct {
	Type        EventType
	TaskID      uuid.UUID
	BytesSent   int64
	BytesTotal  int64
	Fraction    float64
	Description string
	Err         error
	URLs        *core.UploadURLSet
}

// Handler receives upload events. Handlers run on the transfer goroutine and
// must not block.
type Handler func(Event)
