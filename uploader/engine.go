package uploader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"appkeyid/core"
)

// Required headers for the object storage PUT contract.
const (
	headerBlobType       = "x-ms-blob-type"
	headerStorageVersion = "x-ms-version"
	headerStorageDate    = "x-ms-date"

	blobTypeBlock  = "BlockBlob"
	storageVersion = "2023-11-03"
)

// Engine performs blob PUTs and multiplexes progress events across concurrent
// transfers. The handler for a task is registered before its request is
// issued, so the first progress event can never outrun the registration.
type Engine struct {
	httpClient *http.Client
	logger     *log.Logger

	mu       sync.RWMutex
	handlers map[uuid.UUID]Handler
}

func NewEngine(httpClient *http.Client, logger *log.Logger) *Engine {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Minute}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		httpClient: httpClient,
		logger:     logger,
		handlers:   make(map[uuid.UUID]Handler),
	}
}

func (e *Engine) register(taskID uuid.UUID, handler Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[taskID] = handler
}

// Clear removes the handler registered for a task. Late events for the task
// are dropped silently; clearing an unknown task is a no-op. Clear does not
// abort an in-flight transfer.
func (e *Engine) Clear(taskID uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.handlers, taskID)
}

func (e *Engine) emit(taskID uuid.UUID, event Event) {
	e.mu.RLock()
	handler := e.handlers[taskID]
	e.mu.RUnlock()
	if handler == nil {
		return
	}
	event.TaskID = taskID
	handler(event)
}

// Transfer uploads a single payload and returns immediately with the task ID.
// Progress and the terminal event arrive through handler.
func (e *Engine) Transfer(ctx context.Context, payload []byte, contentType, writeURL string, handler Handler) (uuid.UUID, error) {
	taskID := uuid.New()
	e.register(taskID, handler)
	e.emit(taskID, Event{Type: EventAssetStart})

	// The transfer outlives the caller; Clear is the only way to stop
	// hearing about it.
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := e.put(ctx, taskID, payload, contentType, writeURL, true); err != nil {
			e.emit(taskID, Event{Type: EventAssetUploadError, Err: err})
			return
		}
		e.emit(taskID, Event{Type: EventAssetUploadEnd, BytesSent: int64(len(payload)), BytesTotal: int64(len(payload))})
	}()

	return taskID, nil
}

// TransferAndAwait blocks until the PUT completes. Derivative transfers use
// it so the small, medium and large copies go out one at a time.
func (e *Engine) TransferAndAwait(ctx context.Context, payload []byte, contentType, writeURL string) error {
	return e.put(ctx, uuid.Nil, payload, contentType, writeURL, false)
}

// derivative is one best-effort resized transfer issued after the primary
// succeeds.
type derivative struct {
	label    string
	payload  []byte
	writeURL string
}

// startAsset runs the full asset sequence: primary transfer with progress,
// then the derivatives in order, then transactionEnd.
func (e *Engine) startAsset(ctx context.Context, payload []byte, contentType string, urls *core.UploadURLSet, derivatives []derivative, handler Handler) uuid.UUID {
	taskID := uuid.New()
	e.register(taskID, handler)
	e.emit(taskID, Event{Type: EventAssetStart})

	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := e.put(ctx, taskID, payload, contentType, urls.WriteURL, true); err != nil {
			e.emit(taskID, Event{Type: EventAssetUploadError, Err: err})
			return
		}
		e.emit(taskID, Event{Type: EventAssetUploadEnd, BytesSent: int64(len(payload)), BytesTotal: int64(len(payload)), URLs: urls})

		// Derivatives go out one at a time, small to large. A failed
		// derivative is logged and skipped: the original is the durable
		// artifact, thumbnails are best effort.
		for _, d := range derivatives {
			e.emit(taskID, Event{Type: EventAssetDescription, Description: "uploading " + d.label + " image"})
			if err := e.TransferAndAwait(ctx, d.payload, contentType, d.writeURL); err != nil {
				e.logger.Printf("uploader: %s derivative failed for task %s: %v", d.label, taskID, err)
			}
		}

		e.emit(taskID, Event{Type: EventTransactionEnd, URLs: urls})
	}()

	return taskID
}

// put issues one BlockBlob PUT. Progress events are emitted only when asked
// for and only when the payload size is known to be positive.
func (e *Engine) put(ctx context.Context, taskID uuid.UUID, payload []byte, contentType, writeURL string, reportProgress bool) error {
	total := int64(len(payload))

	var body io.Reader = bytes.NewReader(payload)
	if reportProgress && total > 0 {
		body = &progressReader{
			r: body,
			report: func(sent int64) {
				e.emit(taskID, Event{
					Type:       EventAssetProgress,
					BytesSent:  sent,
					BytesTotal: total,
					Fraction:   float64(sent) / float64(total),
				})
			},
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, writeURL, body)
	if err != nil {
		return err
	}
	// Content-Length is taken from the request, not the header map.
	req.ContentLength = total
	req.Header.Set(headerBlobType, blobTypeBlock)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(headerStorageVersion, storageVersion)
	req.Header.Set(headerStorageDate, time.Now().UTC().Format(http.TimeFormat))

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("storage rejected PUT: status %d", resp.StatusCode)
	}
	return nil
}

// progressReader reports cumulative bytes as the transport consumes the
// request body. Reads are sequential, so the reported count never decreases.
type progressReader struct {
	r      io.Reader
	sent   int64
	report func(sent int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		p.report(p.sent)
	}
	return n, err
}
