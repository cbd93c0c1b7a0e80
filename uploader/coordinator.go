package uploader

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"appkeyid/core"
)

// Coordinator composes upload URL issuance with the transfer engine into the
// asset-level contract consumers use: start an upload, then watch events.
type Coordinator struct {
	api         *core.Client
	engine      *Engine
	inspector   MediaInspector
	derivatives DerivativeGenerator
	logger      *log.Logger
}

// NewCoordinator wires the upload pipeline. inspector defaults to
// FileInspector; derivatives may be nil, in which case no derivative
// transfers are ever issued.
func NewCoordinator(api *core.Client, engine *Engine, inspector MediaInspector, derivatives DerivativeGenerator, logger *log.Logger) *Coordinator {
	if engine == nil {
		engine = NewEngine(nil, logger)
	}
	if inspector == nil {
		inspector = FileInspector{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Coordinator{
		api:         api,
		engine:      engine,
		inspector:   inspector,
		derivatives: derivatives,
		logger:      logger,
	}
}

// Clear stops event delivery for a task. It does not abort the transfer.
func (u *Coordinator) Clear(taskID uuid.UUID) {
	u.engine.Clear(taskID)
}

// FetchUploadURLs resolves the asset's file name and returns the signed URL
// set without starting a transfer, for callers that manage their own.
func (u *Coordinator) FetchUploadURLs(ctx context.Context, asset *core.UploadAsset, skipDerivatives bool) (*core.UploadURLSet, error) {
	detail, err := u.resolve(ctx, asset)
	if err != nil {
		return nil, err
	}
	return u.api.GetUploadURLs(ctx, asset.ID, detail.FileName, skipDerivatives)
}

// UploadAsset starts the upload and returns the transfer task ID. Failures
// before the first byte moves are returned directly; once the transfer is
// running, failures arrive as assetUploadError events, because the caller
// already holds a task ID and has committed to the event contract.
func (u *Coordinator) UploadAsset(ctx context.Context, asset *core.UploadAsset, skipDerivatives bool, handler Handler) (uuid.UUID, error) {
	detail, err := u.resolve(ctx, asset)
	if err != nil {
		return uuid.Nil, err
	}

	contentType := asset.ContentType
	if contentType == "" {
		contentType = detail.ContentType
	}
	if asset.MediaType == "" {
		asset.MediaType = core.MediaTypeFor(contentType)
	}

	urls, err := u.api.GetUploadURLs(ctx, asset.ID, detail.FileName, skipDerivatives)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", core.ErrUploadFailed, err)
	}

	var derivatives []derivative
	if !skipDerivatives && asset.MediaType == core.MediaTypeImage {
		derivatives = u.buildDerivatives(asset.Payload, contentType, urls)
	}

	return u.engine.startAsset(ctx, asset.Payload, contentType, urls, derivatives, handler), nil
}

func (u *Coordinator) resolve(ctx context.Context, asset *core.UploadAsset) (*MediaDetail, error) {
	if asset == nil || len(asset.Payload) == 0 {
		return nil, fmt.Errorf("%w: empty payload", core.ErrInvalidAsset)
	}
	if asset.SourceLocator == "" {
		return nil, fmt.Errorf("%w: no source locator", core.ErrInvalidAsset)
	}
	detail, err := u.inspector.Inspect(ctx, asset.SourceLocator)
	if err != nil {
		return nil, err
	}
	if detail == nil || detail.FileName == "" {
		return nil, fmt.Errorf("%w: unresolved file name", core.ErrInvalidAsset)
	}
	return detail, nil
}

// buildDerivatives resizes the payload for every derivative URL the backend
// issued. Generation failures are best effort, like the transfers
// themselves.
func (u *Coordinator) buildDerivatives(payload []byte, contentType string, urls *core.UploadURLSet) []derivative {
	if u.derivatives == nil {
		return nil
	}

	plan := []struct {
		label    string
		size     int
		writeURL string
	}{
		{"small", CutSizeSmall, urls.WriteURLSmall},
		{"medium", CutSizeMedium, urls.WriteURLMedium},
		{"large", CutSizeLarge, urls.WriteURLLarge},
	}

	var out []derivative
	for _, p := range plan {
		if p.writeURL == "" {
			continue
		}
		resized, err := u.derivatives.Derivative(payload, contentType, p.size)
		if err != nil {
			u.logger.Printf("uploader: failed to build %s derivative: %v", p.label, err)
			continue
		}
		out = append(out, derivative{label: p.label, payload: resized, writeURL: p.writeURL})
	}
	return out
}
