package uploader

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"appkeyid/core"
)

// Derivative cut sizes, in pixels on the longest edge.
const (
	CutSizeSmall  = 300
	CutSizeMedium = 600
	CutSizeLarge  = 900
)

// MediaDetail describes a resolved source asset.
type MediaDetail struct {
	FileName    string
	ContentType string
	Width       int
	Height      int
}

// MediaInspector resolves file metadata from a source locator. Platform
// integrations (photo libraries, content providers) implement this.
type MediaInspector interface {
	Inspect(ctx context.Context, sourceLocator string) (*MediaDetail, error)
}

// DerivativeGenerator produces a resized copy of a payload for derivative
// uploads. Image resizing itself is a platform concern; the SDK only
// schedules the results.
type DerivativeGenerator interface {
	Derivative(payload []byte, contentType string, maxDimension int) ([]byte, error)
}

// FileInspector resolves assets addressed by filesystem path. Spaces are
// stripped from file names so they survive the upload URL request.
type FileInspector struct{}

func (FileInspector) Inspect(ctx context.Context, sourceLocator string) (*MediaDetail, error) {
	if sourceLocator == "" {
		return nil, fmt.Errorf("%w: empty source locator", core.ErrInvalidAsset)
	}
	info, err := os.Stat(sourceLocator)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidAsset, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", core.ErrInvalidAsset, sourceLocator)
	}

	name := strings.ReplaceAll(filepath.Base(sourceLocator), " ", "")
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &MediaDetail{FileName: name, ContentType: contentType}, nil
}
