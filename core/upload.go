package core

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// GetUploadURLs asks the backend for the signed storage URL set for one
// asset. Derivative URLs are present only when the backend decides the asset
// warrants them; skipDerivatives asks it not to issue any.
func (c *Client) GetUploadURLs(ctx context.Context, id, fileName string, skipDerivatives bool) (*UploadURLSet, error) {
	if strings.TrimSpace(fileName) == "" {
		return nil, fmt.Errorf("%w: missing file name", ErrInvalidAsset)
	}

	form := url.Values{}
	form.Set("id", id)
	form.Set("fileName", fileName)
	form.Set("noCutting", strconv.FormatBool(skipDerivatives))

	payload, err := c.postFormAuthed(ctx, "/api/appkeyid/getUploadUrl", form)
	if err != nil {
		return nil, err
	}

	var urls UploadURLSet
	if err := decode(payload, &urls); err != nil {
		return nil, err
	}
	if urls.WriteURL == "" {
		return nil, fmt.Errorf("%w: missing write URL", ErrDecode)
	}
	return &urls, nil
}
