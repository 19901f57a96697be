package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	uperrors "github.com/input-output-hk/catalyst-forge-libs/directupload/errors"
)

// HTTPPartTransport PUTs part bodies to presigned URLs.
type HTTPPartTransport struct {
	client *http.Client
}

// NewHTTPPartTransport creates a part transport. A nil client means http.DefaultClient.
// The client should not set an overall Timeout shorter than a part transfer.
func NewHTTPPartTransport(client *http.Client) *HTTPPartTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPPartTransport{client: client}
}

// PutPart uploads size bytes from body to url and returns the ETag response header.
// Failures wrap errors.ErrTransfer. A success without an ETag returns an empty token
// and a nil error; the caller decides how to treat it.
func (t *HTTPPartTransport) PutPart(
	ctx context.Context,
	url string,
	body io.Reader,
	size int64,
	contentType string,
) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, body)
	if err != nil {
		return "", fmt.Errorf("%w: %w", uperrors.ErrTransfer, err)
	}
	req.ContentLength = size
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", uperrors.ErrTransfer, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("%w: status %d: %s", uperrors.ErrTransfer, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.Header.Get("ETag"), nil
}
