// Package transport implements the client side of the upload boundary: an HTTP
// client for the session-lifecycle API and the PUT of part bodies to presigned URLs.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	uperrors "github.com/input-output-hk/catalyst-forge-libs/directupload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/uploadtypes"
)

// API routes served by the api package.
const (
	RouteInitiate  = "/api/uploads/initiate"
	RouteAuthorize = "/api/uploads/parts/authorize"
	RouteComplete  = "/api/uploads/complete"
	RouteAbort     = "/api/uploads/abort"
	RouteExists    = "/api/uploads/exists"
)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// SessionClient calls the session-lifecycle API over HTTP.
type SessionClient struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption configures a SessionClient.
type ClientOption func(*SessionClient)

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *SessionClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewSessionClient creates a client for the API served at baseURL.
func NewSessionClient(baseURL string, opts ...ClientOption) *SessionClient {
	c := &SessionClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initiate opens a multipart session.
func (c *SessionClient) Initiate(
	ctx context.Context,
	req *uploadtypes.InitiateRequest,
) (*uploadtypes.InitiateResult, error) {
	var res uploadtypes.InitiateResult
	if err := c.post(ctx, "initiate", RouteInitiate, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// AuthorizePart requests a presigned URL for one part.
func (c *SessionClient) AuthorizePart(
	ctx context.Context,
	req *uploadtypes.AuthorizePartRequest,
) (*uploadtypes.AuthorizePartResult, error) {
	var res uploadtypes.AuthorizePartResult
	if err := c.post(ctx, "authorizePart", RouteAuthorize, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Complete assembles the uploaded parts.
func (c *SessionClient) Complete(
	ctx context.Context,
	req *uploadtypes.CompleteRequest,
) (*uploadtypes.CompleteResult, error) {
	var res uploadtypes.CompleteResult
	if err := c.post(ctx, "complete", RouteComplete, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Abort discards a multipart session.
func (c *SessionClient) Abort(
	ctx context.Context,
	req *uploadtypes.AbortRequest,
) (*uploadtypes.AbortResult, error) {
	var res uploadtypes.AbortResult
	if err := c.post(ctx, "abort", RouteAbort, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ObjectExists asks the server whether an object is stored under key.
func (c *SessionClient) ObjectExists(ctx context.Context, key string) (bool, error) {
	endpoint := c.baseURL + RouteExists + "?" + url.Values{"key": {key}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, uperrors.NewError("objectExists", err).WithKey(key)
	}

	var res uploadtypes.ExistsResult
	if err := c.do(req, "objectExists", &res); err != nil {
		return false, err
	}
	return res.Exists, nil
}

func (c *SessionClient) post(ctx context.Context, op, route string, in, out any) error {
	payload, err := sonic.Marshal(in)
	if err != nil {
		return uperrors.NewError(op, fmt.Errorf("failed to encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+route, bytes.NewReader(payload))
	if err != nil {
		return uperrors.NewError(op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, op, out)
}

func (c *SessionClient) do(req *http.Request, op string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return uperrors.NewError(op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(op, resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return uperrors.NewError(op, fmt.Errorf("failed to read response: %w", err))
	}
	if err := sonic.Unmarshal(body, out); err != nil {
		return uperrors.NewError(op, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

// decodeError rebuilds a typed error from an error response, so the error kind and
// its sentinel survive the round trip.
func decodeError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var payload uploadtypes.ErrorResponse
	if err := sonic.Unmarshal(body, &payload); err != nil || payload.Error == "" {
		return &uperrors.Error{
			Op:   op,
			Kind: uperrors.KindInternal,
			Err:  fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	kind := uperrors.Kind(payload.Error)
	sentinel := uperrors.SentinelFor(kind)
	if sentinel == nil {
		return &uperrors.Error{
			Op:   op,
			Kind: uperrors.KindInternal,
			Err:  fmt.Errorf("status %d: %s", resp.StatusCode, payload.Message),
		}
	}
	return &uperrors.Error{
		Op:   op,
		Kind: kind,
		Err:  fmt.Errorf("%w: %s", sentinel, payload.Message),
	}
}
