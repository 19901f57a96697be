package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/input-output-hk/catalyst-forge-libs/directupload/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/uploadtypes"
)

// ErrProbeNotConfigured is returned by FakeSessionAPI.ObjectExists without ExistsFunc.
var ErrProbeNotConfigured = errors.New("existence probe not configured")

// FakeSessionAPI is an in-memory session API. Each operation can be overridden
// through a function field; every call is counted.
type FakeSessionAPI struct {
	// PartSize is the part size handed out by the default Initiate
	PartSize int64

	InitiateFunc  func(context.Context, *uploadtypes.InitiateRequest) (*uploadtypes.InitiateResult, error)
	AuthorizeFunc func(context.Context, *uploadtypes.AuthorizePartRequest) (*uploadtypes.AuthorizePartResult, error)
	CompleteFunc  func(context.Context, *uploadtypes.CompleteRequest) (*uploadtypes.CompleteResult, error)
	AbortFunc     func(context.Context, *uploadtypes.AbortRequest) (*uploadtypes.AbortResult, error)
	ExistsFunc    func(context.Context, string) (bool, error)

	mu         sync.Mutex
	initiates  int
	authorizes int
	completes  []uploadtypes.CompleteRequest
	aborts     []uploadtypes.AbortRequest
	probes     int
}

// Initiate opens a fake session.
func (f *FakeSessionAPI) Initiate(
	ctx context.Context,
	req *uploadtypes.InitiateRequest,
) (*uploadtypes.InitiateResult, error) {
	f.mu.Lock()
	f.initiates++
	f.mu.Unlock()

	if f.InitiateFunc != nil {
		return f.InitiateFunc(ctx, req)
	}

	partSize := f.PartSize
	if partSize <= 0 {
		partSize = uploadtypes.DefaultPartSize
	}
	if err := validation.ValidateFileSize(req.FileSize, uploadtypes.MaxFileSize); err != nil {
		return nil, err
	}
	return &uploadtypes.InitiateResult{
		UploadID:  "fake-upload-id",
		Key:       req.Prefix + validation.SanitizeFilename(req.Filename),
		PartSize:  partSize,
		PartCount: validation.PartCount(req.FileSize, partSize),
	}, nil
}

// AuthorizePart returns a fake presigned URL for the part.
func (f *FakeSessionAPI) AuthorizePart(
	ctx context.Context,
	req *uploadtypes.AuthorizePartRequest,
) (*uploadtypes.AuthorizePartResult, error) {
	f.mu.Lock()
	f.authorizes++
	f.mu.Unlock()

	if f.AuthorizeFunc != nil {
		return f.AuthorizeFunc(ctx, req)
	}
	return &uploadtypes.AuthorizePartResult{
		PresignedURL: PartURL("https://fake.s3.local", req.Key, req.UploadID, req.PartNumber),
		PartNumber:   req.PartNumber,
	}, nil
}

// Complete records the part list.
func (f *FakeSessionAPI) Complete(
	ctx context.Context,
	req *uploadtypes.CompleteRequest,
) (*uploadtypes.CompleteResult, error) {
	f.mu.Lock()
	f.completes = append(f.completes, *req)
	f.mu.Unlock()

	if f.CompleteFunc != nil {
		return f.CompleteFunc(ctx, req)
	}
	return &uploadtypes.CompleteResult{
		Location: "https://fake.s3.local/test-bucket/" + req.Key,
		Bucket:   "test-bucket",
		Key:      req.Key,
		ETag:     `"fake-etag-3"`,
	}, nil
}

// Abort records the abort request.
func (f *FakeSessionAPI) Abort(
	ctx context.Context,
	req *uploadtypes.AbortRequest,
) (*uploadtypes.AbortResult, error) {
	f.mu.Lock()
	f.aborts = append(f.aborts, *req)
	f.mu.Unlock()

	if f.AbortFunc != nil {
		return f.AbortFunc(ctx, req)
	}
	return &uploadtypes.AbortResult{Success: true, Message: "upload aborted"}, nil
}

// ObjectExists probes for key.
func (f *FakeSessionAPI) ObjectExists(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	f.probes++
	f.mu.Unlock()

	if f.ExistsFunc != nil {
		return f.ExistsFunc(ctx, key)
	}
	return false, ErrProbeNotConfigured
}

// Initiates returns the number of Initiate calls.
func (f *FakeSessionAPI) Initiates() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initiates
}

// Authorizes returns the number of AuthorizePart calls.
func (f *FakeSessionAPI) Authorizes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authorizes
}

// Completes returns every Complete request received.
func (f *FakeSessionAPI) Completes() []uploadtypes.CompleteRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]uploadtypes.CompleteRequest, len(f.completes))
	copy(out, f.completes)
	return out
}

// Aborts returns every Abort request received.
func (f *FakeSessionAPI) Aborts() []uploadtypes.AbortRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]uploadtypes.AbortRequest, len(f.aborts))
	copy(out, f.aborts)
	return out
}

// Probes returns the number of ObjectExists calls.
func (f *FakeSessionAPI) Probes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.probes
}
