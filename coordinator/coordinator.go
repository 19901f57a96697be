// Package coordinator implements the server side of the upload session lifecycle.
//
// A Coordinator validates upload requests, computes chunking parameters and drives
// a storage gateway through initiate, authorize-part, complete and abort. It keeps
// no session state of its own: the storage backend is the system of record, and
// every identifier a client needs is handed back in the responses.
package coordinator

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	uperrors "github.com/input-output-hk/catalyst-forge-libs/directupload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/gateway"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/uploadtypes"
)

// Recorder stores metadata about completed uploads.
type Recorder interface {
	RecordUpload(ctx context.Context, record *uploadtypes.UploadRecord) error
}

// Coordinator issues and supervises multipart upload sessions.
//
// Thread Safety: a Coordinator is immutable after construction and safe for
// concurrent use, provided its gateway and recorder are.
type Coordinator struct {
	gateway gateway.Gateway
	cfg     *Config
	logger  *slog.Logger
}

// New creates a Coordinator over the given gateway.
//
// Example:
//
//	gw, _ := gateway.NewS3(ctx, gateway.S3Config{Bucket: "uploads"})
//	coord := coordinator.New(gw,
//	    coordinator.WithLogger(slog.Default()),
//	    coordinator.WithRecorder(store),
//	)
func New(gw gateway.Gateway, opts ...Option) *Coordinator {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Coordinator{
		gateway: gw,
		cfg:     cfg,
		logger:  logger,
	}
}

// Initiate validates the request and opens a multipart session on the backend.
//
// Errors:
//   - VALIDATION: empty or oversized file, disallowed content type, bad filename or prefix
//   - TOO_MANY_PARTS: the file needs more than 10,000 parts; no session is opened
//   - BACKEND: the gateway failed to open the session
func (c *Coordinator) Initiate(
	ctx context.Context,
	req *uploadtypes.InitiateRequest,
) (*uploadtypes.InitiateResult, error) {
	if req == nil {
		return nil, uperrors.NewError("initiate", uperrors.ErrInvalidInput).WithMessage("request cannot be nil")
	}
	if err := validation.ValidateFilename(req.Filename); err != nil {
		return nil, err
	}
	if err := validation.ValidateFileSize(req.FileSize, c.cfg.MaxFileSize); err != nil {
		return nil, err
	}
	if err := validation.ValidateContentType(req.ContentType, c.cfg.AllowedContentTypes); err != nil {
		return nil, err
	}

	prefix := req.Prefix
	if prefix == "" {
		prefix = c.cfg.KeyPrefix
	}
	if err := validation.ValidateKeyPrefix(prefix); err != nil {
		return nil, err
	}

	partCount := validation.PartCount(req.FileSize, c.cfg.PartSize)
	if partCount > uploadtypes.MaxParts {
		return nil, uperrors.NewError("initiate", uperrors.ErrTooManyParts).
			WithMessage(fmt.Sprintf(
				"file of %d bytes needs %d parts of %d bytes, limit is %d",
				req.FileSize, partCount, c.cfg.PartSize, uploadtypes.MaxParts,
			))
	}

	key := c.cfg.KeyGenerator(prefix, req.Filename, c.cfg.Clock())
	if err := validation.ValidateObjectKey(key); err != nil {
		return nil, err
	}

	contentType := validation.NormalizeContentType(req.ContentType)
	uploadID, err := c.gateway.CreateMultipartUpload(ctx, key, contentType)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to initiate upload", "key", key, "error", err)
		return nil, uperrors.NewBackendError("initiate", err).WithBucket(c.gateway.Bucket()).WithKey(key)
	}

	c.logger.InfoContext(ctx, "upload initiated",
		"upload_id", uploadID,
		"key", key,
		"file_size", req.FileSize,
		"part_count", partCount,
	)

	return &uploadtypes.InitiateResult{
		UploadID:  uploadID,
		Key:       key,
		PartSize:  c.cfg.PartSize,
		PartCount: partCount,
	}, nil
}

// AuthorizePart returns a presigned URL for a single PUT of one part. It holds no
// state, so a part may be re-authorized any number of times.
func (c *Coordinator) AuthorizePart(
	ctx context.Context,
	req *uploadtypes.AuthorizePartRequest,
) (*uploadtypes.AuthorizePartResult, error) {
	if req == nil {
		return nil, uperrors.NewError("authorizePart", uperrors.ErrInvalidInput).WithMessage("request cannot be nil")
	}
	if err := c.validateSession(req.UploadID, req.Key); err != nil {
		return nil, err
	}
	if err := validation.ValidatePartNumber(req.PartNumber); err != nil {
		return nil, err
	}

	url, err := c.gateway.PresignUploadPart(ctx, req.Key, req.UploadID, req.PartNumber, c.cfg.URLExpiry)
	if err != nil {
		return nil, uperrors.NewBackendError("authorizePart", err).
			WithBucket(c.gateway.Bucket()).
			WithKey(req.Key).
			WithPart(req.PartNumber)
	}

	c.logger.DebugContext(ctx, "part authorized",
		"upload_id", req.UploadID,
		"key", req.Key,
		"part_number", req.PartNumber,
	)

	return &uploadtypes.AuthorizePartResult{
		PresignedURL: url,
		PartNumber:   req.PartNumber,
	}, nil
}

// Complete assembles the object from its parts. The part list is sorted and must be
// exactly 1..N. Complete is not safe to retry blindly: a timeout is reported as
// AMBIGUOUS_COMPLETION and callers should probe ObjectExists before trying again.
func (c *Coordinator) Complete(
	ctx context.Context,
	req *uploadtypes.CompleteRequest,
) (*uploadtypes.CompleteResult, error) {
	if req == nil {
		return nil, uperrors.NewError("complete", uperrors.ErrInvalidInput).WithMessage("request cannot be nil")
	}
	if err := c.validateSession(req.UploadID, req.Key); err != nil {
		return nil, err
	}
	parts, err := validation.ValidatePartSet(req.Parts)
	if err != nil {
		return nil, err
	}

	obj, err := c.gateway.CompleteMultipartUpload(ctx, req.Key, req.UploadID, parts)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to complete upload",
			"upload_id", req.UploadID,
			"key", req.Key,
			"error", err,
		)
		return nil, c.completeError(req.Key, err)
	}

	c.logger.InfoContext(ctx, "upload completed",
		"upload_id", req.UploadID,
		"key", obj.Key,
		"part_count", len(parts),
	)

	c.record(ctx, req.UploadID, obj, len(parts))

	return &uploadtypes.CompleteResult{
		Location: obj.Location,
		Bucket:   obj.Bucket,
		Key:      obj.Key,
		ETag:     obj.ETag,
	}, nil
}

// completeError classifies a failed assemble call.
func (c *Coordinator) completeError(key string, err error) error {
	switch {
	case uperrors.IsTimeout(err):
		return uperrors.NewError("complete", fmt.Errorf("%w: %w", uperrors.ErrAmbiguousCompletion, err)).
			WithBucket(c.gateway.Bucket()).
			WithKey(key)
	case uperrors.IsNoSuchUpload(err):
		return uperrors.NewError("complete", err).WithBucket(c.gateway.Bucket()).WithKey(key)
	default:
		return uperrors.NewBackendError("complete", err).WithBucket(c.gateway.Bucket()).WithKey(key)
	}
}

// record stores the completed upload. Failures are logged and never fail the completion.
func (c *Coordinator) record(ctx context.Context, uploadID string, obj *gateway.CompletedObject, partCount int) {
	if c.cfg.Recorder == nil {
		return
	}

	err := c.cfg.Recorder.RecordUpload(ctx, &uploadtypes.UploadRecord{
		UploadID:    uploadID,
		Key:         obj.Key,
		Bucket:      obj.Bucket,
		ETag:        obj.ETag,
		Location:    obj.Location,
		PartCount:   partCount,
		CompletedAt: c.cfg.Clock().UTC(),
	})
	if err != nil {
		c.logger.WarnContext(ctx, "failed to record completed upload",
			"upload_id", uploadID,
			"key", obj.Key,
			"error", err,
		)
	}
}

// Abort discards the session and its uploaded parts. A session the backend no
// longer knows is reported as success, so Abort is safe to repeat.
func (c *Coordinator) Abort(
	ctx context.Context,
	req *uploadtypes.AbortRequest,
) (*uploadtypes.AbortResult, error) {
	if req == nil {
		return nil, uperrors.NewError("abort", uperrors.ErrInvalidInput).WithMessage("request cannot be nil")
	}
	if err := c.validateSession(req.UploadID, req.Key); err != nil {
		return nil, err
	}

	err := c.gateway.AbortMultipartUpload(ctx, req.Key, req.UploadID)
	switch {
	case err == nil:
		c.logger.InfoContext(ctx, "upload aborted", "upload_id", req.UploadID, "key", req.Key)
		return &uploadtypes.AbortResult{Success: true, Message: "upload aborted"}, nil
	case uperrors.IsNoSuchUpload(err):
		c.logger.InfoContext(ctx, "upload already gone", "upload_id", req.UploadID, "key", req.Key)
		return &uploadtypes.AbortResult{Success: true, Message: "upload already aborted or completed"}, nil
	default:
		c.logger.ErrorContext(ctx, "failed to abort upload",
			"upload_id", req.UploadID,
			"key", req.Key,
			"error", err,
		)
		return nil, uperrors.NewBackendError("abort", err).WithBucket(c.gateway.Bucket()).WithKey(req.Key)
	}
}

// ObjectExists reports whether an object is stored under key.
func (c *Coordinator) ObjectExists(ctx context.Context, key string) (bool, error) {
	if err := validation.ValidateObjectKey(key); err != nil {
		return false, err
	}

	exists, err := c.gateway.ObjectExists(ctx, key)
	if err != nil {
		return false, uperrors.NewBackendError("objectExists", err).WithBucket(c.gateway.Bucket()).WithKey(key)
	}
	return exists, nil
}

func (c *Coordinator) validateSession(uploadID, key string) error {
	if err := validation.ValidateUploadID(uploadID); err != nil {
		return err
	}
	return validation.ValidateObjectKey(key)
}
