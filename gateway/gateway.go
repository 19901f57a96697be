// Package gateway provides the storage gateway: a thin client over an S3-compatible
// backend's multipart-upload API.
//
// A Gateway opens, completes and aborts multipart sessions and mints presigned URLs
// for individual part uploads. It holds no state beyond its backend client and bucket.
// Two implementations are provided: S3 (aws-sdk-go-v2) and Minio (minio-go).
package gateway

import (
	"context"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/directupload/uploadtypes"
)

// CompletedObject describes an object assembled from its parts.
type CompletedObject struct {
	// Location is the object URL reported by the backend, if any
	Location string

	// Bucket is the bucket holding the object
	Bucket string

	// Key is the object key
	Key string

	// ETag is the entity tag of the assembled object
	ETag string
}

// Gateway is the multipart API of an object-storage backend.
//
// Implementations return errors.ErrNoSuchUpload (wrapped) when the backend reports
// that a multipart session does not exist. Other backend errors are returned as-is
// so the caller can wrap them with its own operation context.
type Gateway interface {
	// Bucket returns the bucket the gateway writes to
	Bucket() string

	// CreateMultipartUpload opens a multipart session and returns its upload ID
	CreateMultipartUpload(ctx context.Context, key, contentType string) (string, error)

	// PresignUploadPart returns a URL that authorizes a single PUT of one part
	PresignUploadPart(
		ctx context.Context,
		key, uploadID string,
		partNumber int32,
		expiry time.Duration,
	) (string, error)

	// CompleteMultipartUpload assembles the object from parts sorted by part number
	CompleteMultipartUpload(
		ctx context.Context,
		key, uploadID string,
		parts []uploadtypes.CompletedPart,
	) (*CompletedObject, error)

	// AbortMultipartUpload discards the session and any uploaded parts
	AbortMultipartUpload(ctx context.Context, key, uploadID string) error

	// ObjectExists reports whether an object is stored under key
	ObjectExists(ctx context.Context, key string) (bool, error)
}
