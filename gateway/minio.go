package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	uperrors "github.com/input-output-hk/catalyst-forge-libs/directupload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/uploadtypes"
)

// MinioConfig holds the backend settings of a MinIO gateway.
type MinioConfig struct {
	// Endpoint is host[:port] or a full URL; an https scheme enables TLS
	Endpoint string

	// Region is the bucket region (optional for MinIO)
	Region string

	// AccessKeyID and SecretAccessKey are the static credentials
	AccessKeyID     string
	SecretAccessKey string

	// Bucket is the destination bucket
	Bucket string

	// UsePathStyle selects path-style addressing instead of virtual-hosted style
	UsePathStyle bool
}

// MinioCore is the subset of *minio.Core used by the gateway.
type MinioCore interface {
	NewMultipartUpload(
		ctx context.Context,
		bucket, object string,
		opts minio.PutObjectOptions,
	) (string, error)
	CompleteMultipartUpload(
		ctx context.Context,
		bucket, object, uploadID string,
		parts []minio.CompletePart,
		opts minio.PutObjectOptions,
	) (minio.UploadInfo, error)
	AbortMultipartUpload(ctx context.Context, bucket, object, uploadID string) error
	StatObject(
		ctx context.Context,
		bucket, object string,
		opts minio.StatObjectOptions,
	) (minio.ObjectInfo, error)
	Presign(
		ctx context.Context,
		method, bucket, object string,
		expires time.Duration,
		reqParams url.Values,
	) (*url.URL, error)
}

// Minio is a Gateway backed by minio-go.
type Minio struct {
	core   MinioCore
	bucket string
}

// NewMinio builds a MinIO gateway from configuration.
func NewMinio(cfg MinioConfig) (*Minio, error) {
	if cfg.Bucket == "" {
		return nil, uperrors.NewError("gateway initialization", uperrors.ErrInvalidInput).
			WithMessage("bucket cannot be empty")
	}

	endpoint, secure := splitEndpoint(cfg.Endpoint)
	if endpoint == "" {
		return nil, uperrors.NewError("gateway initialization", uperrors.ErrInvalidInput).
			WithBucket(cfg.Bucket).
			WithMessage("endpoint cannot be empty")
	}

	lookup := minio.BucketLookupAuto
	if cfg.UsePathStyle {
		lookup = minio.BucketLookupPath
	}

	core, err := minio.NewCore(endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure:       secure,
		Region:       cfg.Region,
		BucketLookup: lookup,
	})
	if err != nil {
		return nil, uperrors.NewError("gateway initialization", err).WithBucket(cfg.Bucket)
	}

	return NewMinioWithCore(core, cfg.Bucket), nil
}

// NewMinioWithCore creates a MinIO gateway with a custom core implementation.
// This is primarily used for testing.
func NewMinioWithCore(core MinioCore, bucket string) *Minio {
	return &Minio{core: core, bucket: bucket}
}

// splitEndpoint strips an optional scheme and reports whether TLS is requested.
func splitEndpoint(endpoint string) (string, bool) {
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		return strings.TrimSuffix(strings.TrimPrefix(endpoint, "https://"), "/"), true
	case strings.HasPrefix(endpoint, "http://"):
		return strings.TrimSuffix(strings.TrimPrefix(endpoint, "http://"), "/"), false
	default:
		return strings.TrimSuffix(endpoint, "/"), false
	}
}

// Bucket returns the destination bucket.
func (g *Minio) Bucket() string {
	return g.bucket
}

// CreateMultipartUpload opens a multipart session for key.
func (g *Minio) CreateMultipartUpload(ctx context.Context, key, contentType string) (string, error) {
	uploadID, err := g.core.NewMultipartUpload(ctx, g.bucket, key, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	if uploadID == "" {
		return "", fmt.Errorf("backend returned no upload ID")
	}
	return uploadID, nil
}

// PresignUploadPart returns a presigned PUT URL scoped to one part.
func (g *Minio) PresignUploadPart(
	ctx context.Context,
	key, uploadID string,
	partNumber int32,
	expiry time.Duration,
) (string, error) {
	params := url.Values{}
	params.Set("partNumber", strconv.Itoa(int(partNumber)))
	params.Set("uploadId", uploadID)

	u, err := g.core.Presign(ctx, http.MethodPut, g.bucket, key, expiry, params)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// CompleteMultipartUpload assembles the object from the given parts.
func (g *Minio) CompleteMultipartUpload(
	ctx context.Context,
	key, uploadID string,
	parts []uploadtypes.CompletedPart,
) (*CompletedObject, error) {
	completed := make([]minio.CompletePart, len(parts))
	for i, p := range parts {
		completed[i] = minio.CompletePart{
			PartNumber: int(p.PartNumber),
			ETag:       p.ETag,
		}
	}

	info, err := g.core.CompleteMultipartUpload(ctx, g.bucket, key, uploadID, completed, minio.PutObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchUpload" {
			return nil, fmt.Errorf("%w: %w", uperrors.ErrNoSuchUpload, err)
		}
		return nil, err
	}

	obj := &CompletedObject{
		Location: info.Location,
		Bucket:   info.Bucket,
		Key:      info.Key,
		ETag:     info.ETag,
	}
	if obj.Bucket == "" {
		obj.Bucket = g.bucket
	}
	if obj.Key == "" {
		obj.Key = key
	}
	return obj, nil
}

// AbortMultipartUpload discards the session and its uploaded parts.
func (g *Minio) AbortMultipartUpload(ctx context.Context, key, uploadID string) error {
	err := g.core.AbortMultipartUpload(ctx, g.bucket, key, uploadID)
	if err != nil && minio.ToErrorResponse(err).Code == "NoSuchUpload" {
		return fmt.Errorf("%w: %w", uperrors.ErrNoSuchUpload, err)
	}
	return err
}

// ObjectExists stats key.
func (g *Minio) ObjectExists(ctx context.Context, key string) (bool, error) {
	_, err := g.core.StatObject(ctx, g.bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.Code == "NotFound" || resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	return false, err
}

var (
	_ Gateway   = (*Minio)(nil)
	_ MinioCore = (*minio.Core)(nil)
)
