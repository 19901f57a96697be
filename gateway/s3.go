package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	uperrors "github.com/input-output-hk/catalyst-forge-libs/directupload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/uploadtypes"
)

// defaultRegion is used when neither the config nor the environment names a region.
const defaultRegion = "us-east-1"

// S3Config holds the backend settings of an S3 gateway.
type S3Config struct {
	// Endpoint overrides the service endpoint (LocalStack, R2, Ceph, ...)
	Endpoint string

	// Region is the bucket region
	Region string

	// AccessKeyID and SecretAccessKey select static credentials. When empty the
	// default AWS credential chain is used.
	AccessKeyID     string
	SecretAccessKey string

	// Bucket is the destination bucket
	Bucket string

	// UsePathStyle selects path-style addressing instead of virtual-hosted style
	UsePathStyle bool
}

// S3 is a Gateway backed by the AWS SDK.
type S3 struct {
	client    s3api.S3API
	presigner s3api.PresignAPI
	bucket    string
}

// NewS3 builds an S3 gateway from configuration.
//
// Example:
//
//	gw, err := gateway.NewS3(ctx, gateway.S3Config{
//	    Endpoint:     "http://localhost:4566",
//	    Region:       "us-east-1",
//	    Bucket:       "uploads",
//	    UsePathStyle: true,
//	})
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, uperrors.NewError("gateway initialization", uperrors.ErrInvalidInput).
			WithMessage("bucket cannot be empty")
	}

	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, uperrors.NewError("gateway initialization", err).WithBucket(cfg.Bucket)
	}
	if awsCfg.Region == "" {
		awsCfg.Region = defaultRegion
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return NewS3WithClient(client, s3.NewPresignClient(client), cfg.Bucket), nil
}

// NewS3WithClient creates an S3 gateway with custom client implementations.
// This is primarily used for testing with mocked clients.
func NewS3WithClient(client s3api.S3API, presigner s3api.PresignAPI, bucket string) *S3 {
	return &S3{
		client:    client,
		presigner: presigner,
		bucket:    bucket,
	}
}

// Bucket returns the destination bucket.
func (g *S3) Bucket() string {
	return g.bucket
}

// CreateMultipartUpload opens a multipart session for key.
func (g *S3) CreateMultipartUpload(ctx context.Context, key, contentType string) (string, error) {
	input := &s3.CreateMultipartUploadInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	out, err := g.client.CreateMultipartUpload(ctx, input)
	if err != nil {
		return "", err
	}
	if out.UploadId == nil || *out.UploadId == "" {
		return "", errors.New("backend returned no upload ID")
	}
	return *out.UploadId, nil
}

// PresignUploadPart returns a presigned PUT URL scoped to one part.
func (g *S3) PresignUploadPart(
	ctx context.Context,
	key, uploadID string,
	partNumber int32,
	expiry time.Duration,
) (string, error) {
	req, err := g.presigner.PresignUploadPart(ctx, &s3.UploadPartInput{
		Bucket:     aws.String(g.bucket),
		Key:        aws.String(key),
		UploadId:   aws.String(uploadID),
		PartNumber: aws.Int32(partNumber),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// CompleteMultipartUpload assembles the object from the given parts.
func (g *S3) CompleteMultipartUpload(
	ctx context.Context,
	key, uploadID string,
	parts []uploadtypes.CompletedPart,
) (*CompletedObject, error) {
	completed := make([]types.CompletedPart, len(parts))
	for i, p := range parts {
		completed[i] = types.CompletedPart{
			PartNumber: aws.Int32(p.PartNumber),
			ETag:       aws.String(p.ETag),
		}
	}

	out, err := g.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(g.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: completed,
		},
	})
	if err != nil {
		if isNoSuchUpload(err) {
			return nil, fmt.Errorf("%w: %w", uperrors.ErrNoSuchUpload, err)
		}
		return nil, err
	}

	obj := &CompletedObject{
		Location: aws.ToString(out.Location),
		Bucket:   aws.ToString(out.Bucket),
		Key:      aws.ToString(out.Key),
		ETag:     aws.ToString(out.ETag),
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
func (g *S3) AbortMultipartUpload(ctx context.Context, key, uploadID string) error {
	_, err := g.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(g.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	if err != nil && isNoSuchUpload(err) {
		return fmt.Errorf("%w: %w", uperrors.ErrNoSuchUpload, err)
	}
	return err
}

// ObjectExists issues a HEAD request for key.
func (g *S3) ObjectExists(ctx context.Context, key string) (bool, error) {
	_, err := g.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

// isNoSuchUpload checks whether the backend reported a missing multipart session.
func isNoSuchUpload(err error) bool {
	var nsu *types.NoSuchUpload
	if errors.As(err, &nsu) {
		return true
	}
	return apiErrorCode(err) == "NoSuchUpload"
}

// isNotFound checks whether the backend reported a missing object.
func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	switch apiErrorCode(err) {
	case "NotFound", "NoSuchKey", "404":
		return true
	}
	return false
}

func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

var _ Gateway = (*S3)(nil)
