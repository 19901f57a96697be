package gateway

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	uperrors "github.com/input-output-hk/catalyst-forge-libs/directupload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/uploadtypes"
)

func TestMinio_CreateMultipartUpload(t *testing.T) {
	var gotType string
	core := &testutil.MockMinioCore{
		NewMultipartUploadFunc: func(_ context.Context, bucket, object string, opts minio.PutObjectOptions) (string, error) {
			assert.Equal(t, "bucket", bucket)
			assert.Equal(t, "uploads/k", object)
			gotType = opts.ContentType
			return "minio-upload", nil
		},
	}

	gw := NewMinioWithCore(core, "bucket")
	id, err := gw.CreateMultipartUpload(context.Background(), "uploads/k", "image/png")
	require.NoError(t, err)
	assert.Equal(t, "minio-upload", id)
	assert.Equal(t, "image/png", gotType)
}

func TestMinio_PresignUploadPart(t *testing.T) {
	core := &testutil.MockMinioCore{
		PresignFunc: func(_ context.Context, method, bucket, object string, expires time.Duration, params url.Values) (*url.URL, error) {
			assert.Equal(t, http.MethodPut, method)
			assert.Equal(t, time.Hour, expires)
			assert.Equal(t, "5", params.Get("partNumber"))
			assert.Equal(t, "u1", params.Get("uploadId"))
			return &url.URL{Scheme: "https", Host: "minio.local", Path: "/" + bucket + "/" + object, RawQuery: params.Encode()}, nil
		},
	}

	gw := NewMinioWithCore(core, "bucket")
	signed, err := gw.PresignUploadPart(context.Background(), "uploads/k", "u1", 5, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "https://minio.local/bucket/uploads/k?partNumber=5&uploadId=u1", signed)
}

func TestMinio_CompleteMultipartUpload(t *testing.T) {
	var got []minio.CompletePart
	core := &testutil.MockMinioCore{
		CompleteMultipartUploadFunc: func(_ context.Context, bucket, object, uploadID string, parts []minio.CompletePart, _ minio.PutObjectOptions) (minio.UploadInfo, error) {
			got = parts
			return minio.UploadInfo{Bucket: bucket, Key: object, ETag: "final", Location: "https://minio.local/bucket/" + object}, nil
		},
	}

	gw := NewMinioWithCore(core, "bucket")
	obj, err := gw.CompleteMultipartUpload(context.Background(), "uploads/k", "u1", []uploadtypes.CompletedPart{
		{PartNumber: 1, ETag: "a"},
		{PartNumber: 2, ETag: "b"},
	})
	require.NoError(t, err)
	assert.Equal(t, "final", obj.ETag)
	assert.Equal(t, "https://minio.local/bucket/uploads/k", obj.Location)
	assert.Equal(t, []minio.CompletePart{{PartNumber: 1, ETag: "a"}, {PartNumber: 2, ETag: "b"}}, got)
}

func TestMinio_NoSuchUpload(t *testing.T) {
	noSuchUpload := minio.ErrorResponse{Code: "NoSuchUpload", StatusCode: http.StatusNotFound}
	core := &testutil.MockMinioCore{
		AbortMultipartUploadFunc: func(context.Context, string, string, string) error {
			return noSuchUpload
		},
		CompleteMultipartUploadFunc: func(context.Context, string, string, string, []minio.CompletePart, minio.PutObjectOptions) (minio.UploadInfo, error) {
			return minio.UploadInfo{}, noSuchUpload
		},
	}

	gw := NewMinioWithCore(core, "bucket")
	assert.ErrorIs(t, gw.AbortMultipartUpload(context.Background(), "k", "u"), uperrors.ErrNoSuchUpload)

	_, err := gw.CompleteMultipartUpload(context.Background(), "k", "u", nil)
	assert.ErrorIs(t, err, uperrors.ErrNoSuchUpload)
}

func TestMinio_ObjectExists(t *testing.T) {
	tests := []struct {
		name       string
		statErr    error
		wantExists bool
		wantErr    bool
	}{
		{"present", nil, true, false},
		{"no_such_key", minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}, false, false},
		{"status_404", minio.ErrorResponse{StatusCode: http.StatusNotFound}, false, false},
		{"access_denied", minio.ErrorResponse{Code: "AccessDenied", StatusCode: http.StatusForbidden}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core := &testutil.MockMinioCore{
				StatObjectFunc: func(_ context.Context, _, object string, _ minio.StatObjectOptions) (minio.ObjectInfo, error) {
					if tt.statErr != nil {
						return minio.ObjectInfo{}, tt.statErr
					}
					return minio.ObjectInfo{Key: object}, nil
				},
			}
			gw := NewMinioWithCore(core, "bucket")

			exists, err := gw.ObjectExists(context.Background(), "uploads/k")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantExists, exists)
		})
	}
}

func TestSplitEndpoint(t *testing.T) {
	tests := []struct {
		in         string
		wantHost   string
		wantSecure bool
	}{
		{"localhost:9000", "localhost:9000", false},
		{"http://localhost:9000/", "localhost:9000", false},
		{"https://minio.example.com", "minio.example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			host, secure := splitEndpoint(tt.in)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantSecure, secure)
		})
	}
}

func TestNewMinio(t *testing.T) {
	_, err := NewMinio(MinioConfig{Endpoint: "localhost:9000"})
	assert.ErrorIs(t, err, uperrors.ErrInvalidInput)

	_, err = NewMinio(MinioConfig{Bucket: "b"})
	assert.ErrorIs(t, err, uperrors.ErrInvalidInput)

	gw, err := NewMinio(MinioConfig{
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "minio",
		SecretAccessKey: "minio123",
		Bucket:          "uploads",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "uploads", gw.Bucket())
}
