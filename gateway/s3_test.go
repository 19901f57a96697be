package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	uperrors "github.com/input-output-hk/catalyst-forge-libs/directupload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/uploadtypes"
)

func TestS3_CreateMultipartUpload(t *testing.T) {
	var got *s3.CreateMultipartUploadInput
	client := testutil.NewMockBuilder().
		WithCreateMultipartUpload(func(_ context.Context, in *s3.CreateMultipartUploadInput) (*s3.CreateMultipartUploadOutput, error) {
			got = in
			return &s3.CreateMultipartUploadOutput{UploadId: testutil.StringPtr("abc")}, nil
		}).
		Build()

	gw := NewS3WithClient(client, &testutil.MockPresigner{}, "bucket")
	id, err := gw.CreateMultipartUpload(context.Background(), "uploads/k", "model/stl")
	require.NoError(t, err)
	assert.Equal(t, "abc", id)
	assert.Equal(t, "bucket", *got.Bucket)
	assert.Equal(t, "uploads/k", *got.Key)
	assert.Equal(t, "model/stl", *got.ContentType)
}

func TestS3_CreateMultipartUpload_Errors(t *testing.T) {
	t.Run("backend_error", func(t *testing.T) {
		client := testutil.NewMockBuilder().
			WithCreateMultipartUpload(func(context.Context, *s3.CreateMultipartUploadInput) (*s3.CreateMultipartUploadOutput, error) {
				return nil, errors.New("AccessDenied")
			}).
			Build()
		gw := NewS3WithClient(client, &testutil.MockPresigner{}, "bucket")

		_, err := gw.CreateMultipartUpload(context.Background(), "k", "")
		assert.EqualError(t, err, "AccessDenied")
	})

	t.Run("missing_upload_id", func(t *testing.T) {
		client := testutil.NewMockBuilder().
			WithCreateMultipartUpload(func(context.Context, *s3.CreateMultipartUploadInput) (*s3.CreateMultipartUploadOutput, error) {
				return &s3.CreateMultipartUploadOutput{}, nil
			}).
			Build()
		gw := NewS3WithClient(client, &testutil.MockPresigner{}, "bucket")

		_, err := gw.CreateMultipartUpload(context.Background(), "k", "")
		assert.Error(t, err)
	})
}

func TestS3_PresignUploadPart(t *testing.T) {
	var expires time.Duration
	presigner := &testutil.MockPresigner{
		PresignUploadPartFunc: func(_ context.Context, in *s3.UploadPartInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
			opts := s3.PresignOptions{}
			for _, fn := range optFns {
				fn(&opts)
			}
			expires = opts.Expires
			assert.Equal(t, "bucket", *in.Bucket)
			assert.Equal(t, "upload-1", *in.UploadId)
			assert.Equal(t, int32(7), *in.PartNumber)
			return &v4.PresignedHTTPRequest{URL: "https://signed.example/part7", Method: "PUT"}, nil
		},
	}

	gw := NewS3WithClient(&testutil.MockS3Client{}, presigner, "bucket")
	url, err := gw.PresignUploadPart(context.Background(), "uploads/k", "upload-1", 7, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "https://signed.example/part7", url)
	assert.Equal(t, time.Hour, expires)
}

func TestS3_CompleteMultipartUpload(t *testing.T) {
	var got *s3.CompleteMultipartUploadInput
	client := testutil.NewMockBuilder().WithMultipartUpload().Build()
	complete := client.CompleteMultipartUploadFunc
	client.CompleteMultipartUploadFunc = func(ctx context.Context, in *s3.CompleteMultipartUploadInput, opts ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
		got = in
		return complete(ctx, in, opts...)
	}

	gw := NewS3WithClient(client, &testutil.MockPresigner{}, "bucket")
	obj, err := gw.CompleteMultipartUpload(context.Background(), "uploads/k", "upload-1", []uploadtypes.CompletedPart{
		{PartNumber: 1, ETag: `"a"`},
		{PartNumber: 2, ETag: `"b"`},
	})
	require.NoError(t, err)

	assert.Equal(t, "bucket", obj.Bucket)
	assert.Equal(t, "uploads/k", obj.Key)
	assert.Equal(t, `"multipart-etag"`, obj.ETag)
	assert.Equal(t, "https://mock.s3.local/bucket/uploads/k", obj.Location)

	require.Len(t, got.MultipartUpload.Parts, 2)
	assert.Equal(t, int32(2), *got.MultipartUpload.Parts[1].PartNumber)
	assert.Equal(t, `"b"`, *got.MultipartUpload.Parts[1].ETag)
}

func TestS3_CompleteMultipartUpload_FillsMissingFields(t *testing.T) {
	client := testutil.NewMockBuilder().
		WithCompleteMultipartUpload(func(context.Context, *s3.CompleteMultipartUploadInput) (*s3.CompleteMultipartUploadOutput, error) {
			return &s3.CompleteMultipartUploadOutput{}, nil
		}).
		Build()

	gw := NewS3WithClient(client, &testutil.MockPresigner{}, "bucket")
	obj, err := gw.CompleteMultipartUpload(context.Background(), "uploads/k", "u", nil)
	require.NoError(t, err)
	assert.Equal(t, "bucket", obj.Bucket)
	assert.Equal(t, "uploads/k", obj.Key)
}

func TestS3_AbortMultipartUpload(t *testing.T) {
	client := testutil.NewMockBuilder().WithMultipartUpload().Build()
	gw := NewS3WithClient(client, &testutil.MockPresigner{}, "bucket")

	require.NoError(t, gw.AbortMultipartUpload(context.Background(), "k", "upload-1"))

	err := gw.AbortMultipartUpload(context.Background(), "k", "upload-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, uperrors.ErrNoSuchUpload)
}

func TestS3_AbortMultipartUpload_APIErrorCode(t *testing.T) {
	client := testutil.NewMockBuilder().
		WithAbortMultipartUpload(func(context.Context, *s3.AbortMultipartUploadInput) (*s3.AbortMultipartUploadOutput, error) {
			return nil, &smithy.GenericAPIError{Code: "NoSuchUpload", Message: "gone"}
		}).
		Build()
	gw := NewS3WithClient(client, &testutil.MockPresigner{}, "bucket")

	err := gw.AbortMultipartUpload(context.Background(), "k", "u")
	assert.True(t, uperrors.IsNoSuchUpload(err))
}

func TestS3_ObjectExists(t *testing.T) {
	tests := []struct {
		name       string
		headErr    error
		wantExists bool
		wantErr    bool
	}{
		{"present", nil, true, false},
		{"not_found_type", &types.NotFound{}, false, false},
		{"no_such_key_type", &types.NoSuchKey{}, false, false},
		{"not_found_code", &smithy.GenericAPIError{Code: "NotFound"}, false, false},
		{"other_error", &smithy.GenericAPIError{Code: "AccessDenied"}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := testutil.NewMockBuilder().
				WithHeadObject(func(context.Context, *s3.HeadObjectInput) (*s3.HeadObjectOutput, error) {
					if tt.headErr != nil {
						return nil, tt.headErr
					}
					return &s3.HeadObjectOutput{}, nil
				}).
				Build()
			gw := NewS3WithClient(client, &testutil.MockPresigner{}, "bucket")

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

func TestNewS3_RequiresBucket(t *testing.T) {
	_, err := NewS3(context.Background(), S3Config{})
	assert.ErrorIs(t, err, uperrors.ErrInvalidInput)
}

func TestNewS3_StaticCredentials(t *testing.T) {
	gw, err := NewS3(context.Background(), S3Config{
		Endpoint:        "http://localhost:4566",
		Region:          "eu-west-1",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		Bucket:          "uploads",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "uploads", gw.Bucket())

	url, err := gw.PresignUploadPart(context.Background(), "uploads/k", "upload-1", 3, time.Hour)
	require.NoError(t, err)
	assert.Contains(t, url, "http://localhost:4566/uploads/uploads/k")
	assert.Contains(t, url, "partNumber=3")
	assert.Contains(t, url, "uploadId=upload-1")
	assert.Contains(t, url, "X-Amz-Expires=3600")
}
