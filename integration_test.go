//go:build integration

package directupload_test

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/directupload"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/api"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/coordinator"
	uperrors "github.com/input-output-hk/catalyst-forge-libs/directupload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/gateway"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/store"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/transport"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/uploadtypes"
)

type integrationEnv struct {
	s3Client *s3.Client
	dynamo   *dynamodb.Client
	bucket   string
	table    string
	client   *transport.SessionClient
}

func setupIntegration(t *testing.T) *integrationEnv {
	t.Helper()
	ctx := context.Background()

	container := testutil.SetupLocalStackTest(t)

	s3Client, err := container.GetS3Client(ctx)
	require.NoError(t, err)
	bucket := testutil.GenerateTestBucketName("uploads")
	require.NoError(t, testutil.CreateTestBucket(ctx, s3Client, bucket))

	dynamo, err := container.GetDynamoDBClient(ctx)
	require.NoError(t, err)
	table := "completed-uploads"
	_, err = dynamo.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(table),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("uploadId"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("uploadId"), KeyType: types.KeyTypeHash},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	require.NoError(t, err)

	gw, err := gateway.NewS3(ctx, gateway.S3Config{
		Endpoint:        container.Endpoint(),
		Region:          container.Region(),
		AccessKeyID:     testutil.LocalStackAccessKey,
		SecretAccessKey: testutil.LocalStackSecretKey,
		Bucket:          bucket,
		UsePathStyle:    true,
	})
	require.NoError(t, err)

	coord := coordinator.New(gw,
		coordinator.WithPartSize(uploadtypes.MinPartSize),
		coordinator.WithRecorder(store.NewDynamoDB(dynamo, table)),
	)
	server := httptest.NewServer(api.New(coord).Handler())
	t.Cleanup(server.Close)

	return &integrationEnv{
		s3Client: s3Client,
		dynamo:   dynamo,
		bucket:   bucket,
		table:    table,
		client:   transport.NewSessionClient(server.URL),
	}
}

func TestIntegration_UploadFile(t *testing.T) {
	env := setupIntegration(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	data := testutil.GenerateTestData(12 * testutil.MiB)
	path := filepath.Join(t.TempDir(), "benchy.stl")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	progress := &testutil.MockProgressTracker{}
	ctrl := directupload.NewController(env.client,
		directupload.WithConcurrency(2),
		directupload.WithProgress(progress),
	)

	outcome, err := ctrl.UploadFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 3, outcome.Parts)
	assert.Equal(t, int64(len(data)), outcome.Size)

	obj, err := env.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(env.bucket),
		Key:    aws.String(outcome.Key),
	})
	require.NoError(t, err)
	defer func() { _ = obj.Body.Close() }()

	stored, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, stored), "stored object differs from the source file")
	assert.Equal(t, "model/stl", aws.ToString(obj.ContentType))

	percents := progress.Percents()
	require.NotEmpty(t, percents)
	assert.Equal(t, 100, percents[len(percents)-1])

	exists, err := env.client.ObjectExists(ctx, outcome.Key)
	require.NoError(t, err)
	assert.True(t, exists)

	items, err := env.dynamo.Scan(ctx, &dynamodb.ScanInput{TableName: aws.String(env.table)})
	require.NoError(t, err)
	require.Len(t, items.Items, 1)

	var record uploadtypes.UploadRecord
	require.NoError(t, attributevalue.UnmarshalMap(items.Items[0], &record))
	assert.Equal(t, outcome.Key, record.Key)
	assert.Equal(t, env.bucket, record.Bucket)
	assert.Equal(t, 3, record.PartCount)
}

func TestIntegration_AbortIsIdempotent(t *testing.T) {
	env := setupIntegration(t)
	ctx := context.Background()

	session, err := env.client.Initiate(ctx, &uploadtypes.InitiateRequest{
		Filename:    "part.gcode",
		FileSize:    10,
		ContentType: "text/x-gcode",
	})
	require.NoError(t, err)

	req := &uploadtypes.AbortRequest{UploadID: session.UploadID, Key: session.Key}
	for i := 0; i < 2; i++ {
		res, err := env.client.Abort(ctx, req)
		require.NoError(t, err, "abort %d", i+1)
		assert.True(t, res.Success)
	}

	_, err = env.client.Complete(ctx, &uploadtypes.CompleteRequest{
		UploadID: session.UploadID,
		Key:      session.Key,
		Parts:    []uploadtypes.CompletedPart{{PartNumber: 1, ETag: `"x"`}},
	})
	require.Error(t, err)
	assert.Equal(t, uperrors.KindNotFound, uperrors.KindOf(err))

	exists, err := env.client.ObjectExists(ctx, session.Key)
	require.NoError(t, err)
	assert.False(t, exists)
}
