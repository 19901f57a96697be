package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/directupload/config"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/gateway"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/store"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/uploadtypes"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Addr: ":0", MaxBodyBytes: 1 << 20, ShutdownTimeout: time.Second},
		LogLevel: "info",
		Storage: config.StorageConfig{
			Backend:         config.BackendS3,
			Bucket:          "uploads",
			Region:          "us-east-1",
			Endpoint:        "http://localhost:4566",
			AccessKeyID:     "test",
			SecretAccessKey: "test",
			UsePathStyle:    true,
		},
		Upload: config.UploadConfig{
			KeyPrefix:   uploadtypes.DefaultKeyPrefix,
			PartSize:    uploadtypes.DefaultPartSize,
			MaxFileSize: uploadtypes.MaxFileSize,
			URLExpiry:   time.Hour,
		},
		Store: config.StoreConfig{Kind: config.StoreNone},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RateLimit = 10
	cfg.Server.RateBurst = 10

	a, err := New(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Coordinator)
	require.NotNil(t, a.Server)

	rec := httptest.NewRecorder()
	a.Server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewGateway(t *testing.T) {
	t.Run("s3", func(t *testing.T) {
		gw, err := NewGateway(context.Background(), testConfig().Storage)
		require.NoError(t, err)
		assert.IsType(t, &gateway.S3{}, gw)
		assert.Equal(t, "uploads", gw.Bucket())
	})

	t.Run("minio", func(t *testing.T) {
		cfg := testConfig().Storage
		cfg.Backend = config.BackendMinio
		cfg.Endpoint = "http://localhost:9000"

		gw, err := NewGateway(context.Background(), cfg)
		require.NoError(t, err)
		assert.IsType(t, &gateway.Minio{}, gw)
	})

	t.Run("unknown", func(t *testing.T) {
		cfg := testConfig().Storage
		cfg.Backend = "gcs"

		_, err := NewGateway(context.Background(), cfg)
		assert.ErrorContains(t, err, "gcs")
	})
}

func TestNewRecorder(t *testing.T) {
	storage := testConfig().Storage

	t.Run("none", func(t *testing.T) {
		rec, closer, err := NewRecorder(context.Background(), config.StoreConfig{Kind: config.StoreNone}, storage)
		require.NoError(t, err)
		assert.Nil(t, rec)
		assert.Nil(t, closer)
	})

	t.Run("dynamodb", func(t *testing.T) {
		rec, _, err := NewRecorder(context.Background(), config.StoreConfig{
			Kind:             config.StoreDynamoDB,
			DynamoDBTable:    "completed-uploads",
			DynamoDBEndpoint: "http://localhost:4566",
		}, storage)
		require.NoError(t, err)
		assert.IsType(t, &store.DynamoDB{}, rec)
	})

	t.Run("postgres_bad_dsn", func(t *testing.T) {
		_, _, err := NewRecorder(context.Background(), config.StoreConfig{
			Kind:        config.StorePostgres,
			PostgresDSN: "not a dsn",
		}, storage)
		assert.Error(t, err)
	})

	t.Run("unknown", func(t *testing.T) {
		_, _, err := NewRecorder(context.Background(), config.StoreConfig{Kind: "redis"}, storage)
		assert.ErrorContains(t, err, "redis")
	})
}
