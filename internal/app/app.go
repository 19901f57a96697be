// Package app wires a server configuration into a running coordinator and HTTP API.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/input-output-hk/catalyst-forge-libs/directupload/api"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/config"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/coordinator"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/gateway"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/store"
)

// App holds the long-lived components of an upload server.
type App struct {
	Coordinator *coordinator.Coordinator
	Server      *api.Server

	closers []func()
}

// New builds the gateway, metadata store, coordinator and HTTP server described by cfg.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	gw, err := NewGateway(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	recorder, closeRecorder, err := NewRecorder(ctx, cfg.Store, cfg.Storage)
	if err != nil {
		return nil, err
	}

	opts := []coordinator.Option{
		coordinator.WithLogger(logger),
		coordinator.WithKeyPrefix(cfg.Upload.KeyPrefix),
		coordinator.WithPartSize(cfg.Upload.PartSize),
		coordinator.WithMaxFileSize(cfg.Upload.MaxFileSize),
		coordinator.WithURLExpiry(cfg.Upload.URLExpiry),
	}
	if len(cfg.Upload.AllowedContentTypes) > 0 {
		opts = append(opts, coordinator.WithAllowedContentTypes(cfg.Upload.AllowedContentTypes...))
	}
	if recorder != nil {
		opts = append(opts, coordinator.WithRecorder(recorder))
	}
	coord := coordinator.New(gw, opts...)

	serverOpts := []api.Option{
		api.WithLogger(logger),
		api.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
		api.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
	}
	if cfg.Server.RateLimit > 0 {
		serverOpts = append(serverOpts, api.WithRateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst))
	}

	a := &App{
		Coordinator: coord,
		Server:      api.New(coord, serverOpts...),
	}
	if closeRecorder != nil {
		a.closers = append(a.closers, closeRecorder)
	}
	return a, nil
}

// Close releases resources held by the metadata store.
func (a *App) Close() {
	for _, c := range a.closers {
		c()
	}
}

// NewGateway creates the storage gateway for the configured backend.
func NewGateway(ctx context.Context, cfg config.StorageConfig) (gateway.Gateway, error) {
	switch cfg.Backend {
	case config.BackendS3:
		return gateway.NewS3(ctx, gateway.S3Config{
			Endpoint:        cfg.Endpoint,
			Region:          cfg.Region,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			Bucket:          cfg.Bucket,
			UsePathStyle:    cfg.UsePathStyle,
		})
	case config.BackendMinio:
		return gateway.NewMinio(gateway.MinioConfig{
			Endpoint:        cfg.Endpoint,
			Region:          cfg.Region,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			Bucket:          cfg.Bucket,
			UsePathStyle:    cfg.UsePathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// NewRecorder creates the configured metadata store. It returns a nil recorder for
// kind "none". The returned close function may be nil.
func NewRecorder(
	ctx context.Context,
	cfg config.StoreConfig,
	storage config.StorageConfig,
) (coordinator.Recorder, func(), error) {
	switch cfg.Kind {
	case "", config.StoreNone:
		return nil, nil, nil
	case config.StorePostgres:
		pg, err := store.NewPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	case config.StoreDynamoDB:
		client, err := newDynamoDBClient(ctx, cfg, storage)
		if err != nil {
			return nil, nil, err
		}
		return store.NewDynamoDB(client, cfg.DynamoDBTable), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown metadata store %q", cfg.Kind)
	}
}

// newDynamoDBClient shares the region and static credentials of the storage backend.
func newDynamoDBClient(ctx context.Context, cfg config.StoreConfig, storage config.StorageConfig) (*dynamodb.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if storage.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(storage.Region))
	}
	if storage.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(storage.AccessKeyID, storage.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		}
	}), nil
}
