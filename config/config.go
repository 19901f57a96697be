// Package config loads the upload server configuration.
//
// Configuration comes from an optional YAML file with environment overrides. Every
// key can be set through an environment variable named DIRECTUPLOAD_ followed by the
// upper-cased key path with dots replaced by underscores, for example
// DIRECTUPLOAD_STORAGE_BUCKET or DIRECTUPLOAD_SERVER_ADDR.
//
// Example file:
//
//	server:
//	  addr: ":8080"
//	  rate_limit: 50
//	  rate_burst: 100
//	log_level: info
//	storage:
//	  backend: s3
//	  bucket: uploads
//	  region: us-east-1
//	upload:
//	  key_prefix: uploads/
//	store:
//	  kind: dynamodb
//	  dynamodb_table: completed-uploads
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"

	"github.com/input-output-hk/catalyst-forge-libs/directupload/uploadtypes"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "DIRECTUPLOAD"

// Storage backends.
const (
	BackendS3    = "s3"
	BackendMinio = "minio"
)

// Metadata store kinds.
const (
	StoreNone     = "none"
	StorePostgres = "postgres"
	StoreDynamoDB = "dynamodb"
)

// Config is the complete server configuration.
type Config struct {
	Server   ServerConfig  `mapstructure:"server"`
	LogLevel string        `mapstructure:"log_level"`
	Storage  StorageConfig `mapstructure:"storage"`
	Upload   UploadConfig  `mapstructure:"upload"`
	Store    StoreConfig   `mapstructure:"store"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	RateLimit       float64       `mapstructure:"rate_limit"`
	RateBurst       int           `mapstructure:"rate_burst"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StorageConfig selects and configures the object storage backend.
type StorageConfig struct {
	Backend         string `mapstructure:"backend"`
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// UploadConfig holds the session parameters handed to the coordinator.
type UploadConfig struct {
	KeyPrefix           string        `mapstructure:"key_prefix"`
	PartSize            int64         `mapstructure:"part_size"`
	MaxFileSize         int64         `mapstructure:"max_file_size"`
	URLExpiry           time.Duration `mapstructure:"url_expiry"`
	AllowedContentTypes []string      `mapstructure:"allowed_content_types"`
}

// StoreConfig selects the metadata store for completed uploads.
type StoreConfig struct {
	Kind          string `mapstructure:"kind"`
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	DynamoDBTable string `mapstructure:"dynamodb_table"`

	// DynamoDBEndpoint overrides the DynamoDB endpoint (LocalStack)
	DynamoDBEndpoint string `mapstructure:"dynamodb_endpoint"`
}

// defaults lists every key with its default value. Registering all keys lets
// environment overrides reach keys that are absent from the file.
var defaults = map[string]any{
	"server.addr":                  ":8080",
	"server.rate_limit":            0.0,
	"server.rate_burst":            0,
	"server.max_body_bytes":        int64(1 << 20),
	"server.shutdown_timeout":      10 * time.Second,
	"log_level":                    "info",
	"storage.backend":              BackendS3,
	"storage.bucket":               "",
	"storage.region":               "us-east-1",
	"storage.endpoint":             "",
	"storage.access_key_id":        "",
	"storage.secret_access_key":    "",
	"storage.use_path_style":       false,
	"upload.key_prefix":            uploadtypes.DefaultKeyPrefix,
	"upload.part_size":             uploadtypes.DefaultPartSize,
	"upload.max_file_size":         uploadtypes.MaxFileSize,
	"upload.url_expiry":            uploadtypes.PresignedURLExpiry,
	"upload.allowed_content_types": []string{},
	"store.kind":                   StoreNone,
	"store.postgres_dsn":           "",
	"store.dynamodb_table":         "",
	"store.dynamodb_endpoint":      "",
}

// Load reads the configuration from path, applies environment overrides and
// validates the result. An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every problem in the configuration at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.Server.Addr == "" {
		result = multierror.Append(result, errors.New("server.addr is required"))
	}
	if c.Server.RateLimit < 0 {
		result = multierror.Append(result, errors.New("server.rate_limit cannot be negative"))
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
		result = multierror.Append(result, errors.New("server.rate_burst must be at least 1 when rate limiting"))
	}
	if c.Server.MaxBodyBytes <= 0 {
		result = multierror.Append(result, errors.New("server.max_body_bytes must be positive"))
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		result = multierror.Append(result, fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel))
	}

	switch c.Storage.Backend {
	case BackendS3:
	case BackendMinio:
		if c.Storage.Endpoint == "" {
			result = multierror.Append(result, errors.New("storage.endpoint is required for minio"))
		}
		if c.Storage.AccessKeyID == "" || c.Storage.SecretAccessKey == "" {
			result = multierror.Append(result, errors.New("storage credentials are required for minio"))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("storage.backend %q is not one of s3, minio", c.Storage.Backend))
	}
	if c.Storage.Bucket == "" {
		result = multierror.Append(result, errors.New("storage.bucket is required"))
	}

	if c.Upload.PartSize < uploadtypes.MinPartSize {
		result = multierror.Append(result, fmt.Errorf(
			"upload.part_size must be at least %d bytes, got %d", uploadtypes.MinPartSize, c.Upload.PartSize))
	}
	if c.Upload.MaxFileSize <= 0 {
		result = multierror.Append(result, errors.New("upload.max_file_size must be positive"))
	}
	if c.Upload.URLExpiry <= 0 {
		result = multierror.Append(result, errors.New("upload.url_expiry must be positive"))
	}

	switch c.Store.Kind {
	case StoreNone:
	case StorePostgres:
		if c.Store.PostgresDSN == "" {
			result = multierror.Append(result, errors.New("store.postgres_dsn is required for postgres"))
		}
	case StoreDynamoDB:
		if c.Store.DynamoDBTable == "" {
			result = multierror.Append(result, errors.New("store.dynamodb_table is required for dynamodb"))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("store.kind %q is not one of none, postgres, dynamodb", c.Store.Kind))
	}

	return result.ErrorOrNil()
}
