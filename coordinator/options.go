package coordinator

import (
	"log/slog"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/directupload/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/uploadtypes"
)

// Config holds the coordinator settings.
type Config struct {
	// PartSize is the fixed part size handed to clients
	PartSize int64

	// MaxFileSize is the largest accepted file
	MaxFileSize int64

	// AllowedContentTypes is the normalized content-type allow-list
	AllowedContentTypes map[string]bool

	// URLExpiry is the lifetime of presigned part URLs
	URLExpiry time.Duration

	// KeyPrefix is used when a request carries no prefix
	KeyPrefix string

	// Recorder stores completed uploads (optional)
	Recorder Recorder

	// Clock returns the current time
	Clock func() time.Time

	// KeyGenerator builds object keys
	KeyGenerator KeyGenerator

	// Logger receives lifecycle logs (optional)
	Logger *slog.Logger
}

// Option configures a Coordinator.
type Option func(*Config)

func defaultConfig() *Config {
	return &Config{
		PartSize:            uploadtypes.DefaultPartSize,
		MaxFileSize:         uploadtypes.MaxFileSize,
		AllowedContentTypes: DefaultAllowedContentTypes(),
		URLExpiry:           uploadtypes.PresignedURLExpiry,
		KeyPrefix:           uploadtypes.DefaultKeyPrefix,
		Clock:               time.Now,
		KeyGenerator:        DefaultKeyGenerator,
	}
}

// WithPartSize sets the part size. Values below the backend minimum of 5 MiB are ignored.
func WithPartSize(partSize int64) Option {
	return func(c *Config) {
		if partSize >= uploadtypes.MinPartSize {
			c.PartSize = partSize
		}
	}
}

// WithMaxFileSize sets the largest accepted file size.
func WithMaxFileSize(maxSize int64) Option {
	return func(c *Config) {
		if maxSize > 0 {
			c.MaxFileSize = maxSize
		}
	}
}

// WithAllowedContentTypes replaces the content-type allow-list.
func WithAllowedContentTypes(contentTypes ...string) Option {
	return func(c *Config) {
		if len(contentTypes) == 0 {
			return
		}
		allowed := make(map[string]bool, len(contentTypes))
		for _, ct := range contentTypes {
			allowed[validation.NormalizeContentType(ct)] = true
		}
		c.AllowedContentTypes = allowed
	}
}

// WithURLExpiry sets the lifetime of presigned part URLs. Default is one hour.
func WithURLExpiry(expiry time.Duration) Option {
	return func(c *Config) {
		if expiry > 0 {
			c.URLExpiry = expiry
		}
	}
}

// WithKeyPrefix sets the prefix used for requests that carry none.
func WithKeyPrefix(prefix string) Option {
	return func(c *Config) {
		c.KeyPrefix = prefix
	}
}

// WithRecorder stores a record of every completed upload.
func WithRecorder(recorder Recorder) Option {
	return func(c *Config) {
		c.Recorder = recorder
	}
}

// WithClock sets the time source used for key generation and records.
func WithClock(clock func() time.Time) Option {
	return func(c *Config) {
		if clock != nil {
			c.Clock = clock
		}
	}
}

// WithKeyGenerator replaces the object key generator.
func WithKeyGenerator(gen KeyGenerator) Option {
	return func(c *Config) {
		if gen != nil {
			c.KeyGenerator = gen
		}
	}
}

// WithLogger sets the logger for lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}
