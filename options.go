package directupload

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/fs"

	"github.com/input-output-hk/catalyst-forge-libs/directupload/uploadtypes"
)

// PartTransport transfers one part body to a presigned URL and returns the ETag
// reported by the backend.
type PartTransport interface {
	PutPart(ctx context.Context, url string, body io.Reader, size int64, contentType string) (string, error)
}

// SleepFunc waits for d or until ctx is done, whichever comes first.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Config holds the Controller settings.
type Config struct {
	// Concurrency is the maximum number of parts in flight
	Concurrency int

	// MaxRetries is the number of retries after the first attempt of a part
	MaxRetries int

	// RetryDelay is the base delay between part attempts
	RetryDelay time.Duration

	// ExponentialBackoff doubles the delay on every retry when set
	ExponentialBackoff bool

	// Progress receives progress snapshots and the final outcome (optional)
	Progress uploadtypes.ProgressTracker

	// Logger receives lifecycle logs (optional)
	Logger *slog.Logger

	// PartTransport performs part transfers; defaults to an HTTP PUT transport
	PartTransport PartTransport

	// Filesystem is used by UploadFile; defaults to the OS filesystem
	Filesystem fs.Filesystem

	// Sleep waits between part attempts (optional)
	Sleep SleepFunc

	// CompleteTimeout bounds the complete call; zero means no bound
	CompleteTimeout time.Duration

	// CleanupTimeout bounds the abort and existence-probe calls made after a failure
	CleanupTimeout time.Duration

	// KeyPrefix is sent with initiate requests that carry no prefix of their own
	KeyPrefix string
}

// Option configures a Controller.
type Option func(*Config)

func defaultConfig() *Config {
	return &Config{
		Concurrency:        uploadtypes.DefaultConcurrency,
		MaxRetries:         uploadtypes.DefaultMaxRetries,
		RetryDelay:         uploadtypes.DefaultRetryDelay,
		ExponentialBackoff: true,
		CleanupTimeout:     30 * time.Second,
	}
}

// WithConcurrency sets the maximum number of parts uploaded at once.
// Default is 4. Non-positive values are ignored.
func WithConcurrency(concurrency int) Option {
	return func(c *Config) {
		if concurrency > 0 {
			c.Concurrency = concurrency
		}
	}
}

// WithMaxRetries sets the number of retries after the first attempt of a part.
// Default is 3. Set to 0 to disable retries.
func WithMaxRetries(maxRetries int) Option {
	return func(c *Config) {
		if maxRetries >= 0 {
			c.MaxRetries = maxRetries
		}
	}
}

// WithRetryDelay sets the base delay between part attempts. Default is 1s.
func WithRetryDelay(delay time.Duration) Option {
	return func(c *Config) {
		if delay >= 0 {
			c.RetryDelay = delay
		}
	}
}

// WithExponentialBackoff toggles doubling of the retry delay on every attempt.
// When disabled every retry waits the base delay. Default is enabled.
func WithExponentialBackoff(enabled bool) Option {
	return func(c *Config) {
		c.ExponentialBackoff = enabled
	}
}

// WithProgress sets the tracker that observes progress and the final outcome.
func WithProgress(tracker uploadtypes.ProgressTracker) Option {
	return func(c *Config) {
		c.Progress = tracker
	}
}

// WithLogger sets the logger. A nil logger discards all output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithPartTransport replaces the transport used to PUT part bodies.
func WithPartTransport(t PartTransport) Option {
	return func(c *Config) {
		c.PartTransport = t
	}
}

// WithFilesystem sets the filesystem UploadFile reads from.
func WithFilesystem(filesystem fs.Filesystem) Option {
	return func(c *Config) {
		c.Filesystem = filesystem
	}
}

// WithSleep replaces the function used to wait between part attempts.
func WithSleep(sleep SleepFunc) Option {
	return func(c *Config) {
		c.Sleep = sleep
	}
}

// WithCompleteTimeout bounds the complete call. A call that hits the bound is
// treated as an ambiguous completion.
func WithCompleteTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout >= 0 {
			c.CompleteTimeout = timeout
		}
	}
}

// WithCleanupTimeout bounds the abort and existence-probe calls. Default is 30s.
func WithCleanupTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.CleanupTimeout = timeout
		}
	}
}

// WithKeyPrefix sets the key prefix sent with initiate requests that have none.
func WithKeyPrefix(prefix string) Option {
	return func(c *Config) {
		c.KeyPrefix = prefix
	}
}
