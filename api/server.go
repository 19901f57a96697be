// Package api serves the upload session lifecycle over HTTP.
//
// Routes:
//
//	POST /api/uploads/initiate          open a multipart session
//	POST /api/uploads/parts/authorize   presign one part
//	POST /api/uploads/complete          assemble the object
//	POST /api/uploads/abort             discard the session
//	GET  /api/uploads/exists?key=       probe for an assembled object
//	GET  /healthz                       liveness
//
// Failures are returned as {"error": KIND, "message": text} with a status code
// derived from the error kind, so clients can rebuild typed errors.
package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/input-output-hk/catalyst-forge-libs/directupload/transport"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/uploadtypes"
)

// Service is the session lifecycle exposed by the server. It is implemented by
// *coordinator.Coordinator.
type Service interface {
	Initiate(ctx context.Context, req *uploadtypes.InitiateRequest) (*uploadtypes.InitiateResult, error)
	AuthorizePart(ctx context.Context, req *uploadtypes.AuthorizePartRequest) (*uploadtypes.AuthorizePartResult, error)
	Complete(ctx context.Context, req *uploadtypes.CompleteRequest) (*uploadtypes.CompleteResult, error)
	Abort(ctx context.Context, req *uploadtypes.AbortRequest) (*uploadtypes.AbortResult, error)
	ObjectExists(ctx context.Context, key string) (bool, error)
}

// Server is the HTTP front of a Service.
type Server struct {
	svc     Service
	cfg     *Config
	logger  *slog.Logger
	engine  *gin.Engine
	limiter *rate.Limiter
}

// Config holds the server settings.
type Config struct {
	// Logger receives request and error logs (optional)
	Logger *slog.Logger

	// RateLimit is the sustained number of requests per second; zero disables limiting
	RateLimit float64

	// RateBurst is the number of requests allowed above RateLimit in a burst
	RateBurst int

	// MaxBodyBytes caps the size of request bodies
	MaxBodyBytes int64

	// ShutdownTimeout bounds graceful shutdown in Run
	ShutdownTimeout time.Duration
}

// Option configures a Server.
type Option func(*Config)

// WithLogger sets the logger. A nil logger discards all output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithRateLimit limits the server to rps requests per second with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Config) {
		c.RateLimit = rps
		c.RateBurst = burst
	}
}

// WithMaxBodyBytes caps request bodies. Default is 1 MiB, enough for a full
// 10,000-part completion list.
func WithMaxBodyBytes(n int64) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxBodyBytes = n
		}
	}
}

// WithShutdownTimeout bounds graceful shutdown. Default is 10s.
func WithShutdownTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.ShutdownTimeout = d
		}
	}
}

// New creates a Server over svc.
func New(svc Service, opts ...Option) *Server {
	cfg := &Config{
		MaxBodyBytes:    1 << 20,
		ShutdownTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Server{
		svc:    svc,
		cfg:    cfg,
		logger: logger,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = max(1, int(cfg.RateLimit))
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	s.engine = s.setupRoutes()
	return s
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) setupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(s.logRequests)

	engine.GET("/healthz", s.handleHealth)

	uploads := engine.Group("/")
	if s.limiter != nil {
		uploads.Use(s.rateLimit)
	}
	uploads.Use(s.limitBody)
	{
		uploads.POST(transport.RouteInitiate, s.handleInitiate)
		uploads.POST(transport.RouteAuthorize, s.handleAuthorize)
		uploads.POST(transport.RouteComplete, s.handleComplete)
		uploads.POST(transport.RouteAbort, s.handleAbort)
		uploads.GET(transport.RouteExists, s.handleExists)
	}

	return engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting upload API server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down upload API server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
