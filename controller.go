package directupload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/fs"
	"github.com/input-output-hk/catalyst-forge-libs/fs/billy"

	uperrors "github.com/input-output-hk/catalyst-forge-libs/directupload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/internal/scheduler"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/transport"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/uploadtypes"
)

// SessionAPI is the session lifecycle a Controller drives. It is implemented by
// transport.SessionClient for remote servers and by coordinator.Coordinator in-process.
type SessionAPI interface {
	Initiate(ctx context.Context, req *uploadtypes.InitiateRequest) (*uploadtypes.InitiateResult, error)
	AuthorizePart(ctx context.Context, req *uploadtypes.AuthorizePartRequest) (*uploadtypes.AuthorizePartResult, error)
	Complete(ctx context.Context, req *uploadtypes.CompleteRequest) (*uploadtypes.CompleteResult, error)
	Abort(ctx context.Context, req *uploadtypes.AbortRequest) (*uploadtypes.AbortResult, error)
}

// ObjectProber reports whether an object exists. A SessionAPI that also implements
// ObjectProber lets the Controller resolve ambiguous completions.
type ObjectProber interface {
	ObjectExists(ctx context.Context, key string) (bool, error)
}

// State is a snapshot of the Controller's per-upload state.
type State struct {
	// Uploading is true while an upload is running
	Uploading bool

	// Progress is the last reported percentage (0-100)
	Progress int

	// Complete is true once the last upload finished successfully
	Complete bool

	// Err is the terminal error of the last upload, if any
	Err error

	// Outcome is the result of the last successful upload
	Outcome *uploadtypes.UploadOutcome
}

// Controller drives one file upload at a time end-to-end: initiate, upload every
// part, then complete, aborting the session on any failure after initiate.
//
// Thread Safety: Upload may be called again once the previous upload returned.
// Cancel and State are safe to call from any goroutine.
type Controller struct {
	api    SessionAPI
	cfg    *Config
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	state  State
}

// NewController creates a Controller over the given session API.
//
// Example:
//
//	ctrl := directupload.NewController(
//	    transport.NewSessionClient(baseURL),
//	    directupload.WithConcurrency(8),
//	    directupload.WithLogger(slog.Default()),
//	)
func NewController(api SessionAPI, opts ...Option) *Controller {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.PartTransport == nil {
		cfg.PartTransport = transport.NewHTTPPartTransport(nil)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Controller{
		api:    api,
		cfg:    cfg,
		logger: logger,
	}
}

// State returns a snapshot of the current upload state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Cancel stops the running upload. No new part is started, in-flight transfers
// are interrupted, and the session is aborted before Upload returns. Cancel is a
// no-op when nothing is running.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

// Upload uploads size bytes of src described by req. The request's FileSize must
// match the readable size of src.
//
// On failure the returned error carries its kind (see errors.KindOf) and the
// backend session, if one was opened, has been aborted. The one exception is an
// ambiguous completion that could not be verified, which leaves the session for
// the caller to inspect.
func (c *Controller) Upload(
	ctx context.Context,
	src io.ReaderAt,
	req uploadtypes.InitiateRequest,
) (*uploadtypes.UploadOutcome, error) {
	runCtx, err := c.start(ctx)
	if err != nil {
		return nil, err
	}
	defer c.finish()

	started := time.Now()
	if req.Prefix == "" {
		req.Prefix = c.cfg.KeyPrefix
	}

	init, err := c.api.Initiate(runCtx, &req)
	if err != nil {
		return nil, c.fail(err)
	}

	session := uploadtypes.UploadSession{
		UploadID:    init.UploadID,
		Key:         init.Key,
		PartSize:    init.PartSize,
		PartCount:   init.PartCount,
		FileSize:    req.FileSize,
		ContentType: req.ContentType,
	}
	logger := c.logger.With("upload_id", session.UploadID, "key", session.Key)
	logger.InfoContext(ctx, "upload started",
		"size", session.FileSize,
		"part_size", session.PartSize,
		"part_count", session.PartCount,
	)

	if want := validation.PartCount(session.FileSize, session.PartSize); session.PartCount != want || want == 0 {
		c.abort(ctx, session, logger)
		return nil, c.fail(&uperrors.Error{
			Op:   "upload",
			Kind: uperrors.KindInternal,
			Key:  session.Key,
			Err:  fmt.Errorf("session reports %d parts of %d bytes for a %d-byte file", session.PartCount, session.PartSize, session.FileSize),
		})
	}

	sched := scheduler.New(c.api, c.cfg.PartTransport, scheduler.Config{
		Concurrency:        c.cfg.Concurrency,
		MaxRetries:         c.cfg.MaxRetries,
		BaseDelay:          c.cfg.RetryDelay,
		ExponentialBackoff: c.cfg.ExponentialBackoff,
		Sleep:              scheduler.SleepFunc(c.cfg.Sleep),
		Tracker:            &stateTracker{c: c},
		Logger:             c.logger,
	})

	result, err := sched.Run(runCtx, src, session)
	if err != nil {
		c.abort(ctx, session, logger)
		return nil, c.fail(err)
	}

	outcome, err := c.complete(ctx, runCtx, session, result.Parts, logger)
	if err != nil {
		return nil, c.fail(err)
	}
	outcome.Duration = time.Since(started)

	logger.InfoContext(ctx, "upload completed", "parts", outcome.Parts, "duration", outcome.Duration)
	c.succeed(outcome)
	return outcome, nil
}

// UploadFile uploads the file at path from the configured filesystem. The content
// type is detected from the file name and contents.
func (c *Controller) UploadFile(ctx context.Context, path string) (*uploadtypes.UploadOutcome, error) {
	filesystem := c.cfg.Filesystem
	if filesystem == nil {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, uperrors.NewError("uploadFile", err)
		}
		filesystem, path = billy.NewOSFS("/"), abs
	}

	info, err := filesystem.Stat(path)
	if err != nil {
		return nil, uperrors.NewError("uploadFile", fmt.Errorf("failed to stat %s: %w", path, err))
	}
	if info.IsDir() {
		return nil, uperrors.NewError("uploadFile", uperrors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("%s is a directory", path))
	}

	file, err := openFile(filesystem, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	contentType := DetectContentType(info.Name(), io.NewSectionReader(file, 0, info.Size()))

	return c.Upload(ctx, file, uploadtypes.InitiateRequest{
		Filename:    info.Name(),
		FileSize:    info.Size(),
		ContentType: contentType,
	})
}

func openFile(filesystem fs.Filesystem, path string) (fs.File, error) {
	file, err := filesystem.Open(path)
	if err != nil {
		return nil, uperrors.NewError("uploadFile", fmt.Errorf("failed to open %s: %w", path, err))
	}
	return file, nil
}

// complete assembles the session. A timed-out or ambiguous completion is resolved
// through the existence probe; any other failure aborts the session.
func (c *Controller) complete(
	ctx context.Context,
	runCtx context.Context,
	session uploadtypes.UploadSession,
	parts []uploadtypes.CompletedPart,
	logger *slog.Logger,
) (*uploadtypes.UploadOutcome, error) {
	completeCtx := runCtx
	if c.cfg.CompleteTimeout > 0 {
		var cancel context.CancelFunc
		completeCtx, cancel = context.WithTimeout(runCtx, c.cfg.CompleteTimeout)
		defer cancel()
	}

	res, err := c.api.Complete(completeCtx, &uploadtypes.CompleteRequest{
		UploadID: session.UploadID,
		Key:      session.Key,
		Parts:    parts,
	})
	if err == nil {
		outcome := &uploadtypes.UploadOutcome{
			Key:   session.Key,
			Parts: len(parts),
			Size:  session.FileSize,
		}
		if res != nil {
			outcome.Location = res.Location
			outcome.Bucket = res.Bucket
			outcome.ETag = res.ETag
			if res.Key != "" {
				outcome.Key = res.Key
			}
		}
		return outcome, nil
	}

	if !uperrors.IsCancelled(err) && (uperrors.IsTimeout(err) || uperrors.IsAmbiguousCompletion(err)) {
		return c.resolveAmbiguous(ctx, session, len(parts), err, logger)
	}

	c.abort(ctx, session, logger)
	return nil, err
}

// resolveAmbiguous decides the outcome of a completion that ended without a
// definitive answer. complete is never retried: the object either exists (success),
// is absent (abort and fail), or its state is unknown (fail without aborting).
func (c *Controller) resolveAmbiguous(
	ctx context.Context,
	session uploadtypes.UploadSession,
	partCount int,
	cause error,
	logger *slog.Logger,
) (*uploadtypes.UploadOutcome, error) {
	ambiguous := ambiguousError(session.Key, cause)

	prober, ok := c.api.(ObjectProber)
	if !ok {
		logger.WarnContext(ctx, "completion outcome unknown and no existence probe is available", "error", cause)
		return nil, ambiguous
	}

	probeCtx, cancel := c.cleanupContext(ctx)
	defer cancel()

	exists, err := prober.ObjectExists(probeCtx, session.Key)
	switch {
	case err != nil:
		logger.WarnContext(ctx, "completion outcome unknown; existence probe failed",
			"error", cause,
			"probe_error", err,
		)
		return nil, ambiguous
	case exists:
		logger.InfoContext(ctx, "completion confirmed by existence probe")
		return &uploadtypes.UploadOutcome{
			Key:   session.Key,
			Parts: partCount,
			Size:  session.FileSize,
		}, nil
	default:
		logger.WarnContext(ctx, "object absent after ambiguous completion", "error", cause)
		c.abort(ctx, session, logger)
		return nil, ambiguous
	}
}

func ambiguousError(key string, err error) error {
	if uperrors.IsAmbiguousCompletion(err) {
		return err
	}
	return &uperrors.Error{
		Op:   "complete",
		Kind: uperrors.KindAmbiguousCompletion,
		Key:  key,
		Err:  fmt.Errorf("%w: %w", uperrors.ErrAmbiguousCompletion, err),
	}
}

// abort discards the session best-effort. Failures are logged and never returned.
func (c *Controller) abort(ctx context.Context, session uploadtypes.UploadSession, logger *slog.Logger) {
	abortCtx, cancel := c.cleanupContext(ctx)
	defer cancel()

	res, err := c.api.Abort(abortCtx, &uploadtypes.AbortRequest{
		UploadID: session.UploadID,
		Key:      session.Key,
	})
	if err != nil {
		logger.WarnContext(ctx, "failed to abort upload", "error", err)
		return
	}
	if res != nil {
		logger.InfoContext(ctx, "upload aborted", "message", res.Message)
	}
}

// cleanupContext detaches from cancellation of ctx so cleanup still runs after
// the upload was cancelled.
func (c *Controller) cleanupContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), c.cfg.CleanupTimeout)
}

func (c *Controller) start(ctx context.Context) (context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return nil, uperrors.NewError("upload", uperrors.ErrUploadInProgress)
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.state = State{Uploading: true}
	return runCtx, nil
}

func (c *Controller) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.state.Uploading = false
}

func (c *Controller) fail(err error) error {
	c.mu.Lock()
	c.state.Err = err
	c.mu.Unlock()

	if uperrors.IsCancelled(err) {
		c.logger.Info("upload cancelled")
	} else {
		c.logger.Error("upload failed", "kind", uperrors.KindOf(err), "error", err)
	}

	if c.cfg.Progress != nil {
		c.cfg.Progress.Error(err)
	}
	return err
}

func (c *Controller) succeed(outcome *uploadtypes.UploadOutcome) {
	c.mu.Lock()
	c.state.Complete = true
	c.state.Progress = 100
	c.state.Outcome = outcome
	c.mu.Unlock()

	if c.cfg.Progress != nil {
		c.cfg.Progress.Complete(outcome)
	}
}

// stateTracker records scheduler progress in the Controller state and forwards it.
type stateTracker struct {
	c *Controller
}

func (t *stateTracker) Update(p uploadtypes.Progress) {
	t.c.mu.Lock()
	if p.Percent > t.c.state.Progress {
		t.c.state.Progress = p.Percent
	}
	t.c.mu.Unlock()

	if t.c.cfg.Progress != nil {
		t.c.cfg.Progress.Update(p)
	}
}

func (t *stateTracker) Complete(*uploadtypes.UploadOutcome) {}

func (t *stateTracker) Error(error) {}
