// Package scheduler uploads the parts of a multipart session with bounded concurrency.
//
// Parts are admitted through a sliding window: a fixed number of workers pull part
// numbers from a queue, so a new part starts as soon as any in-flight part finishes.
// Each part follows an explicit state machine (pending, uploading, completed, failed)
// advanced by pure transition functions; retries back off exponentially through an
// injectable sleep function.
package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	uperrors "github.com/input-output-hk/catalyst-forge-libs/directupload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/uploadtypes"
)

// Authorizer issues presigned URLs for single parts.
type Authorizer interface {
	AuthorizePart(
		ctx context.Context,
		req *uploadtypes.AuthorizePartRequest,
	) (*uploadtypes.AuthorizePartResult, error)
}

// Transport transfers one part body to a presigned URL and returns the integrity
// token reported by the backend. An empty token with a nil error is a failure.
type Transport interface {
	PutPart(ctx context.Context, url string, body io.Reader, size int64, contentType string) (string, error)
}

// SleepFunc waits for d or until ctx is done, whichever comes first.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc backed by a timer.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Config holds the scheduler settings.
type Config struct {
	// Concurrency is the maximum number of parts in flight
	Concurrency int

	// MaxRetries is the number of retries after the first attempt of a part
	MaxRetries int

	// BaseDelay is the wait before the first retry
	BaseDelay time.Duration

	// ExponentialBackoff doubles the delay on every retry when set
	ExponentialBackoff bool

	// Sleep waits between attempts; defaults to Sleep
	Sleep SleepFunc

	// Tracker receives a snapshot after every part transition (optional)
	Tracker uploadtypes.ProgressTracker

	// Logger receives retry and failure logs (optional)
	Logger *slog.Logger
}

// Scheduler drives the part uploads of one session at a time.
type Scheduler struct {
	authorizer Authorizer
	transport  Transport
	cfg        Config
	policy     retryPolicy
	logger     *slog.Logger
}

// New creates a scheduler. Zero-valued settings take the package defaults.
func New(authorizer Authorizer, transport Transport, cfg Config) *Scheduler {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = uploadtypes.DefaultConcurrency
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Sleep == nil {
		cfg.Sleep = Sleep
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Scheduler{
		authorizer: authorizer,
		transport:  transport,
		cfg:        cfg,
		policy: retryPolicy{
			maxRetries:  cfg.MaxRetries,
			baseDelay:   cfg.BaseDelay,
			exponential: cfg.ExponentialBackoff,
		},
		logger: logger,
	}
}

// Result is the outcome of a scheduler run.
type Result struct {
	// Parts holds (partNumber, etag) pairs of completed parts, sorted by part number
	Parts []uploadtypes.CompletedPart

	// Records is the final state of every part record
	Records []uploadtypes.PartRecord
}

// Run uploads every part of session read from src. It returns the completed parts
// sorted by part number, or the first terminal part failure. After a failure no
// new part is started and in-flight transfers are cancelled.
func (s *Scheduler) Run(
	ctx context.Context,
	src io.ReaderAt,
	session uploadtypes.UploadSession,
) (*Result, error) {
	table := newPartTable(session, s.cfg.Tracker)
	if session.PartCount <= 0 {
		return &Result{}, nil
	}

	table.mu.Lock()
	table.emit(0, uploadtypes.PartStatusPending)
	table.mu.Unlock()

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	queue := make(chan int32, session.PartCount)
	for n := 1; n <= session.PartCount; n++ {
		queue <- int32(n)
	}
	close(queue)

	workers := min(s.cfg.Concurrency, session.PartCount)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for partNumber := range queue {
				started, err := s.uploadPart(runCtx, src, session, table, partNumber)
				if !started {
					return
				}
				if err != nil {
					if table.fail(err) {
						stop()
					}
					return
				}
			}
		}()
	}
	wg.Wait()

	result := &Result{Records: table.snapshot()}
	if err := table.err(); err != nil {
		return result, err
	}
	result.Parts = table.completedParts()
	return result, nil
}

// uploadPart runs the single-part protocol until the part reaches a terminal state.
// started is false when the upload was stopped before this part began.
func (s *Scheduler) uploadPart(
	ctx context.Context,
	src io.ReaderAt,
	session uploadtypes.UploadSession,
	table *partTable,
	partNumber int32,
) (started bool, err error) {
	logger := s.logger.With(
		"upload_id", session.UploadID,
		"key", session.Key,
		"part_number", partNumber,
	)

	for {
		rec, st, ok := table.begin(partNumber, ctx.Err() != nil)
		if !ok {
			return false, nil
		}
		if st.done {
			return true, s.partError(session, partNumber, st.err)
		}

		res := s.attempt(ctx, src, session, rec)

		rec, st = table.finish(partNumber, res, ctx.Err() != nil, s.policy)
		if st.done {
			if st.err != nil {
				if !uperrors.IsCancelled(st.err) {
					logger.Error("part failed", "attempt", rec.RetryCount, "error", st.err)
				}
				return true, s.partError(session, partNumber, st.err)
			}
			return true, nil
		}

		logger.Warn("retrying part",
			"attempt", rec.RetryCount,
			"delay", st.delay,
			"error", rec.Err,
		)
		// A sleep interrupted by cancellation is observed by the next begin
		_ = s.cfg.Sleep(ctx, st.delay)
	}
}

// attempt authorizes and transfers one part. Authorization is requested on every
// attempt so a retry never reuses a URL close to expiry.
func (s *Scheduler) attempt(
	ctx context.Context,
	src io.ReaderAt,
	session uploadtypes.UploadSession,
	rec uploadtypes.PartRecord,
) attemptResult {
	auth, err := s.authorizer.AuthorizePart(ctx, &uploadtypes.AuthorizePartRequest{
		UploadID:   session.UploadID,
		Key:        session.Key,
		PartNumber: rec.PartNumber,
	})
	if err != nil {
		return attemptResult{err: err}
	}
	if err := ctx.Err(); err != nil {
		return attemptResult{err: err}
	}

	body := io.NewSectionReader(src, rec.Start, rec.Size())
	etag, err := s.transport.PutPart(ctx, auth.PresignedURL, body, rec.Size(), session.ContentType)
	return attemptResult{etag: etag, err: err}
}

// partError wraps a terminal part failure with its kind and upload context.
func (s *Scheduler) partError(session uploadtypes.UploadSession, partNumber int32, err error) error {
	kind := uperrors.KindOf(err)
	switch {
	case uperrors.IsCancelled(err):
		kind = uperrors.KindCancelled
	case kind == uperrors.KindInternal:
		kind = uperrors.KindTransfer
	}
	return &uperrors.Error{
		Op:         "uploadPart",
		Kind:       kind,
		Key:        session.Key,
		PartNumber: partNumber,
		Err:        err,
	}
}
