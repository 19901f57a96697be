package scheduler

import (
	"errors"
	"fmt"
	"time"

	uperrors "github.com/input-output-hk/catalyst-forge-libs/directupload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/uploadtypes"
)

// retryPolicy decides whether and when a failed part is attempted again.
type retryPolicy struct {
	maxRetries  int
	baseDelay   time.Duration
	exponential bool
}

// delay returns the wait before the attempt following attempt (0-based).
func (p retryPolicy) delay(attempt int) time.Duration {
	if !p.exponential || attempt <= 0 {
		return p.baseDelay
	}
	return p.baseDelay * time.Duration(1<<uint(attempt))
}

// attemptResult is the outcome of one authorize+transfer round trip.
type attemptResult struct {
	etag string
	err  error
}

// step tells the worker what to do after a transition.
type step struct {
	// done is set when the part reached a terminal state
	done bool

	// retry is set when the part should be attempted again after delay
	retry bool
	delay time.Duration

	// err is the terminal failure; nil when the part completed
	err error
}

// begin moves a part into the uploading state. A cancelled upload fails the
// part terminally without an attempt.
func begin(rec uploadtypes.PartRecord, cancelled bool) (uploadtypes.PartRecord, step) {
	if cancelled {
		rec.Status = uploadtypes.PartStatusFailed
		rec.Err = uperrors.ErrCancelled
		return rec, step{done: true, err: uperrors.ErrCancelled}
	}
	rec.Status = uploadtypes.PartStatusUploading
	rec.Err = nil
	return rec, step{}
}

// advance applies the result of one attempt to a part in the uploading state.
// RetryCount counts attempts, so the attempt index is its value before the update.
func advance(
	rec uploadtypes.PartRecord,
	res attemptResult,
	cancelled bool,
	policy retryPolicy,
) (uploadtypes.PartRecord, step) {
	attempt := rec.RetryCount
	rec.RetryCount++

	if res.err == nil && res.etag != "" {
		rec.Status = uploadtypes.PartStatusCompleted
		rec.ETag = res.etag
		rec.Err = nil
		return rec, step{done: true}
	}

	err := res.err
	if err == nil {
		err = uperrors.ErrMissingIntegrityToken
	}
	rec.Status = uploadtypes.PartStatusFailed
	rec.Err = err

	switch {
	case cancelled:
		return rec, step{done: true, err: cancelledError(err)}
	case attempt >= policy.maxRetries:
		return rec, step{done: true, err: err}
	default:
		return rec, step{retry: true, delay: policy.delay(attempt)}
	}
}

// cancelledError marks cause as a cancellation while keeping it in the chain.
func cancelledError(cause error) error {
	if cause == nil {
		return uperrors.ErrCancelled
	}
	if errors.Is(cause, uperrors.ErrCancelled) {
		return cause
	}
	return fmt.Errorf("%w: %w", uperrors.ErrCancelled, cause)
}
