package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	uperrors "github.com/input-output-hk/catalyst-forge-libs/directupload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/uploadtypes"
)

func TestRetryPolicyDelay(t *testing.T) {
	tests := []struct {
		name        string
		exponential bool
		attempt     int
		want        time.Duration
	}{
		{"exponential_first", true, 0, time.Second},
		{"exponential_second", true, 1, 2 * time.Second},
		{"exponential_third", true, 2, 4 * time.Second},
		{"constant_first", false, 0, time.Second},
		{"constant_third", false, 2, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := retryPolicy{maxRetries: 3, baseDelay: time.Second, exponential: tt.exponential}
			assert.Equal(t, tt.want, p.delay(tt.attempt))
		})
	}
}

func TestBegin(t *testing.T) {
	pending := uploadtypes.PartRecord{PartNumber: 1, Status: uploadtypes.PartStatusPending}

	t.Run("starts_upload", func(t *testing.T) {
		rec, st := begin(pending, false)
		assert.Equal(t, uploadtypes.PartStatusUploading, rec.Status)
		assert.False(t, st.done)
	})

	t.Run("cancelled_fails_without_attempt", func(t *testing.T) {
		rec, st := begin(pending, true)
		assert.Equal(t, uploadtypes.PartStatusFailed, rec.Status)
		assert.Equal(t, 0, rec.RetryCount)
		assert.True(t, st.done)
		assert.ErrorIs(t, st.err, uperrors.ErrCancelled)
	})

	t.Run("retry_clears_last_error", func(t *testing.T) {
		failed := uploadtypes.PartRecord{PartNumber: 1, Status: uploadtypes.PartStatusFailed, Err: errors.New("boom")}
		rec, _ := begin(failed, false)
		assert.Equal(t, uploadtypes.PartStatusUploading, rec.Status)
		assert.NoError(t, rec.Err)
	})
}

func TestAdvance(t *testing.T) {
	policy := retryPolicy{maxRetries: 3, baseDelay: 100 * time.Millisecond, exponential: true}
	uploading := func(attempts int) uploadtypes.PartRecord {
		return uploadtypes.PartRecord{PartNumber: 2, Status: uploadtypes.PartStatusUploading, RetryCount: attempts}
	}
	transient := errors.New("connection reset")

	tests := []struct {
		name       string
		rec        uploadtypes.PartRecord
		res        attemptResult
		cancelled  bool
		wantStatus uploadtypes.PartStatus
		wantCount  int
		wantStep   step
		wantErr    error
	}{
		{
			name:       "success_records_etag",
			rec:        uploading(0),
			res:        attemptResult{etag: `"abc"`},
			wantStatus: uploadtypes.PartStatusCompleted,
			wantCount:  1,
			wantStep:   step{done: true},
		},
		{
			name:       "first_failure_retries_after_base_delay",
			rec:        uploading(0),
			res:        attemptResult{err: transient},
			wantStatus: uploadtypes.PartStatusFailed,
			wantCount:  1,
			wantStep:   step{retry: true, delay: 100 * time.Millisecond},
		},
		{
			name:       "third_failure_doubles_twice",
			rec:        uploading(2),
			res:        attemptResult{err: transient},
			wantStatus: uploadtypes.PartStatusFailed,
			wantCount:  3,
			wantStep:   step{retry: true, delay: 400 * time.Millisecond},
		},
		{
			name:       "last_attempt_is_terminal",
			rec:        uploading(3),
			res:        attemptResult{err: transient},
			wantStatus: uploadtypes.PartStatusFailed,
			wantCount:  4,
			wantErr:    transient,
		},
		{
			name:       "missing_etag_is_failure",
			rec:        uploading(0),
			res:        attemptResult{},
			wantStatus: uploadtypes.PartStatusFailed,
			wantCount:  1,
			wantStep:   step{retry: true, delay: 100 * time.Millisecond},
		},
		{
			name:       "failure_after_cancel_is_terminal",
			rec:        uploading(0),
			res:        attemptResult{err: context.Canceled},
			cancelled:  true,
			wantStatus: uploadtypes.PartStatusFailed,
			wantCount:  1,
			wantErr:    uperrors.ErrCancelled,
		},
		{
			name:       "success_wins_over_late_cancel",
			rec:        uploading(1),
			res:        attemptResult{etag: `"abc"`},
			cancelled:  true,
			wantStatus: uploadtypes.PartStatusCompleted,
			wantCount:  2,
			wantStep:   step{done: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, st := advance(tt.rec, tt.res, tt.cancelled, policy)
			assert.Equal(t, tt.wantStatus, rec.Status)
			assert.Equal(t, tt.wantCount, rec.RetryCount)

			if tt.wantErr != nil {
				assert.True(t, st.done)
				assert.False(t, st.retry)
				assert.ErrorIs(t, st.err, tt.wantErr)
				return
			}
			assert.Equal(t, tt.wantStep, st)
		})
	}
}

func TestAdvanceMissingETagError(t *testing.T) {
	policy := retryPolicy{maxRetries: 0}
	rec, st := advance(uploadtypes.PartRecord{PartNumber: 1}, attemptResult{}, false, policy)

	assert.True(t, st.done)
	assert.ErrorIs(t, st.err, uperrors.ErrMissingIntegrityToken)
	assert.ErrorIs(t, rec.Err, uperrors.ErrTransfer)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0, percent(0, 3))
	assert.Equal(t, 33, percent(1, 3))
	assert.Equal(t, 67, percent(2, 3))
	assert.Equal(t, 100, percent(3, 3))
	assert.Equal(t, 0, percent(0, 0))
}
