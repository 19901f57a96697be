package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "op_only",
			err:  &Error{Op: "initiate", Err: ErrBackend},
			want: "upload.initiate: storage backend error",
		},
		{
			name: "bucket_and_key",
			err:  &Error{Op: "complete", Bucket: "b", Key: "k", Err: ErrNoSuchUpload},
			want: "upload.complete b/k: no such upload",
		},
		{
			name: "key_and_part",
			err:  &Error{Op: "uploadPart", Key: "k", PartNumber: 2, Err: ErrTransfer},
			want: "upload.uploadPart object k part 2: part transfer failed",
		},
		{
			name: "bucket_only",
			err:  &Error{Op: "abort", Bucket: "b", Err: ErrBackend},
			want: "upload.abort bucket b: storage backend error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindInternal},
		{"validation", ErrEmptyFile, KindValidation},
		{"wrapped_validation", fmt.Errorf("outer: %w", ErrInvalidPart), KindValidation},
		{"too_many_parts", ErrTooManyParts, KindTooManyParts},
		{"backend", ErrBackend, KindBackend},
		{"transfer", ErrMissingIntegrityToken, KindTransfer},
		{"cancelled", ErrCancelled, KindCancelled},
		{"context_cancelled", context.Canceled, KindCancelled},
		{"ambiguous", ErrAmbiguousCompletion, KindAmbiguousCompletion},
		{"no_such_upload", ErrNoSuchUpload, KindNotFound},
		{"object_not_found", ErrObjectNotFound, KindNotFound},
		{"unknown", errors.New("boom"), KindInternal},
		{"explicit_kind_wins", &Error{Op: "x", Kind: KindTransfer, Err: ErrBackend}, KindTransfer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestNewBackendError(t *testing.T) {
	err := NewBackendError("initiate", errors.New("AccessDenied"))
	assert.Equal(t, KindBackend, err.Kind)
	assert.ErrorIs(t, err, ErrBackend)
	assert.Contains(t, err.Error(), "AccessDenied")

	cancelled := NewBackendError("initiate", context.Canceled)
	assert.Equal(t, KindCancelled, cancelled.Kind)
	assert.NotErrorIs(t, cancelled, ErrBackend)
}

func TestWithHelpers(t *testing.T) {
	err := NewError("authorizePart", ErrInvalidPart).
		WithBucket("b").
		WithKey("k").
		WithPart(7).
		WithMessage("part number must be between 1 and 10000")

	assert.Equal(t, KindValidation, err.Kind)
	assert.ErrorIs(t, err, ErrInvalidPart)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, "upload.authorizePart b/k part 7: part number must be between 1 and 10000: invalid input: invalid part number", err.Error())
}

func TestSentinelFor(t *testing.T) {
	for _, kind := range []Kind{
		KindValidation, KindTooManyParts, KindBackend, KindTransfer,
		KindCancelled, KindAmbiguousCompletion, KindNotFound,
	} {
		sentinel := SentinelFor(kind)
		assert.NotNil(t, sentinel, kind)
		assert.Equal(t, kind, KindOf(sentinel), kind)
	}
	assert.Nil(t, SentinelFor(KindInternal))
	assert.Nil(t, SentinelFor("BOGUS"))
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

var _ net.Error = timeoutError{}

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(context.DeadlineExceeded))
	assert.True(t, IsTimeout(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)))
	assert.True(t, IsTimeout(fmt.Errorf("dial: %w", timeoutError{})))
	assert.False(t, IsTimeout(context.Canceled))
	assert.False(t, IsTimeout(errors.New("boom")))
	assert.False(t, IsTimeout(nil))
}

func TestIsCancelled(t *testing.T) {
	assert.True(t, IsCancelled(ErrCancelled))
	assert.True(t, IsCancelled(fmt.Errorf("put: %w", context.Canceled)))
	assert.True(t, IsCancelled(&Error{Op: "uploadPart", Kind: KindCancelled, Err: errors.New("stopped")}))
	assert.False(t, IsCancelled(nil))
	assert.False(t, IsCancelled(ErrTransfer))
}
