// Package errors provides error types and handling for direct multipart uploads.
//
// Every failure surfaced by the coordinator, the scheduler or the controller is an
// *Error carrying the operation that failed, a Kind that classifies it, and the
// object context known at the time. Sentinel errors are wrapped underneath so callers
// can branch with errors.Is.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies an upload failure. Kinds are string-based for debuggability
// and so they can travel over the wire unchanged.
type Kind string

const (
	// KindValidation indicates the request was rejected before any backend call.
	KindValidation Kind = "VALIDATION"

	// KindTooManyParts indicates the computed part count exceeds the backend limit.
	KindTooManyParts Kind = "TOO_MANY_PARTS"

	// KindBackend indicates the object-storage backend failed an operation.
	KindBackend Kind = "BACKEND"

	// KindTransfer indicates a part transfer failed after exhausting its retries.
	KindTransfer Kind = "TRANSFER"

	// KindCancelled indicates the upload was cancelled by the caller.
	KindCancelled Kind = "CANCELLED"

	// KindAmbiguousCompletion indicates a complete call ended without a definitive answer.
	KindAmbiguousCompletion Kind = "AMBIGUOUS_COMPLETION"

	// KindNotFound indicates the referenced upload or object does not exist.
	KindNotFound Kind = "NOT_FOUND"

	// KindInternal indicates an unclassified failure.
	KindInternal Kind = "INTERNAL"
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	return string(k)
}

// Error represents an upload operation error with context about the operation that failed.
type Error struct {
	// Op is the operation that failed (e.g., "initiate", "authorizePart", "complete")
	Op string

	// Kind classifies the failure
	Kind Kind

	// Bucket is the destination bucket (if known)
	Bucket string

	// Key is the destination object key (if known)
	Key string

	// PartNumber is the part the failure belongs to (0 when not part-specific)
	PartNumber int32

	// Err is the underlying error
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	target := ""
	switch {
	case e.Bucket != "" && e.Key != "":
		target = " " + e.Bucket + "/" + e.Key
	case e.Key != "":
		target = " object " + e.Key
	case e.Bucket != "":
		target = " bucket " + e.Bucket
	}
	if e.PartNumber > 0 {
		target += fmt.Sprintf(" part %d", e.PartNumber)
	}
	return fmt.Sprintf("upload.%s%s: %v", e.Op, target, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithBucket adds bucket context to an existing error.
func (e *Error) WithBucket(bucket string) *Error {
	e.Bucket = bucket
	return e
}

// WithKey adds object key context to an existing error.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithPart adds part number context to an existing error.
func (e *Error) WithPart(partNumber int32) *Error {
	e.PartNumber = partNumber
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError creates a new Error with the given operation and underlying error.
// The kind is derived from the sentinels found in err; unknown errors are KindInternal.
func NewError(op string, err error) *Error {
	return &Error{
		Op:   op,
		Kind: classify(err),
		Err:  err,
	}
}

// NewBackendError creates a KindBackend error for a failed storage backend call,
// keeping the backend's own message in the chain.
func NewBackendError(op string, err error) *Error {
	if IsCancelled(err) {
		return NewError(op, err)
	}
	return &Error{
		Op:   op,
		Kind: KindBackend,
		Err:  fmt.Errorf("%w: %w", ErrBackend, err),
	}
}

// Sentinel errors for upload failures. These can be used with errors.Is() for error checking.
var (
	// ErrInvalidInput is the parent of every validation failure
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyFile indicates a zero-byte file
	ErrEmptyFile = fmt.Errorf("%w: file is empty", ErrInvalidInput)

	// ErrFileTooLarge indicates the file exceeds the maximum upload size
	ErrFileTooLarge = fmt.Errorf("%w: file too large", ErrInvalidInput)

	// ErrContentTypeNotAllowed indicates the content type is not in the allow-list
	ErrContentTypeNotAllowed = fmt.Errorf("%w: content type not allowed", ErrInvalidInput)

	// ErrInvalidFilename indicates an empty or overlong filename
	ErrInvalidFilename = fmt.Errorf("%w: invalid filename", ErrInvalidInput)

	// ErrInvalidKey indicates an unusable object key or key prefix
	ErrInvalidKey = fmt.Errorf("%w: invalid object key", ErrInvalidInput)

	// ErrInvalidPart indicates a part number outside 1..10000
	ErrInvalidPart = fmt.Errorf("%w: invalid part number", ErrInvalidInput)

	// ErrEmptyPartSet indicates complete was called without parts
	ErrEmptyPartSet = fmt.Errorf("%w: no parts", ErrInvalidInput)

	// ErrIncompletePartSet indicates gaps or duplicates in the part list
	ErrIncompletePartSet = fmt.Errorf("%w: incomplete part set", ErrInvalidInput)

	// ErrUploadInProgress indicates a controller is already driving an upload
	ErrUploadInProgress = fmt.Errorf("%w: upload already in progress", ErrInvalidInput)

	// ErrTooManyParts indicates the file needs more parts than the backend allows
	ErrTooManyParts = errors.New("too many parts")

	// ErrBackend indicates the storage backend rejected or failed a call
	ErrBackend = errors.New("storage backend error")

	// ErrTransfer indicates a part transfer failed
	ErrTransfer = errors.New("part transfer failed")

	// ErrMissingIntegrityToken indicates a successful transfer without an ETag
	ErrMissingIntegrityToken = fmt.Errorf("%w: missing integrity token", ErrTransfer)

	// ErrCancelled indicates the upload was cancelled
	ErrCancelled = errors.New("upload cancelled")

	// ErrAmbiguousCompletion indicates complete may or may not have assembled the object
	ErrAmbiguousCompletion = errors.New("completion outcome unknown")

	// ErrNoSuchUpload indicates the backend has no such multipart session
	ErrNoSuchUpload = errors.New("no such upload")

	// ErrObjectNotFound indicates the requested object does not exist
	ErrObjectNotFound = errors.New("object not found")
)

// classify maps an error chain to a Kind by looking for known sentinels.
func classify(err error) Kind {
	var e *Error
	if errors.As(err, &e) && e.Kind != "" {
		return e.Kind
	}
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrInvalidInput):
		return KindValidation
	case errors.Is(err, ErrTooManyParts):
		return KindTooManyParts
	case IsCancelled(err):
		return KindCancelled
	case errors.Is(err, ErrAmbiguousCompletion):
		return KindAmbiguousCompletion
	case errors.Is(err, ErrNoSuchUpload), errors.Is(err, ErrObjectNotFound):
		return KindNotFound
	case errors.Is(err, ErrTransfer):
		return KindTransfer
	case errors.Is(err, ErrBackend):
		return KindBackend
	default:
		return KindInternal
	}
}

// KindOf returns the Kind of err, looking through wrapping.
func KindOf(err error) Kind {
	return classify(err)
}

// SentinelFor returns the most general sentinel for a Kind. It is used to rebuild
// error chains from a Kind received over the wire.
func SentinelFor(kind Kind) error {
	switch kind {
	case KindValidation:
		return ErrInvalidInput
	case KindTooManyParts:
		return ErrTooManyParts
	case KindBackend:
		return ErrBackend
	case KindTransfer:
		return ErrTransfer
	case KindCancelled:
		return ErrCancelled
	case KindAmbiguousCompletion:
		return ErrAmbiguousCompletion
	case KindNotFound:
		return ErrNoSuchUpload
	default:
		return nil
	}
}

// IsValidation checks if an error is a validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsCancelled checks if an error indicates cancellation, including context cancellation.
func IsCancelled(err error) bool {
	if err == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) && e.Kind == KindCancelled {
		return true
	}
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

// IsAmbiguousCompletion checks if an error indicates an unknown completion outcome.
func IsAmbiguousCompletion(err error) bool {
	return errors.Is(err, ErrAmbiguousCompletion)
}

// IsNoSuchUpload checks if an error indicates a missing multipart session.
func IsNoSuchUpload(err error) bool {
	return errors.Is(err, ErrNoSuchUpload)
}

// IsTimeout checks if an error is a deadline or network timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
