// Package uploadtypes provides shared type definitions for direct multipart uploads.
package uploadtypes

import (
	"time"
)

// Protocol constants.
const (
	// MaxFileSize is the largest file accepted for upload (1 GiB)
	MaxFileSize int64 = 1 << 30

	// MinPartSize is the backend's minimum size for every part but the last (5 MiB)
	MinPartSize int64 = 5 << 20

	// DefaultPartSize is the fixed part size used for new sessions (10 MiB)
	DefaultPartSize int64 = 10 << 20

	// MaxParts is the backend's limit on parts per multipart upload
	MaxParts = 10000

	// MaxFilenameLength is the longest filename accepted, in characters
	MaxFilenameLength = 255

	// PresignedURLExpiry is the lifetime of a part upload URL
	PresignedURLExpiry = time.Hour

	// DefaultConcurrency is the number of part transfers in flight at once
	DefaultConcurrency = 4

	// DefaultMaxRetries is the number of retries after the first attempt of a part
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the base delay between part attempts
	DefaultRetryDelay = time.Second

	// DefaultKeyPrefix is prepended to generated object keys
	DefaultKeyPrefix = "uploads/"
)

// PartStatus represents the lifecycle state of one part.
type PartStatus string

const (
	// PartStatusPending indicates the part has not been attempted yet.
	PartStatusPending PartStatus = "pending"

	// PartStatusUploading indicates an attempt is in flight.
	PartStatusUploading PartStatus = "uploading"

	// PartStatusCompleted indicates the part was stored and its ETag recorded.
	PartStatusCompleted PartStatus = "completed"

	// PartStatusFailed indicates the last attempt failed. It is terminal once
	// retries are exhausted or the upload was cancelled.
	PartStatusFailed PartStatus = "failed"
)

// String returns the string representation of the PartStatus.
func (s PartStatus) String() string {
	return string(s)
}

// UploadSession represents one in-flight multipart upload as handed to the client.
type UploadSession struct {
	// UploadID is the backend-issued multipart upload identifier
	UploadID string

	// Key is the destination object key
	Key string

	// PartSize is the number of bytes per part (the last part may be shorter)
	PartSize int64

	// PartCount is ceil(FileSize / PartSize)
	PartCount int

	// FileSize is the total number of bytes to upload
	FileSize int64

	// ContentType is the declared MIME type of the whole file
	ContentType string
}

// PartRange returns the byte range [start, end) of a 1-based part.
func (s UploadSession) PartRange(partNumber int32) (start, end int64) {
	start = int64(partNumber-1) * s.PartSize
	end = start + s.PartSize
	if end > s.FileSize {
		end = s.FileSize
	}
	return start, end
}

// PartRecord tracks one chunk of the file during upload.
type PartRecord struct {
	// PartNumber is 1-based and contiguous
	PartNumber int32

	// Start is the first byte offset of the part
	Start int64

	// End is one past the last byte offset of the part
	End int64

	// Status is the current lifecycle state
	Status PartStatus

	// ETag is the integrity token returned for the stored part
	ETag string

	// RetryCount is the number of attempts made so far
	RetryCount int

	// Err is the error of the last failed attempt
	Err error
}

// Size returns the number of bytes in the part.
func (p PartRecord) Size() int64 {
	return p.End - p.Start
}

// CompletedPart pairs a part number with the ETag the backend returned for it.
type CompletedPart struct {
	PartNumber int32  `json:"partNumber"`
	ETag       string `json:"etag"`
}

// UploadOutcome is the immutable result of one upload attempt.
type UploadOutcome struct {
	// Key is the destination object key
	Key string

	// Location is the object URL reported by the backend, if any
	Location string

	// Bucket is the destination bucket, if reported
	Bucket string

	// ETag is the entity tag of the assembled object, if reported
	ETag string

	// Parts is the number of parts that were assembled
	Parts int

	// Size is the number of bytes uploaded
	Size int64

	// Duration is how long the upload took
	Duration time.Duration
}

// Progress is a snapshot of aggregate upload progress.
type Progress struct {
	// Percent is round(100 * CompletedParts / TotalParts)
	Percent int

	// CompletedParts is the number of parts in the completed state
	CompletedParts int

	// TotalParts is the number of parts in the session
	TotalParts int

	// PartNumber is the part whose transition produced this snapshot (0 for resets)
	PartNumber int32

	// Status is the new state of PartNumber
	Status PartStatus
}

// ProgressTracker defines the interface for observing upload progress.
// Update calls are serialized and carry non-decreasing Percent values; implementations
// must not block.
type ProgressTracker interface {
	// Update is called after every part state transition
	Update(p Progress)

	// Complete is called when the upload finishes successfully
	Complete(outcome *UploadOutcome)

	// Error is called when the upload fails
	Error(err error)
}

// Request and response shapes of the session-lifecycle API.

// InitiateRequest opens a new multipart session.
type InitiateRequest struct {
	Filename    string `json:"filename"`
	FileSize    int64  `json:"fileSize"`
	ContentType string `json:"contentType"`
	Prefix      string `json:"prefix,omitempty"`
}

// InitiateResult describes the opened session.
type InitiateResult struct {
	UploadID  string `json:"uploadId"`
	Key       string `json:"key"`
	PartSize  int64  `json:"partSize"`
	PartCount int    `json:"partCount"`
}

// AuthorizePartRequest asks for an upload URL for one part.
type AuthorizePartRequest struct {
	UploadID   string `json:"uploadId"`
	Key        string `json:"key"`
	PartNumber int32  `json:"partNumber"`
}

// AuthorizePartResult carries a presigned URL scoped to one part.
type AuthorizePartResult struct {
	PresignedURL string `json:"presignedUrl"`
	PartNumber   int32  `json:"partNumber"`
}

// CompleteRequest assembles the uploaded parts into the final object.
type CompleteRequest struct {
	UploadID string          `json:"uploadId"`
	Key      string          `json:"key"`
	Parts    []CompletedPart `json:"parts"`
}

// CompleteResult describes the assembled object.
type CompleteResult struct {
	Location string `json:"location,omitempty"`
	Bucket   string `json:"bucket,omitempty"`
	Key      string `json:"key,omitempty"`
	ETag     string `json:"etag,omitempty"`
}

// AbortRequest discards a multipart session.
type AbortRequest struct {
	UploadID string `json:"uploadId"`
	Key      string `json:"key"`
}

// AbortResult reports the abort outcome.
type AbortResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ExistsResult reports whether an object is present.
type ExistsResult struct {
	Key    string `json:"key"`
	Exists bool   `json:"exists"`
}

// ErrorResponse is the body of a failed API call.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// UploadRecord is the metadata stored for a completed upload.
type UploadRecord struct {
	UploadID    string    `json:"uploadId" dynamodbav:"uploadId"`
	Key         string    `json:"key" dynamodbav:"key"`
	Bucket      string    `json:"bucket" dynamodbav:"bucket"`
	ETag        string    `json:"etag" dynamodbav:"etag"`
	Location    string    `json:"location,omitempty" dynamodbav:"location,omitempty"`
	PartCount   int       `json:"partCount" dynamodbav:"partCount"`
	CompletedAt time.Time `json:"completedAt" dynamodbav:"completedAt"`
}
