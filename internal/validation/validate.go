// Package validation provides centralized input validation for upload sessions.
// This includes filename, size and content-type checks on initiate, object key
// checks on every session call, and part-set checks before completion.
//
// All inputs are validated before anything is sent to the storage backend.
package validation

import (
	"fmt"
	"mime"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/input-output-hk/catalyst-forge-libs/directupload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/uploadtypes"
)

// maxKeyLength is the S3 limit on object key length in bytes.
const maxKeyLength = 1024

// ValidateFilename checks that a filename is non-empty, at most 255 characters
// and free of control characters.
func ValidateFilename(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.NewError("validateFilename", errors.ErrInvalidFilename).
			WithMessage("filename cannot be empty")
	}
	if utf8.RuneCountInString(name) > uploadtypes.MaxFilenameLength {
		return errors.NewError("validateFilename", errors.ErrInvalidFilename).
			WithMessage(fmt.Sprintf("filename cannot exceed %d characters", uploadtypes.MaxFilenameLength))
	}
	if hasControlCharacters(name) {
		return errors.NewError("validateFilename", errors.ErrInvalidFilename).
			WithMessage("filename cannot contain control characters")
	}
	return nil
}

// ValidateFileSize checks 0 < size <= maxSize.
func ValidateFileSize(size, maxSize int64) error {
	if size <= 0 {
		return errors.NewError("validateFileSize", errors.ErrEmptyFile).
			WithMessage(fmt.Sprintf("file size must be positive, got %d", size))
	}
	if size > maxSize {
		return errors.NewError("validateFileSize", errors.ErrFileTooLarge).
			WithMessage(fmt.Sprintf("file size %d exceeds limit of %d bytes", size, maxSize))
	}
	return nil
}

// NormalizeContentType lowercases a MIME type and strips its parameters.
func NormalizeContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.Split(contentType, ";")[0]
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

// ValidateContentType checks a content type against an allow-list of normalized types.
func ValidateContentType(contentType string, allowed map[string]bool) error {
	normalized := NormalizeContentType(contentType)
	if normalized == "" {
		return errors.NewError("validateContentType", errors.ErrContentTypeNotAllowed).
			WithMessage("content type cannot be empty")
	}
	if !allowed[normalized] {
		return errors.NewError("validateContentType", errors.ErrContentTypeNotAllowed).
			WithMessage(fmt.Sprintf("content type %q is not allowed", normalized))
	}
	return nil
}

// ValidatePartNumber checks 1 <= partNumber <= MaxParts.
func ValidatePartNumber(partNumber int32) error {
	if partNumber < 1 || partNumber > uploadtypes.MaxParts {
		return errors.NewError("validatePartNumber", errors.ErrInvalidPart).
			WithMessage(fmt.Sprintf("part number must be between 1 and %d, got %d", uploadtypes.MaxParts, partNumber))
	}
	return nil
}

// ValidateUploadID checks that an upload ID is present.
func ValidateUploadID(uploadID string) error {
	if strings.TrimSpace(uploadID) == "" {
		return errors.NewError("validateUploadID", errors.ErrInvalidInput).
			WithMessage("upload ID cannot be empty")
	}
	return nil
}

// ValidateObjectKey validates that an object key is usable.
// This includes preventing path traversal and control characters.
func ValidateObjectKey(key string) error {
	if key == "" {
		return errors.NewError("validateObjectKey", errors.ErrInvalidKey).
			WithMessage("object key cannot be empty")
	}
	return validateKeyText("validateObjectKey", key)
}

// ValidateKeyPrefix validates an optional key prefix. An empty prefix is allowed.
func ValidateKeyPrefix(prefix string) error {
	if prefix == "" {
		return nil
	}
	return validateKeyText("validateKeyPrefix", prefix)
}

func validateKeyText(op, key string) error {
	if len(key) > maxKeyLength {
		return errors.NewError(op, errors.ErrInvalidKey).
			WithKey(key).
			WithMessage(fmt.Sprintf("object key cannot exceed %d characters", maxKeyLength))
	}
	if hasPathTraversal(key) {
		return errors.NewError(op, errors.ErrInvalidKey).
			WithKey(key).
			WithMessage("object key cannot contain path traversal sequences")
	}
	if hasControlCharacters(key) {
		return errors.NewError(op, errors.ErrInvalidKey).
			WithKey(key).
			WithMessage("object key cannot contain control characters")
	}
	return nil
}

// PartCount returns ceil(size / partSize).
func PartCount(size, partSize int64) int {
	if size <= 0 || partSize <= 0 {
		return 0
	}
	return int((size + partSize - 1) / partSize)
}

// ValidatePartSet checks that parts, sorted by part number, are exactly 1..N with
// non-empty ETags. It returns the sorted copy.
func ValidatePartSet(parts []uploadtypes.CompletedPart) ([]uploadtypes.CompletedPart, error) {
	if len(parts) == 0 {
		return nil, errors.NewError("validatePartSet", errors.ErrEmptyPartSet).
			WithMessage("at least one part is required")
	}
	if len(parts) > uploadtypes.MaxParts {
		return nil, errors.NewError("validatePartSet", errors.ErrIncompletePartSet).
			WithMessage(fmt.Sprintf("at most %d parts are allowed, got %d", uploadtypes.MaxParts, len(parts)))
	}

	sorted := make([]uploadtypes.CompletedPart, len(parts))
	copy(sorted, parts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PartNumber < sorted[j].PartNumber
	})

	for i, part := range sorted {
		expected := int32(i + 1)
		if part.PartNumber != expected {
			if part.PartNumber < expected {
				return nil, errors.NewError("validatePartSet", errors.ErrIncompletePartSet).
					WithPart(part.PartNumber).
					WithMessage(fmt.Sprintf("duplicate part number %d", part.PartNumber))
			}
			return nil, errors.NewError("validatePartSet", errors.ErrIncompletePartSet).
				WithPart(expected).
				WithMessage(fmt.Sprintf("missing part number %d", expected))
		}
		if strings.TrimSpace(part.ETag) == "" {
			return nil, errors.NewError("validatePartSet", errors.ErrIncompletePartSet).
				WithPart(part.PartNumber).
				WithMessage(fmt.Sprintf("part %d has no etag", part.PartNumber))
		}
	}

	return sorted, nil
}

// SanitizeFilename replaces every character outside [A-Za-z0-9._-] with an underscore,
// collapses runs of dots and strips any directory components.
func SanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	sanitized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	// Keys must never contain "..", so runs of dots collapse to one
	for strings.Contains(sanitized, "..") {
		sanitized = strings.ReplaceAll(sanitized, "..", ".")
	}
	if strings.Trim(sanitized, ".") == "" {
		return "file"
	}
	return sanitized
}

// hasPathTraversal checks for path traversal attempts in object keys
func hasPathTraversal(key string) bool {
	if strings.Contains(key, "..") {
		return true
	}

	cleaned := filepath.Clean(key)
	if strings.HasPrefix(cleaned, "..") || strings.HasPrefix(cleaned, "/") {
		return true
	}

	// Windows-style absolute paths
	if len(cleaned) >= 3 && cleaned[1] == ':' && (cleaned[2] == '\\' || cleaned[2] == '/') {
		return true
	}

	return false
}

// hasControlCharacters checks for control characters in the key
func hasControlCharacters(key string) bool {
	for _, char := range key {
		if unicode.IsControl(char) {
			return true
		}
	}
	return false
}
