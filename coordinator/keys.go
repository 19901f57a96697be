package coordinator

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/input-output-hk/catalyst-forge-libs/directupload/internal/validation"
)

// KeyGenerator builds the object key for a new upload.
type KeyGenerator func(prefix, filename string, now time.Time) string

// DefaultKeyGenerator returns prefix + unix millis + random suffix + sanitized filename,
// for example "uploads/1718000000000-3f2a9c1d-model.stl".
func DefaultKeyGenerator(prefix, filename string, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return normalizePrefix(prefix) +
		strconv.FormatInt(now.UnixMilli(), 10) + "-" +
		suffix + "-" +
		validation.SanitizeFilename(filename)
}

// normalizePrefix ensures a non-empty prefix ends with a slash.
func normalizePrefix(prefix string) string {
	if prefix == "" || strings.HasSuffix(prefix, "/") {
		return prefix
	}
	return prefix + "/"
}
