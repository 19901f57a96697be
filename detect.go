package directupload

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/input-output-hk/catalyst-forge-libs/directupload/internal/validation"
)

// defaultContentType is used when nothing better can be detected.
const defaultContentType = "application/octet-stream"

// extensionTypes covers formats content sniffing does not recognize reliably.
var extensionTypes = map[string]string{
	".3mf":   "model/3mf",
	".stl":   "model/stl",
	".gcode": "text/x-gcode",
	".gco":   "text/x-gcode",
}

// DetectContentType determines the content type of a file from its extension,
// then by sniffing the leading bytes of r, falling back to application/octet-stream.
func DetectContentType(filename string, r io.Reader) string {
	if ct, ok := extensionTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return ct
	}

	if r != nil {
		if mt, err := mimetype.DetectReader(r); err == nil && mt != nil {
			if ct := validation.NormalizeContentType(mt.String()); ct != "" {
				return ct
			}
		}
	}

	return defaultContentType
}
