package coordinator

// defaultContentTypes is the upload allow-list: common images, the 3MF and STL
// model types with their aliases, G-code and plain text, and a binary fallback.
var defaultContentTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"image/svg+xml",
	"image/bmp",
	"image/tiff",

	"model/3mf",
	"application/vnd.ms-package.3dmanufacturing-3dmodel+xml",

	"model/stl",
	"model/x.stl-binary",
	"model/x.stl-ascii",
	"application/sla",
	"application/vnd.ms-pki.stl",

	"text/x-gcode",
	"text/plain",

	"application/octet-stream",
}

// DefaultAllowedContentTypes returns a fresh copy of the default allow-list.
func DefaultAllowedContentTypes() map[string]bool {
	allowed := make(map[string]bool, len(defaultContentTypes))
	for _, ct := range defaultContentTypes {
		allowed[ct] = true
	}
	return allowed
}
