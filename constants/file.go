package constants

import "strings"

// ImageFormat is the re-encoding target of a prepared image.
type ImageFormat string

const (
	FormatJPEG ImageFormat = "jpeg"
	FormatPNG  ImageFormat = "png"
)

// DefaultMimeType is used whenever the real type of an image is unknown.
const DefaultMimeType = "image/jpeg"

// AllowedExtensions holds the photo extensions accepted by file-backed capture devices.
var AllowedExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"webp": {},
	"bmp":  {},
	"tif":  {},
	"tiff": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MimeType returns the MIME type a prepared image of this format is sent with.
func (f ImageFormat) MimeType() string {
	if f == FormatPNG {
		return "image/png"
	}
	return DefaultMimeType
}

// ExtFromMime returns the file extension OCR.Space expects for an upload, e.g. "jpeg" for image/jpeg.
func ExtFromMime(mime string) string {
	if mime == "" {
		mime = DefaultMimeType
	}
	_, sub, ok := strings.Cut(mime, "/")
	if !ok || sub == "" {
		return "jpg"
	}
	return sub
}
