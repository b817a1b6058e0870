package service

import (
	"fmt"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/platos/internal/imagestore"
)

// MaxImageSize is the largest accepted image upload.
const MaxImageSize = 5 * 1024 * 1024 // 5 MB

// allowedImageTypes is the set of declared content types accepted for uploads.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
}

var allowedImageExts = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".webp": true,
}

// ImageUpload is a binary image received from a client.
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ImageSource says where an item's image comes from. At most one of Upload
// and URL is used, Upload first. Keep leaves the current image untouched on
// update; with none of the three set an update clears the image.
type ImageSource struct {
	Upload *ImageUpload
	URL    string
	Keep   bool
}

func (src ImageSource) hasUpload() bool {
	return src.Upload != nil && len(src.Upload.Data) > 0
}

// contentType returns the declared type, normalized. Uploads that declare
// nothing are sniffed.
func (u *ImageUpload) contentType() string {
	declared := strings.TrimSpace(u.ContentType)
	if declared == "" || declared == "application/octet-stream" {
		return sniffImageType(u.Data)
	}
	mediaType, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return strings.ToLower(declared)
	}
	return mediaType
}

// sniffImageType detects the image type from magic bytes. WebP is checked
// separately because http.DetectContentType has no WebP signature.
func sniffImageType(data []byte) string {
	if len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP" {
		return "image/webp"
	}
	return http.DetectContentType(data)
}

// newStorageKey builds plato_<unix-millis>_<random>.<ext>.
func newStorageKey(now time.Time, filename, contentType string) string {
	ext := strings.ToLower(path.Ext(filename))
	if !allowedImageExts[ext] {
		ext = imagestore.MimeTypeToExt(contentType)
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	return fmt.Sprintf("plato_%d_%s%s", now.UnixMilli(), suffix, ext)
}
