package imagestore

import (
	"context"
	"errors"
	"io"
	"net/url"
	"path"
	"strings"
)

var ErrNotFound = errors.New("image not found")

// ImageStore is the blob bucket holding uploaded menu item images. Keys are
// flat file names; URL returns the public address a browser can load.
type ImageStore interface {
	Put(ctx context.Context, key, contentType string, r io.Reader, size int64) error
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
	KeyFromURL(rawURL string) (string, bool)
}

// KeyFromURL returns the last path segment of rawURL when rawURL lives under
// base. URLs pointing elsewhere are not ours to delete.
func KeyFromURL(base, rawURL string) (string, bool) {
	base = strings.TrimRight(base, "/") + "/"
	if !strings.HasPrefix(rawURL, base) {
		return "", false
	}
	rest := strings.TrimPrefix(rawURL, base)
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}
	if rest == "" {
		return "", false
	}
	key, err := url.PathUnescape(path.Base(rest))
	if err != nil || key == "" {
		return "", false
	}
	return key, true
}

// ExtToMimeType maps a file extension to the content type it is served with.
func ExtToMimeType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

func MimeTypeToExt(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
