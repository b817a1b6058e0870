package imagestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyFromURL(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		rawURL  string
		wantKey string
		wantOK  bool
	}{
		{"own image", "http://localhost:8080/images", "http://localhost:8080/images/plato_1_abc.jpg", "plato_1_abc.jpg", true},
		{"base with trailing slash", "http://cdn/platos/", "http://cdn/platos/plato_2.png", "plato_2.png", true},
		{"escaped key", "http://cdn/platos", "http://cdn/platos/plato%201.png", "plato 1.png", true},
		{"foreign host", "http://cdn/platos", "https://example/img.jpg", "", false},
		{"prefix lookalike", "http://cdn/platos", "http://cdn/platos-other/x.jpg", "", false},
		{"bare base", "http://cdn/platos", "http://cdn/platos/", "", false},
		{"empty", "http://cdn/platos", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, ok := KeyFromURL(tt.base, tt.rawURL)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantKey, key)
		})
	}
}

func TestMimeExtMapping(t *testing.T) {
	for _, mime := range []string{"image/png", "image/gif", "image/webp", "image/jpeg"} {
		assert.Equal(t, mime, ExtToMimeType("x"+MimeTypeToExt(mime)))
	}
	assert.Equal(t, ".jpg", MimeTypeToExt("image/jpg"))
	assert.Equal(t, "image/jpeg", ExtToMimeType("photo.JPEG"))
}
