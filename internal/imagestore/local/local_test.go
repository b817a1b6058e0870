package local

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/platos/internal/imagestore"
)

func newTestStore(t *testing.T) *LocalImageStore {
	t.Helper()
	store, err := NewLocalImageStore(t.TempDir(), "http://localhost:8080/")
	require.NoError(t, err)
	return store
}

func TestLocalImageStorePutAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	imageData := []byte("fake png data")

	err := store.Put(ctx, "plato_1_abc.png", "image/png", bytes.NewReader(imageData), int64(len(imageData)))
	require.NoError(t, err)

	reader, mimeType, err := store.Get(ctx, "plato_1_abc.png")
	require.NoError(t, err)
	defer reader.Close()

	assert.Equal(t, "image/png", mimeType)

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, imageData, data)
}

func TestLocalImageStorePutDoesNotOverwrite(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "plato.jpg", "image/jpeg", bytes.NewReader([]byte("a")), 1))
	err := store.Put(ctx, "plato.jpg", "image/jpeg", bytes.NewReader([]byte("b")), 1)
	assert.Error(t, err)
}

func TestLocalImageStoreDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "plato.jpg", "image/jpeg", bytes.NewReader([]byte("x")), 1))
	require.NoError(t, store.Delete(ctx, "plato.jpg"))

	_, _, err := store.Get(ctx, "plato.jpg")
	assert.True(t, errors.Is(err, imagestore.ErrNotFound))

	err = store.Delete(ctx, "plato.jpg")
	assert.True(t, errors.Is(err, imagestore.ErrNotFound))
}

func TestLocalImageStorePathTraversal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, _, err := store.Get(ctx, "../../etc/passwd")
	assert.Error(t, err)

	err = store.Put(ctx, "../escape.jpg", "image/jpeg", bytes.NewReader([]byte("x")), 1)
	assert.Error(t, err)
}

func TestLocalImageStoreURLRoundTrip(t *testing.T) {
	store := newTestStore(t)

	u := store.URL("plato_17_x1y2.webp")
	assert.Equal(t, "http://localhost:8080/images/plato_17_x1y2.webp", u)

	key, ok := store.KeyFromURL(u)
	assert.True(t, ok)
	assert.Equal(t, "plato_17_x1y2.webp", key)

	_, ok = store.KeyFromURL("https://example/img.jpg")
	assert.False(t, ok)
}
