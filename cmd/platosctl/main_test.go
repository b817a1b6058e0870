package main

import (
	"bytes"
	"context"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/platos/internal/db"
	"github.com/vbonduro/platos/internal/domain"
	"github.com/vbonduro/platos/internal/imagestore/local"
	"github.com/vbonduro/platos/internal/service"
	"github.com/vbonduro/platos/internal/session"
	"github.com/vbonduro/platos/internal/store"
	"github.com/vbonduro/platos/internal/web"
	"github.com/vbonduro/platos/internal/web/templates"
)

func newTestServer(t *testing.T) string {
	t.Helper()
	database, err := db.OpenForTesting()
	require.NoError(t, err)

	srv := httptest.NewUnstartedServer(nil)
	images, err := local.NewLocalImageStore(t.TempDir(), "http://"+srv.Listener.Addr().String())
	require.NoError(t, err)
	svc := service.NewMenuService(store.NewItemStore(database), images, slog.Default())
	guard := session.NewGuard(session.Credentials{Username: "admin", Password: "secreto"}, false)
	srv.Config.Handler = web.NewServer(svc, guard, templates.FS, web.Options{Images: images}, slog.Default())
	srv.Start()
	t.Cleanup(func() {
		srv.Close()
		_ = database.Close()
	})
	return srv.URL
}

func runCmd(t *testing.T, addr string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), append([]string{"-addr", addr}, args...), &out, slog.Default())
	return out.String(), err
}

func TestCreateListToggleDelete(t *testing.T) {
	addr := newTestServer(t)

	out, err := runCmd(t, addr, "create",
		"-title", "Tigrillo",
		"-description", "Verde majado con queso y huevo",
		"-price", "5.50",
		"-active",
		"-image-url", "https://example/img.jpg",
	)
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	require.NotEmpty(t, id)

	out, err = runCmd(t, addr, "list", "-active")
	require.NoError(t, err)
	assert.Contains(t, out, "Tigrillo")
	assert.Contains(t, out, "5.50")

	out, err = runCmd(t, addr, "toggle", id)
	require.NoError(t, err)
	assert.Contains(t, out, "false")

	out, err = runCmd(t, addr, "list", "-active")
	require.NoError(t, err)
	assert.NotContains(t, out, "Tigrillo")

	out, err = runCmd(t, addr, "update", id, "-price", "6", "-keep-image")
	require.NoError(t, err)
	assert.Contains(t, out, "6.00")
	assert.Contains(t, out, "https://example/img.jpg")

	_, err = runCmd(t, addr, "delete", id)
	require.NoError(t, err)

	_, err = runCmd(t, addr, "get", id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateWithImageFile(t *testing.T) {
	addr := newTestServer(t)
	path := filepath.Join(t.TempDir(), "bolon.png")
	require.NoError(t, os.WriteFile(path, append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...), 0600))

	out, err := runCmd(t, addr, "create",
		"-title", "Bolón",
		"-description", "Bolón con chicharrón y queso",
		"-price", "4",
		"-image", path,
	)
	require.NoError(t, err)

	out, err = runCmd(t, addr, "get", strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Contains(t, out, "/images/plato_")
}

func TestToggleUnknownItemReportsError(t *testing.T) {
	addr := newTestServer(t)

	out, err := runCmd(t, addr, "toggle", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, out, "error:")
}

func TestLogin(t *testing.T) {
	addr := newTestServer(t)

	_, err := runCmd(t, addr, "login", "-user", "admin", "-password", "mal")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	out, err := runCmd(t, addr, "login", "-user", "admin", "-password", "secreto")
	require.NoError(t, err)
	assert.Contains(t, out, "accepted")
}

func TestUsage(t *testing.T) {
	_, err := runCmd(t, "http://127.0.0.1:1")
	assert.ErrorIs(t, err, errUsage)

	_, err = runCmd(t, "http://127.0.0.1:1", "bogus")
	assert.ErrorIs(t, err, errUsage)

	_, err = runCmd(t, "http://127.0.0.1:1", "get")
	assert.ErrorIs(t, err, errUsage)
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "image/png", contentTypeFor("a.PNG"))
	assert.Equal(t, "image/jpeg", contentTypeFor("a.jpeg"))
	assert.Empty(t, contentTypeFor("notes.txt"))
}
