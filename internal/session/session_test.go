package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vbonduro/platos/internal/domain"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestVerifyPlainPassword(t *testing.T) {
	g := NewGuard(Credentials{Username: "admin", Password: "secreto"}, false)

	assert.NoError(t, g.Verify("admin", "secreto"))
	assert.ErrorIs(t, g.Verify("admin", "wrong"), domain.ErrInvalidCredentials)
	assert.ErrorIs(t, g.Verify("root", "secreto"), domain.ErrInvalidCredentials)
	assert.ErrorIs(t, g.Verify("", ""), domain.ErrInvalidCredentials)
}

func TestVerifyHashedPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secreto"), bcrypt.MinCost)
	require.NoError(t, err)
	g := NewGuard(Credentials{Username: "admin", Password: "ignored", PasswordHash: string(hash)}, false)

	assert.NoError(t, g.Verify("admin", "secreto"))
	assert.ErrorIs(t, g.Verify("admin", "ignored"), domain.ErrInvalidCredentials)
}

func TestVerifyRejectsEmptyConfiguredUser(t *testing.T) {
	g := NewGuard(Credentials{}, false)
	assert.ErrorIs(t, g.Verify("", ""), domain.ErrInvalidCredentials)
}

func TestSetCookie(t *testing.T) {
	g := NewGuard(Credentials{Username: "admin", Password: "x"}, true)
	rec := httptest.NewRecorder()
	g.SetCookie(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, CookieName, c.Name)
	assert.Equal(t, "authenticated", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, 7*24*60*60, c.MaxAge)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
}

func TestClearCookie(t *testing.T) {
	g := NewGuard(Credentials{}, false)
	rec := httptest.NewRecorder()
	g.ClearCookie(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.True(t, cookies[0].Expires.Before(time.Now()))
}

func TestAuthenticated(t *testing.T) {
	g := NewGuard(Credentials{}, false)

	r := httptest.NewRequest(http.MethodGet, "/admin", nil)
	assert.False(t, g.Authenticated(r))

	r.AddCookie(&http.Cookie{Name: CookieName, Value: "nope"})
	assert.False(t, g.Authenticated(r))

	r = httptest.NewRequest(http.MethodGet, "/admin", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: "authenticated"})
	assert.True(t, g.Authenticated(r))
}

func TestRequireSessionRedirectsWithFrom(t *testing.T) {
	g := NewGuard(Credentials{}, false)
	h := g.RequireSession(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/platos?tab=2", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?from=%2Fadmin%2Fplatos%3Ftab%3D2", rec.Header().Get("Location"))
}

func TestRequireSessionPassesAuthenticated(t *testing.T) {
	g := NewGuard(Credentials{}, false)
	h := g.RequireSession(okHandler())

	r := httptest.NewRequest(http.MethodGet, "/admin", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: "authenticated"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRedirectIfAuthenticated(t *testing.T) {
	g := NewGuard(Credentials{}, false)
	h := g.RedirectIfAuthenticated(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	r := httptest.NewRequest(http.MethodGet, "/login?from=/admin/platos", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: "authenticated"})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/platos", rec.Header().Get("Location"))
}

func TestReturnTarget(t *testing.T) {
	tests := []struct {
		from string
		want string
	}{
		{"", "/admin"},
		{"/admin", "/admin"},
		{"/admin/platos?x=1", "/admin/platos?x=1"},
		{"/items", "/admin"},
		{"/administrator", "/admin"},
		{"https://evil.example/admin", "/admin"},
		{"//evil.example/admin", "/admin"},
		{"/\\evil.example", "/admin"},
	}
	for _, tt := range tests {
		t.Run(tt.from, func(t *testing.T) {
			assert.Equal(t, tt.want, ReturnTarget(tt.from))
		})
	}
}
