// Package session gates the admin pages behind a single configured identity.
// A successful login sets a cookie carrying a fixed sentinel value; there is
// no server-side session state.
package session

import (
	"crypto/subtle"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/vbonduro/platos/internal/domain"
)

const (
	CookieName  = "admin-session"
	cookieValue = "authenticated"
	cookieTTL   = 7 * 24 * time.Hour

	LoginPath = "/login"
	AdminPath = "/admin"
)

// Credentials is the admin identity. When PasswordHash is set it is a bcrypt
// hash and Password is ignored.
type Credentials struct {
	Username     string
	Password     string
	PasswordHash string
}

type Guard struct {
	creds  Credentials
	secure bool
}

func NewGuard(creds Credentials, secureCookie bool) *Guard {
	return &Guard{creds: creds, secure: secureCookie}
}

// Verify compares a presented username and password with the configured pair.
func (g *Guard) Verify(username, password string) error {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(g.creds.Username)) == 1

	var passOK bool
	if g.creds.PasswordHash != "" {
		passOK = bcrypt.CompareHashAndPassword([]byte(g.creds.PasswordHash), []byte(password)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(password), []byte(g.creds.Password)) == 1
	}

	if !userOK || !passOK || g.creds.Username == "" {
		return domain.ErrInvalidCredentials
	}
	return nil
}

func (g *Guard) SetCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    cookieValue,
		Path:     "/",
		MaxAge:   int(cookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearCookie overwrites the session cookie with an already expired one.
func (g *Guard) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (g *Guard) Authenticated(r *http.Request) bool {
	c, err := r.Cookie(CookieName)
	return err == nil && c.Value == cookieValue
}

// RequireSession redirects unauthenticated requests to the login page and
// passes the requested path along in ?from=.
func (g *Guard) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.Authenticated(r) {
			target := LoginPath + "?from=" + url.QueryEscape(r.URL.RequestURI())
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RedirectIfAuthenticated sends an already logged-in admin away from the
// login page.
func (g *Guard) RedirectIfAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.Authenticated(r) {
			http.Redirect(w, r, ReturnTarget(r.URL.Query().Get("from")), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ReturnTarget returns from when it is a local path under the admin tree,
// otherwise the admin root. Absolute and protocol-relative URLs are refused.
func ReturnTarget(from string) string {
	if from == "" || strings.HasPrefix(from, "//") || strings.Contains(from, "\\") {
		return AdminPath
	}
	u, err := url.Parse(from)
	if err != nil || u.IsAbs() || u.Host != "" {
		return AdminPath
	}
	if u.Path != AdminPath && !strings.HasPrefix(u.Path, AdminPath+"/") {
		return AdminPath
	}
	return from
}
