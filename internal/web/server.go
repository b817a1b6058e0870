package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/vbonduro/platos/internal/carousel"
	"github.com/vbonduro/platos/internal/imagestore"
	"github.com/vbonduro/platos/internal/service"
	"github.com/vbonduro/platos/internal/session"
)

type Server struct {
	service   *service.MenuService
	guard     *session.Guard
	carousel  *carousel.Carousel
	images    imagestore.ImageStore
	templates embed.FS
	mux       *http.ServeMux
	metrics   *metrics
	tmplFuncs template.FuncMap
	logger    *slog.Logger
}

// Options holds the optional collaborators of a Server. A nil Carousel
// disables the /carousel endpoints; a nil Images disables /images/{key}.
type Options struct {
	Carousel *carousel.Carousel
	Images   imagestore.ImageStore
}

func NewServer(svc *service.MenuService, guard *session.Guard, tmpl embed.FS, opts Options, logger *slog.Logger) *Server {
	s := &Server{
		service:   svc,
		guard:     guard,
		carousel:  opts.Carousel,
		images:    opts.Images,
		templates: tmpl,
		mux:       http.NewServeMux(),
		metrics:   newMetrics(),
		logger:    logger,
		tmplFuncs: template.FuncMap{
			"price": func(p float64) string { return fmt.Sprintf("$%.2f", p) },
		},
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, session.AdminPath, http.StatusSeeOther)
	})

	s.mux.HandleFunc("GET /items", s.handleListItems)
	s.mux.HandleFunc("GET /items-active", s.handleListActiveItems)
	s.mux.HandleFunc("GET /items/{id}", s.handleGetItem)
	s.mux.HandleFunc("POST /items", s.handleCreateItem)
	s.mux.HandleFunc("PUT /items/{id}", s.handleUpdateItem)
	s.mux.HandleFunc("DELETE /items/{id}", s.handleDeleteItem)
	s.mux.HandleFunc("POST /items/{id}/toggle", s.handleToggleItem)

	s.mux.HandleFunc("POST /auth/login", s.handleLogin)
	s.mux.HandleFunc("POST /auth/logout", s.handleLogout)

	s.mux.Handle("GET "+session.LoginPath, s.guard.RedirectIfAuthenticated(http.HandlerFunc(s.handleLoginPage)))
	admin := s.guard.RequireSession(http.HandlerFunc(s.handleAdminPage))
	s.mux.Handle("GET "+session.AdminPath, admin)
	s.mux.Handle("GET "+session.AdminPath+"/", admin)

	if s.images != nil {
		s.mux.HandleFunc("GET /images/{key}", s.handleGetImage)
	}

	if s.carousel != nil {
		s.mux.HandleFunc("GET /carousel", s.handleCarousel)
		s.mux.HandleFunc("POST /carousel/next", s.handleCarouselNext)
		s.mux.HandleFunc("POST /carousel/prev", s.handleCarouselPrev)
		s.mux.HandleFunc("POST /carousel/retry", s.handleCarouselRetry)
		s.mux.HandleFunc("POST /carousel/jump/{index}", s.handleCarouselJump)
		s.mux.HandleFunc("POST /carousel/image-error/{id}", s.handleCarouselImageError)
	}

	s.mux.Handle("GET /metrics", s.metrics.handler())
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

// securityHeaders adds defensive HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy",
			"default-src 'self'; "+
				"script-src 'self' 'unsafe-inline'; "+
				"style-src 'self' 'unsafe-inline'; "+
				"img-src 'self' data: https: http:; "+
				"connect-src 'self'")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *slog.Logger, m *metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)
		m.observe(r, rec.status, elapsed)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", elapsed.Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, s.metrics, securityHeaders(s.mux)).ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.logger.Info("starting server", "addr", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// renderPage parses and executes a full-page template set.
func (s *Server) renderPage(w http.ResponseWriter, data any, files ...string) error {
	tmpl, err := template.New("").Funcs(s.tmplFuncs).ParseFS(s.templates, files...)
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return tmpl.ExecuteTemplate(w, "base", data)
}
