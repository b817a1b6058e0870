package web

import (
	"encoding/json"
	"net/http"

	"github.com/vbonduro/platos/internal/domain"
	"github.com/vbonduro/platos/internal/session"
)

type loginRequest struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
}

const maxLoginBody = 4 << 10

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLoginBody))
	if err := dec.Decode(&req); err != nil || req.Username == nil || req.Password == nil {
		badRequest(w, "username and password are required")
		return
	}

	if err := s.guard.Verify(*req.Username, *req.Password); err != nil {
		s.logger.Warn("admin login rejected", "username", *req.Username)
		s.writeError(w, r, err)
		return
	}

	s.guard.SetCookie(w)
	s.logger.Info("admin logged in", "username", *req.Username)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	s.guard.ClearCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{"From": session.ReturnTarget(r.URL.Query().Get("from"))}
	if err := s.renderPage(w, data, "base.html", "pages/login.html"); err != nil {
		s.logger.Error("render page failed", "page", "login", "error", err)
	}
}

// handleAdminPage lists every item. A failed fetch still renders the page
// with an error banner.
func (s *Server) handleAdminPage(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{}
	items, err := s.service.List(r.Context(), domain.ListFilter{})
	if err != nil {
		s.logger.Error("list items for admin failed", "error", err)
		data["Error"] = "No se pudieron cargar los platos"
	}
	data["Items"] = items
	if err := s.renderPage(w, data, "base.html", "pages/admin.html"); err != nil {
		s.logger.Error("render page failed", "page", "admin", "error", err)
	}
}
