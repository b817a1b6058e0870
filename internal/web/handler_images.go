package web

import (
	"errors"
	"io"
	"net/http"

	"github.com/vbonduro/platos/internal/imagestore"
)

const imageCacheControl = "public, max-age=3600"

func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	reader, mimeType, err := s.images.Get(r.Context(), key)
	if errors.Is(err, imagestore.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.logger.Error("read image failed", "key", key, "error", err)
		http.Error(w, "failed to read image", http.StatusInternalServerError)
		return
	}
	defer closeWithLog(reader, "image reader", s.logger)

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", imageCacheControl)
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Error("write image failed", "key", key, "error", err)
	}
}
