package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/vbonduro/platos/internal/carousel"
)

func (s *Server) handleCarousel(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.carousel.Snapshot())
}

func (s *Server) handleCarouselNext(w http.ResponseWriter, _ *http.Request) {
	s.writeCarouselResult(w, s.carousel.Next())
}

func (s *Server) handleCarouselPrev(w http.ResponseWriter, _ *http.Request) {
	s.writeCarouselResult(w, s.carousel.Prev())
}

func (s *Server) handleCarouselJump(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		badRequest(w, "invalid index")
		return
	}
	err = s.carousel.Jump(index)
	if err != nil && !errors.Is(err, carousel.ErrNotReady) {
		badRequest(w, err.Error())
		return
	}
	s.writeCarouselResult(w, err)
}

// handleCarouselRetry re-issues the fetch. The snapshot is returned either
// way; a failed fetch shows up as the error state.
func (s *Server) handleCarouselRetry(w http.ResponseWriter, r *http.Request) {
	_ = s.carousel.Retry(r.Context())
	writeJSON(w, http.StatusOK, s.carousel.Snapshot())
}

func (s *Server) handleCarouselImageError(w http.ResponseWriter, r *http.Request) {
	s.carousel.MarkImageFailed(r.PathValue("id"))
	writeJSON(w, http.StatusOK, s.carousel.Snapshot())
}

func (s *Server) writeCarouselResult(w http.ResponseWriter, err error) {
	if errors.Is(err, carousel.ErrNotReady) {
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.carousel.Snapshot())
}
