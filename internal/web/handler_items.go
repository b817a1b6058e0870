package web

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/vbonduro/platos/internal/domain"
	"github.com/vbonduro/platos/internal/service"
)

// maxFormMemory bounds the in-memory part of a multipart body; larger files
// spill to disk.
const maxFormMemory = 8 << 20

// maxBodySize caps the whole request so an oversized image is reported as a
// validation failure instead of being read without bound.
const maxBodySize = service.MaxImageSize + 1<<20

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.List(r.Context(), domain.ListFilter{})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleListActiveItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.ListActive(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	if !s.parseItemForm(w, r) {
		return
	}
	image, err := s.readImageSource(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	in := service.CreateInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Price:       r.FormValue("price"),
		Active:      formBool(r.FormValue("active")),
		Image:       image,
	}
	item, err := s.service.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.refreshCarousel(r)
	writeJSON(w, http.StatusCreated, item)
}

// handleUpdateItem applies the form fields that are present. Without an
// image upload, an imageUrl or keepImage=true the item's image is cleared.
func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	if !s.parseItemForm(w, r) {
		return
	}
	image, err := s.readImageSource(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	image.Keep = formBool(r.FormValue("keepImage"))

	var in service.UpdateInput
	in.Title = formField(r, "title")
	in.Description = formField(r, "description")
	in.Price = formField(r, "price")
	if v := formField(r, "active"); v != nil {
		active := formBool(*v)
		in.Active = &active
	}
	in.Image = image

	item, err := s.service.Update(r.Context(), r.PathValue("id"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.refreshCarousel(r)
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.service.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.refreshCarousel(r)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": item.ID})
}

func (s *Server) handleToggleItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.service.ToggleActive(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.refreshCarousel(r)
	writeJSON(w, http.StatusOK, item)
}

// parseItemForm accepts multipart and urlencoded bodies. It writes a 400 and
// returns false when the body cannot be parsed.
func (s *Server) parseItemForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	err := r.ParseMultipartForm(maxFormMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			v := domain.NewValidationError()
			v.Add("image", "image exceeds the 5 MB limit")
			s.writeError(w, r, v)
			return false
		}
		badRequest(w, "failed to parse form")
		return false
	}
	return true
}

// readImageSource picks up the optional image file and imageUrl field.
func (s *Server) readImageSource(r *http.Request) (service.ImageSource, error) {
	src := service.ImageSource{URL: strings.TrimSpace(r.FormValue("imageUrl"))}

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return src, nil
	}
	if err != nil {
		return src, domain.Upstream("read upload", err)
	}
	defer closeWithLog(file, "upload file", s.logger)

	data, err := io.ReadAll(io.LimitReader(file, service.MaxImageSize+1))
	if err != nil {
		return src, domain.Upstream("read upload", err)
	}
	src.Upload = &service.ImageUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}
	return src, nil
}

// formField returns a pointer to the field's value, or nil when the field
// was not sent at all.
func formField(r *http.Request, key string) *string {
	if _, ok := r.Form[key]; !ok {
		return nil
	}
	v := r.Form.Get(key)
	return &v
}

func formBool(v string) bool {
	if v == "on" {
		return true
	}
	b, _ := strconv.ParseBool(strings.TrimSpace(v))
	return b
}

// refreshCarousel reloads the carousel after a mutation so the public display
// follows the admin's changes.
func (s *Server) refreshCarousel(r *http.Request) {
	if s.carousel == nil {
		return
	}
	if err := s.carousel.Load(r.Context()); err != nil {
		s.logger.Warn("carousel refresh failed", "error", err)
	}
}
