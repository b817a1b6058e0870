package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vbonduro/platos/internal/domain"
	"github.com/vbonduro/platos/internal/imagestore"
	"github.com/vbonduro/platos/internal/saga"
)

// ItemRepository is the table store MenuService persists items in.
// Both the SQLite and the Postgres stores satisfy it.
type ItemRepository interface {
	Create(ctx context.Context, item *domain.MenuItem) (*domain.MenuItem, error)
	GetByID(ctx context.Context, id string) (*domain.MenuItem, error)
	List(ctx context.Context, filter domain.ListFilter) ([]*domain.MenuItem, error)
	Update(ctx context.Context, item *domain.MenuItem) error
	Delete(ctx context.Context, id string) error
}

// CreateInput carries raw form values; Price is parsed during validation.
type CreateInput struct {
	Title       string
	Description string
	Price       string
	Active      bool
	Image       ImageSource
}

// UpdateInput carries only the fields the caller wants to change.
type UpdateInput struct {
	Title       *string
	Description *string
	Price       *string
	Active      *bool
	Image       ImageSource
}

// MenuService validates menu items, persists them, and keeps each item's
// stored image consistent with its record. It is the only writer to the image
// store.
type MenuService struct {
	items  ItemRepository
	images imagestore.ImageStore
	logger *slog.Logger
	now    func() time.Time
}

func NewMenuService(items ItemRepository, images imagestore.ImageStore, logger *slog.Logger) *MenuService {
	return &MenuService{
		items:  items,
		images: images,
		logger: logger,
		now:    time.Now,
	}
}

// List returns items newest first, never nil.
func (s *MenuService) List(ctx context.Context, filter domain.ListFilter) ([]*domain.MenuItem, error) {
	items, err := s.items.List(ctx, filter)
	if err != nil {
		return nil, domain.Upstream("list items", err)
	}
	return items, nil
}

func (s *MenuService) ListActive(ctx context.Context) ([]*domain.MenuItem, error) {
	return s.List(ctx, domain.ListFilter{ActiveOnly: true})
}

func (s *MenuService) Get(ctx context.Context, id string) (*domain.MenuItem, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, domain.Upstream("get item", err)
	}
	if item == nil {
		return nil, notFound(id)
	}
	return item, nil
}

// Create validates in, uploads the image if one was sent, and inserts the
// record. A failed insert removes the just-uploaded image.
func (s *MenuService) Create(ctx context.Context, in CreateInput) (*domain.MenuItem, error) {
	v := domain.NewValidationError()
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	validateTitle(v, title)
	validateDescription(v, description)
	price := parsePrice(v, in.Price)
	if !in.Image.hasUpload() && in.Image.URL == "" {
		v.Add("image", "an image upload or an image URL is required")
	}
	validateImageSource(v, in.Image)
	if err := v.Err(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	item := &domain.MenuItem{
		Title:       title,
		Description: description,
		Price:       price,
		ImageURL:    in.Image.URL,
		Active:      in.Active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var created *domain.MenuItem
	sg := saga.New("create item", s.logger)
	if in.Image.hasUpload() {
		sg.Add(s.uploadStep(in.Image.Upload, now, &item.ImageURL))
	}
	sg.Add(saga.Step{
		Name: "insert item",
		Do: func(ctx context.Context) error {
			var err error
			created, err = s.items.Create(ctx, item)
			return err
		},
	})
	if err := sg.Run(ctx); err != nil {
		return nil, domain.Upstream("create item", err)
	}

	s.logger.Info("item created", "id", created.ID, "title", created.Title, "uploaded", in.Image.hasUpload())
	return created, nil
}

// Update applies the fields present in in. Image policy, in order: a new
// upload replaces the image; an explicit URL is stored verbatim; Keep leaves
// it as is; otherwise the image is cleared.
func (s *MenuService) Update(ctx context.Context, id string, in UpdateInput) (*domain.MenuItem, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	v := domain.NewValidationError()
	var title, description string
	var price float64
	if in.Title != nil {
		title = strings.TrimSpace(*in.Title)
		validateTitle(v, title)
	}
	if in.Description != nil {
		description = strings.TrimSpace(*in.Description)
		validateDescription(v, description)
	}
	if in.Price != nil {
		price = parsePrice(v, *in.Price)
	}
	validateImageSource(v, in.Image)
	if err := v.Err(); err != nil {
		return nil, err
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *existing
	if in.Title != nil {
		updated.Title = title
	}
	if in.Description != nil {
		updated.Description = description
	}
	if in.Price != nil {
		updated.Price = price
	}
	if in.Active != nil {
		updated.Active = *in.Active
	}
	now := s.now().UTC()
	updated.UpdatedAt = now

	sg := saga.New("update item", s.logger)
	switch {
	case in.Image.hasUpload():
		sg.Add(s.uploadStep(in.Image.Upload, now, &updated.ImageURL))
	case in.Image.URL != "":
		updated.ImageURL = in.Image.URL
	case in.Image.Keep:
	default:
		updated.ImageURL = ""
	}
	sg.Add(saga.Step{
		Name: "update item",
		Do: func(ctx context.Context) error {
			return s.items.Update(ctx, &updated)
		},
	})
	if err := sg.Run(ctx); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, notFound(id)
		}
		return nil, domain.Upstream("update item", err)
	}

	// Return the stored row so timestamps match what a later Get sees.
	stored, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("item updated", "id", id, "active", stored.Active, "image_changed", stored.ImageURL != existing.ImageURL)
	return stored, nil
}

// Delete removes the record and, best-effort, its stored image. Image removal
// failures are logged and never block the record deletion.
func (s *MenuService) Delete(ctx context.Context, id string) (*domain.MenuItem, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if item.ImageURL != "" {
		s.removeImage(ctx, item)
	}

	if err := s.items.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, notFound(id)
		}
		return nil, domain.Upstream("delete item", err)
	}

	s.logger.Info("item deleted", "id", id)
	return item, nil
}

// ToggleActive flips the active flag and leaves every other field as it was.
func (s *MenuService) ToggleActive(ctx context.Context, id string) (*domain.MenuItem, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	active := !item.Active
	return s.Update(ctx, id, UpdateInput{
		Active: &active,
		Image:  ImageSource{Keep: true},
	})
}

func (s *MenuService) removeImage(ctx context.Context, item *domain.MenuItem) {
	key, ok := s.images.KeyFromURL(item.ImageURL)
	if !ok {
		s.logger.Debug("image not in store, skipping removal", "id", item.ID, "image_url", item.ImageURL)
		return
	}
	if err := s.images.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to remove item image", "id", item.ID, "key", key, "error", err)
	}
}

// uploadStep stores upload under a fresh key and writes its public URL into
// *imageURL. Its compensation deletes the stored object.
func (s *MenuService) uploadStep(upload *ImageUpload, now time.Time, imageURL *string) saga.Step {
	contentType := upload.contentType()
	key := newStorageKey(now, upload.Filename, contentType)
	return saga.Step{
		Name: "upload image",
		Do: func(ctx context.Context) error {
			if err := s.images.Put(ctx, key, contentType, bytes.NewReader(upload.Data), int64(len(upload.Data))); err != nil {
				return err
			}
			*imageURL = s.images.URL(key)
			s.logger.Debug("image uploaded", "key", key, "bytes", len(upload.Data))
			return nil
		},
		Compensate: func(ctx context.Context) error {
			return s.images.Delete(ctx, key)
		},
	}
}

func validateID(id string) error {
	if strings.TrimSpace(id) == "" {
		v := domain.NewValidationError()
		v.Add("id", "id is required")
		return v
	}
	return nil
}

func notFound(id string) error {
	return fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
}
