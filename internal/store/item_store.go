package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/platos/internal/domain"
)

// timeLayout is fixed-width so created_at sorts lexically in SQLite.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const itemColumns = `id, title, description, price, image_url, active, created_at, updated_at`

type ItemStore struct {
	db *sql.DB
}

func NewItemStore(db *sql.DB) *ItemStore {
	return &ItemStore{db: db}
}

// Create inserts item and returns the stored row. The id is assigned here.
func (s *ItemStore) Create(ctx context.Context, item *domain.MenuItem) (*domain.MenuItem, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (`+itemColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id, item.Title, item.Description, item.Price, item.ImageURL, item.Active,
		formatTime(item.CreatedAt), formatTime(item.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID returns (nil, nil) when no row matches.
func (s *ItemStore) GetByID(ctx context.Context, id string) (*domain.MenuItem, error) {
	item, err := scanItem(s.db.QueryRowContext(ctx, `
		SELECT `+itemColumns+` FROM items WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

// List returns items newest first.
func (s *ItemStore) List(ctx context.Context, filter domain.ListFilter) ([]*domain.MenuItem, error) {
	query := `SELECT ` + itemColumns + ` FROM items`
	if filter.ActiveOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	items := []*domain.MenuItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}

	return items, nil
}

// Update overwrites every mutable column of the row identified by item.ID.
func (s *ItemStore) Update(ctx context.Context, item *domain.MenuItem) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE items SET title = ?, description = ?, price = ?, image_url = ?, active = ?, updated_at = ?
		WHERE id = ?
	`, item.Title, item.Description, item.Price, item.ImageURL, item.Active, formatTime(item.UpdatedAt), item.ID)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("item %s: %w", item.ID, domain.ErrNotFound)
	}

	return nil
}

func (s *ItemStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM items WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*domain.MenuItem, error) {
	item := &domain.MenuItem{}
	var createdAt, updatedAt string
	if err := row.Scan(&item.ID, &item.Title, &item.Description, &item.Price, &item.ImageURL,
		&item.Active, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if item.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	if item.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("invalid updated_at %q: %w", updatedAt, err)
	}
	return item, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
