// Package postgres stores menu items in a hosted Postgres database.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vbonduro/platos/internal/domain"
)

const itemColumns = `id, title, description, price, image_url, active, created_at, updated_at`

type ItemStore struct {
	pool *pgxpool.Pool
}

func NewItemStore(pool *pgxpool.Pool) *ItemStore {
	return &ItemStore{pool: pool}
}

func (s *ItemStore) Create(ctx context.Context, item *domain.MenuItem) (*domain.MenuItem, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO items (`+itemColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+itemColumns,
		uuid.NewString(), item.Title, item.Description, item.Price, item.ImageURL, item.Active,
		item.CreatedAt, item.UpdatedAt,
	)
	created, err := scanItem(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}
	return created, nil
}

// GetByID returns (nil, nil) when no row matches.
func (s *ItemStore) GetByID(ctx context.Context, id string) (*domain.MenuItem, error) {
	item, err := scanItem(s.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

func (s *ItemStore) List(ctx context.Context, filter domain.ListFilter) ([]*domain.MenuItem, error) {
	query := `SELECT ` + itemColumns + ` FROM items`
	if filter.ActiveOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

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

func (s *ItemStore) Update(ctx context.Context, item *domain.MenuItem) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE items SET title = $1, description = $2, price = $3, image_url = $4, active = $5, updated_at = $6
		WHERE id = $7`,
		item.Title, item.Description, item.Price, item.ImageURL, item.Active, item.UpdatedAt, item.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("item %s: %w", item.ID, domain.ErrNotFound)
	}
	return nil
}

func (s *ItemStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func scanItem(row pgx.Row) (*domain.MenuItem, error) {
	item := &domain.MenuItem{}
	if err := row.Scan(&item.ID, &item.Title, &item.Description, &item.Price, &item.ImageURL,
		&item.Active, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}
	return item, nil
}
