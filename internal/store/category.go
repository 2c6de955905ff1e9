package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/basket/internal/model"
	"github.com/dukerupert/basket/internal/naming"
)

type CategoryStore struct {
	db *sql.DB
}

func NewCategoryStore(db *sql.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

const categoryCols = `id, name, created_at`

func scanCategory(s scanner) (*model.Category, error) {
	var c model.Category
	if err := s.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *CategoryStore) List(ctx context.Context) ([]model.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+categoryCols+` FROM categories ORDER BY name_key ASC`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}

func (s *CategoryStore) GetByID(ctx context.Context, id int64) (*model.Category, error) {
	c, err := scanCategory(s.db.QueryRowContext(ctx, `SELECT `+categoryCols+` FROM categories WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

// NameExists reports whether another category already uses the name key.
func (s *CategoryStore) NameExists(ctx context.Context, key string, excludeID int64) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE name_key = ? AND id != ?`, key, excludeID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check category name: %w", err)
	}
	return count > 0, nil
}

func (s *CategoryStore) Create(ctx context.Context, name string) (*model.Category, error) {
	name, err := naming.Validate(ctx, name, 0, s.NameExists)
	if err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (name, name_key) VALUES (?, ?)`, name, naming.Key(name),
	)
	if err != nil {
		return nil, fmt.Errorf("insert category: %w", nameConflict(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *CategoryStore) Rename(ctx context.Context, id int64, name string) (*model.Category, error) {
	name, err := naming.Validate(ctx, name, id, s.NameExists)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, name_key = ? WHERE id = ?`, name, naming.Key(name), id,
	)
	if err != nil {
		return nil, fmt.Errorf("rename category: %w", nameConflict(err))
	}
	return s.GetByID(ctx, id)
}

// Delete removes the category; its inventory items become uncategorized.
func (s *CategoryStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

// categoryIDByName resolves a category by name key, returning nil when none matches.
func categoryIDByName(ctx context.Context, q querier, name string) (*int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `SELECT id FROM categories WHERE name_key = ?`, naming.Key(name)).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup category %q: %w", name, err)
	}
	return &id, nil
}
