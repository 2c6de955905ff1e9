package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/basket/internal/model"
	"github.com/dukerupert/basket/internal/naming"
	"github.com/dukerupert/basket/internal/shopping"
)

type InventoryStore struct {
	db *sql.DB
}

func NewInventoryStore(db *sql.DB) *InventoryStore {
	return &InventoryStore{db: db}
}

// NewItem describes an inventory item to create. When CategoryID is nil and
// GuessCategory is set, the category is inferred from the item name.
type NewItem struct {
	Name          string
	Unit          string
	CategoryID    *int64
	IsFavourite   bool
	GuessCategory bool
}

// ItemUpdate replaces an inventory item's editable attributes.
type ItemUpdate struct {
	Name       string
	Unit       string
	CategoryID *int64
}

const inventoryCols = `i.id, i.name, i.unit, i.is_favourite, i.category_id, COALESCE(c.name, ''), i.created_at`

const inventoryFrom = ` FROM inventory_items i LEFT JOIN categories c ON c.id = i.category_id`

func scanInventoryItem(s scanner) (*model.InventoryItem, error) {
	var item model.InventoryItem
	var favourite int
	var categoryID sql.NullInt64
	err := s.Scan(&item.ID, &item.Name, &item.Unit, &favourite, &categoryID, &item.CategoryName, &item.CreatedAt)
	if err != nil {
		return nil, err
	}
	item.IsFavourite = favourite != 0
	item.CategoryID = int64Ptr(categoryID)
	return &item, nil
}

// List returns inventory items, favourites first then by name. A non-empty
// search keeps only items whose name contains it, ignoring case.
func (s *InventoryStore) List(ctx context.Context, search string) ([]model.InventoryItem, error) {
	query := `SELECT ` + inventoryCols + inventoryFrom
	var args []any
	if key := naming.Key(search); key != "" {
		query += ` WHERE i.name_key LIKE ? ESCAPE '\'`
		args = append(args, likePattern(key))
	}
	query += ` ORDER BY i.is_favourite DESC, i.name_key ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list inventory items: %w", err)
	}
	defer rows.Close()

	var items []model.InventoryItem
	for rows.Next() {
		item, err := scanInventoryItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inventory item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (s *InventoryStore) GetByID(ctx context.Context, id int64) (*model.InventoryItem, error) {
	return getInventoryItem(ctx, s.db, `i.id = ?`, id)
}

// GetByName finds an item by name, ignoring case and surrounding space.
func (s *InventoryStore) GetByName(ctx context.Context, name string) (*model.InventoryItem, error) {
	return getInventoryItem(ctx, s.db, `i.name_key = ?`, naming.Key(name))
}

func getInventoryItem(ctx context.Context, q querier, where string, arg any) (*model.InventoryItem, error) {
	item, err := scanInventoryItem(q.QueryRowContext(ctx, `SELECT `+inventoryCols+inventoryFrom+` WHERE `+where, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get inventory item: %w", err)
	}
	return item, nil
}

// NameExists reports whether another inventory item already uses the name key.
func (s *InventoryStore) NameExists(ctx context.Context, key string, excludeID int64) (bool, error) {
	return inventoryNameExists(ctx, s.db, key, excludeID)
}

func inventoryNameExists(ctx context.Context, q querier, key string, excludeID int64) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM inventory_items WHERE name_key = ? AND id != ?`, key, excludeID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check item name: %w", err)
	}
	return count > 0, nil
}

func (s *InventoryStore) Create(ctx context.Context, in NewItem) (*model.InventoryItem, error) {
	id, err := createInventoryItem(ctx, s.db, in)
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func createInventoryItem(ctx context.Context, q querier, in NewItem) (int64, error) {
	name, err := naming.Validate(ctx, in.Name, 0, func(ctx context.Context, key string, excludeID int64) (bool, error) {
		return inventoryNameExists(ctx, q, key, excludeID)
	})
	if err != nil {
		return 0, err
	}

	categoryID := in.CategoryID
	if categoryID == nil && in.GuessCategory {
		if guess := shopping.Categorize(name); guess != "" {
			if categoryID, err = categoryIDByName(ctx, q, guess); err != nil {
				return 0, err
			}
		}
	}

	result, err := q.ExecContext(ctx,
		`INSERT INTO inventory_items (name, name_key, unit, is_favourite, category_id) VALUES (?, ?, ?, ?, ?)`,
		name, naming.Key(name), naming.Normalize(in.Unit), boolInt(in.IsFavourite), nullInt64(categoryID),
	)
	if err != nil {
		return 0, fmt.Errorf("insert inventory item: %w", nameConflict(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// Update renames the shared item and replaces its unit and category. The
// new name is visible on every list and template line referencing it.
func (s *InventoryStore) Update(ctx context.Context, id int64, in ItemUpdate) (*model.InventoryItem, error) {
	name, err := naming.Validate(ctx, in.Name, id, s.NameExists)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE inventory_items SET name = ?, name_key = ?, unit = ?, category_id = ? WHERE id = ?`,
		name, naming.Key(name), naming.Normalize(in.Unit), nullInt64(in.CategoryID), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update inventory item: %w", nameConflict(err))
	}
	return s.GetByID(ctx, id)
}

func (s *InventoryStore) SetFavourite(ctx context.Context, id int64, favourite bool) (*model.InventoryItem, error) {
	_, err := s.db.ExecContext(ctx, `UPDATE inventory_items SET is_favourite = ? WHERE id = ?`, boolInt(favourite), id)
	if err != nil {
		return nil, fmt.Errorf("set favourite: %w", err)
	}
	return s.GetByID(ctx, id)
}

// Delete removes the item together with every list and template line using it.
func (s *InventoryStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM inventory_items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete inventory item: %w", err)
	}
	return nil
}

// Sections groups the inventory by category, "Uncategorized" last.
func (s *InventoryStore) Sections(ctx context.Context, search string) ([]shopping.Section[model.InventoryItem], error) {
	items, err := s.List(ctx, search)
	if err != nil {
		return nil, err
	}
	return shopping.SectionsByCategory(items), nil
}
