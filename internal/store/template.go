package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/basket/internal/model"
	"github.com/dukerupert/basket/internal/naming"
)

type TemplateStore struct {
	db    *sql.DB
	items *lines[model.TemplateItem]
}

func NewTemplateStore(db *sql.DB) *TemplateStore {
	return &TemplateStore{
		db: db,
		items: &lines[model.TemplateItem]{
			db:    db,
			table: templateLineTable,
			scan:  scanTemplateItem,
		},
	}
}

func scanTemplateItem(s scanner) (*model.TemplateItem, error) {
	var item model.TemplateItem
	if err := scanLine(s, &item.Line, &item.TemplateID); err != nil {
		return nil, err
	}
	return &item, nil
}

const templateCols = `t.id, t.name, t.sort_order, t.is_favourite, t.created_at,
	(SELECT COUNT(*) FROM template_items ti WHERE ti.template_id = t.id)`

func scanTemplate(s scanner) (*model.Template, error) {
	var t model.Template
	var favourite int
	if err := s.Scan(&t.ID, &t.Name, &t.SortOrder, &favourite, &t.CreatedAt, &t.ItemCount); err != nil {
		return nil, err
	}
	t.IsFavourite = favourite != 0
	return &t, nil
}

// --- Template methods ---

// NameExists reports whether another template already uses the name key.
func (s *TemplateStore) NameExists(ctx context.Context, key string, excludeID int64) (bool, error) {
	return templateNameExists(ctx, s.db, key, excludeID)
}

func templateNameExists(ctx context.Context, q querier, key string, excludeID int64) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM templates WHERE name_key = ? AND id != ?`, key, excludeID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check template name: %w", err)
	}
	return count > 0, nil
}

func (s *TemplateStore) CreateTemplate(ctx context.Context, name string, order model.SortOrder) (*model.Template, error) {
	id, err := insertTemplate(ctx, s.db, name, order)
	if err != nil {
		return nil, err
	}
	return s.GetTemplate(ctx, id)
}

func insertTemplate(ctx context.Context, q querier, name string, order model.SortOrder) (int64, error) {
	name, err := naming.Validate(ctx, name, 0, func(ctx context.Context, key string, excludeID int64) (bool, error) {
		return templateNameExists(ctx, q, key, excludeID)
	})
	if err != nil {
		return 0, err
	}
	if !order.Valid() {
		order = model.SortByCategory
	}

	result, err := q.ExecContext(ctx,
		`INSERT INTO templates (name, name_key, sort_order) VALUES (?, ?, ?)`, name, naming.Key(name), order,
	)
	if err != nil {
		return 0, fmt.Errorf("insert template: %w", nameConflict(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// CreateTemplateFromList saves a list's lines as a reusable template.
// Returns (nil, nil) when the list does not exist.
func (s *TemplateStore) CreateTemplateFromList(ctx context.Context, listID int64, name string) (*model.Template, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var order model.SortOrder
	err = tx.QueryRowContext(ctx, `SELECT sort_order FROM shopping_lists WHERE id = ?`, listID).Scan(&order)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load list: %w", err)
	}

	id, err := insertTemplate(ctx, tx, name, order)
	if err != nil {
		return nil, err
	}
	if err := copyLines(ctx, tx, listLineTable, listID, templateLineTable, id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetTemplate(ctx, id)
}

func (s *TemplateStore) GetTemplate(ctx context.Context, id int64) (*model.Template, error) {
	t, err := scanTemplate(s.db.QueryRowContext(ctx, `SELECT `+templateCols+` FROM templates t WHERE t.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	return t, nil
}

// ListTemplates returns templates with favourites first, then by name.
func (s *TemplateStore) ListTemplates(ctx context.Context) ([]model.Template, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+templateCols+` FROM templates t ORDER BY t.is_favourite DESC, t.name_key ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var templates []model.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, *t)
	}
	return templates, rows.Err()
}

func (s *TemplateStore) RenameTemplate(ctx context.Context, id int64, name string) (*model.Template, error) {
	name, err := naming.Validate(ctx, name, id, s.NameExists)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE templates SET name = ?, name_key = ? WHERE id = ?`, name, naming.Key(name), id,
	)
	if err != nil {
		return nil, fmt.Errorf("rename template: %w", nameConflict(err))
	}
	return s.GetTemplate(ctx, id)
}

func (s *TemplateStore) SetFavourite(ctx context.Context, id int64, favourite bool) (*model.Template, error) {
	if _, err := s.db.ExecContext(ctx, `UPDATE templates SET is_favourite = ? WHERE id = ?`, boolInt(favourite), id); err != nil {
		return nil, fmt.Errorf("set template favourite: %w", err)
	}
	return s.GetTemplate(ctx, id)
}

func (s *TemplateStore) SetSortOrder(ctx context.Context, id int64, order model.SortOrder) (*model.Template, error) {
	if !order.Valid() {
		return nil, fmt.Errorf("unknown sort order %q", order)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE templates SET sort_order = ? WHERE id = ?`, order, id); err != nil {
		return nil, fmt.Errorf("set template sort order: %w", err)
	}
	return s.GetTemplate(ctx, id)
}

// DeleteTemplate removes the template and its items. Lists created from it
// are unaffected.
func (s *TemplateStore) DeleteTemplate(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM templates WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return nil
}

// --- Item methods ---

func (s *TemplateStore) Items(ctx context.Context, templateID int64, order model.SortOrder) ([]model.TemplateItem, error) {
	return s.items.byOwner(ctx, templateID, order)
}

func (s *TemplateStore) AddItem(ctx context.Context, templateID, itemID int64, f model.LineFields) (*model.TemplateItem, error) {
	return s.items.add(ctx, templateID, itemID, f)
}

func (s *TemplateStore) AddItemByName(ctx context.Context, templateID int64, name string, f model.LineFields) (*model.TemplateItem, error) {
	return s.items.addByName(ctx, templateID, name, f)
}

func (s *TemplateStore) GetItem(ctx context.Context, id int64) (*model.TemplateItem, error) {
	return s.items.get(ctx, id)
}

func (s *TemplateStore) UpdateLine(ctx context.Context, id int64, f model.LineFields) (*model.TemplateItem, error) {
	return s.items.update(ctx, id, f)
}

func (s *TemplateStore) RenameItem(ctx context.Context, id int64, name string, scope model.RenameScope) (*model.TemplateItem, error) {
	return s.items.rename(ctx, id, name, scope)
}

// EditLine applies a rename, category change and field update as one unit.
func (s *TemplateStore) EditLine(ctx context.Context, id int64, c model.LineChange) (*model.TemplateItem, error) {
	return s.items.apply(ctx, id, c)
}

func (s *TemplateStore) SetItemCategory(ctx context.Context, id int64, categoryID *int64) (*model.TemplateItem, error) {
	return s.items.setCategory(ctx, id, categoryID)
}

func (s *TemplateStore) DeleteItem(ctx context.Context, id int64) error {
	return s.items.delete(ctx, id)
}
