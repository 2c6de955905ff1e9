package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/basket/internal/model"
	"github.com/dukerupert/basket/internal/naming"
)

// lineTable names a table of line items and the column holding their owner
// (a shopping list or a template).
type lineTable struct {
	table    string
	ownerCol string
	extra    string // owner-specific trailing columns, may be empty
}

var (
	listLineTable     = lineTable{table: "list_items", ownerCol: "list_id", extra: ", l.is_checked"}
	templateLineTable = lineTable{table: "template_items", ownerCol: "template_id"}
)

const lineCols = `l.id, l.item_id, i.name, i.unit, i.category_id, COALESCE(c.name, ''), l.quantity, l.price, l.notes, l.unit`

func (t lineTable) selectSQL() string {
	return `SELECT ` + lineCols + `, l.` + t.ownerCol + t.extra +
		` FROM ` + t.table + ` l` +
		` JOIN inventory_items i ON i.id = l.item_id` +
		` LEFT JOIN categories c ON c.id = i.category_id`
}

func orderSQL(order model.SortOrder) string {
	if order == model.SortByName {
		return ` ORDER BY i.name_key ASC, l.id ASC`
	}
	return ` ORDER BY (c.id IS NULL) ASC, c.name_key ASC, i.name_key ASC, l.id ASC`
}

// scanLine reads the shared line columns followed by the owner-specific ones.
func scanLine(s scanner, line *model.Line, rest ...any) error {
	var categoryID sql.NullInt64
	dest := []any{
		&line.ID, &line.ItemID, &line.ItemName, &line.ItemUnit, &categoryID, &line.CategoryName,
		&line.Quantity, &line.Price, &line.Notes, &line.Unit,
	}
	if err := s.Scan(append(dest, rest...)...); err != nil {
		return err
	}
	line.CategoryID = int64Ptr(categoryID)
	return nil
}

// lines implements the line operations shared by shopping lists and templates.
type lines[T any] struct {
	db    *sql.DB
	table lineTable
	scan  func(scanner) (*T, error)
}

func (l *lines[T]) get(ctx context.Context, id int64) (*T, error) {
	item, err := l.scan(l.db.QueryRowContext(ctx, l.table.selectSQL()+` WHERE l.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", l.table.table, err)
	}
	return item, nil
}

func (l *lines[T]) byOwner(ctx context.Context, ownerID int64, order model.SortOrder) ([]T, error) {
	rows, err := l.db.QueryContext(ctx,
		l.table.selectSQL()+` WHERE l.`+l.table.ownerCol+` = ?`+orderSQL(order), ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", l.table.table, err)
	}
	defer rows.Close()

	var items []T
	for rows.Next() {
		item, err := l.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", l.table.table, err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (l *lines[T]) add(ctx context.Context, ownerID, itemID int64, f model.LineFields) (*T, error) {
	id, err := insertLine(ctx, l.db, l.table, ownerID, itemID, f)
	if err != nil {
		return nil, err
	}
	return l.get(ctx, id)
}

// addByName adds a line for the named inventory item, creating the item
// (with a guessed category) when no item of that name exists yet.
func (l *lines[T]) addByName(ctx context.Context, ownerID int64, name string, f model.LineFields) (*T, error) {
	if naming.Normalize(name) == "" {
		return nil, naming.ErrEmptyName
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	existing, err := getInventoryItem(ctx, tx, `i.name_key = ?`, naming.Key(name))
	if err != nil {
		return nil, err
	}
	var itemID int64
	if existing != nil {
		itemID = existing.ID
	} else if itemID, err = createInventoryItem(ctx, tx, NewItem{Name: name, GuessCategory: true}); err != nil {
		return nil, err
	}

	id, err := insertLine(ctx, tx, l.table, ownerID, itemID, f)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return l.get(ctx, id)
}

func insertLine(ctx context.Context, q querier, t lineTable, ownerID, itemID int64, f model.LineFields) (int64, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO `+t.table+` (`+t.ownerCol+`, item_id, quantity, price, notes, unit) VALUES (?, ?, ?, ?, ?, ?)`,
		ownerID, itemID, f.Quantity, f.Price, naming.Normalize(f.Notes), naming.Normalize(f.Unit),
	)
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", t.table, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// copyLines copies quantity, price, notes and unit of every line owned by
// srcOwner in src into new lines owned by dstOwner in dst. The copies
// reference the same inventory items and start unchecked.
func copyLines(ctx context.Context, q querier, src lineTable, srcOwner int64, dst lineTable, dstOwner int64) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO `+dst.table+` (`+dst.ownerCol+`, item_id, quantity, price, notes, unit)
		 SELECT ?, item_id, quantity, price, notes, unit FROM `+src.table+` WHERE `+src.ownerCol+` = ? ORDER BY id`,
		dstOwner, srcOwner,
	)
	if err != nil {
		return fmt.Errorf("copy %s into %s: %w", src.table, dst.table, err)
	}
	return nil
}

func (l *lines[T]) update(ctx context.Context, id int64, f model.LineFields) (*T, error) {
	return l.apply(ctx, id, model.LineChange{Fields: &f})
}

func (l *lines[T]) delete(ctx context.Context, id int64) error {
	if _, err := l.db.ExecContext(ctx, `DELETE FROM `+l.table.table+` WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete %s: %w", l.table.table, err)
	}
	return nil
}

// setCategory changes the category of the inventory item the line points at.
func (l *lines[T]) setCategory(ctx context.Context, id int64, categoryID *int64) (*T, error) {
	return l.apply(ctx, id, model.LineChange{SetCategory: true, CategoryID: categoryID})
}

// rename changes the name of the inventory item behind a line.
//
// With RenameGlobal the shared item is renamed in place, so every list and
// template line referencing it shows the new name. With RenameLocal a new
// item is forked carrying the same unit and category, and only this line is
// repointed to it. A change of case alone is applied in place for a global
// rename and rejected as a duplicate for a local one, since the fork would
// collide with the original. Returns (nil, nil) when the line does not exist.
func (l *lines[T]) rename(ctx context.Context, id int64, newName string, scope model.RenameScope) (*T, error) {
	return l.apply(ctx, id, model.LineChange{Name: &newName, Scope: scope})
}

// apply runs the rename, the category change and the field update of one
// edit in a single transaction. Returns (nil, nil) when the line does not
// exist.
func (l *lines[T]) apply(ctx context.Context, id int64, c model.LineChange) (*T, error) {
	var name string
	if c.Name != nil {
		if !c.Scope.Valid() {
			return nil, fmt.Errorf("unknown rename scope %q", c.Scope)
		}
		if name = naming.Normalize(*c.Name); name == "" {
			return nil, naming.ErrEmptyName
		}
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var (
		itemID     int64
		oldName    string
		unit       string
		categoryID sql.NullInt64
	)
	err = tx.QueryRowContext(ctx,
		`SELECT i.id, i.name, i.unit, i.category_id FROM `+l.table.table+` l
		 JOIN inventory_items i ON i.id = l.item_id WHERE l.id = ?`, id,
	).Scan(&itemID, &oldName, &unit, &categoryID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load line item: %w", err)
	}

	if c.Name != nil && name != oldName {
		if itemID, err = l.renameTx(ctx, tx, id, itemID, name, oldName, c.Scope, unit, categoryID); err != nil {
			return nil, err
		}
	}

	if c.SetCategory {
		_, err := tx.ExecContext(ctx, `UPDATE inventory_items SET category_id = ? WHERE id = ?`, nullInt64(c.CategoryID), itemID)
		if err != nil {
			return nil, fmt.Errorf("set line category: %w", err)
		}
	}

	if f := c.Fields; f != nil {
		_, err := tx.ExecContext(ctx,
			`UPDATE `+l.table.table+` SET quantity = ?, price = ?, notes = ?, unit = ? WHERE id = ?`,
			f.Quantity, f.Price, naming.Normalize(f.Notes), naming.Normalize(f.Unit), id,
		)
		if err != nil {
			return nil, fmt.Errorf("update %s: %w", l.table.table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return l.get(ctx, id)
}

// renameTx renames or forks the line's item and returns the id of the item
// the line points at afterwards.
func (l *lines[T]) renameTx(ctx context.Context, tx *sql.Tx, id, itemID int64, name, oldName string, scope model.RenameScope, unit string, categoryID sql.NullInt64) (int64, error) {
	sameKey := naming.SameKey(name, oldName)
	if sameKey && scope == model.RenameLocal {
		return 0, naming.ErrDuplicateName
	}
	if !sameKey {
		taken, err := inventoryNameExists(ctx, tx, naming.Key(name), 0)
		if err != nil {
			return 0, err
		}
		if taken {
			return 0, naming.ErrDuplicateName
		}
	}

	if scope == model.RenameLocal {
		forkID, err := createInventoryItem(ctx, tx, NewItem{Name: name, Unit: unit, CategoryID: int64Ptr(categoryID)})
		if err != nil {
			return 0, err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE `+l.table.table+` SET item_id = ? WHERE id = ?`, forkID, id); err != nil {
			return 0, fmt.Errorf("repoint line: %w", err)
		}
		return forkID, nil
	}

	_, err := tx.ExecContext(ctx,
		`UPDATE inventory_items SET name = ?, name_key = ? WHERE id = ?`, name, naming.Key(name), itemID,
	)
	if err != nil {
		return 0, fmt.Errorf("rename inventory item: %w", nameConflict(err))
	}
	return itemID, nil
}
