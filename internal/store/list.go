package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/basket/internal/model"
	"github.com/dukerupert/basket/internal/naming"
	"github.com/dukerupert/basket/internal/shopping"
	"github.com/google/uuid"
)

type ListStore struct {
	db    *sql.DB
	items *lines[model.ListItem]
	now   func() time.Time
}

func NewListStore(db *sql.DB) *ListStore {
	return &ListStore{
		db: db,
		items: &lines[model.ListItem]{
			db:    db,
			table: listLineTable,
			scan:  scanListItem,
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

func scanListItem(s scanner) (*model.ListItem, error) {
	var item model.ListItem
	var checked int
	if err := scanLine(s, &item.Line, &item.ListID, &checked); err != nil {
		return nil, err
	}
	item.IsChecked = checked != 0
	return &item, nil
}

const listCols = `id, uid, name, sort_order, created_at, completed_at`

func scanList(s scanner) (*model.ShoppingList, error) {
	var l model.ShoppingList
	var completedAt sql.NullTime
	if err := s.Scan(&l.ID, &l.UID, &l.Name, &l.SortOrder, &l.CreatedAt, &completedAt); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		l.CompletedAt = &t
	}
	return &l, nil
}

// --- List methods ---

func (s *ListStore) CreateList(ctx context.Context, name string, order model.SortOrder) (*model.ShoppingList, error) {
	id, err := s.insertList(ctx, s.db, name, order)
	if err != nil {
		return nil, err
	}
	return s.GetList(ctx, id)
}

func (s *ListStore) insertList(ctx context.Context, q querier, name string, order model.SortOrder) (int64, error) {
	name = naming.Normalize(name)
	if name == "" {
		return 0, naming.ErrEmptyName
	}
	if !order.Valid() {
		order = model.SortByCategory
	}

	result, err := q.ExecContext(ctx,
		`INSERT INTO shopping_lists (uid, name, sort_order, created_at) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), name, order, s.now(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert list: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// CreateListFromTemplate starts a new active list holding a copy of every
// template line. An empty name falls back to the template's name. Returns
// (nil, nil) when the template does not exist.
func (s *ListStore) CreateListFromTemplate(ctx context.Context, templateID int64, name string) (*model.ShoppingList, error) {
	return s.createCopy(ctx, `SELECT name, sort_order FROM templates WHERE id = ?`, templateLineTable, templateID, name)
}

// CreateListFromList starts a new active list with the lines of another
// list, all unchecked. Used to shop a completed list again.
func (s *ListStore) CreateListFromList(ctx context.Context, listID int64, name string) (*model.ShoppingList, error) {
	return s.createCopy(ctx, `SELECT name, sort_order FROM shopping_lists WHERE id = ?`, listLineTable, listID, name)
}

func (s *ListStore) createCopy(ctx context.Context, sourceQuery string, src lineTable, srcID int64, name string) (*model.ShoppingList, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var srcName string
	var order model.SortOrder
	err = tx.QueryRowContext(ctx, sourceQuery, srcID).Scan(&srcName, &order)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load copy source: %w", err)
	}
	if naming.Normalize(name) == "" {
		name = srcName
	}

	id, err := s.insertList(ctx, tx, name, order)
	if err != nil {
		return nil, err
	}
	if err := copyLines(ctx, tx, src, srcID, listLineTable, id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetList(ctx, id)
}

func (s *ListStore) GetList(ctx context.Context, id int64) (*model.ShoppingList, error) {
	return s.getList(ctx, `id = ?`, id)
}

// GetListByUID resolves the stable identifier handed out to widgets.
func (s *ListStore) GetListByUID(ctx context.Context, uid string) (*model.ShoppingList, error) {
	return s.getList(ctx, `uid = ?`, uid)
}

func (s *ListStore) getList(ctx context.Context, where string, arg any) (*model.ShoppingList, error) {
	l, err := scanList(s.db.QueryRowContext(ctx, `SELECT `+listCols+` FROM shopping_lists WHERE `+where, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get list: %w", err)
	}
	return l, nil
}

// ListActive returns lists still being shopped, newest first.
func (s *ListStore) ListActive(ctx context.Context) ([]model.ListWithSummary, error) {
	return s.listWithSummaries(ctx, `completed_at IS NULL ORDER BY created_at DESC, id DESC`)
}

// ListCompleted returns finished lists, most recently completed first.
func (s *ListStore) ListCompleted(ctx context.Context) ([]model.ListWithSummary, error) {
	return s.listWithSummaries(ctx, `completed_at IS NOT NULL ORDER BY completed_at DESC, id DESC`)
}

func (s *ListStore) listWithSummaries(ctx context.Context, clause string) ([]model.ListWithSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+listCols+` FROM shopping_lists WHERE `+clause)
	if err != nil {
		return nil, fmt.Errorf("list shopping lists: %w", err)
	}

	var lists []model.ListWithSummary
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan list: %w", err)
		}
		lists = append(lists, model.ListWithSummary{ShoppingList: *l})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Summaries are loaded after the cursor is closed: the pool holds one connection.
	for i := range lists {
		sum, err := s.Summary(ctx, lists[i].ID)
		if err != nil {
			return nil, err
		}
		lists[i].Summary = sum
	}
	return lists, nil
}

// History groups completed lists into this week, this month and older.
func (s *ListStore) History(ctx context.Context) ([]shopping.HistoryGroup, error) {
	lists, err := s.ListCompleted(ctx)
	if err != nil {
		return nil, err
	}
	return shopping.GroupHistory(lists, s.now()), nil
}

// Spending totals the cost of every completed list.
func (s *ListStore) Spending(ctx context.Context) (shopping.Spending, error) {
	lists, err := s.ListCompleted(ctx)
	if err != nil {
		return shopping.Spending{}, err
	}
	return shopping.TotalSpending(lists, s.now()), nil
}

// Summary derives item count, checked count and total cost from the list's
// current items.
func (s *ListStore) Summary(ctx context.Context, listID int64) (model.Summary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT price, is_checked FROM list_items WHERE list_id = ?`, listID)
	if err != nil {
		return model.Summary{}, fmt.Errorf("summarize list: %w", err)
	}
	defer rows.Close()

	var items []model.ListItem
	for rows.Next() {
		var item model.ListItem
		var checked int
		if err := rows.Scan(&item.Price, &checked); err != nil {
			return model.Summary{}, fmt.Errorf("scan list price: %w", err)
		}
		item.IsChecked = checked != 0
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return model.Summary{}, err
	}
	return shopping.Summarize(items), nil
}

func (s *ListStore) RenameList(ctx context.Context, id int64, name string) (*model.ShoppingList, error) {
	name = naming.Normalize(name)
	if name == "" {
		return nil, naming.ErrEmptyName
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE shopping_lists SET name = ? WHERE id = ?`, name, id); err != nil {
		return nil, fmt.Errorf("rename list: %w", err)
	}
	return s.GetList(ctx, id)
}

func (s *ListStore) SetSortOrder(ctx context.Context, id int64, order model.SortOrder) (*model.ShoppingList, error) {
	if !order.Valid() {
		return nil, fmt.Errorf("unknown sort order %q", order)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE shopping_lists SET sort_order = ? WHERE id = ?`, order, id); err != nil {
		return nil, fmt.Errorf("set list sort order: %w", err)
	}
	return s.GetList(ctx, id)
}

// CompleteList stamps the list with the current time, moving it to history.
func (s *ListStore) CompleteList(ctx context.Context, id int64) (*model.ShoppingList, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE shopping_lists SET completed_at = ? WHERE id = ? AND completed_at IS NULL`, s.now(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("complete list: %w", err)
	}
	return s.GetList(ctx, id)
}

// ReopenList makes a completed list active again.
func (s *ListStore) ReopenList(ctx context.Context, id int64) (*model.ShoppingList, error) {
	if _, err := s.db.ExecContext(ctx, `UPDATE shopping_lists SET completed_at = NULL WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("reopen list: %w", err)
	}
	return s.GetList(ctx, id)
}

// DeleteList removes the list and its items.
func (s *ListStore) DeleteList(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM shopping_lists WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete list: %w", err)
	}
	return nil
}

// --- Item methods ---

// Items returns the list's items ordered by the list's sort order.
func (s *ListStore) Items(ctx context.Context, listID int64, order model.SortOrder) ([]model.ListItem, error) {
	return s.items.byOwner(ctx, listID, order)
}

func (s *ListStore) AddItem(ctx context.Context, listID, itemID int64, f model.LineFields) (*model.ListItem, error) {
	return s.items.add(ctx, listID, itemID, f)
}

func (s *ListStore) AddItemByName(ctx context.Context, listID int64, name string, f model.LineFields) (*model.ListItem, error) {
	return s.items.addByName(ctx, listID, name, f)
}

func (s *ListStore) GetItem(ctx context.Context, id int64) (*model.ListItem, error) {
	return s.items.get(ctx, id)
}

func (s *ListStore) UpdateLine(ctx context.Context, id int64, f model.LineFields) (*model.ListItem, error) {
	return s.items.update(ctx, id, f)
}

func (s *ListStore) RenameItem(ctx context.Context, id int64, name string, scope model.RenameScope) (*model.ListItem, error) {
	return s.items.rename(ctx, id, name, scope)
}

// EditLine applies a rename, category change and field update as one unit.
func (s *ListStore) EditLine(ctx context.Context, id int64, c model.LineChange) (*model.ListItem, error) {
	return s.items.apply(ctx, id, c)
}

func (s *ListStore) SetItemCategory(ctx context.Context, id int64, categoryID *int64) (*model.ListItem, error) {
	return s.items.setCategory(ctx, id, categoryID)
}

func (s *ListStore) DeleteItem(ctx context.Context, id int64) error {
	return s.items.delete(ctx, id)
}

func (s *ListStore) SetChecked(ctx context.Context, id int64, checked bool) (*model.ListItem, error) {
	if _, err := s.db.ExecContext(ctx, `UPDATE list_items SET is_checked = ? WHERE id = ?`, boolInt(checked), id); err != nil {
		return nil, fmt.Errorf("set checked: %w", err)
	}
	return s.GetItem(ctx, id)
}

func (s *ListStore) ToggleChecked(ctx context.Context, id int64) (*model.ListItem, error) {
	if _, err := s.db.ExecContext(ctx, `UPDATE list_items SET is_checked = 1 - is_checked WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("toggle checked: %w", err)
	}
	return s.GetItem(ctx, id)
}

// SetAllChecked checks or unchecks every item of the list.
func (s *ListStore) SetAllChecked(ctx context.Context, listID int64, checked bool) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE list_items SET is_checked = ? WHERE list_id = ? AND is_checked != ?`,
		boolInt(checked), listID, boolInt(checked),
	)
	if err != nil {
		return 0, fmt.Errorf("set all checked: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}

// ClearChecked removes the checked items of the list.
func (s *ListStore) ClearChecked(ctx context.Context, listID int64) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM list_items WHERE list_id = ? AND is_checked = 1`, listID)
	if err != nil {
		return 0, fmt.Errorf("clear checked: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
