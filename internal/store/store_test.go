package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/dukerupert/basket/internal/database"
	"github.com/dukerupert/basket/internal/model"
	"github.com/dukerupert/basket/internal/naming"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// groceries builds the list used throughout the tests: Milk (2.99, unchecked)
// and Eggs (4.99, checked).
func groceries(t *testing.T, ls *ListStore) (*model.ShoppingList, *model.ListItem, *model.ListItem) {
	t.Helper()
	ctx := context.Background()

	list, err := ls.CreateList(ctx, "Groceries", model.SortByCategory)
	if err != nil {
		t.Fatalf("create list: %v", err)
	}
	milk, err := ls.AddItemByName(ctx, list.ID, "Milk", model.LineFields{Quantity: 1, Price: 2.99})
	if err != nil {
		t.Fatalf("add milk: %v", err)
	}
	eggs, err := ls.AddItemByName(ctx, list.ID, "Eggs", model.LineFields{Quantity: 12, Price: 4.99})
	if err != nil {
		t.Fatalf("add eggs: %v", err)
	}
	if eggs, err = ls.SetChecked(ctx, eggs.ID, true); err != nil {
		t.Fatalf("check eggs: %v", err)
	}
	return list, milk, eggs
}

func TestLikePattern(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"milk", "%milk%"},
		{"50%", `%50\%%`},
		{"a_b", `%a\_b%`},
		{`c:\`, `%c:\\%`},
	}
	for _, tt := range tests {
		if got := likePattern(tt.in); got != tt.want {
			t.Errorf("likePattern(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNameConflict(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	var dairyID int64
	if err := db.QueryRowContext(ctx, `SELECT id FROM categories WHERE name_key = 'dairy'`).Scan(&dairyID); err != nil {
		t.Fatalf("find seeded category: %v", err)
	}

	// A writer that slipped past Validate hits the name_key index.
	_, err := db.ExecContext(ctx, `INSERT INTO categories (name, name_key) VALUES ('DAIRY', 'dairy')`)
	if err == nil {
		t.Fatal("expected unique constraint error")
	}
	if got := nameConflict(err); !errors.Is(got, naming.ErrDuplicateName) {
		t.Errorf("nameConflict(%v) = %v, want ErrDuplicateName", err, got)
	}

	_, err = db.ExecContext(ctx, `INSERT INTO categories (id, name, name_key) VALUES (?, 'Deli', 'deli')`, dairyID)
	if err == nil {
		t.Fatal("expected primary key error")
	}
	if got := nameConflict(err); errors.Is(got, naming.ErrDuplicateName) {
		t.Errorf("primary key clash mapped to duplicate name: %v", got)
	}

	if got := nameConflict(nil); got != nil {
		t.Errorf("nameConflict(nil) = %v", got)
	}
}
