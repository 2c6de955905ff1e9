package store

import (
	"context"
	"errors"
	"testing"

	"github.com/dukerupert/basket/internal/model"
	"github.com/dukerupert/basket/internal/naming"
)

func TestTemplateCRUD(t *testing.T) {
	ts := NewTemplateStore(setupTestDB(t))
	ctx := context.Background()

	tmpl, err := ts.CreateTemplate(ctx, "Weekly Shop", model.SortByName)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if tmpl.ItemCount != 0 || tmpl.SortOrder != model.SortByName {
		t.Errorf("tmpl = %+v", tmpl)
	}

	if _, err := ts.CreateTemplate(ctx, "weekly shop", model.SortByName); !errors.Is(err, naming.ErrDuplicateName) {
		t.Errorf("duplicate: err = %v, want ErrDuplicateName", err)
	}

	tmpl, err = ts.RenameTemplate(ctx, tmpl.ID, "Big Shop")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if tmpl.Name != "Big Shop" {
		t.Errorf("name = %q, want Big Shop", tmpl.Name)
	}
	if _, err := ts.RenameTemplate(ctx, tmpl.ID, ""); !errors.Is(err, naming.ErrEmptyName) {
		t.Errorf("blank rename: err = %v, want ErrEmptyName", err)
	}

	if err := ts.DeleteTemplate(ctx, tmpl.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, _ := ts.GetTemplate(ctx, tmpl.ID)
	if got != nil {
		t.Error("expected nil after delete")
	}
}

func TestTemplateListFavouritesFirst(t *testing.T) {
	ts := NewTemplateStore(setupTestDB(t))
	ctx := context.Background()

	ids := map[string]int64{}
	for _, name := range []string{"BBQ", "Christmas", "Anniversary"} {
		tmpl, err := ts.CreateTemplate(ctx, name, model.SortByCategory)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		ids[name] = tmpl.ID
	}
	if _, err := ts.SetFavourite(ctx, ids["Christmas"], true); err != nil {
		t.Fatalf("favourite: %v", err)
	}

	templates, err := ts.ListTemplates(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"Christmas", "Anniversary", "BBQ"}
	for i, name := range want {
		if templates[i].Name != name {
			t.Errorf("templates[%d] = %q, want %q", i, templates[i].Name, name)
		}
	}
	if !templates[0].IsFavourite {
		t.Error("Christmas should be a favourite")
	}
}

func TestTemplateFromList(t *testing.T) {
	db := setupTestDB(t)
	ls := NewListStore(db)
	ts := NewTemplateStore(db)
	ctx := context.Background()
	list, _, _ := groceries(t, ls)

	tmpl, err := ts.CreateTemplateFromList(ctx, list.ID, "Staples")
	if err != nil {
		t.Fatalf("create from list: %v", err)
	}
	if tmpl.ItemCount != 2 {
		t.Errorf("item count = %d, want 2", tmpl.ItemCount)
	}
	if tmpl.SortOrder != list.SortOrder {
		t.Errorf("sort order = %q, want %q", tmpl.SortOrder, list.SortOrder)
	}

	items, err := ts.Items(ctx, tmpl.ID, model.SortByName)
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	if items[0].ItemName != "Eggs" || items[0].Quantity != 12 || items[0].Price != 4.99 {
		t.Errorf("items[0] = %+v", items[0])
	}

	if _, err := ts.CreateTemplateFromList(ctx, list.ID, "staples"); !errors.Is(err, naming.ErrDuplicateName) {
		t.Errorf("duplicate: err = %v, want ErrDuplicateName", err)
	}
	missing, err := ts.CreateTemplateFromList(ctx, 999, "Other")
	if err != nil || missing != nil {
		t.Errorf("missing list = %v, %v", missing, err)
	}
}

func TestListFromTemplate(t *testing.T) {
	db := setupTestDB(t)
	ls := NewListStore(db)
	ts := NewTemplateStore(db)
	ctx := context.Background()

	tmpl, _ := ts.CreateTemplate(ctx, "Party", model.SortByName)
	chips, err := ts.AddItemByName(ctx, tmpl.ID, "Chips", model.LineFields{Quantity: 3, Price: 6.5, Notes: "salted", Unit: "bags"})
	if err != nil {
		t.Fatalf("add chips: %v", err)
	}
	if _, err := ts.AddItemByName(ctx, tmpl.ID, "Soda", model.LineFields{Quantity: 2, Price: 4}); err != nil {
		t.Fatalf("add soda: %v", err)
	}

	list, err := ls.CreateListFromTemplate(ctx, tmpl.ID, "")
	if err != nil {
		t.Fatalf("create from template: %v", err)
	}
	if list.Name != "Party" || list.SortOrder != model.SortByName || !list.IsActive() {
		t.Errorf("list = %+v", list)
	}

	items, _ := ls.Items(ctx, list.ID, model.SortByName)
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	got := items[0]
	if got.ItemID != chips.ItemID || got.Quantity != 3 || got.Price != 6.5 || got.Notes != "salted" || got.Unit != "bags" {
		t.Errorf("copied line = %+v", got)
	}
	for _, item := range items {
		if item.IsChecked {
			t.Errorf("%s should start unchecked", item.ItemName)
		}
	}

	// Editing the list leaves the template untouched.
	if _, err := ls.UpdateLine(ctx, got.ID, model.LineFields{Quantity: 1, Price: 2}); err != nil {
		t.Fatalf("update: %v", err)
	}
	tchips, _ := ts.GetItem(ctx, chips.ID)
	if tchips.Quantity != 3 {
		t.Errorf("template quantity = %v, want 3", tchips.Quantity)
	}

	named, _ := ls.CreateListFromTemplate(ctx, tmpl.ID, "Saturday")
	if named.Name != "Saturday" {
		t.Errorf("name = %q, want Saturday", named.Name)
	}
	missing, err := ls.CreateListFromTemplate(ctx, 999, "")
	if err != nil || missing != nil {
		t.Errorf("missing template = %v, %v", missing, err)
	}
}

func TestTemplateDeleteRemovesItems(t *testing.T) {
	ts := NewTemplateStore(setupTestDB(t))
	ctx := context.Background()

	tmpl, _ := ts.CreateTemplate(ctx, "Camping", model.SortByCategory)
	item, _ := ts.AddItemByName(ctx, tmpl.ID, "Matches", model.LineFields{Quantity: 1})
	if err := ts.DeleteTemplate(ctx, tmpl.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, _ := ts.GetItem(ctx, item.ID)
	if got != nil {
		t.Error("template item should be deleted with its template")
	}
}
