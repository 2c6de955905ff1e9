package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/dukerupert/basket/internal/model"
)

func createTemplate(t *testing.T, a *testAPI, name string) model.Template {
	t.Helper()
	rec := a.expect(http.StatusCreated, "POST", "/api/templates", fmt.Sprintf(`{"name":%q}`, name))
	return decodeBody[model.Template](t, rec)
}

func addTemplateLine(t *testing.T, a *testAPI, templateID int64, body string) model.TemplateItem {
	t.Helper()
	rec := a.expect(http.StatusCreated, "POST", fmt.Sprintf("/api/templates/%d/items", templateID), body)
	return decodeBody[model.TemplateItem](t, rec)
}

func templateLineNames(t *testing.T, a *testAPI, templateID int64) []string {
	t.Helper()
	rec := a.expect(http.StatusOK, "GET", fmt.Sprintf("/api/templates/%d/items", templateID), "")
	var names []string
	for _, item := range decodeBody[[]model.TemplateItem](t, rec) {
		names = append(names, item.ItemName)
	}
	if len(names) == 0 {
		t.Fatalf("template %d has no items", templateID)
	}
	return names
}

func TestTemplateLifecycle(t *testing.T) {
	a := newTestAPI(t)
	tmpl := createTemplate(t, a, "BBQ")
	createTemplate(t, a, "Anniversary")

	a.expect(http.StatusConflict, "POST", "/api/templates", `{"name":"bbq"}`)
	a.expect(http.StatusBadRequest, "POST", "/api/templates", `{"name":""}`)

	path := fmt.Sprintf("/api/templates/%d", tmpl.ID)
	a.expect(http.StatusConflict, "PUT", path, `{"name":"ANNIVERSARY"}`)

	rec := a.expect(http.StatusOK, "PUT", path, `{"name":"Summer BBQ","sort_order":"name","is_favourite":true}`)
	updated := decodeBody[model.Template](t, rec)
	if updated.Name != "Summer BBQ" || updated.SortOrder != model.SortByName || !updated.IsFavourite {
		t.Errorf("updated = %+v, want Summer BBQ/name/favourite", updated)
	}

	rec = a.expect(http.StatusOK, "GET", "/api/templates", "")
	templates := decodeBody[[]model.Template](t, rec)
	if len(templates) != 2 || templates[0].Name != "Summer BBQ" {
		t.Errorf("templates = %+v, want favourite Summer BBQ first", templates)
	}

	rec = a.expect(http.StatusOK, "PUT", path+"/favourite", `{"is_favourite":false}`)
	if decodeBody[model.Template](t, rec).IsFavourite {
		t.Error("expected favourite to be cleared")
	}

	a.expect(http.StatusNoContent, "DELETE", path, "")
	a.expect(http.StatusNotFound, "GET", path, "")
}

func TestTemplateLines(t *testing.T) {
	a := newTestAPI(t)
	tmpl := createTemplate(t, a, "BBQ")
	chips := addTemplateLine(t, a, tmpl.ID, `{"name":"Chips","quantity":3,"price":6.5,"notes":"salted","unit":"bags"}`)
	addTemplateLine(t, a, tmpl.ID, `{"name":"Burger Buns","price":3}`)

	rec := a.expect(http.StatusOK, "GET", fmt.Sprintf("/api/templates/%d", tmpl.ID), "")
	detail := decodeBody[templateDetail](t, rec)
	if detail.ItemCount != 2 || len(detail.Items) != 2 {
		t.Errorf("detail = %d count, %d items, want 2 and 2", detail.ItemCount, len(detail.Items))
	}

	path := fmt.Sprintf("/api/templates/%d/items/%d", tmpl.ID, chips.ID)
	rec = a.expect(http.StatusOK, "PATCH", path, `{"quantity":4,"name":"Tortilla Chips","scope":"local"}`)
	edited := decodeBody[model.TemplateItem](t, rec)
	if edited.Quantity != 4 || edited.ItemName != "Tortilla Chips" {
		t.Errorf("edited = %v %q, want 4 Tortilla Chips", edited.Quantity, edited.ItemName)
	}

	other := createTemplate(t, a, "Picnic")
	a.expect(http.StatusNotFound, "PATCH", fmt.Sprintf("/api/templates/%d/items/%d", other.ID, chips.ID), `{"quantity":1}`)

	a.expect(http.StatusNoContent, "DELETE", path, "")
	if got := templateLineNames(t, a, tmpl.ID); len(got) != 1 || got[0] != "Burger Buns" {
		t.Errorf("remaining = %v, want [Burger Buns]", got)
	}
}

func TestStartListFromTemplate(t *testing.T) {
	a := newTestAPI(t)
	tmpl := createTemplate(t, a, "BBQ")
	addTemplateLine(t, a, tmpl.ID, `{"name":"Chips","quantity":3,"price":6.5,"notes":"salted","unit":"bags"}`)

	rec := a.expect(http.StatusCreated, "POST", fmt.Sprintf("/api/templates/%d/lists", tmpl.ID), "")
	list := decodeBody[model.ShoppingList](t, rec)
	if list.Name != "BBQ" || !list.IsActive() {
		t.Errorf("list = %+v, want active BBQ", list)
	}

	rec = a.expect(http.StatusOK, "GET", fmt.Sprintf("/api/lists/%d/items", list.ID), "")
	items := decodeBody[[]model.ListItem](t, rec)
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	chips := items[0]
	if chips.Quantity != 3 || chips.Price != 6.5 || chips.Notes != "salted" || chips.Unit != "bags" || chips.IsChecked {
		t.Errorf("copied line = %+v, want 3/6.5/salted/bags unchecked", chips)
	}

	rec = a.expect(http.StatusCreated, "POST", fmt.Sprintf("/api/templates/%d/lists", tmpl.ID), `{"name":"Saturday BBQ"}`)
	if got := decodeBody[model.ShoppingList](t, rec).Name; got != "Saturday BBQ" {
		t.Errorf("name = %q, want Saturday BBQ", got)
	}
	a.expect(http.StatusNotFound, "POST", "/api/templates/9999/lists", "")
}

func TestSaveListAsTemplate(t *testing.T) {
	a := newTestAPI(t)
	list, _, _ := groceries(t, a)
	path := fmt.Sprintf("/api/lists/%d/template", list.ID)

	rec := a.expect(http.StatusCreated, "POST", path, `{"name":"Weekly"}`)
	tmpl := decodeBody[model.Template](t, rec)
	if tmpl.ItemCount != 2 {
		t.Errorf("item count = %d, want 2", tmpl.ItemCount)
	}

	a.expect(http.StatusConflict, "POST", path, `{"name":"WEEKLY"}`)
	a.expect(http.StatusNotFound, "POST", "/api/lists/9999/template", `{"name":"Other"}`)
}
