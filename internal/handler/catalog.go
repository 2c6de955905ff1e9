package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/basket/internal/store"
	"github.com/dukerupert/basket/internal/websocket"
)

// CatalogHandler serves categories and inventory items.
type CatalogHandler struct {
	categories *store.CategoryStore
	items      *store.InventoryStore
	responder
}

func NewCatalogHandler(cs *store.CategoryStore, is *store.InventoryStore, hub *websocket.Hub, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{categories: cs, items: is, responder: newResponder(hub, logger)}
}

type categoryRequest struct {
	Name string `json:"name"`
}

func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.List(r.Context())
	if err != nil {
		h.fail(w, r, err, "list categories")
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(categories))
}

func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.categories.Create(r.Context(), req.Name)
	if err != nil {
		h.fail(w, r, err, "create category")
		return
	}
	h.broadcast(websocket.NewMessage(websocket.EntityCategory, "created", c.ID, nil))
	writeJSON(w, http.StatusCreated, c)
}

func (h *CatalogHandler) RenameCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	existing, err := h.categories.GetByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "get category")
		return
	}
	if existing == nil {
		notFound(w, "category")
		return
	}

	var req categoryRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.categories.Rename(r.Context(), id, req.Name)
	if err != nil {
		h.fail(w, r, err, "rename category")
		return
	}
	h.broadcast(websocket.NewMessage(websocket.EntityCategory, "updated", id, nil))
	writeJSON(w, http.StatusOK, c)
}

func (h *CatalogHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	existing, err := h.categories.GetByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "get category")
		return
	}
	if existing == nil {
		notFound(w, "category")
		return
	}
	if err := h.categories.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err, "delete category")
		return
	}
	h.broadcast(websocket.NewMessage(websocket.EntityCategory, "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

type itemRequest struct {
	Name        string `json:"name"`
	Unit        string `json:"unit" validate:"max=32"`
	CategoryID  *int64 `json:"category_id" validate:"omitempty,gt=0"`
	IsFavourite bool   `json:"is_favourite"`
}

// ListItems returns the inventory, optionally filtered by ?q= and grouped
// into category sections with ?group=category.
func (h *CatalogHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("group") == "category" {
		sections, err := h.items.Sections(r.Context(), q.Get("q"))
		if err != nil {
			h.fail(w, r, err, "list item sections")
			return
		}
		writeJSON(w, http.StatusOK, orEmpty(sections))
		return
	}

	items, err := h.items.List(r.Context(), q.Get("q"))
	if err != nil {
		h.fail(w, r, err, "list items")
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(items))
}

func (h *CatalogHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	item, err := h.items.GetByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "get item")
		return
	}
	if item == nil {
		notFound(w, "item")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// CreateItem adds an inventory item. Without a category_id the category is
// guessed from the name.
func (h *CatalogHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !h.categoryExists(w, r, req.CategoryID) {
		return
	}
	item, err := h.items.Create(r.Context(), store.NewItem{
		Name:          req.Name,
		Unit:          req.Unit,
		CategoryID:    req.CategoryID,
		IsFavourite:   req.IsFavourite,
		GuessCategory: req.CategoryID == nil,
	})
	if err != nil {
		h.fail(w, r, err, "create item")
		return
	}
	h.broadcast(websocket.NewMessage(websocket.EntityItem, "created", item.ID, nil))
	writeJSON(w, http.StatusCreated, item)
}

// UpdateItem renames the shared item and replaces its unit and category.
func (h *CatalogHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	existing, err := h.items.GetByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "get item")
		return
	}
	if existing == nil {
		notFound(w, "item")
		return
	}

	var req itemRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !h.categoryExists(w, r, req.CategoryID) {
		return
	}
	item, err := h.items.Update(r.Context(), id, store.ItemUpdate{Name: req.Name, Unit: req.Unit, CategoryID: req.CategoryID})
	if err != nil {
		h.fail(w, r, err, "update item")
		return
	}
	h.broadcast(websocket.NewMessage(websocket.EntityItem, "updated", id, nil))
	writeJSON(w, http.StatusOK, item)
}

func (h *CatalogHandler) SetItemFavourite(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		IsFavourite bool `json:"is_favourite"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	item, err := h.items.SetFavourite(r.Context(), id, req.IsFavourite)
	if err != nil {
		h.fail(w, r, err, "set item favourite")
		return
	}
	if item == nil {
		notFound(w, "item")
		return
	}
	h.broadcast(websocket.NewMessage(websocket.EntityItem, "updated", id, nil))
	writeJSON(w, http.StatusOK, item)
}

// DeleteItem removes the item and every list and template line using it.
func (h *CatalogHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	existing, err := h.items.GetByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "get item")
		return
	}
	if existing == nil {
		notFound(w, "item")
		return
	}
	if err := h.items.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err, "delete item")
		return
	}
	h.broadcast(websocket.NewMessage(websocket.EntityItem, "deleted", id, map[string]any{"name": existing.Name}))
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) categoryExists(w http.ResponseWriter, r *http.Request, id *int64) bool {
	if id == nil {
		return true
	}
	c, err := h.categories.GetByID(r.Context(), *id)
	if err != nil {
		h.fail(w, r, err, "get category")
		return false
	}
	if c == nil {
		writeError(w, http.StatusBadRequest, "unknown category_id")
		return false
	}
	return true
}
