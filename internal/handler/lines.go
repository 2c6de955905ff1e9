package handler

import (
	"context"
	"net/http"

	"github.com/dukerupert/basket/internal/lineitem"
	"github.com/dukerupert/basket/internal/model"
	"github.com/dukerupert/basket/internal/store"
	"github.com/dukerupert/basket/internal/websocket"
)

// ownedLine is a list or template line that knows which record holds it.
type ownedLine interface {
	model.Lineable
	OwnerID() int64
}

// lineStore is what the shared line endpoints need from ListStore and
// TemplateStore.
type lineStore[T ownedLine] interface {
	lineitem.Store[T]
	AddItem(ctx context.Context, ownerID, itemID int64, f model.LineFields) (*T, error)
	AddItemByName(ctx context.Context, ownerID int64, name string, f model.LineFields) (*T, error)
	DeleteItem(ctx context.Context, id int64) error
}

// lineHandler serves add, edit and delete for the lines of one kind of
// owner. The owner itself is resolved by the caller.
type lineHandler[T ownedLine] struct {
	store      lineStore[T]
	editor     *lineitem.Editor[T]
	items      *store.InventoryStore
	categories *store.CategoryStore
	entity     string
	responder
}

func newLineHandler[T ownedLine](ls lineStore[T], is *store.InventoryStore, cs *store.CategoryStore, entity string, rs responder) *lineHandler[T] {
	return &lineHandler[T]{
		store:      ls,
		editor:     lineitem.NewEditor[T](ls, rs.logger.With("lines", entity)),
		items:      is,
		categories: cs,
		entity:     entity,
		responder:  rs,
	}
}

type addLineRequest struct {
	ItemID   *int64   `json:"item_id" validate:"omitempty,gt=0"`
	Name     string   `json:"name"`
	Quantity *float64 `json:"quantity" validate:"omitempty,gt=0"`
	Price    float64  `json:"price" validate:"gte=0"`
	Notes    string   `json:"notes" validate:"max=500"`
	Unit     string   `json:"unit" validate:"max=32"`
}

func (req addLineRequest) fields() model.LineFields {
	f := model.LineFields{Quantity: 1, Price: req.Price, Notes: req.Notes, Unit: req.Unit}
	if req.Quantity != nil {
		f.Quantity = *req.Quantity
	}
	return f
}

type editLineRequest struct {
	Name          *string           `json:"name"`
	Scope         model.RenameScope `json:"scope"`
	CategoryID    *int64            `json:"category_id" validate:"omitempty,gt=0"`
	ClearCategory bool              `json:"clear_category"`
	Quantity      *float64          `json:"quantity"`
	Price         *float64          `json:"price"`
	Notes         *string           `json:"notes"`
	Unit          *string           `json:"unit"`
}

func (req editLineRequest) edit() lineitem.Edit {
	return lineitem.Edit{
		Name:          req.Name,
		Scope:         req.Scope,
		CategoryID:    req.CategoryID,
		ClearCategory: req.ClearCategory,
		Quantity:      req.Quantity,
		Price:         req.Price,
		Notes:         req.Notes,
		Unit:          req.Unit,
	}
}

// changesSharedItem reports whether the edit touches the inventory item
// itself rather than only this line.
func (req editLineRequest) changesSharedItem() bool {
	renamed := req.Name != nil && req.Scope != model.RenameLocal
	return renamed || req.CategoryID != nil || req.ClearCategory
}

// scope decorates a change notification, e.g. with the owning list's uid.
type scope func(websocket.Message) websocket.Message

func unscoped(m websocket.Message) websocket.Message { return m }

// add puts an inventory item on the owner, either by item_id or by name.
// A name that matches no inventory item creates one.
func (h *lineHandler[T]) add(w http.ResponseWriter, r *http.Request, ownerID int64, sc scope) {
	var req addLineRequest
	if !h.decode(w, r, &req) {
		return
	}

	var (
		line *T
		err  error
	)
	if req.ItemID != nil {
		item, lookupErr := h.items.GetByID(r.Context(), *req.ItemID)
		if lookupErr != nil {
			h.fail(w, r, lookupErr, "get item")
			return
		}
		if item == nil {
			writeError(w, http.StatusBadRequest, "unknown item_id")
			return
		}
		line, err = h.store.AddItem(r.Context(), ownerID, item.ID, req.fields())
	} else {
		line, err = h.store.AddItemByName(r.Context(), ownerID, req.Name, req.fields())
	}
	if err != nil {
		h.fail(w, r, err, "add "+h.entity)
		return
	}

	id := (*line).LineInfo().ID
	h.broadcast(sc(websocket.NewMessage(h.entity, "created", id, map[string]any{"owner_id": ownerID})))
	writeJSON(w, http.StatusCreated, line)
}

// edit applies a partial update, including a local or global rename.
func (h *lineHandler[T]) edit(w http.ResponseWriter, r *http.Request, ownerID int64, sc scope) {
	id, ok := h.owned(w, r, ownerID)
	if !ok {
		return
	}

	var req editLineRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.CategoryID != nil && !req.ClearCategory {
		c, err := h.categories.GetByID(r.Context(), *req.CategoryID)
		if err != nil {
			h.fail(w, r, err, "get category")
			return
		}
		if c == nil {
			writeError(w, http.StatusBadRequest, "unknown category_id")
			return
		}
	}

	line, err := h.editor.Apply(r.Context(), id, req.edit())
	if err != nil {
		h.fail(w, r, err, "edit "+h.entity)
		return
	}
	if line == nil {
		notFound(w, "item")
		return
	}

	itemID := (*line).LineInfo().ItemID
	extra := map[string]any{"owner_id": ownerID}
	if req.Name != nil {
		extra["scope"] = req.Scope
		extra["item_id"] = itemID
	}
	h.broadcast(sc(websocket.NewMessage(h.entity, "updated", id, extra)))
	if req.changesSharedItem() {
		// Every list and template holding the item shows the change.
		h.broadcast(websocket.NewMessage(websocket.EntityItem, "updated", itemID, map[string]any{"source": h.entity}))
	}
	writeJSON(w, http.StatusOK, line)
}

func (h *lineHandler[T]) remove(w http.ResponseWriter, r *http.Request, ownerID int64, sc scope) {
	id, ok := h.owned(w, r, ownerID)
	if !ok {
		return
	}
	if err := h.store.DeleteItem(r.Context(), id); err != nil {
		h.fail(w, r, err, "delete "+h.entity)
		return
	}
	h.broadcast(sc(websocket.NewMessage(h.entity, "deleted", id, map[string]any{"owner_id": ownerID})))
	w.WriteHeader(http.StatusNoContent)
}

// owned parses {item_id} and answers 404 unless the line belongs to ownerID.
func (h *lineHandler[T]) owned(w http.ResponseWriter, r *http.Request, ownerID int64) (int64, bool) {
	id, ok := pathID(w, r, "item_id")
	if !ok {
		return 0, false
	}
	line, err := h.store.GetItem(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "get "+h.entity)
		return 0, false
	}
	if line == nil || (*line).OwnerID() != ownerID {
		notFound(w, "item")
		return 0, false
	}
	return id, true
}
