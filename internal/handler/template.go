package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/basket/internal/model"
	"github.com/dukerupert/basket/internal/store"
	"github.com/dukerupert/basket/internal/websocket"
)

// TemplateHandler serves reusable templates and the lists started from
// them.
type TemplateHandler struct {
	templates *store.TemplateStore
	lists     *store.ListStore
	lines     *lineHandler[model.TemplateItem]
	responder
}

func NewTemplateHandler(ts *store.TemplateStore, ls *store.ListStore, is *store.InventoryStore, cs *store.CategoryStore, hub *websocket.Hub, logger *slog.Logger) *TemplateHandler {
	rs := newResponder(hub, logger)
	return &TemplateHandler{
		templates: ts,
		lists:     ls,
		lines:     newLineHandler[model.TemplateItem](ts, is, cs, websocket.EntityTemplateItem, rs),
		responder: rs,
	}
}

type templateDetail struct {
	model.Template
	Items []model.TemplateItem `json:"items"`
}

type templateUpdateRequest struct {
	Name        *string         `json:"name"`
	SortOrder   model.SortOrder `json:"sort_order" validate:"omitempty,oneof=name category"`
	IsFavourite *bool           `json:"is_favourite"`
}

func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	templates, err := h.templates.ListTemplates(r.Context())
	if err != nil {
		h.fail(w, r, err, "list templates")
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(templates))
}

func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req listRequest
	if !h.decode(w, r, &req) {
		return
	}
	tmpl, err := h.templates.CreateTemplate(r.Context(), req.Name, req.SortOrder)
	if err != nil {
		h.fail(w, r, err, "create template")
		return
	}
	h.broadcast(websocket.NewMessage(websocket.EntityTemplate, "created", tmpl.ID, nil))
	writeJSON(w, http.StatusCreated, tmpl)
}

func (h *TemplateHandler) Get(w http.ResponseWriter, r *http.Request) {
	tmpl, ok := h.template(w, r)
	if !ok {
		return
	}
	items, err := h.templates.Items(r.Context(), tmpl.ID, tmpl.SortOrder)
	if err != nil {
		h.fail(w, r, err, "list template items")
		return
	}
	writeJSON(w, http.StatusOK, templateDetail{Template: *tmpl, Items: orEmpty(items)})
}

// Update changes name, sort order and favourite flag. Omitted fields are
// kept.
func (h *TemplateHandler) Update(w http.ResponseWriter, r *http.Request) {
	tmpl, ok := h.template(w, r)
	if !ok {
		return
	}
	var req templateUpdateRequest
	if !h.decode(w, r, &req) {
		return
	}

	updated := tmpl
	var err error
	if req.Name != nil && *req.Name != tmpl.Name {
		if updated, err = h.templates.RenameTemplate(r.Context(), tmpl.ID, *req.Name); err != nil {
			h.fail(w, r, err, "rename template")
			return
		}
	}
	if req.SortOrder != "" && req.SortOrder != tmpl.SortOrder {
		if updated, err = h.templates.SetSortOrder(r.Context(), tmpl.ID, req.SortOrder); err != nil {
			h.fail(w, r, err, "set template sort order")
			return
		}
	}
	if req.IsFavourite != nil && *req.IsFavourite != tmpl.IsFavourite {
		if updated, err = h.templates.SetFavourite(r.Context(), tmpl.ID, *req.IsFavourite); err != nil {
			h.fail(w, r, err, "set template favourite")
			return
		}
	}
	h.broadcast(websocket.NewMessage(websocket.EntityTemplate, "updated", tmpl.ID, nil))
	writeJSON(w, http.StatusOK, updated)
}

func (h *TemplateHandler) SetFavourite(w http.ResponseWriter, r *http.Request) {
	tmpl, ok := h.template(w, r)
	if !ok {
		return
	}
	var req struct {
		IsFavourite bool `json:"is_favourite"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	updated, err := h.templates.SetFavourite(r.Context(), tmpl.ID, req.IsFavourite)
	if err != nil {
		h.fail(w, r, err, "set template favourite")
		return
	}
	h.broadcast(websocket.NewMessage(websocket.EntityTemplate, "updated", tmpl.ID, nil))
	writeJSON(w, http.StatusOK, updated)
}

// Delete removes the template and its items. Lists created from it stay.
func (h *TemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tmpl, ok := h.template(w, r)
	if !ok {
		return
	}
	if err := h.templates.DeleteTemplate(r.Context(), tmpl.ID); err != nil {
		h.fail(w, r, err, "delete template")
		return
	}
	h.broadcast(websocket.NewMessage(websocket.EntityTemplate, "deleted", tmpl.ID, nil))
	w.WriteHeader(http.StatusNoContent)
}

// StartList creates an active list from the template. The list name
// defaults to the template's.
func (h *TemplateHandler) StartList(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req copyRequest
	if !h.decodeOptional(w, r, &req) {
		return
	}
	list, err := h.lists.CreateListFromTemplate(r.Context(), id, req.Name)
	if err != nil {
		h.fail(w, r, err, "create list from template")
		return
	}
	if list == nil {
		notFound(w, "template")
		return
	}
	h.broadcast(websocket.NewMessage(websocket.EntityList, "created", list.ID, map[string]any{"template_id": id}).ForList(list.UID))
	writeJSON(w, http.StatusCreated, list)
}

func (h *TemplateHandler) Items(w http.ResponseWriter, r *http.Request) {
	tmpl, ok := h.template(w, r)
	if !ok {
		return
	}
	items, err := h.templates.Items(r.Context(), tmpl.ID, tmpl.SortOrder)
	if err != nil {
		h.fail(w, r, err, "list template items")
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(items))
}

func (h *TemplateHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	if tmpl, ok := h.template(w, r); ok {
		h.lines.add(w, r, tmpl.ID, unscoped)
	}
}

func (h *TemplateHandler) EditItem(w http.ResponseWriter, r *http.Request) {
	if tmpl, ok := h.template(w, r); ok {
		h.lines.edit(w, r, tmpl.ID, unscoped)
	}
}

func (h *TemplateHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if tmpl, ok := h.template(w, r); ok {
		h.lines.remove(w, r, tmpl.ID, unscoped)
	}
}

func (h *TemplateHandler) template(w http.ResponseWriter, r *http.Request) (*model.Template, bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return nil, false
	}
	tmpl, err := h.templates.GetTemplate(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "get template")
		return nil, false
	}
	if tmpl == nil {
		notFound(w, "template")
		return nil, false
	}
	return tmpl, true
}
