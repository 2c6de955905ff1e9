package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/basket/internal/model"
	"github.com/dukerupert/basket/internal/shopping"
	"github.com/dukerupert/basket/internal/store"
	"github.com/dukerupert/basket/internal/websocket"
)

type ListHandler struct {
	lists     *store.ListStore
	templates *store.TemplateStore
	lines     *lineHandler[model.ListItem]
	responder
}

func NewListHandler(ls *store.ListStore, ts *store.TemplateStore, is *store.InventoryStore, cs *store.CategoryStore, hub *websocket.Hub, logger *slog.Logger) *ListHandler {
	rs := newResponder(hub, logger)
	return &ListHandler{
		lists:     ls,
		templates: ts,
		lines:     newLineHandler[model.ListItem](ls, is, cs, websocket.EntityListItem, rs),
		responder: rs,
	}
}

type listRequest struct {
	Name      string          `json:"name"`
	SortOrder model.SortOrder `json:"sort_order" validate:"omitempty,oneof=name category"`
}

type listUpdateRequest struct {
	Name      *string         `json:"name"`
	SortOrder model.SortOrder `json:"sort_order" validate:"omitempty,oneof=name category"`
}

// listDetail is a list with everything a list screen renders.
type listDetail struct {
	model.ShoppingList
	Summary  model.Summary                      `json:"summary"`
	Progress float64                            `json:"progress"`
	Items    []model.ListItem                   `json:"items"`
	Sections []shopping.Section[model.ListItem] `json:"sections,omitempty"`
}

// List returns active lists, or completed ones with ?state=completed.
func (h *ListHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		lists []model.ListWithSummary
		err   error
	)
	switch r.URL.Query().Get("state") {
	case "", "active":
		lists, err = h.lists.ListActive(r.Context())
	case "completed":
		lists, err = h.lists.ListCompleted(r.Context())
	default:
		writeError(w, http.StatusBadRequest, "state must be active or completed")
		return
	}
	if err != nil {
		h.fail(w, r, err, "list lists")
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(lists))
}

func (h *ListHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req listRequest
	if !h.decode(w, r, &req) {
		return
	}
	list, err := h.lists.CreateList(r.Context(), req.Name, req.SortOrder)
	if err != nil {
		h.fail(w, r, err, "create list")
		return
	}
	h.broadcast(websocket.NewMessage(websocket.EntityList, "created", list.ID, nil).ForList(list.UID))
	writeJSON(w, http.StatusCreated, list)
}

// Get returns the list with its summary and items in the list's sort
// order. ?group=checked or ?group=category adds sections.
func (h *ListHandler) Get(w http.ResponseWriter, r *http.Request) {
	list, ok := h.list(w, r)
	if !ok {
		return
	}
	items, err := h.lists.Items(r.Context(), list.ID, list.SortOrder)
	if err != nil {
		h.fail(w, r, err, "list items")
		return
	}

	summary := shopping.Summarize(items)
	detail := listDetail{
		ShoppingList: *list,
		Summary:      summary,
		Progress:     shopping.Progress(summary),
		Items:        orEmpty(items),
	}
	switch r.URL.Query().Get("group") {
	case "":
	case "checked":
		detail.Sections = shopping.SectionsByChecked(items)
	case "category":
		detail.Sections = shopping.SectionsByCategory(items)
	default:
		writeError(w, http.StatusBadRequest, "group must be checked or category")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// Update changes the list's name and sort order. Omitted fields are kept.
func (h *ListHandler) Update(w http.ResponseWriter, r *http.Request) {
	list, ok := h.list(w, r)
	if !ok {
		return
	}
	var req listUpdateRequest
	if !h.decode(w, r, &req) {
		return
	}

	updated := list
	var err error
	if req.Name != nil && *req.Name != list.Name {
		if updated, err = h.lists.RenameList(r.Context(), list.ID, *req.Name); err != nil {
			h.fail(w, r, err, "rename list")
			return
		}
	}
	if req.SortOrder != "" && req.SortOrder != list.SortOrder {
		if updated, err = h.lists.SetSortOrder(r.Context(), list.ID, req.SortOrder); err != nil {
			h.fail(w, r, err, "set list sort order")
			return
		}
	}
	h.broadcast(websocket.NewMessage(websocket.EntityList, "updated", list.ID, nil).ForList(list.UID))
	writeJSON(w, http.StatusOK, updated)
}

func (h *ListHandler) Delete(w http.ResponseWriter, r *http.Request) {
	list, ok := h.list(w, r)
	if !ok {
		return
	}
	if err := h.lists.DeleteList(r.Context(), list.ID); err != nil {
		h.fail(w, r, err, "delete list")
		return
	}
	h.broadcast(websocket.NewMessage(websocket.EntityList, "deleted", list.ID, nil).ForList(list.UID))
	w.WriteHeader(http.StatusNoContent)
}

func (h *ListHandler) Complete(w http.ResponseWriter, r *http.Request) {
	list, ok := h.list(w, r)
	if !ok {
		return
	}
	if list.CompletedAt != nil {
		writeJSON(w, http.StatusOK, list)
		return
	}
	completed, err := h.lists.CompleteList(r.Context(), list.ID)
	if err != nil {
		h.fail(w, r, err, "complete list")
		return
	}
	h.broadcast(websocket.NewMessage(websocket.EntityList, "completed", list.ID, nil).ForList(list.UID))
	writeJSON(w, http.StatusOK, completed)
}

func (h *ListHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	list, ok := h.list(w, r)
	if !ok {
		return
	}
	reopened, err := h.lists.ReopenList(r.Context(), list.ID)
	if err != nil {
		h.fail(w, r, err, "reopen list")
		return
	}
	h.broadcast(websocket.NewMessage(websocket.EntityList, "reopened", list.ID, nil).ForList(list.UID))
	writeJSON(w, http.StatusOK, reopened)
}

type copyRequest struct {
	Name string `json:"name"`
}

// Duplicate starts a new active list from this list's lines, unchecked.
func (h *ListHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req copyRequest
	if !h.decodeOptional(w, r, &req) {
		return
	}
	list, err := h.lists.CreateListFromList(r.Context(), id, req.Name)
	if err != nil {
		h.fail(w, r, err, "duplicate list")
		return
	}
	if list == nil {
		notFound(w, "list")
		return
	}
	h.broadcast(websocket.NewMessage(websocket.EntityList, "created", list.ID, map[string]any{"source_list_id": id}).ForList(list.UID))
	writeJSON(w, http.StatusCreated, list)
}

// SaveAsTemplate creates a template from the list's lines.
func (h *ListHandler) SaveAsTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req copyRequest
	if !h.decode(w, r, &req) {
		return
	}
	tmpl, err := h.templates.CreateTemplateFromList(r.Context(), id, req.Name)
	if err != nil {
		h.fail(w, r, err, "create template from list")
		return
	}
	if tmpl == nil {
		notFound(w, "list")
		return
	}
	h.broadcast(websocket.NewMessage(websocket.EntityTemplate, "created", tmpl.ID, map[string]any{"source_list_id": id}))
	writeJSON(w, http.StatusCreated, tmpl)
}

func (h *ListHandler) Summary(w http.ResponseWriter, r *http.Request) {
	list, ok := h.list(w, r)
	if !ok {
		return
	}
	summary, err := h.lists.Summary(r.Context(), list.ID)
	if err != nil {
		h.fail(w, r, err, "list summary")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *ListHandler) Items(w http.ResponseWriter, r *http.Request) {
	list, ok := h.list(w, r)
	if !ok {
		return
	}
	items, err := h.lists.Items(r.Context(), list.ID, list.SortOrder)
	if err != nil {
		h.fail(w, r, err, "list items")
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(items))
}

func (h *ListHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	if list, ok := h.list(w, r); ok {
		h.lines.add(w, r, list.ID, forList(list))
	}
}

func (h *ListHandler) EditItem(w http.ResponseWriter, r *http.Request) {
	if list, ok := h.list(w, r); ok {
		h.lines.edit(w, r, list.ID, forList(list))
	}
}

func (h *ListHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if list, ok := h.list(w, r); ok {
		h.lines.remove(w, r, list.ID, forList(list))
	}
}

// CheckItem sets is_checked from the body, or toggles it when the body
// carries no value.
func (h *ListHandler) CheckItem(w http.ResponseWriter, r *http.Request) {
	list, ok := h.list(w, r)
	if !ok {
		return
	}
	id, ok := h.lines.owned(w, r, list.ID)
	if !ok {
		return
	}
	var req struct {
		Checked *bool `json:"checked"`
	}
	if !h.decodeOptional(w, r, &req) {
		return
	}

	var (
		item *model.ListItem
		err  error
	)
	if req.Checked == nil {
		item, err = h.lists.ToggleChecked(r.Context(), id)
	} else {
		item, err = h.lists.SetChecked(r.Context(), id, *req.Checked)
	}
	if err != nil {
		h.fail(w, r, err, "check item")
		return
	}
	h.broadcast(websocket.NewMessage(websocket.EntityListItem, "checked", id, map[string]any{"is_checked": item.IsChecked}).ForList(list.UID))
	writeJSON(w, http.StatusOK, item)
}

// CheckAll checks every item, or unchecks them with {"checked": false}.
func (h *ListHandler) CheckAll(w http.ResponseWriter, r *http.Request) {
	list, ok := h.list(w, r)
	if !ok {
		return
	}
	req := struct {
		Checked *bool `json:"checked"`
	}{}
	if !h.decodeOptional(w, r, &req) {
		return
	}
	checked := req.Checked == nil || *req.Checked

	count, err := h.lists.SetAllChecked(r.Context(), list.ID, checked)
	if err != nil {
		h.fail(w, r, err, "check all items")
		return
	}
	h.broadcast(websocket.NewMessage(websocket.EntityListItem, "checked_all", list.ID, map[string]any{"is_checked": checked, "count": count}).ForList(list.UID))
	writeJSON(w, http.StatusOK, map[string]int64{"updated": count})
}

func (h *ListHandler) ClearChecked(w http.ResponseWriter, r *http.Request) {
	list, ok := h.list(w, r)
	if !ok {
		return
	}
	count, err := h.lists.ClearChecked(r.Context(), list.ID)
	if err != nil {
		h.fail(w, r, err, "clear checked items")
		return
	}
	h.broadcast(websocket.NewMessage(websocket.EntityListItem, "cleared", list.ID, map[string]any{"count": count}).ForList(list.UID))
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": count})
}

// History returns completed lists grouped into this week, this month and
// older.
func (h *ListHandler) History(w http.ResponseWriter, r *http.Request) {
	groups, err := h.lists.History(r.Context())
	if err != nil {
		h.fail(w, r, err, "list history")
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(groups))
}

func (h *ListHandler) Spending(w http.ResponseWriter, r *http.Request) {
	spending, err := h.lists.Spending(r.Context())
	if err != nil {
		h.fail(w, r, err, "total spending")
		return
	}
	writeJSON(w, http.StatusOK, spending)
}

// list loads the list named by {id}, answering 400 or 404 itself.
func (h *ListHandler) list(w http.ResponseWriter, r *http.Request) (*model.ShoppingList, bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return nil, false
	}
	list, err := h.lists.GetList(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "get list")
		return nil, false
	}
	if list == nil {
		notFound(w, "list")
		return nil, false
	}
	return list, true
}

func forList(list *model.ShoppingList) scope {
	return func(m websocket.Message) websocket.Message { return m.ForList(list.UID) }
}
