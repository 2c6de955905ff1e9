package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/basket/internal/widget"
)

// WidgetHandler exposes widget timelines. It never mutates.
type WidgetHandler struct {
	provider *widget.Provider
	responder
}

func NewWidgetHandler(p *widget.Provider, logger *slog.Logger) *WidgetHandler {
	return &WidgetHandler{provider: p, responder: newResponder(nil, logger)}
}

// Timeline answers GET /api/widgets/{kind}?list=<uid>. A missing, malformed,
// unknown or completed list still yields 200 with a placeholder entry.
func (h *WidgetHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	kind := widget.Kind(r.PathValue("kind"))
	timeline, err := h.provider.Timeline(r.Context(), kind, r.URL.Query().Get("list"))
	if err != nil {
		h.fail(w, r, err, "widget timeline")
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, timeline)
}
