package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/basket/internal/backup"
	"github.com/dukerupert/basket/internal/websocket"
)

const defaultBackupListLimit = 20

type BackupHandler struct {
	manager *backup.Manager
	responder
}

func NewBackupHandler(m *backup.Manager, hub *websocket.Hub, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{manager: m, responder: newResponder(hub, logger)}
}

func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultBackupListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	backups, err := h.manager.List(r.Context(), limit)
	if err != nil {
		h.fail(w, r, err, "list backups")
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(backups))
}

func (h *BackupHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Status())
}

// Create runs a backup synchronously and returns the new record's ID.
func (h *BackupHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, err := h.manager.RunNow(r.Context())
	if err != nil {
		h.fail(w, r, err, "run backup")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// Download streams the encrypted backup object.
func (h *BackupHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	body, record, err := h.manager.Download(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "download backup")
		return
	}
	if body == nil {
		notFound(w, "backup")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", record.Filename))
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("backup download interrupted", "backup_id", id, "error", err)
	}
}
