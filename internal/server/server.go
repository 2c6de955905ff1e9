package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/basket/internal/backup"
	"github.com/dukerupert/basket/internal/config"
	"github.com/dukerupert/basket/internal/database"
	"github.com/dukerupert/basket/internal/handler"
	"github.com/dukerupert/basket/internal/middleware"
	"github.com/dukerupert/basket/internal/store"
	ws "github.com/dukerupert/basket/internal/websocket"
	"github.com/dukerupert/basket/internal/widget"
)

// Manual backups are expensive; allow a handful per client per hour.
const (
	backupRateLimit  = 5
	backupRatePeriod = time.Hour
)

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	catalogH      *handler.CatalogHandler
	listH         *handler.ListHandler
	templateH     *handler.TemplateHandler
	widgetH       *handler.WidgetHandler
	backupH       *handler.BackupHandler
	rateLimiter   *middleware.RateLimiter
	backupManager *backup.Manager
	logger        *slog.Logger
}

func New(db *sql.DB, cfg *config.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	categoryStore := store.NewCategoryStore(db)
	inventoryStore := store.NewInventoryStore(db)
	listStore := store.NewListStore(db)
	templateStore := store.NewTemplateStore(db)
	backupStore := store.NewBackupStore(db)

	backupMgr := backup.NewManager(backupConfig(cfg.Backup), db, backupStore, func(s backup.Status) {
		hub.Broadcast(ws.Message{
			Type:   "backup_status",
			Entity: ws.EntityBackup,
			Action: string(s.State),
			Extra: map[string]any{
				"in_progress": s.InProgress,
				"error":       s.Error,
			},
		})
	}, logger.With("component", "backup"))

	provider := widget.NewProvider(listStore, cfg.Widget.MaxItems, cfg.Widget.Refresh, logger.With("component", "widget"))

	return &Server{
		db:            db,
		hub:           hub,
		catalogH:      handler.NewCatalogHandler(categoryStore, inventoryStore, hub, logger.With("component", "catalog")),
		listH:         handler.NewListHandler(listStore, templateStore, inventoryStore, categoryStore, hub, logger.With("component", "list")),
		templateH:     handler.NewTemplateHandler(templateStore, listStore, inventoryStore, categoryStore, hub, logger.With("component", "template")),
		widgetH:       handler.NewWidgetHandler(provider, logger.With("component", "widget_handler")),
		backupH:       handler.NewBackupHandler(backupMgr, hub, logger.With("component", "backup_handler")),
		rateLimiter:   middleware.NewRateLimiter(backupRateLimit, backupRatePeriod),
		backupManager: backupMgr,
		logger:        logger,
	}
}

func backupConfig(c config.BackupConfig) backup.Config {
	return backup.Config{
		S3: backup.S3Config{
			Endpoint:  c.S3.Endpoint,
			Bucket:    c.S3.Bucket,
			Region:    c.S3.Region,
			AccessKey: c.S3.AccessKey,
			SecretKey: c.S3.SecretKey,
		},
		Passphrase:    c.Passphrase,
		ScheduleHour:  c.ScheduleHour,
		RetentionDays: c.RetentionDays,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))
	s.registerRoutes(mux)

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	version, err := database.SchemaVersion(r.Context(), s.db)
	if err != nil {
		s.logger.Error("health check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]any{"status": "unavailable"})
		return
	}
	json.NewEncoder(w).Encode(map[string]any{"status": "ok", "schema_version": version})
}

func (s *Server) rateLimited(h http.HandlerFunc) http.Handler {
	return middleware.RateLimit(s.rateLimiter)(h)
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	// Categories
	mux.HandleFunc("GET /api/categories", s.catalogH.ListCategories)
	mux.HandleFunc("POST /api/categories", s.catalogH.CreateCategory)
	mux.HandleFunc("PUT /api/categories/{id}", s.catalogH.RenameCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", s.catalogH.DeleteCategory)

	// Inventory
	mux.HandleFunc("GET /api/items", s.catalogH.ListItems)
	mux.HandleFunc("POST /api/items", s.catalogH.CreateItem)
	mux.HandleFunc("GET /api/items/{id}", s.catalogH.GetItem)
	mux.HandleFunc("PUT /api/items/{id}", s.catalogH.UpdateItem)
	mux.HandleFunc("DELETE /api/items/{id}", s.catalogH.DeleteItem)
	mux.HandleFunc("PUT /api/items/{id}/favourite", s.catalogH.SetItemFavourite)

	// Shopping lists
	mux.HandleFunc("GET /api/lists", s.listH.List)
	mux.HandleFunc("POST /api/lists", s.listH.Create)
	mux.HandleFunc("GET /api/lists/{id}", s.listH.Get)
	mux.HandleFunc("PUT /api/lists/{id}", s.listH.Update)
	mux.HandleFunc("DELETE /api/lists/{id}", s.listH.Delete)
	mux.HandleFunc("POST /api/lists/{id}/complete", s.listH.Complete)
	mux.HandleFunc("POST /api/lists/{id}/reopen", s.listH.Reopen)
	mux.HandleFunc("POST /api/lists/{id}/duplicate", s.listH.Duplicate)
	mux.HandleFunc("POST /api/lists/{id}/template", s.listH.SaveAsTemplate)
	mux.HandleFunc("GET /api/lists/{id}/summary", s.listH.Summary)
	mux.HandleFunc("GET /api/lists/{id}/items", s.listH.Items)
	mux.HandleFunc("POST /api/lists/{id}/items", s.listH.AddItem)
	mux.HandleFunc("PATCH /api/lists/{id}/items/{item_id}", s.listH.EditItem)
	mux.HandleFunc("DELETE /api/lists/{id}/items/{item_id}", s.listH.DeleteItem)
	mux.HandleFunc("POST /api/lists/{id}/items/{item_id}/check", s.listH.CheckItem)
	mux.HandleFunc("POST /api/lists/{id}/check-all", s.listH.CheckAll)
	mux.HandleFunc("POST /api/lists/{id}/clear-checked", s.listH.ClearChecked)
	mux.HandleFunc("GET /api/history", s.listH.History)
	mux.HandleFunc("GET /api/spending", s.listH.Spending)

	// Templates
	mux.HandleFunc("GET /api/templates", s.templateH.List)
	mux.HandleFunc("POST /api/templates", s.templateH.Create)
	mux.HandleFunc("GET /api/templates/{id}", s.templateH.Get)
	mux.HandleFunc("PUT /api/templates/{id}", s.templateH.Update)
	mux.HandleFunc("DELETE /api/templates/{id}", s.templateH.Delete)
	mux.HandleFunc("PUT /api/templates/{id}/favourite", s.templateH.SetFavourite)
	mux.HandleFunc("POST /api/templates/{id}/lists", s.templateH.StartList)
	mux.HandleFunc("GET /api/templates/{id}/items", s.templateH.Items)
	mux.HandleFunc("POST /api/templates/{id}/items", s.templateH.AddItem)
	mux.HandleFunc("PATCH /api/templates/{id}/items/{item_id}", s.templateH.EditItem)
	mux.HandleFunc("DELETE /api/templates/{id}/items/{item_id}", s.templateH.DeleteItem)

	// Widgets
	mux.HandleFunc("GET /api/widgets/{kind}", s.widgetH.Timeline)

	// Backups
	mux.HandleFunc("GET /api/backups", s.backupH.List)
	mux.Handle("POST /api/backups", s.rateLimited(s.backupH.Create))
	mux.HandleFunc("GET /api/backups/status", s.backupH.Status)
	mux.HandleFunc("GET /api/backups/{id}/download", s.backupH.Download)
}
