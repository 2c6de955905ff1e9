package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/basket/internal/config"
	"github.com/dukerupert/basket/internal/database"
	"github.com/dukerupert/basket/internal/logging"
	"github.com/dukerupert/basket/internal/server"
)

func main() {
	configPath := flag.String("config", os.Getenv("BASKET_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	if cfg.LegacyDBPath != "" {
		moved, err := database.Relocate(cfg.LegacyDBPath, cfg.DBPath)
		if err != nil {
			slog.Error("failed to relocate database", "from", cfg.LegacyDBPath, "to", cfg.DBPath, "error", err)
			os.Exit(1)
		}
		if moved {
			slog.Info("database relocated", "from", cfg.LegacyDBPath, "to", cfg.DBPath)
		}
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	srv := server.New(db, cfg, logger)

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	srv.BackupManager().Start(bgCtx)

	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
			case <-bgCtx.Done():
				return
			}
		}
	}()

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Backup downloads stream the whole object.
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("basket starting", "addr", ":"+cfg.Port, "db", cfg.DBPath)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	bgCancel()
	srv.BackupManager().Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
