// Feather agent gateway server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lightenlabs/feather/internal/agent"
	"github.com/lightenlabs/feather/internal/backup"
	"github.com/lightenlabs/feather/internal/config"
	"github.com/lightenlabs/feather/internal/logger"
	"github.com/lightenlabs/feather/internal/sandbox"
	"github.com/lightenlabs/feather/internal/sandbox/docker"
	"github.com/lightenlabs/feather/internal/server"
	"github.com/lightenlabs/feather/internal/store"
)

// Version is set at build time via -ldflags "-X main.Version=v1.0.0"
var Version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", "error", err)
	}

	if err := logger.Init(cfg.LogDir, cfg.LogJSON); err != nil {
		logger.Fatal("failed to initialize logger", "error", err)
	}
	defer func() { _ = logger.Close() }()

	logger.Info("starting server", "version", Version, "port", cfg.Port, "snapshot_image", cfg.SnapshotImage)

	prov, err := docker.NewProvisioner()
	if err != nil {
		logger.Fatal("failed to initialize sandbox provisioner", "error", err)
	}
	defer func() { _ = prov.Close() }()

	if err := prov.Ping(context.Background()); err != nil {
		logger.Fatal("sandbox backend unreachable", "error", err)
	}
	logger.Info("sandbox backend connected")

	st, err := store.NewStore(cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to open agent store", "error", err)
	}
	defer func() { _ = st.Close() }()

	registry, err := agent.LoadRegistry(cfg.AgentsFile)
	if err != nil {
		logger.Fatal("failed to load agent registry", "error", err)
	}
	logger.Info("agent registry loaded", "agents", len(registry.List()))

	if cfg.BackupDir != "" {
		bm, err := backup.New(backup.Config{
			DBPath:    cfg.DBPath,
			BackupDir: cfg.BackupDir,
			Retention: cfg.BackupRetention,
			Interval:  cfg.BackupInterval,
		})
		if err != nil {
			logger.Fatal("failed to initialize backups", "error", err)
		}
		bm.Start()
		defer bm.Stop()
	}

	reaper, err := sandbox.NewReaper(cfg.ReapSpec, prov)
	if err != nil {
		logger.Fatal("failed to schedule sandbox reaper", "error", err)
	}
	reaper.Start()
	defer reaper.Stop()

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     server.New(cfg, registry, st, prov).Router(),
		ReadTimeout: 30 * time.Second,
		// SSE streams live as long as an agent run; no write timeout.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
