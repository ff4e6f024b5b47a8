package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/daniacca/cellchem/internal/achem"
	"github.com/daniacca/cellchem/internal/trajectory"
)

func main() {
	cfg := loadServerConfig()
	logger := NewLogger(cfg.LogLevel)

	srv := NewServer(logger)
	srv.SetSnapshotDir(cfg.SnapshotDir)
	srv.SetSnapshotEveryTicks(cfg.SnapshotEveryTicks)
	format, err := achem.ParseSnapshotFormat(cfg.SnapshotFormat)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	srv.SetSnapshotFormat(format)

	if cfg.TrajectoryDB != "" {
		rec, err := trajectory.Open(cfg.TrajectoryDB)
		if err != nil {
			logger.Errorf("Cannot open trajectory database %s: %v", cfg.TrajectoryDB, err)
			os.Exit(1)
		}
		srv.SetRecorder(rec)
		logger.Infof("Recording trajectories to %s", cfg.TrajectoryDB)
	}

	if cfg.ConfigFile != "" {
		if err := applyInitialConfig(srv, cfg.ConfigFile, achem.EnvironmentID(cfg.DefaultEnvID)); err != nil {
			logger.Errorf("Cannot load config file %s: %v", cfg.ConfigFile, err)
			os.Exit(1)
		}
		logger.Infof("Loaded config file %s into environment %s", cfg.ConfigFile, cfg.DefaultEnvID)
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Infof("cellchem-server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("HTTP server failed: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Infof("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("HTTP shutdown: %v", err)
	}
	if err := srv.Close(); err != nil {
		logger.Errorf("Closing server: %v", err)
	}
}
