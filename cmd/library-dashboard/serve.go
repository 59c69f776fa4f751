package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/terra-clan/library-dashboard/internal/api"
	"github.com/terra-clan/library-dashboard/internal/config"
	"github.com/terra-clan/library-dashboard/internal/downloads"
	"github.com/terra-clan/library-dashboard/internal/health"
	"github.com/terra-clan/library-dashboard/internal/refresh"
)

const catalogWatchDebounce = 500 * time.Millisecond

var ephemeral bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard HTTP and websocket server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if ephemeral {
			cfg.Counter.Backend = downloads.BackendMemory
		}
		return serve(cfg)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&ephemeral, "ephemeral", false, "keep download counts in memory only")
	rootCmd.AddCommand(serveCmd)
}

func serve(cfg *config.Config) error {
	slog.Info("starting library-dashboard",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"backend", cfg.Backend.URL,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	hub := api.NewHub()
	st, err := buildStack(initCtx, cfg, hub)
	if err != nil {
		return err
	}
	manager := st.manager

	if err := manager.Reload(initCtx); err != nil {
		slog.Warn("initial document load failed, starting with an empty list", "error", err)
	}

	registry := health.NewRegistry()
	registry.Register("backend", st.backend)
	registry.Register("counter", st.store)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	refresh.NewRefresher(manager, cfg.Refresh.Interval).Start(ctx)

	if st.loader != nil && cfg.Source.Watch {
		err := st.loader.Watch(ctx, cfg.Source.Dir, catalogWatchDebounce, func() {
			st.controller.SetDocuments(st.loader.List())
		})
		if err != nil {
			slog.Warn("catalog watcher not started", "dir", cfg.Source.Dir, "error", err)
		}
	}

	server := api.NewServer(cfg.Server, manager, registry, hub)
	httpServer := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     server.Router(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-quit:
		slog.Info("shutting down gracefully...")
	case err := <-serverErr:
		slog.Error("HTTP server error", "error", err)
		runErr = err
	}

	// Cancel context to stop background workers
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	if err := manager.Close(); err != nil {
		slog.Error("manager close error", "error", err)
	}

	slog.Info("library-dashboard stopped")
	return runErr
}
