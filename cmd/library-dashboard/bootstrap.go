package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/terra-clan/library-dashboard/internal/catalog"
	"github.com/terra-clan/library-dashboard/internal/config"
	"github.com/terra-clan/library-dashboard/internal/downloads"
	"github.com/terra-clan/library-dashboard/internal/library"
	"github.com/terra-clan/library-dashboard/internal/viewstate"
	"github.com/terra-clan/library-dashboard/pkg/client"
)

// stack holds the components shared by every command
type stack struct {
	backend    library.Backend
	loader     *catalog.Loader
	store      downloads.Store
	controller *viewstate.Controller
	manager    *library.Manager
}

// buildStack wires the document source, the counter store and the
// controller. Documents are not loaded yet.
func buildStack(ctx context.Context, cfg *config.Config, renderer viewstate.Renderer) (*stack, error) {
	s := &stack{}

	var remote library.Remote
	switch cfg.Source.Kind {
	case config.SourceFile:
		s.loader = catalog.NewLoader()
		if err := s.loader.LoadFromDir(cfg.Source.Dir); err != nil {
			return nil, fmt.Errorf("failed to load catalog: %w", err)
		}
		s.backend = s.loader
	default:
		c := client.NewClient(cfg.Backend.URL, client.WithTimeout(cfg.Backend.Timeout))
		s.backend = c
		remote = c
	}

	store, err := downloads.Open(ctx, downloads.Config{
		Backend:       cfg.Counter.Backend,
		Path:          cfg.Counter.Path,
		RedisAddress:  cfg.Redis.Address,
		RedisPassword: cfg.Redis.Password,
		RedisDB:       cfg.Redis.DB,
		RedisPrefix:   cfg.Counter.RedisPrefix,
		Postgres: downloads.PostgresConfig{
			DSN:          cfg.Database.DSN,
			MaxOpenConns: int32(cfg.Database.MaxOpenConns),
			MaxIdleConns: int32(cfg.Database.MaxIdleConns),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open counter store: %w", err)
	}
	s.store = store

	s.controller = viewstate.NewController(viewstate.Options{
		PageSize:      cfg.Dashboard.PageSize,
		Debounce:      cfg.Dashboard.Debounce,
		SearchTimeout: cfg.Dashboard.SearchTimeout,
		Searcher:      s.backend,
		Renderer:      renderer,
		Logger:        slog.Default(),
	})
	s.manager = library.NewManager(s.backend, remote, store, s.controller)

	slog.Info("components initialized",
		"source", cfg.Source.Kind,
		"counter", cfg.Counter.Backend,
		"page_size", cfg.Dashboard.PageSize,
	)
	return s, nil
}
