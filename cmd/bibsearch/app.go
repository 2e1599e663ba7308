package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/matsen/bibsearch/internal/config"
	"github.com/matsen/bibsearch/internal/fetch"
	"github.com/matsen/bibsearch/internal/ingest"
	"github.com/matsen/bibsearch/internal/search"
	"github.com/matsen/bibsearch/internal/session"
	"github.com/matsen/bibsearch/internal/storage"
)

// app is what a command works with between opening and closing the store.
type app struct {
	cfg       *config.Config
	session   *session.Session
	store     *storage.Store
	evaluator *search.Evaluator
	logger    *slog.Logger
}

// loadConfig reads the --config file, or the default location.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	for _, k := range cfg.Unknown {
		slog.Warn("unknown configuration key", "key", k, "file", cfg.File)
	}
	return cfg, nil
}

// openApp loads the configuration, takes the session lock and opens the
// store. The lock is taken first so concurrent invocations never see a
// half-written store or last-query marker.
func openApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := slog.Default()

	sess, err := session.Open(cfg.BibsearchDir)
	if err != nil {
		return nil, err
	}
	opts := []storage.Option{storage.WithMkdirAll(), storage.WithLogger(logger)}
	if cfg.BackendMode() == search.ModeFilter {
		opts = append(opts, storage.WithoutIndex())
	}
	store, err := storage.Open(cfg.DBPath(), opts...)
	if err != nil {
		sess.Close()
		return nil, err
	}
	backend, err := search.NewBackend(store, cfg.BackendMode())
	if err != nil {
		store.Close()
		sess.Close()
		return nil, withCode(ExitConfigError, err)
	}
	logger.Debug("opened store", "path", store.Path(), "backend", backend.Name())

	return &app{
		cfg:       cfg,
		session:   sess,
		store:     store,
		evaluator: search.NewEvaluator(backend, store, sess, logger),
		logger:    logger,
	}, nil
}

// close closes the store, then the session, which persists the last query.
func (a *app) close() error {
	return errors.Join(a.store.Close(), a.session.Close())
}

// ingester wires the add pipeline to the store and a rate-limited client.
func (a *app) ingester() *ingest.Ingester {
	client := fetch.NewClient(
		fetch.WithRate(a.cfg.FetchRate),
		fetch.WithUserAgent("bibsearch/"+Version),
	)
	return ingest.New(a.store, client, a.cfg.KeyTemplate(),
		ingest.WithDatabaseURL(a.cfg.DatabaseURL),
		ingest.WithLogger(a.logger),
	)
}

// withApp runs fn between openApp and close.
func withApp(ctx context.Context, fn func(ctx context.Context, a *app) error) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	err = fn(ctx, a)
	if cerr := a.close(); err == nil {
		err = cerr
	}
	return err
}
