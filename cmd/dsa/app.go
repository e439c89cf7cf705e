package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dsadash/dsadash/internal/config"
	"github.com/dsadash/dsadash/internal/extract"
	"github.com/dsadash/dsadash/internal/localdb"
	"github.com/dsadash/dsadash/internal/mutate"
	"github.com/dsadash/dsadash/internal/reconcile"
	"github.com/dsadash/dsadash/internal/sheet"
)

// app is the composition boundary: configuration is read here once and
// passed to constructors.
type app struct {
	mu  sync.Mutex
	cfg *config.Config

	db        *localdb.DB
	store     *reconcile.Store
	extractor *extract.Extractor
}

// openApp loads configuration, opens the local database and wires the
// store. onNotice may be nil.
func openApp(ctx context.Context, onNotice func(reconcile.Notice)) (*app, error) {
	cfg, err := config.Load(newViper())
	if err != nil {
		return nil, err
	}

	db, err := localdb.OpenContext(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open local database: %w", err)
	}

	if err := config.Resolve(ctx, cfg, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	fetcher := sheet.NewFetcher(&sheet.Config{
		BaseURL: cfg.SheetBaseURL,
		Timeout: cfg.HTTPTimeout,
		Logger:  newLogger("sheet"),
	})

	a := &app{cfg: cfg, db: db, extractor: newExtractor(cfg)}
	a.store = reconcile.NewStore(&reconcile.Config{
		DocumentID: cfg.DocumentID(),
		Fetcher:    fetcher,
		Dispatcher: a.newDispatcher(cfg),
		Overrides:  db,
		Snapshots:  db,
		OnNotice:   onNotice,
		Logger:     newLogger("reconcile"),
	})

	if err := a.store.Load(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) newDispatcher(cfg *config.Config) *mutate.Dispatcher {
	return mutate.NewDispatcher(&mutate.Config{
		Endpoint: cfg.WebhookURL,
		SheetID:  cfg.DocumentID(),
		Timeout:  cfg.WebhookTimeout,
		Journal:  a.db,
		Logger:   newLogger("mutate"),
	})
}

func newExtractor(cfg *config.Config) *extract.Extractor {
	logger := newLogger("extract")
	gen, err := extract.NewAnthropicGenerator(extract.AnthropicConfig{
		APIKey:    cfg.AIAPIKey,
		Model:     cfg.AIModel,
		MaxTokens: cfg.AIMaxTokens,
	})
	if err != nil {
		logger.Printf("AI helpers disabled: %v", err)
		return extract.New(nil, logger)
	}
	return extract.New(gen, logger)
}

// config returns a copy of the active configuration.
func (a *app) config() config.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return *a.cfg
}

// reload re-reads configuration and points the store at the resulting
// document and webhook. HTTP and AI settings keep their startup values.
func (a *app) reload(ctx context.Context) error {
	cfg, err := config.Load(newViper())
	if err != nil {
		return err
	}
	if err := config.Resolve(ctx, cfg, a.db); err != nil {
		return err
	}

	a.mu.Lock()
	a.cfg = cfg
	a.mu.Unlock()

	a.store.SetConfig(cfg.DocumentID(), a.newDispatcher(cfg))
	return nil
}

// ensureLoaded refreshes from the sheet unless a snapshot of the current
// document is already loaded. offline never fetches.
func (a *app) ensureLoaded(ctx context.Context, offline bool) error {
	if offline || !a.store.FetchedAt().IsZero() {
		return nil
	}
	return a.refresh(ctx)
}

func (a *app) refresh(ctx context.Context) error {
	err := a.store.Refresh(ctx)
	if errors.Is(err, reconcile.ErrSuperseded) {
		return nil
	}
	return err
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		newLogger("dsa").Printf("Failed to close database: %v", err)
	}
}

// mustOpen opens the app or exits. A later fatal closes the database.
func mustOpen(ctx context.Context, onNotice func(reconcile.Notice)) *app {
	a, err := openApp(ctx, onNotice)
	if err != nil {
		fatal("%v", err)
	}
	onFatal(a.close)
	return a
}
