// Package api serves instances, evaluations and their event streams over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"vesselpdp/internal/cache"
	"vesselpdp/internal/config"
	"vesselpdp/internal/problem"
	"vesselpdp/internal/store"
	"vesselpdp/internal/webhooks"
)

type Server struct {
	Store  store.Store
	Cache  cache.Cache
	Broker EventBroker
	Log    *slog.Logger
	Config config.Config

	// Hooks is nil unless webhook receivers are configured.
	Hooks *webhooks.Publisher

	mu     sync.Mutex
	parsed map[string]*problem.Instance // instance id -> parsed tables
}

// NewServer wires the backends named by cfg: Postgres when DatabaseURL is
// set, SQLite when SQLitePath is set, memory otherwise; Redis for the cache
// and broker when RedisURL is set.
func NewServer(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var st store.Store
	switch {
	case cfg.DatabaseURL != "":
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres store: %w", err)
		}
		st = pg
		logger.Info("using postgres store")
	case cfg.SQLitePath != "":
		sq, err := store.NewSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite store: %w", err)
		}
		st = sq
		logger.Info("using sqlite store", "path", cfg.SQLitePath)
	default:
		st = store.NewMemory()
		logger.Info("using in-memory store")
	}

	var c cache.Cache = cache.NewMemory(cfg.CacheTTL, 10000)
	var broker EventBroker = NewBroker()
	if cfg.RedisURL != "" {
		if rc, err := cache.NewRedis(cfg.RedisURL, cfg.CacheTTL); err == nil {
			c = rc
		} else {
			logger.Warn("redis cache unavailable, using memory", "err", err)
		}
		if rb, err := NewRedisBroker(cfg.RedisURL, logger); err == nil {
			broker = rb
		} else {
			logger.Warn("redis broker unavailable, using memory", "err", err)
		}
	}
	srv := &Server{
		Store:  st,
		Cache:  c,
		Broker: broker,
		Log:    logger,
		Config: cfg,
		parsed: map[string]*problem.Instance{},
	}
	if len(cfg.WebhookURLs) > 0 {
		srv.Hooks = webhooks.NewPublisher(cfg.WebhookURLs)
		logger.Info("webhooks enabled", "receivers", len(cfg.WebhookURLs))
	}
	return srv, nil
}

// RunWebhooks drains the webhook outbox until ctx is done. It returns at
// once when no receivers are configured.
func (s *Server) RunWebhooks(ctx context.Context) {
	if s.Hooks == nil {
		return
	}
	webhooks.NewWorker(s.Hooks, s.Config.WebhookSecret, s.Config.WebhookMaxAttempts, s.Log).Run(ctx)
}

// Close releases the store and any Redis clients.
func (s *Server) Close() error {
	var errs []error
	if err := s.Store.Close(); err != nil {
		errs = append(errs, err)
	}
	type closer interface{ Close() error }
	if c, ok := s.Cache.(closer); ok {
		errs = append(errs, c.Close())
	}
	if c, ok := s.Broker.(closer); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
