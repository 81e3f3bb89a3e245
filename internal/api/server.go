package api

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"portpulse/internal/auth"
	"portpulse/internal/cache"
	"portpulse/internal/config"
	"portpulse/internal/store"
)

type Server struct {
	Store   store.Store
	Cache   cache.Cache
	Auth    *auth.Verifier
	Config  config.Config
	Log     *slog.Logger
	limiter *rateLimiter
	now     func() time.Time
}

// New wires a server around an existing store and cache.
func New(cfg config.Config, st store.Store, c cache.Cache, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	if c == nil {
		c = cache.NewMemory(cfg.Cache.CSVTTL)
	}
	s := &Server{
		Store:  st,
		Cache:  c,
		Auth:   auth.NewVerifier(cfg.Auth),
		Config: cfg,
		Log:    log,
		now:    time.Now,
	}
	if !cfg.Rate.Disabled {
		s.limiter = newRateLimiter(cfg.Rate.RPS, cfg.Rate.Burst)
	}
	return s
}

// NewServer builds dependencies from cfg. Without a database URL it serves a
// seeded in-memory dataset; with REDIS_URL the CSV cache is shared.
func NewServer(ctx context.Context, cfg config.Config, log *slog.Logger) (*Server, error) {
	var st store.Store
	if strings.TrimSpace(cfg.Database.URL) == "" {
		m := store.NewMemory()
		store.SeedDemo(m, time.Now())
		st = m
		log.Warn("DATABASE_URL not set; serving in-memory demo data")
	} else {
		pg, err := store.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if cfg.Database.Migrate {
			if err := pg.MigrateDir(ctx, cfg.Database.MigrationsDir); err != nil {
				_ = pg.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
			log.Info("migrations applied", "dir", cfg.Database.MigrationsDir)
		}
		st = pg
	}

	var c cache.Cache
	if cfg.Cache.RedisURL != "" {
		rc, err := cache.NewRedis(cfg.Cache.RedisURL, cfg.Cache.CSVTTL, log)
		if err != nil {
			log.Warn("redis cache unavailable, using in-process cache", "err", err)
			c = cache.NewMemory(cfg.Cache.CSVTTL)
		} else {
			c = rc
		}
	} else {
		c = cache.NewMemory(cfg.Cache.CSVTTL)
	}
	return New(cfg, st, c, log), nil
}

// Close releases the store.
func (s *Server) Close() error {
	if rc, ok := s.Cache.(*cache.Redis); ok {
		_ = rc.Close()
	}
	return s.Store.Close()
}

func (s *Server) storeName() string {
	switch s.Store.(type) {
	case *store.Postgres:
		return "postgres"
	case *store.Memory:
		return "memory"
	}
	return "custom"
}
