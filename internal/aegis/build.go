package aegis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/evanhutnik/aegis-service/internal/auth"
	"github.com/evanhutnik/aegis-service/internal/cache"
	"github.com/evanhutnik/aegis-service/internal/config"
	"github.com/evanhutnik/aegis-service/internal/graph"
	"github.com/evanhutnik/aegis-service/internal/metrics"
	"github.com/evanhutnik/aegis-service/internal/planner"
	"github.com/evanhutnik/aegis-service/internal/predict"
	"github.com/evanhutnik/aegis-service/internal/users"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// FromConfig wires the service's dependencies. The returned func releases
// connections opened along the way.
func FromConfig(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (*Service, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	m := metrics.NewRegistry()

	p, err := NewPlanner(cfg, m, logger)
	if err != nil {
		return nil, cleanup, err
	}
	closers = append(closers, p.Close)

	tokens, err := tokenManager(cfg, logger)
	if err != nil {
		return nil, cleanup, err
	}

	var store users.Store
	var pg *users.PGStore
	if cfg.DatabaseURL != "" {
		pg, err = users.NewPGStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, pg.Close)
		store = pg
	} else {
		logger.Warn("database_url not set, accounts are kept in memory")
		store = users.NewMemoryStore()
	}

	s := New(p.planner, users.NewAccounts(store), tokens, m, logger)
	s.runners = append(s.runners, p.runners...)
	for name, check := range p.checks {
		s.AddHealthCheck(name, check)
	}
	if pg != nil {
		s.AddHealthCheck("postgres", pg.Ping)
	}
	return s, cleanup, nil
}

// PlannerDeps is a planner together with the background work and
// connections backing its cache.
type PlannerDeps struct {
	planner *planner.Planner
	runners []func(context.Context)
	checks  map[string]func(context.Context) error
	closers []func()
}

func (d *PlannerDeps) Planner() *planner.Planner {
	return d.planner
}

func (d *PlannerDeps) Close() {
	for _, c := range d.closers {
		c()
	}
}

// NewPlanner builds the severity cache, prediction client and planner
// described by cfg.
func NewPlanner(cfg *config.Config, m *metrics.Registry, logger *zap.SugaredLogger) (*PlannerDeps, error) {
	policy, err := planner.ParsePolicy(cfg.UnreachablePolicy)
	if err != nil {
		return nil, err
	}

	deps := &PlannerDeps{checks: make(map[string]func(context.Context) error)}

	local := cache.NewMemory(cfg.CacheTTL, cache.CapacityOption(cfg.CacheCapacity))
	if cfg.CacheSweepInterval > 0 {
		deps.runners = append(deps.runners, func(ctx context.Context) {
			local.Run(ctx, cfg.CacheSweepInterval)
		})
	}

	var severityCache cache.Cache = local
	if !cfg.DisableRedis {
		rc := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddress,
		})
		shared := cache.NewRedis(rc, cfg.CacheTTL, logger)
		severityCache = &cache.Tiered{Local: local, Shared: shared}
		deps.checks["redis"] = shared.Ping
		deps.closers = append(deps.closers, func() { _ = rc.Close() })
	}

	pc := predict.New(
		predict.BaseUrlOption(cfg.PredictURL),
		predict.TimeoutOption(cfg.PredictTimeout),
		predict.AttemptsOption(cfg.PredictAttempts),
	)

	deps.planner = planner.New(graph.Chicago(), severityCache, pc,
		planner.PolicyOption(policy),
		planner.ConcurrencyOption(cfg.FetchConcurrency),
		planner.MetricsOption(m),
		planner.LoggerOption(logger),
	)
	return deps, nil
}

func tokenManager(cfg *config.Config, logger *zap.SugaredLogger) (*auth.Manager, error) {
	secret := cfg.JWTSecret
	if secret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("failed to generate jwt secret: %w", err)
		}
		secret = hex.EncodeToString(buf)
		logger.Warn("jwt_secret not set, issued tokens will not survive a restart")
	}
	return auth.NewManager(secret, cfg.TokenTTL)
}
