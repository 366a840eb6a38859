package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"github.com/Veraticus/rivalwatch/internal/cache"
	"github.com/Veraticus/rivalwatch/internal/config"
	"github.com/Veraticus/rivalwatch/internal/engine"
	"github.com/Veraticus/rivalwatch/internal/guardrail"
	"github.com/Veraticus/rivalwatch/internal/llm"
	"github.com/Veraticus/rivalwatch/internal/memory"
	"github.com/Veraticus/rivalwatch/internal/observability"
	"github.com/Veraticus/rivalwatch/internal/pipeline"
	"github.com/Veraticus/rivalwatch/internal/storage"
)

// decisionBackend is what every configured database driver provides.
type decisionBackend interface {
	storage.DecisionStore
	Snapshot(ctx context.Context, businessID string) (string, error)
	Migrate(ctx context.Context) error
}

// app holds the wired pipeline and everything that must be closed after it.
type app struct {
	cfg      config.Config
	pipeline *pipeline.Pipeline
	registry *prometheus.Registry
	logger   *slog.Logger
	redis    *redis.Client
	closers  []func(context.Context) error
}

type appOptions struct {
	// requireLLM fails fast when no API key is configured.
	requireLLM bool
}

// newApp loads configuration and wires every component of the pipeline.
func newApp(ctx context.Context, opts appOptions) (_ *app, err error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	if opts.requireLLM {
		if err := cfg.RequireLLMKey(); err != nil {
			return nil, err
		}
	}

	a := &app{
		cfg:      cfg,
		registry: prometheus.NewRegistry(),
		logger:   slog.Default(),
	}
	defer func() {
		if err != nil {
			_ = a.Close(context.WithoutCancel(ctx))
		}
	}()

	metrics := observability.NewMetrics(a.registry)

	store, err := openStore(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a.onClose(func(context.Context) error { return store.Close() })

	cacheStore, err := a.openCacheStore(ctx)
	if err != nil {
		return nil, err
	}
	var decisions *cache.DecisionCache
	if cacheStore != nil {
		decisions = cache.NewDecisionCache(cacheStore, cfg.Cache.TTL,
			cache.WithObserver(metrics), cache.WithLogger(a.logger))
		a.onClose(func(context.Context) error { return decisions.Close() })
	}

	guardrails, err := a.buildGuardrails(ctx, metrics)
	if err != nil {
		return nil, err
	}

	client, err := a.buildLLM(ctx)
	if err != nil {
		return nil, err
	}

	deps := pipeline.Deps{
		Extractor:  llm.NewAnalyst(client, a.logger),
		Explainer:  llm.NewAdvisor(client),
		Engine:     engine.Default().WithLogger(a.logger),
		Guardrails: guardrails,
		Cache:      decisions,
		Store:      store,
		Snapshots:  store,
		Metrics:    metrics,
		Logger:     a.logger,
	}
	if cfg.Memory.Enabled {
		writer := memory.NewWriter(store, memory.WriterConfig{
			Workers:      cfg.Memory.Workers,
			QueueSize:    cfg.Memory.QueueSize,
			WriteTimeout: cfg.Memory.WriteTimeout,
		}, memory.WithLogger(a.logger), memory.WithObserver(metrics))
		// Registered after the store so it drains before the store closes.
		a.onClose(writer.Close)
		deps.Memory = writer
	}

	a.pipeline, err = pipeline.New(deps, pipeline.Config{
		LLMTimeout:       cfg.LLM.Timeout,
		BlockOnGateError: cfg.Guardrails.BlockOnGateError,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *app) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (decisionBackend, error) {
	var (
		store decisionBackend
		err   error
	)
	switch cfg.Driver {
	case "postgres":
		store, err = storage.NewPostgresStorage(ctx, cfg.URL)
	default:
		store, err = storage.NewSQLiteStorage(cfg.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// redisClient returns the process-wide Redis client shared by the cache and
// the rate limiter, connecting on first use.
func (a *app) redisClient(ctx context.Context) (*redis.Client, error) {
	if a.redis != nil {
		return a.redis, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     a.cfg.Cache.RedisAddr,
		Password: a.cfg.Cache.RedisPassword,
		DB:       a.cfg.Cache.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", a.cfg.Cache.RedisAddr, err)
	}
	a.redis = client
	a.onClose(func(context.Context) error { return client.Close() })
	return client, nil
}

// openCacheStore returns nil when caching is disabled.
func (a *app) openCacheStore(ctx context.Context) (cache.Store, error) {
	switch a.cfg.Cache.Backend {
	case "none":
		return nil, nil
	case "badger":
		store, err := cache.OpenBadger(a.cfg.Cache.BadgerPath, a.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open cache: %w", err)
		}
		return store, nil
	case "redis":
		client, err := a.redisClient(ctx)
		if err != nil {
			return nil, err
		}
		return cache.NewRedisStoreFromClient(client), nil
	default:
		return cache.NewMemoryStore(0), nil
	}
}

func (a *app) buildGuardrails(ctx context.Context, metrics *observability.Metrics) (*guardrail.System, error) {
	policy, err := guardrail.DefaultPolicy()
	if err != nil {
		return nil, fmt.Errorf("failed to load guardrail policy: %w", err)
	}

	rl := a.cfg.Guardrails.RateLimit
	limits := guardrail.Limits{PerMinute: rl.PerMinute, PerHour: rl.PerHour, PerDay: rl.PerDay}

	var limiter guardrail.Limiter
	switch rl.Backend {
	case "redis":
		client, err := a.redisClient(ctx)
		if err != nil {
			return nil, err
		}
		limiter = guardrail.NewRedisLimiter(client, limits)
	default:
		limiter = guardrail.NewMemoryLimiter(limits)
	}

	var checker guardrail.AccessChecker = guardrail.AllowAll{}
	if a.cfg.Access.Mode == "allowlist" {
		checker = guardrail.NewAllowlist(a.cfg.Access.GrantMap())
	}

	return guardrail.NewSystem(policy, limiter, checker,
		guardrail.Config{RequireBusiness: a.cfg.Guardrails.RequireBusiness},
		guardrail.WithLogger(a.logger),
		guardrail.WithObserver(metrics),
	), nil
}

// buildLLM creates the model client. Without an API key it returns a client
// that fails every call, so commands that never reach the model still work.
func (a *app) buildLLM(ctx context.Context) (llm.Client, error) {
	if err := a.cfg.RequireLLMKey(); err != nil {
		return unconfiguredLLM{err: err}, nil
	}

	client, err := llm.NewClient(ctx, llm.Config{
		Provider:    a.cfg.LLM.Provider,
		APIKey:      a.cfg.LLM.APIKey,
		Model:       a.cfg.LLM.Model,
		BaseURL:     a.cfg.LLM.BaseURL,
		Temperature: a.cfg.LLM.Temperature,
		MaxTokens:   a.cfg.LLM.MaxTokens,
		Timeout:     a.cfg.LLM.Timeout,
		RateLimit:   a.cfg.LLM.RateLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return client, nil
}

type unconfiguredLLM struct {
	err error
}

func (u unconfiguredLLM) Complete(context.Context, string, string) (string, error) {
	return "", u.err
}

var _ llm.Client = unconfiguredLLM{}
