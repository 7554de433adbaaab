package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tasknest/tasknest/db"
	"github.com/tasknest/tasknest/internal/api"
	"github.com/tasknest/tasknest/internal/auth"
	"github.com/tasknest/tasknest/internal/chat"
	"github.com/tasknest/tasknest/internal/config"
	"github.com/tasknest/tasknest/internal/log"
	"github.com/tasknest/tasknest/internal/observability"
	"github.com/tasknest/tasknest/internal/provider"
	"github.com/tasknest/tasknest/internal/store"
	"github.com/tasknest/tasknest/internal/tools"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup; call Close() to release.
func Setup(ctx context.Context, cfg *config.Config) (_ *App, retErr error) {
	a := &App{Config: cfg}

	// On error, clean up everything already initialized
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				slog.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	logger := log.New(log.Config{
		Level: log.ParseLevel(cfg.Log.Level),
		JSON:  cfg.Log.JSON,
	})
	a.Logger = logger
	slog.SetDefault(logger)

	a.otelCleanup = provideTracing(ctx, cfg)

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Pool = pool

	a.Store = store.New(pool, logger.With("component", "store"))
	a.Registry = tools.NewRegistry(a.Store)
	a.Executor = tools.NewExecutor(a.Registry, logger.With("component", "tools"))

	orch, err := provideOrchestrator(ctx, cfg, a.Registry, a.Executor, logger)
	if err != nil {
		return nil, err
	}
	a.Orchestrator = orch

	a.Tokens = auth.NewJWT(cfg.Auth.JWTSecret, cfg.Auth.TokenLifetime)

	srv, err := api.NewServer(api.ServerConfig{
		Logger:       logger.With("component", "api"),
		Tasks:        a.Store,
		Users:        a.Store,
		Tokens:       a.Tokens,
		Orchestrator: a.Orchestrator,
		Pool:         pool,
		CORSOrigins:  cfg.Server.CORSOrigins,
		IsDev:        cfg.Server.DevMode,
		TrustProxy:   cfg.Server.TrustProxy,
		RateBurst:    cfg.Server.RateBurst,
	})
	if err != nil {
		return nil, fmt.Errorf("creating HTTP server: %w", err)
	}
	a.Server = srv

	return a, nil
}

// provideTracing sets up OTLP trace export when tracing.enabled is set.
// The returned cleanup flushes pending spans with a bounded timeout;
// disabled or failed tracing returns a no-op.
func provideTracing(ctx context.Context, cfg *config.Config) func() {
	if !cfg.Tracing.Enabled {
		return func() {}
	}

	shutdown, err := observability.Setup(ctx, observability.Config{
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		Environment: cfg.Tracing.Environment,
	})
	if err != nil {
		slog.Warn("setting up tracing, continuing without it", "error", err)
		return func() {}
	}

	//nolint:contextcheck // Independent context: shutdown runs during teardown when parent is canceled
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideDBPool creates a PostgreSQL connection pool, running pending
// migrations first when database.auto_migrate is set.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if cfg.Database.AutoMigrate {
		if err := db.Migrate(cfg.PostgresURL()); err != nil {
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	// Zero keeps the pgx default; Validate enforces the range for loaded configs.
	if cfg.Database.PoolMaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.Database.PoolMaxConns)
	}
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// provideOrchestrator builds the chat stack when an AI provider is
// configured. A nil orchestrator leaves the chat endpoints degraded (503)
// without affecting the rest of the API.
func provideOrchestrator(ctx context.Context, cfg *config.Config, registry *tools.Registry, executor *tools.Executor, logger *slog.Logger) (*chat.Orchestrator, error) {
	if !cfg.AI.Configured() {
		logger.Info("no AI provider configured, chat endpoints disabled",
			"hint", "set ai.provider and the matching API key to enable chat")
		return nil, nil
	}

	client, err := provider.New(ctx, provider.Options{
		Provider:  cfg.AI.Provider,
		APIKey:    cfg.AI.APIKey(),
		Model:     cfg.AI.Model(),
		BaseURL:   cfg.AI.BaseURL(),
		MaxTokens: cfg.AI.MaxTokens,
		Timeout:   cfg.AI.RequestTimeout,
		Logger:    logger.With("component", "provider"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating AI client: %w", err)
	}

	orch, err := chat.New(chat.Config{
		Client:        client,
		Registry:      registry,
		Executor:      executor,
		MaxToolRounds: cfg.AI.MaxToolRounds,
		Logger:        logger.With("component", "chat"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating orchestrator: %w", err)
	}

	logger.Info("chat orchestrator ready",
		"provider", client.Provider(),
		"model", client.Model(),
	)
	return orch, nil
}
