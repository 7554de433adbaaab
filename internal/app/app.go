// Package app provides application initialization and dependency injection.
//
// Setup builds every component in dependency order from a validated
// config.Config and returns an App whose Close releases resources in
// reverse order. Entry points (the serve and mcp commands) consume the
// assembled pieces instead of constructing their own.
package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tasknest/tasknest/internal/api"
	"github.com/tasknest/tasknest/internal/auth"
	"github.com/tasknest/tasknest/internal/chat"
	"github.com/tasknest/tasknest/internal/config"
	"github.com/tasknest/tasknest/internal/store"
	"github.com/tasknest/tasknest/internal/tools"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	// Core services
	Pool         *pgxpool.Pool
	Store        *store.Store
	Registry     *tools.Registry
	Executor     *tools.Executor
	Orchestrator *chat.Orchestrator // nil when no AI provider is configured
	Tokens       *auth.JWT
	Server       *api.Server

	otelCleanup func()
}

// Close gracefully shuts down all resources in reverse construction order.
// Safe to call on a partially constructed App.
func (a *App) Close() error {
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("shutting down application")

	if a.Pool != nil {
		a.Pool.Close()
		logger.Info("database pool closed")
	}

	// Spans flush last so pool teardown is still covered by tracing.
	if a.otelCleanup != nil {
		a.otelCleanup()
	}

	return nil
}
