package app

import (
	"context"
	"testing"

	"github.com/tasknest/tasknest/internal/config"
	"github.com/tasknest/tasknest/internal/log"
	"github.com/tasknest/tasknest/internal/testutil"
	"github.com/tasknest/tasknest/internal/tools"
)

// ============================================================================
// App.Close() Tests
// ============================================================================

func TestApp_Close(t *testing.T) {
	tests := []struct {
		name     string
		setupApp func() *App
	}{
		{
			name:     "close minimal app",
			setupApp: func() *App { return &App{} },
		},
		{
			name: "close with logger only",
			setupApp: func() *App {
				return &App{Logger: log.NewNop()}
			},
		},
		{
			name: "close with otel cleanup",
			setupApp: func() *App {
				return &App{Logger: log.NewNop(), otelCleanup: func() {}}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := tt.setupApp()

			// Must not panic on partially constructed apps
			if err := app.Close(); err != nil {
				t.Errorf("Close() error = %v, want nil", err)
			}
		})
	}
}

func TestApp_Close_Idempotent(t *testing.T) {
	app := &App{Logger: log.NewNop()}

	if err := app.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := app.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

// ============================================================================
// provideOrchestrator Tests
// ============================================================================

func testToolStack(t *testing.T) (*tools.Registry, *tools.Executor) {
	t.Helper()
	registry := tools.NewRegistry(testutil.NewFakeTaskStore())
	return registry, tools.NewExecutor(registry, log.NewNop())
}

func TestProvideOrchestrator_NoProviderConfigured(t *testing.T) {
	registry, executor := testToolStack(t)

	cfg := &config.Config{} // no provider, no key

	orch, err := provideOrchestrator(context.Background(), cfg, registry, executor, log.NewNop())
	if err != nil {
		t.Fatalf("provideOrchestrator() error = %v, want nil", err)
	}
	if orch != nil {
		t.Error("orchestrator should be nil when no provider is configured")
	}
}

func TestProvideOrchestrator_KeyWithoutProvider(t *testing.T) {
	registry, executor := testToolStack(t)

	cfg := &config.Config{}
	cfg.AI.GroqAPIKey = "gsk_test_key"

	orch, err := provideOrchestrator(context.Background(), cfg, registry, executor, log.NewNop())
	if err != nil {
		t.Fatalf("provideOrchestrator() error = %v, want nil", err)
	}
	if orch != nil {
		t.Error("orchestrator should be nil when no provider name is set")
	}
}

func TestProvideOrchestrator_Groq(t *testing.T) {
	registry, executor := testToolStack(t)

	cfg := &config.Config{}
	cfg.AI.Provider = config.ProviderGroq
	cfg.AI.GroqAPIKey = "gsk_test_key"
	cfg.AI.GroqModel = "llama-3.3-70b-versatile"
	cfg.AI.MaxTokens = 1000
	cfg.AI.MaxToolRounds = 5

	orch, err := provideOrchestrator(context.Background(), cfg, registry, executor, log.NewNop())
	if err != nil {
		t.Fatalf("provideOrchestrator() error = %v", err)
	}
	if orch == nil {
		t.Fatal("orchestrator should be built when groq is configured")
	}
	if orch.Provider() != "groq" {
		t.Errorf("Provider() = %q, want groq", orch.Provider())
	}
	if orch.Model() != "llama-3.3-70b-versatile" {
		t.Errorf("Model() = %q, want llama-3.3-70b-versatile", orch.Model())
	}
}

// ============================================================================
// provideTracing Tests
// ============================================================================

func TestProvideTracing_Disabled(t *testing.T) {
	cfg := &config.Config{} // tracing.enabled defaults to false

	cleanup := provideTracing(context.Background(), cfg)
	if cleanup == nil {
		t.Fatal("cleanup must never be nil")
	}

	// No-op cleanup must not panic
	cleanup()
}

func TestProvideTracing_Enabled(t *testing.T) {
	cfg := &config.Config{}
	cfg.Tracing.Enabled = true
	cfg.Tracing.Endpoint = "localhost:4318"
	cfg.Tracing.ServiceName = "tasknest-test"

	cleanup := provideTracing(context.Background(), cfg)
	if cleanup == nil {
		t.Fatal("cleanup must never be nil")
	}

	// Flushing with no recorded spans must not block or panic even though
	// no collector is listening.
	cleanup()
}
