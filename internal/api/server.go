package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tasknest/tasknest/internal/auth"
	"github.com/tasknest/tasknest/internal/chat"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger       *slog.Logger
	Tasks        TaskStore          // Required
	Users        UserStore          // Required
	Tokens       *auth.JWT          // Required
	Orchestrator *chat.Orchestrator // Optional: nil disables AI chat
	Pool         *pgxpool.Pool      // Optional: nil disables pool stats in /ready
	CORSOrigins  []string           // Allowed origins for CORS
	IsDev        bool               // Disables HSTS for plain-HTTP development
	TrustProxy   bool               // Trust X-Real-IP/X-Forwarded-For headers (behind reverse proxy)
	RateBurst    int                // Rate limiter burst size per IP (0 = default 60)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Tasks == nil {
		return nil, errors.New("task store is required")
	}
	if cfg.Users == nil {
		return nil, errors.New("user store is required")
	}
	if cfg.Tokens == nil {
		return nil, errors.New("token issuer is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ah := &authHandler{users: cfg.Users, tokens: cfg.Tokens, logger: logger}
	th := &taskHandler{tasks: cfg.Tasks, logger: logger}
	ch := &chatHandler{orchestrator: cfg.Orchestrator, logger: logger}

	mux := http.NewServeMux()

	// Registration and login
	mux.HandleFunc("POST /api/auth/signup", ah.signup)
	mux.HandleFunc("POST /api/auth/login", ah.login)

	// Task CRUD
	mux.HandleFunc("GET /api/tasks", th.listTasks)
	mux.HandleFunc("POST /api/tasks", th.createTask)
	mux.HandleFunc("GET /api/tasks/{id}", th.getTask)
	mux.HandleFunc("PUT /api/tasks/{id}", th.updateTask)
	mux.HandleFunc("DELETE /api/tasks/{id}", th.deleteTask)
	mux.HandleFunc("PATCH /api/tasks/{id}/complete", th.completeTask)

	// Chat — registered even without an orchestrator so clients get a JSON
	// 503 and an "unavailable" health report instead of 404s.
	mux.HandleFunc("POST /api/chat", ch.send)
	mux.HandleFunc("GET /api/chat/health", ch.health)

	// Unknown paths get the JSON envelope instead of the stdlib text 404.
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found", logger)
	})

	// Rate limiter: per-IP token bucket (1 token/sec refill)
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newIPRateLimiter(1.0, burst)

	// Build middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → Auth → Routes
	// RequestID precedes Logging so request_id is available in log attributes.
	// CORS precedes RateLimit so preflight OPTIONS carries CORS headers.
	var handler http.Handler = mux
	handler = authMiddleware(cfg.Tokens, logger)(handler)
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Wrap with security headers
	isDev := cfg.IsDev
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w, isDev)
		handler.ServeHTTP(w, r)
	})

	// Use a top-level mux to keep health probes outside the middleware stack
	topMux := http.NewServeMux()
	topMux.Handle("GET /health", health(logger))
	topMux.Handle("GET /ready", readiness(cfg.Pool, logger))
	topMux.Handle("/", final)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
