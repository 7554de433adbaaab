// Package api provides the JSON REST API server for tasknest.
//
// # Architecture
//
// The server uses Go 1.22+ method routing with a layered middleware stack:
//
//	Recovery → RequestID → Logging → CORS → RateLimit → Auth → Routes
//
// Health probes (/health, /ready) bypass the middleware stack via a
// top-level mux, ensuring they remain fast and unauthenticated.
//
// # Endpoints
//
// Health probes (no middleware):
//   - GET /health — returns {"status":"ok"}
//   - GET /ready  — pings the database pool; 503 when unreachable
//
// Authentication (public):
//   - POST /api/auth/signup — register, returns {token, user_id, email}
//   - POST /api/auth/login  — authenticate, returns {token, user_id, email}
//
// Tasks (JWT required, always scoped to the authenticated owner):
//   - GET    /api/tasks                — list tasks, optional ?status= filter
//   - POST   /api/tasks                — create task
//   - GET    /api/tasks/{id}           — get task by ID
//   - PUT    /api/tasks/{id}           — partial update (absent fields kept)
//   - DELETE /api/tasks/{id}           — hard delete
//   - PATCH  /api/tasks/{id}/complete  — mark completed (idempotent)
//
// Chat:
//   - POST /api/chat        — one conversational turn (JWT required)
//   - GET  /api/chat/health — model provider availability (public)
//
// # Error Handling
//
// Errors use a flat JSON envelope:
//
//	{"error": "<machine_code>", "message": "<human text>"}
//
// Not-found and not-owned tasks are indistinguishable: both return 404 with
// "Task not found", and syntactically invalid task IDs take the same shape
// so existence never leaks. Chat orchestration failures degrade to a 200
// with an apologetic response body rather than surfacing provider errors.
//
// # Security
//
// The middleware stack enforces:
//   - JWT bearer auth for /api/* (except /api/auth/* and /api/chat/health)
//   - Per-IP rate limiting (token bucket, x/time/rate)
//   - CORS with explicit origin allowlist
//   - Security headers (CSP, HSTS, X-Frame-Options, etc.)
package api
