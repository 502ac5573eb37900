package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/todo/internal/api/handlers"
	"github.com/felixgeelhaar/todo/internal/api/middleware"
	"github.com/felixgeelhaar/todo/internal/domain"
	"github.com/felixgeelhaar/todo/internal/gateway"
)

// Router wraps the HTTP multiplexer with middleware and handlers
type Router struct {
	mux   *http.ServeMux
	app   *App
	auth  *handlers.AuthHandler
	todos *handlers.TodoHandler
}

// NewRouter creates a new API router with all routes configured
func NewRouter(app *App) (http.Handler, error) {
	r := &Router{
		mux: http.NewServeMux(),
		app: app,
	}

	// Initialize handlers
	maxAge := int(app.Auth.Sessions().TTL() / time.Second)
	r.auth = handlers.NewAuthHandler(app.Auth, app.Gateway, app.Config.Session.CookieSecure, maxAge)
	r.todos = handlers.NewTodoHandler(app.Todos)

	// Register routes
	r.registerRoutes()

	// Build middleware chain
	return r.buildMiddlewareChain(r.mux), nil
}

func (r *Router) registerRoutes() {
	authLimit := middleware.RateLimit(r.app.authLimiter, "auth", r.app.clientIPs)

	// Health check
	r.mux.HandleFunc("GET /health", r.handleHealth)
	r.mux.HandleFunc("GET /ready", r.handleReady)

	// API v1 routes - Auth (no auth required)
	r.mux.Handle("POST /api/v1/auth/register", authLimit(http.HandlerFunc(r.auth.Register)))
	r.mux.Handle("POST /api/v1/auth/login", authLimit(http.HandlerFunc(r.auth.Login)))
	r.mux.HandleFunc("POST /api/v1/auth/logout", r.auth.Logout)
	r.mux.HandleFunc("GET /api/v1/auth/me", r.auth.Me)
	r.mux.HandleFunc("POST /api/v1/auth/logout-all", r.requireAuth(r.auth.LogoutAll))

	// Todos (requires auth)
	r.mux.HandleFunc("GET /api/v1/todos", r.requireAuth(r.todos.List))
	r.mux.HandleFunc("POST /api/v1/todos", r.requireAuth(r.todos.Create))
	r.mux.HandleFunc("GET /api/v1/todos/{id}", r.requireAuth(r.todos.Get))
	r.mux.HandleFunc("POST /api/v1/todos/{id}/toggle", r.requireAuth(r.todos.Toggle))
	r.mux.HandleFunc("POST /api/v1/todos/{id}/delete", r.requireAuth(r.todos.Delete))
	r.mux.HandleFunc("DELETE /api/v1/todos/{id}", r.requireAuth(r.todos.Delete))
}

func (r *Router) buildMiddlewareChain(handler http.Handler) http.Handler {
	// Apply middleware in reverse order (last applied = first executed)
	handler = middleware.Recovery(handler)
	handler = middleware.Logger(handler)
	handler = middleware.Timeout(r.app.Config.RequestTimeout())(handler)
	handler = middleware.RateLimit(r.app.apiLimiter, "api", r.app.clientIPs)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.CORS(r.app.Config.Server.CORSOrigins)(handler)

	return handler
}

// requireAuth wraps a handler with the auth gateway
func (r *Router) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		user, err := r.app.Gateway.Authorize(req.Context(), gateway.TokenFromRequest(req))
		if err != nil {
			if errors.Is(err, domain.ErrUnauthenticated) {
				slog.Debug("rejected unauthenticated request",
					"path", req.URL.Path,
					"request_id", middleware.GetRequestID(req.Context()),
				)
			}
			handlers.WriteDomainError(w, req, err)
			return
		}

		next(w, req.WithContext(gateway.WithUser(req.Context(), user)))
	}
}

// Health check handlers
func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	handlers.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (r *Router) handleReady(w http.ResponseWriter, req *http.Request) {
	// Check database connectivity
	if err := r.app.Backend.Ping(req.Context()); err != nil {
		slog.Error("database health check failed",
			"error", err,
			"driver", r.app.Backend.Driver(),
			"request_id", middleware.GetRequestID(req.Context()),
		)
		handlers.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not ready",
			"checks": map[string]string{
				"database": "unhealthy",
			},
		})
		return
	}

	handlers.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"checks": map[string]string{
			"database": "healthy",
		},
	})
}
