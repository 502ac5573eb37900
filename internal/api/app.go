package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/fortify/ratelimit"

	"github.com/felixgeelhaar/todo/internal/api/middleware"
	"github.com/felixgeelhaar/todo/internal/auth"
	"github.com/felixgeelhaar/todo/internal/config"
	"github.com/felixgeelhaar/todo/internal/events"
	"github.com/felixgeelhaar/todo/internal/gateway"
	"github.com/felixgeelhaar/todo/internal/storage"
	"github.com/felixgeelhaar/todo/internal/todo"
)

// App holds all application dependencies
type App struct {
	Config  *config.Config
	Backend *storage.Backend
	Auth    *auth.Service
	Todos   *todo.Service
	Gateway *gateway.Gateway
	Events  events.Publisher

	apiLimiter  ratelimit.RateLimiter
	authLimiter ratelimit.RateLimiter
	clientIPs   *middleware.ClientIPResolver
}

// AppConfig holds configuration for application initialization
type AppConfig struct {
	Config  *config.Config
	Backend *storage.Backend

	// Events defaults to a publisher that drops everything
	Events events.Publisher

	// Now overrides the clock, for tests
	Now func() time.Time
}

// NewApp creates a new application instance with all dependencies wired
func NewApp(_ context.Context, cfg AppConfig) (*App, error) {
	if cfg.Config == nil {
		return nil, errors.New("config is required")
	}
	if cfg.Backend == nil {
		return nil, fmt.Errorf("storage backend is required")
	}

	publisher := cfg.Events
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	app := &App{
		Config:  cfg.Config,
		Backend: cfg.Backend,
		Events:  publisher,
	}

	// Credential store and session manager
	credentials := auth.NewCredentialService(cfg.Backend.Users, auth.CredentialOptions{
		BcryptCost:          cfg.Config.Auth.BcryptCost,
		MaxConcurrentHashes: cfg.Config.Auth.MaxConcurrentHashes,
		Events:              publisher,
		Now:                 cfg.Now,
	})
	sessions := auth.NewSessionService(cfg.Backend.Sessions, credentials, auth.SessionOptions{
		TTL:    cfg.Config.SessionTTL(),
		Events: publisher,
		Now:    cfg.Now,
	})
	app.Auth = auth.NewService(credentials, sessions)
	app.Gateway = gateway.New(sessions)

	// Todo store
	app.Todos = todo.NewService(cfg.Backend.Todos, todo.Options{
		Events: publisher,
		Now:    cfg.Now,
	})

	clientIPs, err := middleware.NewClientIPResolver(cfg.Config.Server.TrustedProxies)
	if err != nil {
		return nil, err
	}
	app.clientIPs = clientIPs

	// Rate limiters (disabled in debug mode for easier development)
	if !cfg.Config.Server.Debug {
		rl := cfg.Config.RateLimit
		app.apiLimiter = middleware.NewLimiter(rl.RequestsPerMinute, rl.RequestsPerMinute/6)
		app.authLimiter = middleware.NewLimiter(rl.AuthRequestsPerMinute, rl.AuthRequestsPerMinute/4)
	}

	return app, nil
}

// Sweeper returns a background job that removes expired sessions
func (a *App) Sweeper() *auth.Sweeper {
	return auth.NewSweeper(a.Auth.Sessions(), a.Config.SweepInterval(), nil)
}

// Close cleans up application resources
func (a *App) Close() error {
	var errs []error
	for _, l := range []ratelimit.RateLimiter{a.apiLimiter, a.authLimiter} {
		if l != nil {
			errs = append(errs, l.Close())
		}
	}
	if a.Backend != nil {
		errs = append(errs, a.Backend.Close())
	}
	return errors.Join(errs...)
}
