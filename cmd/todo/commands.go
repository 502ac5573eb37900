package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/todo/internal/auth"
	"github.com/felixgeelhaar/todo/internal/config"
	"github.com/felixgeelhaar/todo/internal/events"
	"github.com/felixgeelhaar/todo/internal/gateway"
	mcpserver "github.com/felixgeelhaar/todo/internal/mcp"
	"github.com/felixgeelhaar/todo/internal/storage"
	"github.com/felixgeelhaar/todo/internal/todo"
)

// loadConfig parses the shared -config flag and loads the configuration
func loadConfig(name string, args []string) (*config.Config, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	path := fs.String("config", "", "path to YAML config file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg, err := config.Load(*path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// cmdMigrate applies pending migrations
func cmdMigrate(args []string) error {
	cfg, err := loadConfig("migrate", args)
	if err != nil {
		return err
	}

	ctx := context.Background()
	opts := storage.OptionsFromConfig(cfg.Database)
	opts.AutoMigrate = false

	backend, err := storage.Open(ctx, opts)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer backend.Close()

	if err := backend.Migrate(ctx); err != nil {
		return err
	}
	version, err := backend.Version(ctx)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	fmt.Printf("%s schema at version %d\n", backend.Driver(), version)
	return nil
}

// cmdConfig prints the effective configuration
func cmdConfig(args []string) error {
	cfg, err := loadConfig("config", args)
	if err != nil {
		return err
	}
	return writeConfig(os.Stdout, cfg)
}

func writeConfig(w io.Writer, cfg *config.Config) error {
	out, err := cfg.Redacted().YAML()
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

// cmdMCP starts the MCP server, logged in as $TODO_USERNAME
func cmdMCP(args []string) error {
	cfg, err := loadConfig("mcp", args)
	if err != nil {
		return err
	}

	username := os.Getenv("TODO_USERNAME")
	password := os.Getenv("TODO_PASSWORD")
	if username == "" || password == "" {
		return errors.New("TODO_USERNAME and TODO_PASSWORD must be set")
	}

	// stdout carries the MCP protocol; logs go to stderr
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	// Setup context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := storage.Open(ctx, storage.OptionsFromConfig(cfg.Database))
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer backend.Close()

	// Create services
	publisher := events.NopPublisher{}
	credentials := auth.NewCredentialService(backend.Users, auth.CredentialOptions{
		BcryptCost:          cfg.Auth.BcryptCost,
		MaxConcurrentHashes: cfg.Auth.MaxConcurrentHashes,
		Events:              publisher,
	})
	sessions := auth.NewSessionService(backend.Sessions, credentials, auth.SessionOptions{
		TTL:    cfg.SessionTTL(),
		Events: publisher,
	})
	authService := auth.NewService(credentials, sessions)

	login, err := authService.Login(ctx, auth.LoginRequest{Username: username, Password: password})
	if err != nil {
		return fmt.Errorf("login as %s: %w", username, err)
	}
	defer func() {
		if err := authService.Logout(context.Background(), login.Session.Token); err != nil {
			slog.Warn("failed to revoke MCP session", "error", err)
		}
	}()

	// Create MCP server
	mcpSrv := mcpserver.NewServer(mcpserver.Config{
		Gateway: gateway.New(sessions),
		Todos:   todo.NewService(backend.Todos, todo.Options{Events: publisher}),
		Token:   login.Session.Token,
		Version: Version,
	})

	// Serve on stdio
	return mcpSrv.ServeStdio(ctx)
}
