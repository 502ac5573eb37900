// Package storage selects and opens the persistence backend.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/felixgeelhaar/todo/internal/config"
	"github.com/felixgeelhaar/todo/internal/domain"
	"github.com/felixgeelhaar/todo/internal/storage/postgres"
	"github.com/felixgeelhaar/todo/internal/storage/sqlite"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Options selects a backend.
type Options struct {
	Driver      string
	Path        string // sqlite file
	URL         string // postgres connection string
	AutoMigrate bool
	Postgres    postgres.Options
}

// Backend bundles the repositories of one database.
type Backend struct {
	Users    domain.UserRepository
	Sessions domain.SessionRepository
	Todos    domain.TodoRepository

	driver  string
	ping    func(context.Context) error
	migrate func(context.Context) error
	version func(context.Context) (int, error)
	close   func() error
}

// Open connects to the configured database and, if requested, migrates it.
func Open(ctx context.Context, opts Options) (*Backend, error) {
	var b *Backend

	switch opts.Driver {
	case DriverSQLite, "":
		if dir := filepath.Dir(opts.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
		}
		db, err := sqlite.Open(opts.Path)
		if err != nil {
			return nil, err
		}
		b = &Backend{
			Users:    sqlite.NewUserStore(db),
			Sessions: sqlite.NewSessionStore(db),
			Todos:    sqlite.NewTodoStore(db),
			driver:   DriverSQLite,
			ping:     db.PingContext,
			migrate:  db.Migrate,
			version:  db.Version,
			close:    db.Close,
		}
	case DriverPostgres:
		db, err := postgres.Open(ctx, opts.URL, opts.Postgres)
		if err != nil {
			return nil, err
		}
		b = &Backend{
			Users:    postgres.NewUserStore(db),
			Sessions: postgres.NewSessionStore(db),
			Todos:    postgres.NewTodoStore(db),
			driver:   DriverPostgres,
			ping:     db.Ping,
			migrate:  db.Migrate,
			version:  db.Version,
			close:    db.Close,
		}
	default:
		return nil, fmt.Errorf("unknown database driver %q", opts.Driver)
	}

	if opts.AutoMigrate {
		if err := b.Migrate(ctx); err != nil {
			b.Close()
			return nil, err
		}
	}

	slog.Info("storage ready", "driver", b.driver)
	return b, nil
}

// Driver returns the backend name.
func (b *Backend) Driver() string {
	return b.driver
}

// Ping checks that the database answers. Failures match domain.ErrStorageUnavailable.
func (b *Backend) Ping(ctx context.Context) error {
	return domain.NewStorageError("ping", b.ping(ctx))
}

// Migrate applies pending schema migrations.
func (b *Backend) Migrate(ctx context.Context) error {
	if err := b.migrate(ctx); err != nil {
		return fmt.Errorf("migrate %s: %w", b.driver, err)
	}
	return nil
}

// Version returns the applied schema version.
func (b *Backend) Version(ctx context.Context) (int, error) {
	return b.version(ctx)
}

// Close releases the underlying connections.
func (b *Backend) Close() error {
	return b.close()
}

// OptionsFromConfig maps the database section of the application config.
func OptionsFromConfig(cfg config.DatabaseConfig) Options {
	pg := postgres.DefaultOptions()
	if cfg.MaxConns > 0 {
		pg.MaxConns = int32(cfg.MaxConns)
	}
	return Options{
		Driver:      cfg.Driver,
		Path:        cfg.Path,
		URL:         cfg.URL,
		AutoMigrate: cfg.AutoMigrate,
		Postgres:    pg,
	}
}
