package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/felixgeelhaar/todo/internal/config"
)

func TestOpen_SQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "todo.db")

	b, err := Open(ctx, Options{Driver: DriverSQLite, Path: path, AutoMigrate: true})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer b.Close()

	if b.Driver() != DriverSQLite {
		t.Errorf("Driver() = %q; want sqlite", b.Driver())
	}
	if err := b.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	version, err := b.Version(ctx)
	if err != nil {
		t.Fatalf("Version() error = %v", err)
	}
	if version < 1 {
		t.Errorf("Version() = %d; want >= 1", version)
	}
	if b.Users == nil || b.Sessions == nil || b.Todos == nil {
		t.Error("repositories should be set")
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "mongo"})
	if err == nil {
		t.Fatal("Open() with unknown driver should fail")
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default().Database
	cfg.Driver = DriverPostgres
	cfg.URL = "postgres://todo@localhost/todo"
	cfg.MaxConns = 25

	opts := OptionsFromConfig(cfg)
	if opts.Driver != DriverPostgres || opts.URL != cfg.URL || !opts.AutoMigrate {
		t.Errorf("OptionsFromConfig() = %+v", opts)
	}
	if opts.Postgres.MaxConns != 25 {
		t.Errorf("MaxConns = %d; want 25", opts.Postgres.MaxConns)
	}
	if opts.Postgres.ConnectAttempts == 0 {
		t.Error("ConnectAttempts should keep its default")
	}
}
