package mcp

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/felixgeelhaar/todo/internal/auth"
	"github.com/felixgeelhaar/todo/internal/domain"
	"github.com/felixgeelhaar/todo/internal/gateway"
	"github.com/felixgeelhaar/todo/internal/storage"
	"github.com/felixgeelhaar/todo/internal/todo"
)

type testEnv struct {
	auth  *auth.Service
	todos *todo.Service
	gw    *gateway.Gateway
}

// setupTestEnv wires the services over a temp SQLite database
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	backend, err := storage.Open(context.Background(), storage.Options{
		Driver:      storage.DriverSQLite,
		Path:        filepath.Join(t.TempDir(), "todo.db"),
		AutoMigrate: true,
	})
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { backend.Close() })

	creds := auth.NewCredentialService(backend.Users, auth.CredentialOptions{BcryptCost: bcrypt.MinCost})
	sessions := auth.NewSessionService(backend.Sessions, creds, auth.SessionOptions{})

	return &testEnv{
		auth:  auth.NewService(creds, sessions),
		todos: todo.NewService(backend.Todos, todo.Options{}),
		gw:    gateway.New(sessions),
	}
}

// serverFor registers username and returns a server acting as them
func (e *testEnv) serverFor(t *testing.T, username string) *Server {
	t.Helper()
	ctx := context.Background()

	_, err := e.auth.Register(ctx, auth.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	login, err := e.auth.Login(ctx, auth.LoginRequest{Username: username, Password: "secret123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	return NewServer(Config{Gateway: e.gw, Todos: e.todos, Token: login.Session.Token})
}

func TestNewServer(t *testing.T) {
	env := setupTestEnv(t)
	server := NewServer(Config{Gateway: env.gw, Todos: env.todos})

	if server.mcpServer == nil {
		t.Fatal("expected non-nil MCP server")
	}
	if server.GetMCPServer() == nil {
		t.Fatal("expected non-nil underlying MCP server")
	}
}

func TestTools_Lifecycle(t *testing.T) {
	env := setupTestEnv(t)
	s := env.serverFor(t, "alice")
	ctx := context.Background()

	who, err := s.handleWhoami(ctx, WhoamiInput{})
	if err != nil || who.Username != "alice" {
		t.Fatalf("whoami = %+v, %v", who, err)
	}

	added, err := s.handleAdd(ctx, AddInput{Title: " write tests "})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if added.Todo.Title != "write tests" {
		t.Errorf("title = %q; want trimmed", added.Todo.Title)
	}

	toggled, err := s.handleToggle(ctx, ToggleInput{ID: added.Todo.ID, Completed: true})
	if err != nil || !toggled.Todo.Completed {
		t.Fatalf("toggle = %+v, %v", toggled.Todo, err)
	}

	got, err := s.handleGet(ctx, GetInput{ID: added.Todo.ID})
	if err != nil || !got.Todo.Completed {
		t.Fatalf("get = %+v, %v", got.Todo, err)
	}

	list, err := s.handleList(ctx, ListInput{})
	if err != nil || list.Count != 1 {
		t.Fatalf("list = %+v, %v", list, err)
	}

	del, err := s.handleDelete(ctx, DeleteInput{ID: added.Todo.ID})
	if err != nil || !del.Deleted {
		t.Fatalf("delete = %+v, %v", del, err)
	}
	del, err = s.handleDelete(ctx, DeleteInput{ID: added.Todo.ID})
	if err != nil || del.Deleted {
		t.Errorf("second delete = %+v, %v; want deleted=false", del, err)
	}
}

func TestTools_Isolation(t *testing.T) {
	env := setupTestEnv(t)
	alice := env.serverFor(t, "alice")
	bob := env.serverFor(t, "bob")
	ctx := context.Background()

	added, err := alice.handleAdd(ctx, AddInput{Title: "private"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if _, err := bob.handleGet(ctx, GetInput{ID: added.Todo.ID}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("bob get err = %v; want ErrNotFound", err)
	}
	if list, _ := bob.handleList(ctx, ListInput{}); list.Count != 0 {
		t.Errorf("bob sees %d todos; want 0", list.Count)
	}
}

func TestTools_Errors(t *testing.T) {
	env := setupTestEnv(t)
	s := env.serverFor(t, "alice")
	ctx := context.Background()

	if _, err := s.handleAdd(ctx, AddInput{Title: "  "}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("empty title err = %v; want ErrInvalidInput", err)
	}

	anon := NewServer(Config{Gateway: env.gw, Todos: env.todos, Token: "bogus"})
	if _, err := anon.handleList(ctx, ListInput{}); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("unknown token err = %v; want ErrUnauthenticated", err)
	}
}

func TestTools_RevokedSession(t *testing.T) {
	env := setupTestEnv(t)
	s := env.serverFor(t, "alice")
	ctx := context.Background()

	if err := env.auth.Logout(ctx, s.token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := s.handleWhoami(ctx, WhoamiInput{}); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("whoami after logout err = %v; want ErrUnauthenticated", err)
	}
}
