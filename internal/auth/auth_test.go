package auth

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/felixgeelhaar/todo/internal/events"
	"github.com/felixgeelhaar/todo/internal/storage/sqlite"
)

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	db          *sqlite.DB
	clock       *fakeClock
	events      *events.Recorder
	credentials *CredentialService
	sessions    *SessionService
	service     *Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatalf("sqlite.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	env := &testEnv{db: db, clock: newFakeClock(), events: &events.Recorder{}}
	env.credentials = NewCredentialService(sqlite.NewUserStore(db), CredentialOptions{
		BcryptCost: bcrypt.MinCost,
		Events:     env.events,
		Now:        env.clock.Now,
	})
	env.sessions = NewSessionService(sqlite.NewSessionStore(db), env.credentials, SessionOptions{
		TTL:    time.Hour,
		Events: env.events,
		Now:    env.clock.Now,
	})
	env.service = NewService(env.credentials, env.sessions)
	return env
}

func (e *testEnv) register(t *testing.T, username string) {
	t.Helper()
	_, err := e.credentials.Register(context.Background(), RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Register(%q) error = %v", username, err)
	}
}
