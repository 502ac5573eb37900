package gateway

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/felixgeelhaar/todo/internal/domain"
)

type mockResolver struct {
	resolveFunc func(ctx context.Context, token string) (*domain.User, error)
	calls       int
}

func (m *mockResolver) Resolve(ctx context.Context, token string) (*domain.User, error) {
	m.calls++
	if m.resolveFunc != nil {
		return m.resolveFunc(ctx, token)
	}
	return nil, domain.ErrSessionNotFound
}

func TestGateway_Authorize(t *testing.T) {
	alice := &domain.User{ID: 1, Username: "alice"}
	storageErr := domain.NewStorageError("get session", errors.New("database is locked"))

	tests := []struct {
		name    string
		token   string
		resolve func(context.Context, string) (*domain.User, error)
		want    *domain.User
		wantErr error
		calls   int
	}{
		{
			name:    "empty token",
			token:   "",
			wantErr: domain.ErrUnauthenticated,
			calls:   0,
		},
		{
			name:  "valid token",
			token: "good",
			resolve: func(_ context.Context, token string) (*domain.User, error) {
				return alice, nil
			},
			want:  alice,
			calls: 1,
		},
		{
			name:    "unknown token",
			token:   "bad",
			wantErr: domain.ErrUnauthenticated,
			calls:   1,
		},
		{
			name:  "storage failure",
			token: "good",
			resolve: func(context.Context, string) (*domain.User, error) {
				return nil, storageErr
			},
			wantErr: domain.ErrStorageUnavailable,
			calls:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := &mockResolver{resolveFunc: tt.resolve}
			g := New(resolver)

			got, err := g.Authorize(context.Background(), tt.token)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Authorize() error = %v; want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Errorf("Authorize() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Authorize() = %v; want %v", got, tt.want)
			}
			if resolver.calls != tt.calls {
				t.Errorf("Resolve called %d times; want %d", resolver.calls, tt.calls)
			}
		})
	}
}

func TestGateway_CurrentUser(t *testing.T) {
	g := New(&mockResolver{})

	user, err := g.CurrentUser(context.Background(), "expired")
	if err != nil || user != nil {
		t.Errorf("CurrentUser() = %v, %v; want nil, nil", user, err)
	}

	failing := New(&mockResolver{resolveFunc: func(context.Context, string) (*domain.User, error) {
		return nil, domain.NewStorageError("get session", errors.New("timeout"))
	}})
	if _, err := failing.CurrentUser(context.Background(), "tok"); !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Errorf("CurrentUser() error = %v; want ErrStorageUnavailable", err)
	}
}

func TestTokenFromRequest(t *testing.T) {
	tests := []struct {
		name   string
		cookie string
		header string
		want   string
	}{
		{"none", "", "", ""},
		{"cookie", "from-cookie", "", "from-cookie"},
		{"bearer", "", "Bearer from-header", "from-header"},
		{"bearer lowercase", "", "bearer from-header", "from-header"},
		{"cookie wins", "from-cookie", "Bearer from-header", "from-cookie"},
		{"basic ignored", "", "Basic dXNlcjpwYXNz", ""},
		{"malformed header", "", "Bearer", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/v1/todos", nil)
			if tt.cookie != "" {
				r.Header.Add("Cookie", SessionCookieName+"="+tt.cookie)
			}
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if got := TokenFromRequest(r); got != tt.want {
				t.Errorf("TokenFromRequest() = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestUserContext(t *testing.T) {
	if _, ok := UserFromContext(context.Background()); ok {
		t.Error("empty context should carry no user")
	}

	alice := &domain.User{ID: 1}
	got, ok := UserFromContext(WithUser(context.Background(), alice))
	if !ok || got != alice {
		t.Errorf("UserFromContext() = %v, %v; want alice, true", got, ok)
	}
}
