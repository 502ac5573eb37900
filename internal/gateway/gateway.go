// Package gateway authorizes callers before they reach the todo store.
package gateway

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/felixgeelhaar/todo/internal/domain"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "session_id"

// Resolver maps a session token to its user.
type Resolver interface {
	Resolve(ctx context.Context, token string) (*domain.User, error)
}

// Gateway turns tokens into authenticated users.
type Gateway struct {
	sessions Resolver
}

// New creates a gateway backed by sessions.
func New(sessions Resolver) *Gateway {
	return &Gateway{sessions: sessions}
}

// Authorize returns the user owning token. Missing, unknown, expired and
// revoked tokens all yield domain.ErrUnauthenticated; storage failures are
// returned as is.
func (g *Gateway) Authorize(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.ErrUnauthenticated
	}
	user, err := g.sessions.Resolve(ctx, token)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil, domain.ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CurrentUser is Authorize without the failure: it returns nil, nil when
// nobody is logged in.
func (g *Gateway) CurrentUser(ctx context.Context, token string) (*domain.User, error) {
	user, err := g.Authorize(ctx, token)
	if errors.Is(err, domain.ErrUnauthenticated) {
		return nil, nil
	}
	return user, err
}

// TokenFromRequest extracts the session token from the session cookie or,
// failing that, an "Authorization: Bearer" header.
func TokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := r.Header.Get("Authorization")
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}

type contextKey struct{}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// UserFromContext returns the user stored by WithUser.
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(contextKey{}).(*domain.User)
	return user, ok && user != nil
}
