package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/todo/internal/domain"
	"github.com/felixgeelhaar/todo/internal/events"
)

// DefaultSessionTTL is how long a login stays valid.
const DefaultSessionTTL = 30 * 24 * time.Hour

// UserLookup resolves a user id to an account.
type UserLookup interface {
	GetUser(ctx context.Context, id int64) (*domain.User, error)
}

// SessionOptions configures a SessionService.
type SessionOptions struct {
	TTL    time.Duration
	Events events.Publisher
	Now    func() time.Time
}

// SessionService issues, resolves and revokes opaque session tokens.
type SessionService struct {
	sessions domain.SessionRepository
	users    UserLookup
	ttl      time.Duration
	events   events.Publisher
	now      func() time.Time
}

// NewSessionService creates a session service.
func NewSessionService(sessions domain.SessionRepository, users UserLookup, opts SessionOptions) *SessionService {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &SessionService{
		sessions: sessions,
		users:    users,
		ttl:      ttl,
		events:   opts.Events,
		now:      now,
	}
}

// TTL returns the lifetime of new sessions.
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// CreateSession starts a session for userID.
func (s *SessionService) CreateSession(ctx context.Context, userID int64) (*domain.Session, error) {
	token, err := generateToken(tokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	now := s.timestamp()
	session := &domain.Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	events.Emit(ctx, s.events, events.New(events.SessionCreated, userID))
	return session, nil
}

// Resolve returns the user owning token. Absent, expired and revoked
// sessions all yield domain.ErrSessionNotFound. An expired row is deleted.
func (s *SessionService) Resolve(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.ErrSessionNotFound
	}

	session, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		return nil, err
	}

	if session.ExpiredAt(s.now()) {
		if _, err := s.sessions.DeleteSession(ctx, token); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			slog.Warn("failed to delete expired session", "user_id", session.UserID, "error", err)
		}
		return nil, domain.ErrSessionNotFound
	}

	user, err := s.users.GetUser(ctx, session.UserID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Revoke deletes the session and reports whether it existed. Revoking an
// unknown token is not an error.
func (s *SessionService) Revoke(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	userID, err := s.sessions.DeleteSession(ctx, token)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	events.Emit(ctx, s.events, events.New(events.SessionRevoked, userID))
	return true, nil
}

// RevokeAll deletes every session of userID.
func (s *SessionService) RevokeAll(ctx context.Context, userID int64) (int64, error) {
	n, err := s.sessions.DeleteUserSessions(ctx, userID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		evt := events.New(events.SessionRevoked, userID)
		evt.Data = map[string]any{"count": n}
		events.Emit(ctx, s.events, evt)
	}
	return n, nil
}

// CleanupExpired removes all sessions that have expired.
func (s *SessionService) CleanupExpired(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpiredSessions(ctx, s.timestamp())
}

func (s *SessionService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}
