package auth

import (
	"context"
	"log/slog"

	"github.com/felixgeelhaar/todo/internal/domain"
)

// Service combines credentials and sessions into the login flows used by
// the transports.
type Service struct {
	credentials *CredentialService
	sessions    *SessionService
}

// NewService creates a new auth service
func NewService(credentials *CredentialService, sessions *SessionService) *Service {
	return &Service{
		credentials: credentials,
		sessions:    sessions,
	}
}

// Sessions returns the session manager.
func (s *Service) Sessions() *SessionService {
	return s.sessions
}

// Register creates a new user account
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	return s.credentials.Register(ctx, req)
}

// LoginRequest contains login credentials
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse contains login result
type LoginResponse struct {
	User    *domain.User
	Session *domain.Session
}

// Login authenticates a user and creates a session
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.credentials.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.CreateSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	slog.Info("user logged in", "user_id", user.ID)
	return &LoginResponse{
		User:    user,
		Session: session,
	}, nil
}

// Logout invalidates a session. An unknown or empty token is not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	_, err := s.sessions.Revoke(ctx, token)
	return err
}

// LogoutAll invalidates all sessions for a user
func (s *Service) LogoutAll(ctx context.Context, userID int64) (int64, error) {
	return s.sessions.RevokeAll(ctx, userID)
}
