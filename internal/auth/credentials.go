package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/felixgeelhaar/todo/internal/domain"
	"github.com/felixgeelhaar/todo/internal/events"
)

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

// RegisterRequest contains registration data
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// CredentialOptions configures a CredentialService.
type CredentialOptions struct {
	// BcryptCost defaults to bcrypt.DefaultCost
	BcryptCost int

	// MaxConcurrentHashes bounds parallel bcrypt work; 0 means unbounded
	MaxConcurrentHashes int

	Events events.Publisher
	Now    func() time.Time
}

// CredentialService owns user accounts and password verification.
type CredentialService struct {
	users    domain.UserRepository
	hasher   *hasher
	validate *validator.Validate
	events   events.Publisher
	now      func() time.Time

	// dummyHash is compared against for unknown usernames
	dummyHash string
}

// NewCredentialService creates a credential service over users.
func NewCredentialService(users domain.UserRepository, opts CredentialOptions) *CredentialService {
	cost := opts.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	s := &CredentialService{
		users:    users,
		hasher:   newHasher(cost, opts.MaxConcurrentHashes),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		events:   opts.Events,
		now:      now,
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
	if err != nil {
		slog.Error("failed to build dummy hash", "error", err)
	} else {
		s.dummyHash = string(hash)
	}
	return s
}

// Register creates a new account. Username and email are trimmed before
// validation; the password is used verbatim.
func (s *CredentialService) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validateRegister(req); err != nil {
		return nil, err
	}

	exists, err := s.users.IdentityExists(ctx, req.Username, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrDuplicateIdentity
	}

	hash, err := s.hasher.hash(ctx, req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		CreatedAt:    s.timestamp(),
	}
	// The UNIQUE constraints catch a concurrent registration that passed
	// the existence check.
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	slog.Info("user registered", "user_id", user.ID, "username", user.Username)
	events.Emit(ctx, s.events, events.New(events.UserRegistered, user.ID))
	return user, nil
}

// Authenticate verifies a username and password. Unknown users and wrong
// passwords both yield domain.ErrInvalidCredentials after comparable work.
// The username is trimmed as in Register.
func (s *CredentialService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, domain.ErrUserNotFound) {
		if err := s.burnUnknownUser(ctx, password); err != nil {
			return nil, err
		}
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	ok, err := s.hasher.matches(ctx, user.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

// GetUser returns the user with id or domain.ErrUserNotFound.
func (s *CredentialService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	return s.users.GetUserByID(ctx, id)
}

func (s *CredentialService) validateRegister(req RegisterRequest) error {
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fieldError(verrs[0])
		}
		return &domain.InputError{Field: "request", Reason: err.Error()}
	}
	if len(req.Password) > MaxPasswordBytes {
		return &domain.InputError{Field: "password", Reason: fmt.Sprintf("must be at most %d bytes", MaxPasswordBytes)}
	}
	return nil
}

func fieldError(fe validator.FieldError) *domain.InputError {
	field := strings.ToLower(fe.Field())
	var reason string
	switch fe.Tag() {
	case "required":
		reason = "is required"
	case "min":
		reason = fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		reason = fmt.Sprintf("must be at most %s characters", fe.Param())
	case "email":
		reason = "must be a valid email address"
	default:
		reason = "is invalid"
	}
	return &domain.InputError{Field: field, Reason: reason}
}

// burnUnknownUser spends one full bcrypt computation at the configured cost
// so unknown usernames take as long as wrong passwords.
func (s *CredentialService) burnUnknownUser(ctx context.Context, password string) error {
	if s.dummyHash != "" {
		_, err := s.hasher.matches(ctx, s.dummyHash, password)
		return err
	}
	if _, err := s.hasher.hash(ctx, password); errors.Is(err, domain.ErrStorageUnavailable) {
		return err
	}
	return nil
}

func (s *CredentialService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}
