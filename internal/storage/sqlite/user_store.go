package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/todo/internal/domain"
)

// UserStore implements domain.UserRepository backed by SQLite.
type UserStore struct {
	db *DB
}

// NewUserStore creates a new SQLite-backed user store.
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

// CreateUser inserts a user and assigns its ID.
func (s *UserStore) CreateUser(ctx context.Context, user *domain.User) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, email, password_hash, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`,
		user.Username, user.Email, user.PasswordHash, user.CreatedAt,
	).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert user: %w", domain.ErrDuplicateIdentity)
		}
		return domain.NewStorageError("insert user", err)
	}
	return nil
}

// GetUserByID retrieves a user by primary key.
func (s *UserStore) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, created_at
		FROM users WHERE id = ?`, id)
	return scanUser(row, "get user by id")
}

// GetUserByUsername retrieves a user by exact (case-sensitive) username.
func (s *UserStore) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, created_at
		FROM users WHERE username = ?`, username)
	return scanUser(row, "get user by username")
}

// IdentityExists reports whether the username or email is already registered.
func (s *UserStore) IdentityExists(ctx context.Context, username, email string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE username = ? OR email = ?)",
		username, email,
	).Scan(&exists)
	if err != nil {
		return false, domain.NewStorageError("check identity", err)
	}
	return exists, nil
}

func scanUser(row *sql.Row, op string) (*domain.User, error) {
	var user domain.User
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, domain.NewStorageError(op, err)
	}
	return &user, nil
}
