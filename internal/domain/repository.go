package domain

import (
	"context"
	"time"
)

// UserRepository persists accounts. Implementations must enforce username
// and email uniqueness and report violations as ErrDuplicateIdentity.
type UserRepository interface {
	// CreateUser inserts the user and sets its ID.
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id int64) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	// IdentityExists reports whether username or email is already taken.
	IdentityExists(ctx context.Context, username, email string) (bool, error)
}

// SessionRepository persists login sessions keyed by their opaque token.
type SessionRepository interface {
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, token string) (*Session, error)
	// DeleteSession removes the session and returns its owner, or
	// ErrSessionNotFound when no such session exists.
	DeleteSession(ctx context.Context, token string) (int64, error)
	DeleteUserSessions(ctx context.Context, userID int64) (int64, error)
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// TodoRepository persists todos. Every method filters by the owning user in
// the same statement that reads or mutates the row.
type TodoRepository interface {
	ListTodos(ctx context.Context, userID int64) ([]*Todo, error)
	GetTodo(ctx context.Context, userID, todoID int64) (*Todo, error)
	// CreateTodo inserts the todo and sets its ID.
	CreateTodo(ctx context.Context, todo *Todo) error
	SetTodoCompleted(ctx context.Context, userID, todoID int64, completed bool, updatedAt time.Time) (*Todo, error)
	DeleteTodo(ctx context.Context, userID, todoID int64) (bool, error)
}
