package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/felixgeelhaar/todo/internal/domain"
)

// UserStore implements domain.UserRepository on PostgreSQL.
type UserStore struct {
	db *DB
}

// NewUserStore creates a new PostgreSQL user store
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

// CreateUser inserts a new user
func (s *UserStore) CreateUser(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (username, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := s.db.Pool.QueryRow(ctx, query,
		user.Username, user.Email, user.PasswordHash, user.CreatedAt,
	).Scan(&user.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("insert user: %w", domain.ErrDuplicateIdentity)
	}
	return domain.NewStorageError("insert user", err)
}

// GetUserByID retrieves a user by ID
func (s *UserStore) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `
		SELECT id, username, email, password_hash, created_at
		FROM users WHERE id = $1
	`
	return s.getUser(ctx, "get user by id", query, id)
}

// GetUserByUsername retrieves a user by username
func (s *UserStore) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `
		SELECT id, username, email, password_hash, created_at
		FROM users WHERE username = $1
	`
	return s.getUser(ctx, "get user by username", query, username)
}

func (s *UserStore) getUser(ctx context.Context, op, query string, arg any) (*domain.User, error) {
	user := &domain.User{}
	err := s.db.Pool.QueryRow(ctx, query, arg).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt,
	)
	if isNoRows(err) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, domain.NewStorageError(op, err)
	}
	return user, nil
}

// IdentityExists reports whether username or email is taken
func (s *UserStore) IdentityExists(ctx context.Context, username, email string) (bool, error) {
	var exists bool
	err := s.db.Pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE username = $1 OR email = $2)",
		username, email,
	).Scan(&exists)
	if err != nil {
		return false, domain.NewStorageError("check identity", err)
	}
	return exists, nil
}

// SessionStore implements domain.SessionRepository on PostgreSQL.
type SessionStore struct {
	db *DB
}

// NewSessionStore creates a new PostgreSQL session store
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

// CreateSession inserts a new session
func (s *SessionStore) CreateSession(ctx context.Context, session *domain.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.db.Pool.Exec(ctx, query,
		session.Token, session.UserID, session.CreatedAt, session.ExpiresAt,
	)
	return domain.NewStorageError("insert session", err)
}

// GetSession retrieves a session by token
func (s *SessionStore) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	query := `
		SELECT id, user_id, created_at, expires_at
		FROM sessions WHERE id = $1
	`
	session := &domain.Session{}
	err := s.db.Pool.QueryRow(ctx, query, token).Scan(
		&session.Token, &session.UserID, &session.CreatedAt, &session.ExpiresAt,
	)
	if isNoRows(err) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, domain.NewStorageError("get session", err)
	}
	return session, nil
}

// DeleteSession removes a session by token and returns its owner
func (s *SessionStore) DeleteSession(ctx context.Context, token string) (int64, error) {
	var userID int64
	err := s.db.Pool.QueryRow(ctx,
		"DELETE FROM sessions WHERE id = $1 RETURNING user_id", token,
	).Scan(&userID)
	if isNoRows(err) {
		return 0, domain.ErrSessionNotFound
	}
	if err != nil {
		return 0, domain.NewStorageError("delete session", err)
	}
	return userID, nil
}

// DeleteUserSessions removes every session of a user
func (s *SessionStore) DeleteUserSessions(ctx context.Context, userID int64) (int64, error) {
	tag, err := s.db.Pool.Exec(ctx, "DELETE FROM sessions WHERE user_id = $1", userID)
	if err != nil {
		return 0, domain.NewStorageError("delete user sessions", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteExpiredSessions removes all expired sessions
func (s *SessionStore) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.db.Pool.Exec(ctx, "DELETE FROM sessions WHERE expires_at <= $1", now)
	if err != nil {
		return 0, domain.NewStorageError("delete expired sessions", err)
	}
	return tag.RowsAffected(), nil
}

// TodoStore implements domain.TodoRepository on PostgreSQL.
type TodoStore struct {
	db *DB
}

// NewTodoStore creates a new PostgreSQL todo store
func NewTodoStore(db *DB) *TodoStore {
	return &TodoStore{db: db}
}

// ListTodos retrieves all todos of a user, newest first
func (s *TodoStore) ListTodos(ctx context.Context, userID int64) ([]*domain.Todo, error) {
	query := `
		SELECT id, title, completed, created_at, updated_at, user_id
		FROM todos WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := s.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, domain.NewStorageError("list todos", err)
	}
	todos, err := pgx.CollectRows(rows, scanTodoRow)
	if err != nil {
		return nil, domain.NewStorageError("list todos", err)
	}
	if todos == nil {
		todos = []*domain.Todo{}
	}
	return todos, nil
}

// GetTodo retrieves a todo owned by the user
func (s *TodoStore) GetTodo(ctx context.Context, userID, todoID int64) (*domain.Todo, error) {
	query := `
		SELECT id, title, completed, created_at, updated_at, user_id
		FROM todos WHERE id = $1 AND user_id = $2
	`
	rows, err := s.db.Pool.Query(ctx, query, todoID, userID)
	if err != nil {
		return nil, domain.NewStorageError("get todo", err)
	}
	return collectOneTodo(rows, "get todo")
}

// CreateTodo inserts a new todo
func (s *TodoStore) CreateTodo(ctx context.Context, todo *domain.Todo) error {
	query := `
		INSERT INTO todos (title, completed, created_at, updated_at, user_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := s.db.Pool.QueryRow(ctx, query,
		todo.Title, todo.Completed, todo.CreatedAt, todo.UpdatedAt, todo.UserID,
	).Scan(&todo.ID)
	return domain.NewStorageError("insert todo", err)
}

// SetTodoCompleted updates the completion flag of a todo owned by the user
func (s *TodoStore) SetTodoCompleted(ctx context.Context, userID, todoID int64, completed bool, updatedAt time.Time) (*domain.Todo, error) {
	query := `
		UPDATE todos SET completed = $1, updated_at = $2
		WHERE id = $3 AND user_id = $4
		RETURNING id, title, completed, created_at, updated_at, user_id
	`
	rows, err := s.db.Pool.Query(ctx, query, completed, updatedAt, todoID, userID)
	if err != nil {
		return nil, domain.NewStorageError("update todo", err)
	}
	return collectOneTodo(rows, "update todo")
}

// DeleteTodo removes a todo owned by the user
func (s *TodoStore) DeleteTodo(ctx context.Context, userID, todoID int64) (bool, error) {
	tag, err := s.db.Pool.Exec(ctx, "DELETE FROM todos WHERE id = $1 AND user_id = $2", todoID, userID)
	if err != nil {
		return false, domain.NewStorageError("delete todo", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanTodoRow(row pgx.CollectableRow) (*domain.Todo, error) {
	t := &domain.Todo{}
	err := row.Scan(&t.ID, &t.Title, &t.Completed, &t.CreatedAt, &t.UpdatedAt, &t.UserID)
	return t, err
}

func collectOneTodo(rows pgx.Rows, op string) (*domain.Todo, error) {
	todo, err := pgx.CollectExactlyOneRow(rows, scanTodoRow)
	if isNoRows(err) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.NewStorageError(op, err)
	}
	return todo, nil
}
