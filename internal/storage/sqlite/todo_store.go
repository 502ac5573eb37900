package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/felixgeelhaar/todo/internal/domain"
)

const todoColumns = "id, title, completed, created_at, updated_at, user_id"

// TodoStore implements domain.TodoRepository backed by SQLite.
type TodoStore struct {
	db *DB
}

// NewTodoStore creates a new SQLite-backed todo store.
func NewTodoStore(db *DB) *TodoStore {
	return &TodoStore{db: db}
}

// ListTodos returns the user's todos, newest first.
func (s *TodoStore) ListTodos(ctx context.Context, userID int64) ([]*domain.Todo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+todoColumns+`
		FROM todos WHERE user_id = ?
		ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, domain.NewStorageError("list todos", err)
	}
	defer rows.Close()

	todos := make([]*domain.Todo, 0)
	for rows.Next() {
		var t domain.Todo
		if err := rows.Scan(&t.ID, &t.Title, &t.Completed, &t.CreatedAt, &t.UpdatedAt, &t.UserID); err != nil {
			return nil, domain.NewStorageError("scan todo", err)
		}
		todos = append(todos, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("list todos", err)
	}
	return todos, nil
}

// GetTodo retrieves a todo owned by userID.
func (s *TodoStore) GetTodo(ctx context.Context, userID, todoID int64) (*domain.Todo, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+todoColumns+`
		FROM todos WHERE id = ? AND user_id = ?`, todoID, userID)
	return scanTodo(row, "get todo")
}

// CreateTodo inserts a todo and assigns its ID.
func (s *TodoStore) CreateTodo(ctx context.Context, todo *domain.Todo) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO todos (title, completed, created_at, updated_at, user_id)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`,
		todo.Title, todo.Completed, todo.CreatedAt, todo.UpdatedAt, todo.UserID,
	).Scan(&todo.ID)
	return domain.NewStorageError("insert todo", err)
}

// SetTodoCompleted updates the completion flag of a todo owned by userID.
func (s *TodoStore) SetTodoCompleted(ctx context.Context, userID, todoID int64, completed bool, updatedAt time.Time) (*domain.Todo, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE todos SET completed = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
		RETURNING `+todoColumns,
		completed, updatedAt, todoID, userID)
	return scanTodo(row, "update todo")
}

// DeleteTodo removes a todo owned by userID and reports whether it existed.
func (s *TodoStore) DeleteTodo(ctx context.Context, userID, todoID int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM todos WHERE id = ? AND user_id = ?", todoID, userID)
	if err != nil {
		return false, domain.NewStorageError("delete todo", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, domain.NewStorageError("delete todo", err)
	}
	return n > 0, nil
}

func scanTodo(row *sql.Row, op string) (*domain.Todo, error) {
	var t domain.Todo
	err := row.Scan(&t.ID, &t.Title, &t.Completed, &t.CreatedAt, &t.UpdatedAt, &t.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.NewStorageError(op, err)
	}
	return &t, nil
}
