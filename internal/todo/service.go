// Package todo implements the per-user task list.
package todo

import (
	"context"
	"time"

	"github.com/felixgeelhaar/todo/internal/domain"
	"github.com/felixgeelhaar/todo/internal/events"
)

// Options configures a Service.
type Options struct {
	Events events.Publisher
	Now    func() time.Time
}

// Service manages todos. Every operation is scoped to the owning user.
type Service struct {
	todos  domain.TodoRepository
	events events.Publisher
	now    func() time.Time
}

// NewService creates a new todo service
func NewService(todos domain.TodoRepository, opts Options) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		todos:  todos,
		events: opts.Events,
		now:    now,
	}
}

// List returns the user's todos, newest first.
func (s *Service) List(ctx context.Context, userID int64) ([]*domain.Todo, error) {
	return s.todos.ListTodos(ctx, userID)
}

// Get returns a todo owned by userID or domain.ErrNotFound.
func (s *Service) Get(ctx context.Context, userID, todoID int64) (*domain.Todo, error) {
	return s.todos.GetTodo(ctx, userID, todoID)
}

// Create adds a todo with the trimmed title.
func (s *Service) Create(ctx context.Context, userID int64, title string) (*domain.Todo, error) {
	title, err := domain.NormalizeTitle(title)
	if err != nil {
		return nil, err
	}

	now := s.timestamp()
	todo := &domain.Todo{
		Title:     title,
		Completed: false,
		CreatedAt: now,
		UpdatedAt: now,
		UserID:    userID,
	}
	if err := s.todos.CreateTodo(ctx, todo); err != nil {
		return nil, err
	}

	events.Emit(ctx, s.events, events.ForTodo(events.TodoCreated, userID, todo.ID, map[string]any{
		"title": todo.Title,
	}))
	return todo, nil
}

// UpdateCompletion sets the completion flag. Todos of other users are
// reported as domain.ErrNotFound and left untouched.
func (s *Service) UpdateCompletion(ctx context.Context, userID, todoID int64, completed bool) (*domain.Todo, error) {
	todo, err := s.todos.SetTodoCompleted(ctx, userID, todoID, completed, s.timestamp())
	if err != nil {
		return nil, err
	}

	events.Emit(ctx, s.events, events.ForTodo(events.TodoUpdated, userID, todo.ID, map[string]any{
		"completed": todo.Completed,
	}))
	return todo, nil
}

// Delete removes a todo and reports whether it existed. Deleting a missing
// or foreign todo is not an error.
func (s *Service) Delete(ctx context.Context, userID, todoID int64) (bool, error) {
	deleted, err := s.todos.DeleteTodo(ctx, userID, todoID)
	if err != nil {
		return false, err
	}
	if deleted {
		events.Emit(ctx, s.events, events.ForTodo(events.TodoDeleted, userID, todoID, nil))
	}
	return deleted, nil
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}
