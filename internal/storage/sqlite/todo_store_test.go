package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/todo/internal/domain"
)

func createTestTodo(t *testing.T, store *TodoStore, userID int64, title string, at time.Time) *domain.Todo {
	t.Helper()
	todo := &domain.Todo{Title: title, CreatedAt: at, UpdatedAt: at, UserID: userID}
	if err := store.CreateTodo(context.Background(), todo); err != nil {
		t.Fatalf("CreateTodo(%q) error = %v", title, err)
	}
	return todo
}

func TestTodoStore_CreateAndGet(t *testing.T) {
	db := openTestDB(t)
	user := createTestUser(t, NewUserStore(db), "alice")
	store := NewTodoStore(db)
	now := time.Now().UTC().Truncate(time.Microsecond)

	todo := createTestTodo(t, store, user.ID, "buy milk", now)
	if todo.ID == 0 {
		t.Fatal("CreateTodo() did not assign an ID")
	}

	got, err := store.GetTodo(context.Background(), user.ID, todo.ID)
	if err != nil {
		t.Fatalf("GetTodo() error = %v", err)
	}
	if got.Title != "buy milk" || got.Completed || got.UserID != user.ID {
		t.Errorf("GetTodo() = %+v", got)
	}
	if !got.CreatedAt.Equal(now) || !got.UpdatedAt.Equal(now) {
		t.Errorf("timestamps = %v/%v; want %v", got.CreatedAt, got.UpdatedAt, now)
	}
}

func TestTodoStore_ListOrderAndIsolation(t *testing.T) {
	db := openTestDB(t)
	users := NewUserStore(db)
	alice := createTestUser(t, users, "alice")
	bob := createTestUser(t, users, "bob")
	store := NewTodoStore(db)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Microsecond)
	first := createTestTodo(t, store, alice.ID, "first", base)
	second := createTestTodo(t, store, alice.ID, "second", base.Add(time.Second))
	tie := createTestTodo(t, store, alice.ID, "tie", base.Add(time.Second))
	createTestTodo(t, store, bob.ID, "bob's", base.Add(2*time.Second))

	todos, err := store.ListTodos(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ListTodos() error = %v", err)
	}
	want := []int64{tie.ID, second.ID, first.ID}
	if len(todos) != len(want) {
		t.Fatalf("ListTodos() returned %d todos; want %d", len(todos), len(want))
	}
	for i, id := range want {
		if todos[i].ID != id {
			t.Errorf("todos[%d].ID = %d; want %d", i, todos[i].ID, id)
		}
		if todos[i].UserID != alice.ID {
			t.Errorf("todos[%d] belongs to user %d", i, todos[i].UserID)
		}
	}
}

func TestTodoStore_ListEmpty(t *testing.T) {
	db := openTestDB(t)
	user := createTestUser(t, NewUserStore(db), "alice")

	todos, err := NewTodoStore(db).ListTodos(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("ListTodos() error = %v", err)
	}
	if todos == nil || len(todos) != 0 {
		t.Errorf("ListTodos() = %v; want empty non-nil slice", todos)
	}
}

func TestTodoStore_OwnershipFilter(t *testing.T) {
	db := openTestDB(t)
	users := NewUserStore(db)
	alice := createTestUser(t, users, "alice")
	bob := createTestUser(t, users, "bob")
	store := NewTodoStore(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	todo := createTestTodo(t, store, alice.ID, "private", now)

	if _, err := store.GetTodo(ctx, bob.ID, todo.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetTodo() by other user error = %v; want ErrNotFound", err)
	}

	if _, err := store.SetTodoCompleted(ctx, bob.ID, todo.ID, true, now); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("SetTodoCompleted() by other user error = %v; want ErrNotFound", err)
	}

	deleted, err := store.DeleteTodo(ctx, bob.ID, todo.ID)
	if err != nil {
		t.Fatalf("DeleteTodo() error = %v", err)
	}
	if deleted {
		t.Error("DeleteTodo() by other user should not delete")
	}

	got, err := store.GetTodo(ctx, alice.ID, todo.ID)
	if err != nil {
		t.Fatalf("GetTodo() error = %v", err)
	}
	if got.Completed {
		t.Error("todo should be unchanged by another user's toggle")
	}
}

func TestTodoStore_SetCompleted(t *testing.T) {
	db := openTestDB(t)
	user := createTestUser(t, NewUserStore(db), "alice")
	store := NewTodoStore(db)
	ctx := context.Background()
	created := time.Now().UTC().Truncate(time.Microsecond)
	todo := createTestTodo(t, store, user.ID, "task", created)

	later := created.Add(time.Minute)
	got, err := store.SetTodoCompleted(ctx, user.ID, todo.ID, true, later)
	if err != nil {
		t.Fatalf("SetTodoCompleted() error = %v", err)
	}
	if !got.Completed {
		t.Error("Completed = false; want true")
	}
	if !got.UpdatedAt.Equal(later) {
		t.Errorf("UpdatedAt = %v; want %v", got.UpdatedAt, later)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v; want %v", got.CreatedAt, created)
	}
	if got.Title != "task" {
		t.Errorf("Title = %q; want task", got.Title)
	}
}

func TestTodoStore_DeleteIdempotent(t *testing.T) {
	db := openTestDB(t)
	user := createTestUser(t, NewUserStore(db), "alice")
	store := NewTodoStore(db)
	ctx := context.Background()
	todo := createTestTodo(t, store, user.ID, "task", time.Now().UTC())

	for i, want := range []bool{true, false} {
		deleted, err := store.DeleteTodo(ctx, user.ID, todo.ID)
		if err != nil {
			t.Fatalf("DeleteTodo() #%d error = %v", i+1, err)
		}
		if deleted != want {
			t.Errorf("DeleteTodo() #%d = %v; want %v", i+1, deleted, want)
		}
	}
}
