package handlers

import (
	"net/http"
	"strconv"

	"github.com/felixgeelhaar/todo/internal/domain"
	"github.com/felixgeelhaar/todo/internal/gateway"
	"github.com/felixgeelhaar/todo/internal/todo"
)

// TodoHandler handles todo endpoints. Every route runs behind the auth
// gateway, which puts the caller into the request context.
type TodoHandler struct {
	todos *todo.Service
}

// NewTodoHandler creates a new todo handler
func NewTodoHandler(todos *todo.Service) *TodoHandler {
	return &TodoHandler{todos: todos}
}

// CreateTodoRequest is the request body for adding a todo
type CreateTodoRequest struct {
	Title string `json:"title"`
}

// ToggleTodoRequest is the request body for changing completion
type ToggleTodoRequest struct {
	Completed *bool `json:"completed"`
}

// List returns the caller's todos
func (h *TodoHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	todos, err := h.todos.List(r.Context(), user.ID)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"todos": todos})
}

// Create adds a todo
func (h *TodoHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req CreateTodoRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	created, err := h.todos.Create(r.Context(), user.ID, req.Title)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{"todo": created})
}

// Get returns one todo
func (h *TodoHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := todoID(w, r)
	if !ok {
		return
	}

	found, err := h.todos.Get(r.Context(), user.ID, id)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"todo": found})
}

// Toggle sets the completion flag
func (h *TodoHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := todoID(w, r)
	if !ok {
		return
	}

	var req ToggleTodoRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Completed == nil {
		BadRequest(w, r, "completed is required")
		return
	}

	updated, err := h.todos.UpdateCompletion(r.Context(), user.ID, id, *req.Completed)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"todo": updated})
}

// Delete removes a todo. Missing todos report deleted=false.
func (h *TodoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := todoID(w, r)
	if !ok {
		return
	}

	deleted, err := h.todos.Delete(r.Context(), user.ID, id)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

func currentUser(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	user, ok := gateway.UserFromContext(r.Context())
	if !ok {
		WriteDomainError(w, r, domain.ErrUnauthenticated)
	}
	return user, ok
}

func todoID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		BadRequest(w, r, "invalid todo id")
		return 0, false
	}
	return id, true
}
