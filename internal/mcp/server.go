package mcp

import (
	"context"
	"errors"
	"fmt"

	mcp "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/server"

	"github.com/felixgeelhaar/todo/internal/domain"
	"github.com/felixgeelhaar/todo/internal/todo"
)

// Authorizer resolves a session token to its user
type Authorizer interface {
	Authorize(ctx context.Context, token string) (*domain.User, error)
}

// Server exposes a user's todo list as MCP tools
type Server struct {
	mcpServer *server.Server
	gateway   Authorizer
	todos     *todo.Service
	token     string
}

// Config contains configuration for the MCP server
type Config struct {
	Gateway Authorizer
	Todos   *todo.Service

	// Token is the session every tool call acts as
	Token string

	Version string
}

// NewServer creates a new MCP server for the todo list
func NewServer(cfg Config) *Server {
	s := &Server{
		gateway: cfg.Gateway,
		todos:   cfg.Todos,
		token:   cfg.Token,
	}

	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	// Create MCP server
	s.mcpServer = server.New(server.Info{
		Name:    "todo",
		Version: version,
	}, server.WithInstructions(`
Todo manages the personal todo list of the logged-in user.

Available tools:
- todo_list: List todos, newest first
- todo_get: Show one todo
- todo_add: Add a todo
- todo_toggle: Mark a todo done or not done
- todo_delete: Delete a todo
- whoami: Show the logged-in user

Every call is authorized against the user's session; an expired
session fails with "authentication required".
`))

	// Register tools
	s.registerTools()

	return s
}

// registerTools registers all todo MCP tools
func (s *Server) registerTools() {
	s.mcpServer.Tool("todo_list").
		Description("List the user's todos, newest first.").
		Handler(s.handleList)

	s.mcpServer.Tool("todo_get").
		Description("Get a single todo by id.").
		Handler(s.handleGet)

	s.mcpServer.Tool("todo_add").
		Description("Add a todo with the given title.").
		Handler(s.handleAdd)

	s.mcpServer.Tool("todo_toggle").
		Description("Set whether a todo is completed.").
		Handler(s.handleToggle)

	s.mcpServer.Tool("todo_delete").
		Description("Delete a todo. Deleting a missing todo is not an error.").
		Handler(s.handleDelete)

	s.mcpServer.Tool("whoami").
		Description("Show the user the tools act as.").
		Handler(s.handleWhoami)
}

// Input/Output types for tools

type ListInput struct{}

type ListOutput struct {
	Todos []*domain.Todo `json:"todos"`
	Count int            `json:"count"`
}

type GetInput struct {
	ID int64 `json:"id" jsonschema:"description=Todo ID"`
}

type AddInput struct {
	Title string `json:"title" jsonschema:"description=What needs doing (1-500 characters)"`
}

type ToggleInput struct {
	ID        int64 `json:"id" jsonschema:"description=Todo ID"`
	Completed bool  `json:"completed" jsonschema:"description=New completion state"`
}

type DeleteInput struct {
	ID int64 `json:"id" jsonschema:"description=Todo ID"`
}

type TodoOutput struct {
	Todo *domain.Todo `json:"todo"`
}

type DeleteOutput struct {
	Deleted bool   `json:"deleted"`
	Message string `json:"message"`
}

type WhoamiInput struct{}

type WhoamiOutput struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Tool handlers

func (s *Server) handleList(ctx context.Context, _ ListInput) (ListOutput, error) {
	user, err := s.user(ctx)
	if err != nil {
		return ListOutput{}, err
	}

	todos, err := s.todos.List(ctx, user.ID)
	if err != nil {
		return ListOutput{}, toolError("list todos", err)
	}
	return ListOutput{Todos: todos, Count: len(todos)}, nil
}

func (s *Server) handleGet(ctx context.Context, input GetInput) (TodoOutput, error) {
	user, err := s.user(ctx)
	if err != nil {
		return TodoOutput{}, err
	}

	t, err := s.todos.Get(ctx, user.ID, input.ID)
	if err != nil {
		return TodoOutput{}, toolError("get todo", err)
	}
	return TodoOutput{Todo: t}, nil
}

func (s *Server) handleAdd(ctx context.Context, input AddInput) (TodoOutput, error) {
	user, err := s.user(ctx)
	if err != nil {
		return TodoOutput{}, err
	}

	t, err := s.todos.Create(ctx, user.ID, input.Title)
	if err != nil {
		return TodoOutput{}, toolError("add todo", err)
	}
	return TodoOutput{Todo: t}, nil
}

func (s *Server) handleToggle(ctx context.Context, input ToggleInput) (TodoOutput, error) {
	user, err := s.user(ctx)
	if err != nil {
		return TodoOutput{}, err
	}

	t, err := s.todos.UpdateCompletion(ctx, user.ID, input.ID, input.Completed)
	if err != nil {
		return TodoOutput{}, toolError("toggle todo", err)
	}
	return TodoOutput{Todo: t}, nil
}

func (s *Server) handleDelete(ctx context.Context, input DeleteInput) (DeleteOutput, error) {
	user, err := s.user(ctx)
	if err != nil {
		return DeleteOutput{}, err
	}

	deleted, err := s.todos.Delete(ctx, user.ID, input.ID)
	if err != nil {
		return DeleteOutput{}, toolError("delete todo", err)
	}

	msg := fmt.Sprintf("Todo %d deleted", input.ID)
	if !deleted {
		msg = fmt.Sprintf("Todo %d did not exist", input.ID)
	}
	return DeleteOutput{Deleted: deleted, Message: msg}, nil
}

func (s *Server) handleWhoami(ctx context.Context, _ WhoamiInput) (WhoamiOutput, error) {
	user, err := s.user(ctx)
	if err != nil {
		return WhoamiOutput{}, err
	}
	return WhoamiOutput{ID: user.ID, Username: user.Username, Email: user.Email}, nil
}

// user authorizes the configured session for one call
func (s *Server) user(ctx context.Context) (*domain.User, error) {
	user, err := s.gateway.Authorize(ctx, s.token)
	if err != nil {
		return nil, toolError("authorize", err)
	}
	return user, nil
}

// toolError turns a service error into a message the client can show.
// Storage details stay out of the message.
func toolError(op string, err error) error {
	var inputErr *domain.InputError
	switch {
	case errors.As(err, &inputErr):
		return fmt.Errorf("%s: %w", op, inputErr)
	case errors.Is(err, domain.ErrStorageUnavailable):
		return fmt.Errorf("%s: %w", op, domain.ErrStorageUnavailable)
	case errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("%s: todo %w", op, domain.ErrNotFound)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// ServeStdio starts the MCP server on stdio
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

// GetMCPServer returns the underlying MCP server (for testing)
func (s *Server) GetMCPServer() *server.Server {
	return s.mcpServer
}
