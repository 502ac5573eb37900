package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type names a domain event. It is also the AMQP routing key.
type Type string

const (
	UserRegistered Type = "user.registered"
	SessionCreated Type = "session.created"
	SessionRevoked Type = "session.revoked"
	TodoCreated    Type = "todo.created"
	TodoUpdated    Type = "todo.updated"
	TodoDeleted    Type = "todo.deleted"
)

// Event is a fact about something that already happened in storage.
// It never carries passwords, hashes or session tokens.
type Event struct {
	ID         uuid.UUID      `json:"id"`
	Type       Type           `json:"type"`
	UserID     int64          `json:"user_id"`
	TodoID     int64          `json:"todo_id,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// New creates an event for userID
func New(t Type, userID int64) Event {
	return Event{
		ID:         uuid.New(),
		Type:       t,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
	}
}

// ForTodo creates a todo event
func ForTodo(t Type, userID, todoID int64, data map[string]any) Event {
	evt := New(t, userID)
	evt.TodoID = todoID
	evt.Data = data
	return evt
}

// Publisher delivers events to interested parties
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Emit publishes evt and logs delivery failures. The write the event
// describes has already happened, so failures are not returned.
func Emit(ctx context.Context, p Publisher, evt Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, evt); err != nil {
		slog.Warn("failed to publish event",
			"type", evt.Type,
			"event_id", evt.ID,
			"user_id", evt.UserID,
			"error", err,
		)
	}
}

// NopPublisher discards events
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, evt Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

// Events returns a copy of everything recorded so far
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the recorded event types in publish order
func (r *Recorder) Types() []Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]Type, 0, len(r.events))
	for _, evt := range r.events {
		types = append(types, evt.Type)
	}
	return types
}

var (
	_ Publisher = NopPublisher{}
	_ Publisher = (*Recorder)(nil)
)
