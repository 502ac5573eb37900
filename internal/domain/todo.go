package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MaxTitleLength bounds the title of a todo, in characters.
const MaxTitleLength = 500

// Todo is a task owned by exactly one user
type Todo struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    int64     `json:"user_id"`
}

// NormalizeTitle trims surrounding whitespace and validates the result.
func NormalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", &InputError{Field: "title", Reason: "must not be empty"}
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", &InputError{Field: "title", Reason: "must be at most 500 characters"}
	}
	return title, nil
}
