package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/felixgeelhaar/todo/internal/api/middleware"
	"github.com/felixgeelhaar/todo/internal/domain"
)

// APIError represents a structured API error
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.cause
}

// NewAPIError creates a new API error
func NewAPIError(code string, message string) *APIError {
	return &APIError{Code: code, Message: message}
}

// WithDetails adds details to the error
func (e *APIError) WithDetails(details any) *APIError {
	e.Details = details
	return e
}

// WithCause wraps an underlying error
func (e *APIError) WithCause(err error) *APIError {
	e.cause = err
	return e
}

// ErrorResponse is the JSON structure for error responses
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, r *http.Request, statusCode int, apiErr *APIError) {
	logAttrs := []any{
		"code", apiErr.Code,
		"message", apiErr.Message,
		"status", statusCode,
		"method", r.Method,
		"path", r.URL.Path,
	}

	if apiErr.cause != nil {
		logAttrs = append(logAttrs, "cause", apiErr.cause.Error())
	}

	if requestID := middleware.GetRequestID(r.Context()); requestID != "" {
		logAttrs = append(logAttrs, "request_id", requestID)
	}

	// Log at appropriate level based on status code
	if statusCode >= 500 {
		slog.Error("api error", logAttrs...)
	} else if statusCode >= 400 {
		slog.Warn("api error", logAttrs...)
	}

	WriteJSON(w, statusCode, ErrorResponse{Error: apiErr})
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// WriteDomainError maps a service error to its HTTP status. Server-side
// failures get a generic message; the cause is only logged.
func WriteDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		apiErr := NewAPIError("INVALID_INPUT", err.Error())
		var inputErr *domain.InputError
		if errors.As(err, &inputErr) {
			apiErr.WithDetails(map[string]string{"field": inputErr.Field})
		}
		WriteError(w, r, http.StatusBadRequest, apiErr)
	case errors.Is(err, domain.ErrDuplicateIdentity):
		WriteError(w, r, http.StatusConflict, NewAPIError("DUPLICATE_IDENTITY", "username or email already exists"))
	case errors.Is(err, domain.ErrInvalidCredentials):
		WriteError(w, r, http.StatusUnauthorized, NewAPIError("INVALID_CREDENTIALS", "invalid username or password"))
	case errors.Is(err, domain.ErrUnauthenticated):
		WriteError(w, r, http.StatusUnauthorized, NewAPIError("UNAUTHENTICATED", "authentication required"))
	case errors.Is(err, domain.ErrNotFound):
		WriteError(w, r, http.StatusNotFound, NewAPIError("NOT_FOUND", "todo not found"))
	case errors.Is(err, domain.ErrStorageUnavailable):
		WriteError(w, r, http.StatusServiceUnavailable,
			NewAPIError("STORAGE_UNAVAILABLE", "service temporarily unavailable, please try again").WithCause(err))
	default:
		InternalError(w, r, err)
	}
}

// maxBodyBytes bounds JSON request bodies
const maxBodyBytes = 16 << 10

// decodeJSON reads a JSON body of at most maxBodyBytes into v. On failure it
// writes 413 or 400 and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, r, http.StatusRequestEntityTooLarge,
				NewAPIError("REQUEST_TOO_LARGE", "request body too large"))
			return false
		}
		BadRequest(w, r, "invalid request body")
		return false
	}
	return true
}

// BadRequest writes a 400 response
func BadRequest(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusBadRequest, NewAPIError("BAD_REQUEST", message))
}

// InternalError writes a generic 500 response and logs the cause
func InternalError(w http.ResponseWriter, r *http.Request, cause error) {
	WriteError(w, r, http.StatusInternalServerError,
		NewAPIError("INTERNAL_ERROR", "an unexpected error occurred, please try again").WithCause(cause))
}
