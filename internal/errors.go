package internal

import (
	"errors"
	"fmt"
)

var (
	// ErrRequestInFlight is returned when the same action is already waiting on the backend.
	ErrRequestInFlight = errors.New("request already in flight")
	// ErrThreadNotFound is returned for an unknown chat thread id.
	ErrThreadNotFound = errors.New("chat thread not found")
	// ErrNoActiveThread is returned when no chat thread is selected.
	ErrNoActiveThread = errors.New("no active chat thread")
	// ErrNoAssistantEndpoint is returned when every assistant URL answered 404.
	ErrNoAssistantEndpoint = errors.New("connection error: no assistant endpoint available")
	// ErrNotAuthenticated is returned by RequireAuthed for guests.
	ErrNotAuthenticated = errors.New("not logged in")
	// ErrAlreadyAuthenticated is returned by RequireGuest when a session exists.
	ErrAlreadyAuthenticated = errors.New("already logged in")
)

// StorageError represents errors accessing durable storage
type StorageError struct {
	Path string
	Op   string // "open", "get", "apply", "close"
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// APIError represents a non-2xx answer from the backend
type APIError struct {
	Method string
	URL    string
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: %s %s: %s", e.Method, e.URL, e.Message())
}

// Message returns the server-supplied detail, or "HTTP <status>" without one
func (e *APIError) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("HTTP %d", e.Status)
}

// AuthError is what login and register surface to the caller for display.
type AuthError struct {
	Op      string // "login", "register"
	Status  int
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// ExportError represents errors during export
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// ConfigError represents an invalid or unreadable configuration
type ConfigError struct {
	Path  string
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error [%s] %s: %v", e.Field, e.Path, e.Err)
	}
	return fmt.Sprintf("config error %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
