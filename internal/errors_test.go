package internal

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestStorageError(t *testing.T) {
	originalErr := errors.New("permission denied")
	err := &StorageError{
		Path: "/test/state.db",
		Op:   "apply",
		Err:  originalErr,
	}

	errorMsg := err.Error()
	if !strings.Contains(errorMsg, "storage error") {
		t.Errorf("StorageError.Error() should contain 'storage error', got: %q", errorMsg)
	}
	if !strings.Contains(errorMsg, "/test/state.db") {
		t.Errorf("StorageError.Error() should contain path, got: %q", errorMsg)
	}
	if !strings.Contains(errorMsg, "apply") {
		t.Errorf("StorageError.Error() should contain op, got: %q", errorMsg)
	}

	if !errors.Is(err, originalErr) {
		t.Error("StorageError.Unwrap() should return original error")
	}
}

func TestAPIError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want string
	}{
		{
			name: "server detail",
			err:  &APIError{Method: "POST", URL: "http://x/api/auth/login", Status: 401, Detail: "Invalid credentials"},
			want: "Invalid credentials",
		},
		{
			name: "no detail falls back to status",
			err:  &APIError{Method: "POST", URL: "http://x/assistant-chat", Status: 500},
			want: "HTTP 500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Message(); got != tt.want {
				t.Errorf("Message() = %q, want %q", got, tt.want)
			}
			if !strings.Contains(tt.err.Error(), tt.want) {
				t.Errorf("Error() = %q, should contain %q", tt.err.Error(), tt.want)
			}
			if !strings.Contains(tt.err.Error(), tt.err.URL) {
				t.Errorf("Error() = %q, should contain URL", tt.err.Error())
			}
		})
	}
}

func TestAuthError(t *testing.T) {
	apiErr := &APIError{Status: 401, Detail: "Invalid credentials"}
	err := &AuthError{Op: "login", Status: 401, Message: "Invalid credentials", Err: apiErr}

	if err.Error() != "Invalid credentials" {
		t.Errorf("AuthError.Error() = %q, want the display message only", err.Error())
	}

	var target *APIError
	if !errors.As(err, &target) {
		t.Fatal("AuthError should unwrap to the APIError")
	}
	if target.Status != 401 {
		t.Errorf("unwrapped status = %d, want 401", target.Status)
	}
}

func TestExportError(t *testing.T) {
	originalErr := errors.New("disk full")
	err := &ExportError{Format: "md", Path: "Chat 1.md", Err: originalErr}

	errorMsg := err.Error()
	if !strings.Contains(errorMsg, "export error") {
		t.Errorf("ExportError.Error() should contain 'export error', got: %q", errorMsg)
	}
	if !strings.Contains(errorMsg, "md") {
		t.Errorf("ExportError.Error() should contain format, got: %q", errorMsg)
	}
	if !errors.Is(err, originalErr) {
		t.Error("ExportError.Unwrap() should return original error")
	}
}

func TestConfigError(t *testing.T) {
	originalErr := errors.New("bad value")

	withField := &ConfigError{Path: "/etc/libra.yaml", Field: "api.base_url", Err: originalErr}
	if !strings.Contains(withField.Error(), "api.base_url") {
		t.Errorf("ConfigError.Error() should contain field, got: %q", withField.Error())
	}

	noField := &ConfigError{Path: "/etc/libra.yaml", Err: originalErr}
	if !strings.Contains(noField.Error(), "/etc/libra.yaml") {
		t.Errorf("ConfigError.Error() should contain path, got: %q", noField.Error())
	}
	if strings.Contains(noField.Error(), "[") {
		t.Errorf("ConfigError.Error() without field should not render brackets, got: %q", noField.Error())
	}

	if !errors.Is(withField, originalErr) {
		t.Error("ConfigError.Unwrap() should return original error")
	}
}

func TestSentinelErrorsWrap(t *testing.T) {
	sentinels := []error{
		ErrRequestInFlight,
		ErrThreadNotFound,
		ErrNoActiveThread,
		ErrNoAssistantEndpoint,
		ErrNotAuthenticated,
		ErrAlreadyAuthenticated,
	}

	for _, sentinel := range sentinels {
		wrapped := fmt.Errorf("context: %w", sentinel)
		if !errors.Is(wrapped, sentinel) {
			t.Errorf("errors.Is(%v) failed after wrapping", sentinel)
		}
	}
}
