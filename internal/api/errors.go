package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrInvalidCredentials is returned by Login when the backend rejects the
	// email/password pair (HTTP 400).
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrLoginFailed is returned by Login for every other failure.
	ErrLoginFailed = errors.New("login failed, try again")
)

// Error is the normalized failure returned by every Client call.
type Error struct {
	Op      string // "GET users?page=2"
	Status  int    // zero when the request never produced a response
	Message string // human-readable summary
	Err     error  // underlying transport or decode error, if any
}

func (e *Error) Error() string {
	switch {
	case e.Status > 0 && e.Message != "":
		return fmt.Sprintf("api %s returned status %d: %s", e.Op, e.Status, e.Message)
	case e.Status > 0:
		return fmt.Sprintf("api %s returned status %d", e.Op, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("api %s: %s: %v", e.Op, e.Message, e.Err)
	default:
		return fmt.Sprintf("api %s: %s", e.Op, e.Message)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// StatusCode extracts the HTTP status from err, or zero.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Describe turns err into a short message suitable for a notification or
// an error panel.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrInvalidCredentials) {
		return ErrInvalidCredentials.Error()
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return err.Error()
	}
	if apiErr.Status > 0 {
		text := http.StatusText(apiErr.Status)
		if apiErr.Message != "" {
			text = apiErr.Message
		}
		return fmt.Sprintf("%s (HTTP %d)", text, apiErr.Status)
	}
	return classifyTransportError(apiErr.Err)
}

func classifyTransportError(err error) string {
	if err == nil {
		return "request failed"
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "API unreachable (connection refused)"
	case strings.Contains(msg, "no such host"):
		return "API host not found"
	case strings.Contains(msg, "Client.Timeout"), strings.Contains(msg, "deadline exceeded"), strings.Contains(msg, "timeout"):
		return "API request timed out"
	default:
		return "network error: " + msg
	}
}
