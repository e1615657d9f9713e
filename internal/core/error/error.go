package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "not found"
	// SessionNotFoundMessage describes an unknown session id.
	SessionNotFoundMessage = "session not found"
	// ValidationMessage describes rejected user input.
	ValidationMessage = "validation failed"
)

// ErrSessionNotFound marks lookups of session ids that were never created or
// have expired.
var ErrSessionNotFound = errors.New("session not found")

// ErrLoopExceeded marks an agent run aborted because the model kept requesting
// tools past the configured cap. Distinct from provider errors so callers can
// tell a runaway loop from an unreachable backend.
var ErrLoopExceeded = errors.New("tool call limit exceeded")

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// Validation wraps a user-input error with a 400 status.
func Validation(err error) *AppError {
	return New(err, http.StatusBadRequest, ValidationMessage)
}

// LoopExceeded builds the error returned when an agent run hits the tool cap.
func LoopExceeded(max int) *AppError {
	return New(
		fmt.Errorf("%w: %d calls", ErrLoopExceeded, max),
		http.StatusUnprocessableEntity,
		"agent exceeded its tool call budget",
	)
}

// SessionNotFound builds the error returned for unknown session ids.
func SessionNotFound(id string) *AppError {
	return New(
		fmt.Errorf("%w: %s", ErrSessionNotFound, id),
		http.StatusNotFound,
		SessionNotFoundMessage,
	)
}

// StatusOf extracts the HTTP status from an error chain, falling back to 500.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// Is reports whether the target matches the underlying error or the AppError itself.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if errors.As(e.Err, target) {
		return true
	}
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return false
}
