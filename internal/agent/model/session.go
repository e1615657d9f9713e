package model

import (
	"context"
	"time"
)

// SessionState is the control state of one user session.
type SessionState string

const (
	// StateRunning means a query is being processed by the agent loop.
	StateRunning SessionState = "running"
	// StateAwaitingApproval means the loop converged and the session is paused
	// until a human approves the final side-effecting step.
	StateAwaitingApproval SessionState = "awaiting_approval"
	// StateTerminated means the approval step completed.
	StateTerminated SessionState = "terminated"
)

// ParseSessionState maps a stored value back onto the closed state set.
func ParseSessionState(v string) (SessionState, bool) {
	switch SessionState(v) {
	case StateRunning, StateAwaitingApproval, StateTerminated:
		return SessionState(v), true
	}
	return "", false
}

// Session identifies one user's ongoing interaction.
type Session struct {
	ID        string       `json:"id"`
	State     SessionState `json:"state"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// SessionRepository stores session control state. Implementations must be
// safe for concurrent use across distinct session ids.
type SessionRepository interface {
	// Create allocates a new session in StateRunning and returns it.
	Create(ctx context.Context) (*Session, error)

	// Get loads a session. Unknown ids yield errx.ErrSessionNotFound.
	Get(ctx context.Context, id string) (*Session, error)

	// SetState transitions the session control state.
	SetState(ctx context.Context, id string, state SessionState) error

	// TryApprove atomically consumes the one-shot approval for a session.
	// It returns true for the first caller and false for every later one,
	// which is what makes double-submitting the email step safe.
	TryApprove(ctx context.Context, id string) (bool, error)

	// ReleaseApproval returns the approval so a failed delivery can be retried.
	ReleaseApproval(ctx context.Context, id string) error
}
