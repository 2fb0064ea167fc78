package generation

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusValidating Status = "validating"
	StatusRunning    Status = "running"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true if the status is a terminal state.
func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Snapshot is a consistent view of a session at one instant. Result is set
// only when Succeeded and Error only when Failed.
type Snapshot struct {
	SessionID uuid.UUID `json:"session_id"`
	Kind      Kind      `json:"kind"`
	Status    Status    `json:"status"`
	Progress  int       `json:"progress"`
	Prompt    string    `json:"prompt,omitempty"`
	Result    *Result   `json:"result,omitempty"`
	Error     *Error    `json:"error,omitempty"`
	// Execution counts accepted submissions; it identifies the run a snapshot belongs to.
	Execution uint64    `json:"execution"`
	Version   uint64    `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}
