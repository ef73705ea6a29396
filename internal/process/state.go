package process

import (
	"errors"
	"time"
)

// State represents the lifecycle state of a Handle.
type State string

// Handle states.
const (
	StateNotStarted  State = "not_started" // Launch has not spawned the child yet
	StateRunning     State = "running"     // Child is alive
	StateTerminating State = "terminating" // Stop signal sent, waiting for exit
	StateExited      State = "exited"      // Child reaped
)

var (
	// ErrSpawn is wrapped by every error Launch returns.
	ErrSpawn = errors.New("spawn failed")

	// ErrTimedOut is returned by Wait when the timeout elapses first.
	ErrTimedOut = errors.New("timed out waiting for process exit")
)

// ExitResult describes how a child process ended.
type ExitResult struct {
	PID      int       `json:"pid"`
	Code     int       `json:"code"`
	Signaled bool      `json:"signaled"`
	Killed   bool      `json:"killed"` // escalated to SIGKILL by Terminate
	ExitedAt time.Time `json:"exited_at"`
	Err      error     `json:"-"`
}

// Success reports whether the child exited with status zero.
func (r ExitResult) Success() bool {
	return r.Code == 0 && !r.Signaled && r.Err == nil
}
