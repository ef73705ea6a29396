package pipeline

import (
	"errors"
	"fmt"
)

// Guard outcomes. These are defined no-op statuses rather than failures;
// the API layer maps each to its status string.
var (
	ErrAlreadyRunning   = errors.New("stream pipeline already running")
	ErrAlreadyRecording = errors.New("recording already in progress")
	ErrNotRecording     = errors.New("no recording in progress")
	ErrAlreadyActive    = errors.New("slot already active")
)

var (
	// ErrStageExited means a stage died while later stages were being started.
	ErrStageExited = errors.New("stage exited during start")

	// ErrRecordingDir means the recording directory is missing or not a directory.
	ErrRecordingDir = errors.New("recording directory unavailable")

	// ErrClosed is returned by start operations after Close.
	ErrClosed = errors.New("supervisor closed")
)

// Error reports a failed supervisor operation and the slot that caused it.
type Error struct {
	Op   string
	Slot SlotName
	Err  error
}

func (e *Error) Error() string {
	if e.Slot != "" {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Slot, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
