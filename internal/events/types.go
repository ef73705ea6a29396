package events

// Event type constants for kelindar/event.
const (
	TypeStreamStateChanged uint32 = iota + 1
	TypeRecordingStateChanged
	TypeSlotStarted
	TypeSlotExited
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// StreamStateChangedEvent is published on every stream pipeline transition.
type StreamStateChangedEvent struct {
	State     string `json:"state" example:"streaming" doc:"Pipeline state: stopped, starting, streaming"`
	Error     string `json:"error,omitempty" doc:"Failure that caused a rollback to stopped"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for StreamStateChangedEvent.
func (e StreamStateChangedEvent) Type() uint32 { return TypeStreamStateChanged }

// RecordingStateChangedEvent is published when a recording starts or stops.
type RecordingStateChangedEvent struct {
	Recording   bool   `json:"recording" example:"true" doc:"Whether a recording is in progress"`
	Destination string `json:"destination,omitempty" example:"recordings/2025-01-27_10_30_00.mp4" doc:"Recording output path"`
	Timestamp   string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for RecordingStateChangedEvent.
func (e RecordingStateChangedEvent) Type() uint32 { return TypeRecordingStateChanged }

// SlotStartedEvent is published after a stage process is spawned.
type SlotStartedEvent struct {
	Slot      string `json:"slot" example:"relay" doc:"Pipeline slot name"`
	PID       int    `json:"pid" example:"4242" doc:"OS process ID"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SlotStartedEvent.
func (e SlotStartedEvent) Type() uint32 { return TypeSlotStarted }

// SlotExitedEvent is published when a stage process has been reaped,
// whether it was stopped on request or died on its own.
type SlotExitedEvent struct {
	Slot      string `json:"slot" example:"transcode" doc:"Pipeline slot name"`
	PID       int    `json:"pid" example:"4242" doc:"OS process ID"`
	ExitCode  int    `json:"exit_code" example:"0" doc:"Exit code, 128+N for signal N"`
	Killed    bool   `json:"killed" doc:"Whether the process had to be force-killed"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SlotExitedEvent.
func (e SlotExitedEvent) Type() uint32 { return TypeSlotExited }

// LogEntryEvent carries one log record to SSE subscribers.
type LogEntryEvent struct {
	Timestamp  string         `json:"timestamp"`
	Level      string         `json:"level"`
	Module     string         `json:"module"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
