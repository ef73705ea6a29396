package pipeline

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/smazurov/camnode/internal/metrics"
	"github.com/smazurov/camnode/internal/process"
)

// SlotName identifies a pipeline stage.
type SlotName string

// Pipeline slots.
const (
	SlotCapture   SlotName = "capture"
	SlotRelay     SlotName = "relay"
	SlotTranscode SlotName = "transcode"
	SlotRecording SlotName = "recording"
)

// SlotStatus is a point-in-time view of one slot.
type SlotStatus struct {
	Name      SlotName            `json:"name"`
	Active    bool                `json:"active"`
	PID       int                 `json:"pid,omitempty"`
	StartedAt time.Time           `json:"started_at,omitzero"`
	Command   string              `json:"command"`
	LastExit  *process.ExitResult `json:"last_exit,omitempty"`
}

// Slot holds at most one process for a stage, launched from a fixed recipe.
type Slot struct {
	name   SlotName
	recipe process.Recipe
	logger *slog.Logger
	onExit func(SlotName, process.ExitResult)

	mu       sync.Mutex
	handle   *process.Handle
	lastExit *process.ExitResult
}

// NewSlot creates a slot. The recipe is copied and never changes afterwards.
func NewSlot(name SlotName, recipe process.Recipe, logger *slog.Logger) *Slot {
	if recipe.Name == "" {
		recipe.Name = string(name)
	}
	return &Slot{
		name:   name,
		recipe: recipe.Expand(nil),
		logger: logger,
	}
}

// Name returns the slot name.
func (s *Slot) Name() SlotName {
	return s.name
}

// Recipe returns a copy of the slot's launch recipe.
func (s *Slot) Recipe() process.Recipe {
	return s.recipe.Expand(nil)
}

// Activate launches the recipe with vars substituted into its arguments.
// Returns ErrAlreadyActive while a live process occupies the slot.
func (s *Slot) Activate(vars map[string]string) (*process.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle != nil {
		if s.handle.IsAlive() {
			return nil, ErrAlreadyActive
		}
		s.clearLocked()
	}

	h, err := process.Launch(s.recipe.Expand(vars),
		process.WithLogger(s.logger),
		process.WithLogParser(s.logParser()),
		process.WithOnStart(s.handleStart),
		process.WithOnExit(s.handleExit),
	)
	if err != nil {
		return nil, err
	}

	s.handle = h
	return h, nil
}

// Deactivate terminates the slot's process, if any, and clears the slot.
// Reports whether a process was present.
func (s *Slot) Deactivate(grace time.Duration) (process.ExitResult, bool) {
	s.mu.Lock()
	h := s.handle
	s.mu.Unlock()

	if h == nil {
		return process.ExitResult{}, false
	}

	// The handle stays visible while it terminates so status never reports a
	// stage as stopped before its process is actually gone.
	result := h.Terminate(grace)

	s.mu.Lock()
	if s.handle == h {
		s.clearLocked()
	}
	s.mu.Unlock()

	return result, true
}

// IsActive reports whether a live process occupies the slot. A process that
// exited on its own is cleared here.
func (s *Slot) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isActiveLocked()
}

func (s *Slot) isActiveLocked() bool {
	if s.handle == nil {
		return false
	}
	if !s.handle.IsAlive() {
		s.clearLocked()
		return false
	}
	return true
}

// Snapshot returns the slot's current status.
func (s *Slot) Snapshot() SlotStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := SlotStatus{
		Name:    s.name,
		Active:  s.isActiveLocked(),
		Command: s.recipe.String(),
	}
	if h := s.handle; status.Active && h != nil {
		status.PID = h.PID()
		status.StartedAt = h.StartedAt()
	}
	if s.lastExit != nil {
		last := *s.lastExit
		status.LastExit = &last
	}
	return status
}

// clearLocked drops the handle, keeping its exit result. Caller holds s.mu.
func (s *Slot) clearLocked() {
	if result, exited := s.handle.Result(); exited {
		s.lastExit = &result
	}
	s.handle = nil
}

// handleStart runs before the handle's reaper starts, so the exit metrics
// always land after the start metrics.
func (s *Slot) handleStart(int) {
	metrics.SlotStarted(string(s.name))
}

// handleExit runs on the reaper goroutine of each handle.
func (s *Slot) handleExit(result process.ExitResult) {
	metrics.SlotExited(string(s.name), result.Code, result.Killed)
	if s.onExit != nil {
		s.onExit(s.name, result)
	}
}

// logParser maps ffmpeg output to log levels and feeds its progress
// lines into metrics. Other programs log everything at info.
func (s *Slot) logParser() process.LogParser {
	if filepath.Base(s.recipe.Program) != "ffmpeg" {
		return nil
	}
	slot := string(s.name)
	return func(line string) (string, string) {
		if stats, ok := metrics.ParseFFmpegStats(line); ok {
			metrics.SetFFmpegStats(slot, stats)
			return "debug", line
		}
		return process.ParseFFmpegLogLevel(line)
	}
}
