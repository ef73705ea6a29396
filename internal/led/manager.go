package led

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/smazurov/camnode/internal/events"
	"github.com/smazurov/camnode/internal/pipeline"
)

// DefaultIndicator is the LED used for pipeline state when none is configured.
const DefaultIndicator = "act"

// Manager shows pipeline state on one LED:
//
//	stopped   off
//	starting  blink
//	streaming solid
//	recording heartbeat, regardless of the stream
type Manager struct {
	controller Controller
	eventBus   *events.Bus
	ledType    string
	logger     *slog.Logger

	mu          sync.Mutex
	streamState pipeline.StreamState
	recording   bool
	unsubscribe []func()
}

// NewManager creates a manager driving ledType. An empty ledType picks
// DefaultIndicator if the board has it, else its first LED.
func NewManager(controller Controller, eventBus *events.Bus, ledType string, logger *slog.Logger) *Manager {
	if ledType == "" {
		ledType = DefaultIndicator
		if available := controller.Available(); len(available) > 0 && !slices.Contains(available, ledType) {
			ledType = available[0]
		}
	}
	return &Manager{
		controller:  controller,
		eventBus:    eventBus,
		ledType:     ledType,
		logger:      logger,
		streamState: pipeline.StreamStopped,
	}
}

// Start subscribes to pipeline events and turns the indicator off.
func (m *Manager) Start() {
	m.mu.Lock()
	m.unsubscribe = []func(){
		m.eventBus.Subscribe(m.handleStream),
		m.eventBus.Subscribe(m.handleRecording),
	}
	m.applyLocked()
	m.mu.Unlock()
	m.logger.Info("LED manager started", "led", m.ledType)
}

// Stop unsubscribes and turns the indicator off.
func (m *Manager) Stop() {
	m.mu.Lock()
	unsubscribe := m.unsubscribe
	m.unsubscribe = nil
	m.mu.Unlock()
	for _, unsub := range unsubscribe {
		unsub()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.controller.Set(m.ledType, false, ""); err != nil {
		m.logger.Debug("Failed to turn LED off", "led", m.ledType, "error", err)
	}
	m.logger.Info("LED manager stopped")
}

// Controller returns the underlying controller for direct API access.
func (m *Manager) Controller() Controller {
	return m.controller
}

func (m *Manager) handleStream(e events.StreamStateChangedEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamState = pipeline.StreamState(e.State)
	m.applyLocked()
}

func (m *Manager) handleRecording(e events.RecordingStateChangedEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recording = e.Recording
	m.applyLocked()
}

func (m *Manager) applyLocked() {
	enabled, pattern := true, PatternSolid
	switch {
	case m.recording:
		pattern = PatternHeartbeat
	case m.streamState == pipeline.StreamStreaming:
	case m.streamState == pipeline.StreamStarting:
		pattern = PatternBlink
	default:
		enabled, pattern = false, ""
	}

	if err := m.controller.Set(m.ledType, enabled, pattern); err != nil {
		m.logger.Warn("Failed to set LED", "led", m.ledType, "pattern", pattern, "error", err)
		return
	}
	m.logger.Debug("LED updated", "led", m.ledType, "enabled", enabled, "pattern", pattern,
		"stream_state", m.streamState, "recording", m.recording)
}
