package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smazurov/camnode/internal/events"
	"github.com/smazurov/camnode/internal/logging"
	"github.com/smazurov/camnode/internal/metrics"
	"github.com/smazurov/camnode/internal/process"
)

// Defaults applied by NewSupervisor to zero-valued options.
const (
	DefaultSettleDelay  = 3 * time.Second
	DefaultReadyTimeout = 10 * time.Second
	DefaultRecordingDir = "./recordings"
	DefaultRecordingExt = ".mp4"

	// RecordingTimeFormat names recordings so they sort chronologically.
	RecordingTimeFormat = "2006-01-02_15_04_05"
)

// Pipeline names used for metrics.
const (
	pipelineStream    = "stream"
	pipelineRecording = "recording"
)

// StreamState is the state of the stream pipeline.
type StreamState string

// Stream pipeline states.
const (
	StreamStopped   StreamState = "stopped"
	StreamStarting  StreamState = "starting"
	StreamStreaming StreamState = "streaming"
)

// Options configures a Supervisor.
type Options struct {
	Capture   process.Recipe
	Relay     process.Recipe
	Transcode process.Recipe
	Recording process.Recipe

	// SettleDelay is the fixed wait between starting the relay and the
	// transcode stage. Ignored when RelayReadyAddr is set.
	SettleDelay time.Duration

	// RelayReadyAddr, when set, replaces the fixed delay with polling until
	// a TCP connection to this address succeeds or ReadyTimeout elapses.
	RelayReadyAddr string
	ReadyTimeout   time.Duration

	// GracePeriod is how long a stage may take to exit after the stop
	// signal before it is killed.
	GracePeriod time.Duration

	RecordingDir string
	RecordingExt string
	// RecordingSource is substituted for {source} in the recording recipe.
	RecordingSource string

	EventBus *events.Bus
	Logger   *slog.Logger
	// SlotLogger returns the logger for a slot's process output.
	// Defaults to the logging module named after the slot.
	SlotLogger func(SlotName) *slog.Logger
	// Now is the wall clock used for recording names.
	Now func() time.Time
}

// Supervisor runs the stream pipeline (capture, relay, transcode) and the
// independent recording pipeline. Each pipeline has its own lock, so the two
// never block each other while operations on one pipeline are serialized.
type Supervisor struct {
	opts   Options
	logger *slog.Logger
	bus    *events.Bus

	capture   *Slot
	relay     *Slot
	transcode *Slot
	recording *Slot

	streamMu    sync.Mutex
	streamState atomic.Value // StreamState

	recordMu      sync.Mutex
	recDest       string
	lastRecording string
	recInfo       atomic.Pointer[RecordingStatus]

	closed atomic.Bool
}

// NewSupervisor creates a supervisor with its four slots. Recipes are fixed
// for the supervisor's lifetime.
func NewSupervisor(opts Options) *Supervisor {
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = DefaultReadyTimeout
	}
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = process.DefaultGracePeriod
	}
	if opts.RecordingDir == "" {
		opts.RecordingDir = DefaultRecordingDir
	}
	if opts.RecordingExt == "" {
		opts.RecordingExt = DefaultRecordingExt
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logging.GetLogger("supervisor")
	}
	if opts.SlotLogger == nil {
		opts.SlotLogger = func(name SlotName) *slog.Logger {
			return logging.GetLogger(string(name))
		}
	}

	s := &Supervisor{
		opts:   opts,
		logger: opts.Logger,
		bus:    opts.EventBus,
	}
	s.capture = s.newSlot(SlotCapture, opts.Capture)
	s.relay = s.newSlot(SlotRelay, opts.Relay)
	s.transcode = s.newSlot(SlotTranscode, opts.Transcode)
	s.recording = s.newSlot(SlotRecording, opts.Recording)
	s.streamState.Store(StreamStopped)

	metrics.SetPipelineActive(pipelineStream, false)
	metrics.SetPipelineActive(pipelineRecording, false)
	return s
}

func (s *Supervisor) newSlot(name SlotName, recipe process.Recipe) *Slot {
	slot := NewSlot(name, recipe, s.opts.SlotLogger(name))
	slot.onExit = s.slotExited
	return slot
}

// streamSlots returns the stream slots in dependency order.
func (s *Supervisor) streamSlots() []*Slot {
	return []*Slot{s.capture, s.relay, s.transcode}
}

// StartStream starts capture, then relay, waits for the relay to settle, then
// starts transcode. Returns ErrAlreadyRunning if any stream slot is active.
// On failure every stage started by this call is stopped again before the
// error is returned.
func (s *Supervisor) StartStream(ctx context.Context) error {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()

	if s.closed.Load() {
		return ErrClosed
	}
	for _, slot := range s.streamSlots() {
		if slot.IsActive() {
			return ErrAlreadyRunning
		}
	}
	if err := ctx.Err(); err != nil {
		return &Error{Op: "start stream", Err: err}
	}

	s.setStreamState(StreamStarting, nil)
	s.logger.Info("Starting stream pipeline")

	var started []*Slot
	fail := func(slot SlotName, err error) error {
		s.logger.Error("Stream pipeline start failed, rolling back", "slot", slot, "error", err)
		s.stopSlots(started)
		metrics.StartFailed(pipelineStream)
		opErr := &Error{Op: "start stream", Slot: slot, Err: err}
		s.setStreamState(StreamStopped, opErr)
		return opErr
	}

	// Capture listens for the transcode stage's connection, so it goes first.
	for _, slot := range []*Slot{s.capture, s.relay} {
		if err := s.activate(slot, nil); err != nil {
			return fail(slot.Name(), err)
		}
		started = append(started, slot)
	}

	if err := s.settle(ctx); err != nil {
		return fail(SlotRelay, err)
	}
	for _, slot := range started {
		if !slot.IsActive() {
			return fail(slot.Name(), ErrStageExited)
		}
	}

	if err := s.activate(s.transcode, nil); err != nil {
		return fail(SlotTranscode, err)
	}

	s.setStreamState(StreamStreaming, nil)
	s.logger.Info("Stream pipeline started")
	return nil
}

// StopStream stops transcode, relay and capture, in that order, whatever
// their current state. It always leaves the pipeline stopped.
func (s *Supervisor) StopStream() {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()
	s.stopStreamLocked()
}

func (s *Supervisor) stopStreamLocked() {
	s.logger.Info("Stopping stream pipeline")
	s.stopSlots(s.streamSlots())
	s.setStreamState(StreamStopped, nil)
	s.logger.Info("Stream pipeline stopped")
}

// stopSlots deactivates slots in reverse order.
func (s *Supervisor) stopSlots(slots []*Slot) {
	for i := len(slots) - 1; i >= 0; i-- {
		slot := slots[i]
		if result, stopped := slot.Deactivate(s.opts.GracePeriod); stopped {
			s.logger.Info("Stage stopped", "slot", slot.Name(), "pid", result.PID,
				"exit_code", result.Code, "killed", result.Killed)
		}
	}
}

// StreamState returns the last stable or transient stream state. It may lag
// behind a stage that died on its own; Status reflects that immediately.
func (s *Supervisor) StreamState() StreamState {
	return s.streamState.Load().(StreamState)
}

// StartRecording starts the recording stage writing to a new file named after
// the current time and returns that file's path. It does not check that the
// stream pipeline is running; a recorder with nothing to read exits on its own
// and shows up as inactive in RecordingStatus.
func (s *Supervisor) StartRecording() (string, error) {
	s.recordMu.Lock()
	defer s.recordMu.Unlock()

	if s.closed.Load() {
		return "", ErrClosed
	}
	if s.recording.IsActive() {
		return "", ErrAlreadyRecording
	}

	dest, err := s.nextDestination()
	if err != nil {
		metrics.StartFailed(pipelineRecording)
		return "", &Error{Op: "start recording", Slot: SlotRecording, Err: err}
	}

	vars := map[string]string{
		"output": dest,
		"source": s.opts.RecordingSource,
	}
	if err := s.activate(s.recording, vars); err != nil {
		metrics.StartFailed(pipelineRecording)
		return "", &Error{Op: "start recording", Slot: SlotRecording, Err: err}
	}

	s.recDest = dest
	s.lastRecording = dest
	s.recInfo.Store(&RecordingStatus{Active: true, Destination: dest, StartedAt: s.opts.Now()})
	metrics.SetPipelineActive(pipelineRecording, true)
	s.bus.Publish(events.RecordingStateChangedEvent{
		Recording:   true,
		Destination: dest,
		Timestamp:   timestamp(),
	})
	s.logger.Info("Recording started", "destination", dest)
	return dest, nil
}

// StopRecording stops the recording stage with the graceful stop signal so
// the output file is finalized, and returns the finished file's path.
func (s *Supervisor) StopRecording() (string, error) {
	s.recordMu.Lock()
	defer s.recordMu.Unlock()
	return s.stopRecordingLocked()
}

func (s *Supervisor) stopRecordingLocked() (string, error) {
	dest := s.recDest
	if !s.recording.IsActive() {
		s.recDest = ""
		s.recInfo.Store(nil)
		return "", ErrNotRecording
	}

	result, _ := s.recording.Deactivate(s.opts.GracePeriod)
	s.recDest = ""
	s.recInfo.Store(nil)
	metrics.SetPipelineActive(pipelineRecording, false)
	s.bus.Publish(events.RecordingStateChangedEvent{
		Recording:   false,
		Destination: dest,
		Timestamp:   timestamp(),
	})
	s.logger.Info("Recording stopped", "destination", dest, "exit_code", result.Code, "killed", result.Killed)
	return dest, nil
}

// nextDestination builds a recording path from the wall clock. A numeric
// suffix is added if that path is taken. Caller holds recordMu.
func (s *Supervisor) nextDestination() (string, error) {
	dir := s.opts.RecordingDir
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRecordingDir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrRecordingDir, dir)
	}

	base := s.opts.Now().Format(RecordingTimeFormat)
	dest := filepath.Join(dir, base+s.opts.RecordingExt)
	for i := 1; s.destinationTaken(dest); i++ {
		dest = filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, i, s.opts.RecordingExt))
	}
	return dest, nil
}

func (s *Supervisor) destinationTaken(path string) bool {
	if path == s.lastRecording {
		return true
	}
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}

// Close stops both pipelines. Start operations fail with ErrClosed afterwards.
func (s *Supervisor) Close() {
	s.closed.Store(true)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.recordMu.Lock()
		defer s.recordMu.Unlock()
		_, _ = s.stopRecordingLocked()
	}()
	go func() {
		defer wg.Done()
		s.StopStream()
	}()
	wg.Wait()
	s.logger.Info("Supervisor closed")
}

// activate starts one slot and announces it.
func (s *Supervisor) activate(slot *Slot, vars map[string]string) error {
	h, err := slot.Activate(vars)
	if err != nil {
		return err
	}
	s.bus.Publish(events.SlotStartedEvent{
		Slot:      string(slot.Name()),
		PID:       h.PID(),
		Timestamp: timestamp(),
	})
	return nil
}

// slotExited runs on a handle's reaper goroutine and must not take the
// pipeline locks.
func (s *Supervisor) slotExited(name SlotName, result process.ExitResult) {
	s.bus.Publish(events.SlotExitedEvent{
		Slot:      string(name),
		PID:       result.PID,
		ExitCode:  result.Code,
		Killed:    result.Killed,
		Timestamp: timestamp(),
	})
}

func (s *Supervisor) setStreamState(state StreamState, cause error) {
	s.streamState.Store(state)
	metrics.SetPipelineActive(pipelineStream, state == StreamStreaming)

	ev := events.StreamStateChangedEvent{State: string(state), Timestamp: timestamp()}
	if cause != nil {
		ev.Error = cause.Error()
	}
	s.bus.Publish(ev)
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
