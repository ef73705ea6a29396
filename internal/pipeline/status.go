package pipeline

import "time"

// StreamStatus reports which stream stages have a live process.
type StreamStatus struct {
	Capture   bool `json:"capture"`
	Relay     bool `json:"relay"`
	Transcode bool `json:"transcode"`
}

// Running reports whether every stream stage is live.
func (s StreamStatus) Running() bool {
	return s.Capture && s.Relay && s.Transcode
}

// RecordingStatus reports the recording pipeline.
type RecordingStatus struct {
	Active      bool      `json:"active"`
	Destination string    `json:"destination,omitempty"`
	StartedAt   time.Time `json:"started_at,omitzero"`
}

// Status returns the liveness of each stream stage. It does not take the
// stream lock, so it answers immediately even while a start is settling.
func (s *Supervisor) Status() StreamStatus {
	return StreamStatus{
		Capture:   s.capture.IsActive(),
		Relay:     s.relay.IsActive(),
		Transcode: s.transcode.IsActive(),
	}
}

// Slots returns a snapshot of all four slots.
func (s *Supervisor) Slots() []SlotStatus {
	return []SlotStatus{
		s.capture.Snapshot(),
		s.relay.Snapshot(),
		s.transcode.Snapshot(),
		s.recording.Snapshot(),
	}
}

// RecordingStatus reports whether a recording process is live. A recorder
// that exited on its own reports inactive with no destination.
func (s *Supervisor) RecordingStatus() RecordingStatus {
	if !s.recording.IsActive() {
		return RecordingStatus{}
	}
	if info := s.recInfo.Load(); info != nil {
		return *info
	}
	return RecordingStatus{Active: true}
}
