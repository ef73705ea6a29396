package models

import (
	"time"

	"github.com/smazurov/camnode/internal/logging"
	"github.com/smazurov/camnode/internal/pipeline"
)

// Status strings of the control routes. The control panel and existing
// clients compare against these literally.
const (
	StatusStarted          = "started"
	StatusAlreadyRunning   = "already running"
	StatusStopped          = "stopped"
	StatusRecordingStarted = "recording started"
	StatusAlreadyRecording = "already recording"
	StatusRecordingStopped = "recording stopped"
	StatusNoRecording      = "no recording in progress"
	StatusErrorPrefix      = "error: "
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"dev" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit SHA"`
	BuildDate string `json:"build_date" example:"2025-01-27 10:30" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"a1b2c3d4" doc:"Unique build identifier"`
	GoVersion string `json:"go_version" example:"go1.24.0" doc:"Go compiler version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Compiler used"`
	Platform  string `json:"platform" example:"linux/arm64" doc:"Platform"`
}

type VersionResponse struct {
	Body VersionData
}

// CommandData is the body of every control route.
type CommandData struct {
	Status   string `json:"status" example:"started" doc:"Outcome: a fixed status string, or 'error: ' followed by the cause"`
	Filename string `json:"filename,omitempty" example:"recordings/2025-01-27_10_30_00.mp4" doc:"Recording destination, set by start_recording on success"`
}

type CommandResponse struct {
	Body CommandData
}

// PipelineStatusData reports which stages currently have a live process.
type PipelineStatusData struct {
	CameraRunning     bool `json:"camera_running" example:"true" doc:"Capture stage is running"`
	RTSPServerRunning bool `json:"rtsp_server_running" example:"true" doc:"Relay server is running"`
	FFmpegRunning     bool `json:"ffmpeg_running" example:"true" doc:"Transcode stage is running"`
	Recording         bool `json:"recording" example:"false" doc:"Recording stage is running"`
}

type PipelineStatusResponse struct {
	Body PipelineStatusData
}

// SlotsData lists every slot with process details.
type SlotsData struct {
	Slots     []pipeline.SlotStatus    `json:"slots" doc:"Per-stage process details"`
	Recording pipeline.RecordingStatus `json:"recording" doc:"Current recording, if any"`
}

type SlotsResponse struct {
	Body SlotsData
}

// LogsRequest selects buffered log entries.
type LogsRequest struct {
	Limit  int    `query:"limit" minimum:"0" maximum:"1000" default:"200" doc:"Maximum number of entries, newest last"`
	Module string `query:"module" example:"transcode" doc:"Only entries from this module"`
	Level  string `query:"level" enum:"debug,info,warn,error" doc:"Minimum level"`
}

type LogsData struct {
	Entries []logging.LogEntry `json:"entries" doc:"Buffered log entries, oldest first"`
	Count   int                `json:"count" example:"42" doc:"Number of entries returned"`
	Since   time.Time          `json:"since,omitzero" doc:"Timestamp of the oldest returned entry"`
}

type LogsResponse struct {
	Body LogsData
}

// LEDRequest sets one LED.
type LEDRequest struct {
	Body struct {
		Type    string  `json:"type" example:"act" doc:"LED type (board-specific: act, pwr, user, ...)"`
		Enabled bool    `json:"enabled" example:"true" doc:"Whether the LED should be on"`
		Pattern *string `json:"pattern,omitempty" example:"solid" doc:"Optional pattern (solid, blink, heartbeat)"`
	}
}

type LEDCapabilitiesData struct {
	AvailableTypes    []string `json:"available_types" doc:"LED types available on this board"`
	AvailablePatterns []string `json:"available_patterns" doc:"LED patterns available on this board"`
}

type LEDCapabilitiesResponse struct {
	Body LEDCapabilitiesData
}
