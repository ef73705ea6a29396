package api

import (
	"testing"
	"time"

	"github.com/smazurov/camnode/internal/logging"
)

func TestFilterLogs(t *testing.T) {
	now := time.Date(2025, 1, 27, 10, 30, 0, 0, time.UTC)
	entries := []logging.LogEntry{
		{Timestamp: now, Level: "debug", Module: "transcode", Message: "frame=1"},
		{Timestamp: now, Level: "info", Module: "relay", Message: "listener opened"},
		{Timestamp: now, Level: "warn", Module: "transcode", Message: "dropping frame"},
		{Timestamp: now, Level: "error", Module: "capture", Message: "no cameras available"},
	}

	tests := []struct {
		name   string
		module string
		level  string
		want   int
	}{
		{"no filter", "", "", 4},
		{"module", "transcode", "", 2},
		{"level", "", "warn", 2},
		{"module and level", "transcode", "info", 1},
		{"unknown module", "recording", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := filterLogs(entries, tt.module, tt.level); len(got) != tt.want {
				t.Errorf("got %d entries, want %d", len(got), tt.want)
			}
		})
	}
}

func TestLogEvent(t *testing.T) {
	entry := logging.LogEntry{
		Timestamp: time.Date(2025, 1, 27, 10, 30, 0, 0, time.UTC),
		Level:     "warn",
		Module:    "relay",
		Message:   "Process exited",
	}
	ev := LogEvent(entry)
	if ev.Timestamp != "2025-01-27T10:30:00Z" || ev.Module != "relay" || ev.Level != "warn" {
		t.Errorf("unexpected event %+v", ev)
	}
}
