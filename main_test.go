package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		value   string
		want    time.Duration
		wantErr bool
	}{
		{"", 0, false},
		{"3s", 3 * time.Second, false},
		{"250ms", 250 * time.Millisecond, false},
		{"three", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := parseDuration("pipeline.settle_delay", tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoggingConfigMergesFileAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "[logging]\nlevel = \"warn\"\ntranscode = \"error\"\nrelay = \"debug\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	opts := &Options{Config: path, LoggingLevel: "info", LoggingFormat: "text", LoggingRelay: "warn"}
	cfg := opts.loggingConfig()

	if cfg.Level != "info" {
		t.Errorf("expected resolved global level, got %q", cfg.Level)
	}
	if cfg.Modules["transcode"] != "error" {
		t.Errorf("expected file module level, got %q", cfg.Modules["transcode"])
	}
	if cfg.Modules["relay"] != "warn" {
		t.Errorf("expected flag to override file, got %q", cfg.Modules["relay"])
	}
	if _, ok := cfg.Modules["capture"]; ok {
		t.Error("unset flag must not add a module level")
	}
}

func TestSupervisorOptions(t *testing.T) {
	opts := &Options{
		Config:          filepath.Join(t.TempDir(), "missing.toml"),
		SettleDelay:     "1s",
		ReadyTimeout:    "",
		GracePeriod:     "2s",
		RecordingDir:    "/var/lib/camnode",
		RecordingSource: "rtsp://127.0.0.1:8554/stream",
	}
	sup, err := opts.supervisorOptions(nil)
	if err != nil {
		t.Fatalf("supervisorOptions: %v", err)
	}
	if sup.SettleDelay != time.Second || sup.GracePeriod != 2*time.Second || sup.ReadyTimeout != 0 {
		t.Errorf("unexpected durations: %+v", sup)
	}
	if sup.Relay.Program != "./mediamtx" {
		t.Errorf("expected default relay recipe, got %q", sup.Relay.Program)
	}

	opts.GracePeriod = "soon"
	if _, err := opts.supervisorOptions(nil); err == nil {
		t.Error("expected invalid duration error")
	}
}
