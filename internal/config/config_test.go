package config

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/cobra"
)

type testOptions struct {
	Config string

	Port         string   `toml:"server.port" env:"SERVER_PORT"`
	AuthEnabled  bool     `toml:"auth.enabled" env:"AUTH_ENABLED"`
	GraceMs      int      `toml:"supervisor.grace_ms" env:"SUPERVISOR_GRACE_MS"`
	Framerate    float64  `toml:"capture.framerate" env:"CAPTURE_FRAMERATE"`
	CORSOrigins  []string `toml:"server.cors_origins" env:"SERVER_CORS_ORIGINS"`
	RecordingDir string   `toml:"recording.dir" env:"RECORDING_DIR"`
}

const testTOML = `
[server]
port = ":9000"
cors_origins = ["http://a", "http://b"]

[auth]
enabled = true

[supervisor]
grace_ms = 2500

[capture]
framerate = 12.5

[recording]
dir = "/srv/recordings"
`

func TestLoadConfigFromTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camnode.toml")
	writeConfig(t, path, testTOML)

	opts := &testOptions{Config: path}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	want := testOptions{
		Config:       path,
		Port:         ":9000",
		AuthEnabled:  true,
		GraceMs:      2500,
		Framerate:    12.5,
		CORSOrigins:  []string{"http://a", "http://b"},
		RecordingDir: "/srv/recordings",
	}
	if !reflect.DeepEqual(*opts, want) {
		t.Errorf("LoadConfig() = %+v, want %+v", *opts, want)
	}
}

func TestLoadConfigEnvOverridesTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camnode.toml")
	writeConfig(t, path, testTOML)

	t.Setenv("CAMNODE_SERVER_PORT", ":7000")
	t.Setenv("CAMNODE_AUTH_ENABLED", "false")
	t.Setenv("CAMNODE_CAPTURE_FRAMERATE", "30")
	t.Setenv("CAMNODE_SERVER_CORS_ORIGINS", " http://x , http://y ")

	opts := &testOptions{Config: path}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.Port != ":7000" {
		t.Errorf("Port = %q, want :7000", opts.Port)
	}
	if opts.AuthEnabled {
		t.Error("AuthEnabled should be overridden to false")
	}
	if opts.Framerate != 30 {
		t.Errorf("Framerate = %v, want 30", opts.Framerate)
	}
	if !reflect.DeepEqual(opts.CORSOrigins, []string{"http://x", "http://y"}) {
		t.Errorf("CORSOrigins = %v", opts.CORSOrigins)
	}
	if opts.GraceMs != 2500 {
		t.Errorf("GraceMs = %d, want 2500 from TOML", opts.GraceMs)
	}
}

func TestLoadConfigCLIWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camnode.toml")
	writeConfig(t, path, testTOML)
	t.Setenv("CAMNODE_SERVER_PORT", ":7000")

	opts := &testOptions{Config: path}
	cmd := &cobra.Command{Use: "camnode"}
	cmd.Flags().StringVar(&opts.Port, "port", ":8090", "")
	if err := cmd.Flags().Parse([]string{"--port", ":6000"}); err != nil {
		t.Fatal(err)
	}

	if err := LoadConfig(opts, cmd); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if opts.Port != ":6000" {
		t.Errorf("Port = %q, want the CLI value :6000", opts.Port)
	}
	if opts.RecordingDir != "/srv/recordings" {
		t.Errorf("RecordingDir = %q, want TOML value", opts.RecordingDir)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	opts := &testOptions{Config: filepath.Join(t.TempDir(), "missing.toml"), Port: ":8090"}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("missing file should not fail: %v", err)
	}
	if opts.Port != ":8090" {
		t.Errorf("defaults must survive, got %q", opts.Port)
	}
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camnode.toml")
	writeConfig(t, path, "[server\nport = ")

	if err := LoadConfig(&testOptions{Config: path}, nil); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestFieldNameToFlag(t *testing.T) {
	tests := map[string]string{
		"Port":           "port",
		"RecordingDir":   "recording-dir",
		"SettleDelayMs":  "settle-delay-ms",
		"RelayReadyAddr": "relay-ready-addr",
	}
	for in, want := range tests {
		if got := fieldNameToFlag(in); got != want {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGetNestedValue(t *testing.T) {
	data := map[string]any{
		"pipeline": map[string]any{
			"relay": map[string]any{"program": "./mediamtx"},
		},
		"root": "value",
	}

	tests := []struct {
		path string
		want any
	}{
		{"root", "value"},
		{"pipeline.relay.program", "./mediamtx"},
		{"pipeline.missing.program", nil},
		{"root.child", nil},
		{"missing", nil},
	}
	for _, tt := range tests {
		if got := getNestedValue(data, tt.path); got != tt.want {
			t.Errorf("getNestedValue(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestLoadLogging(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camnode.toml")
	writeConfig(t, path, `
[logging]
level = "warn"
format = "json"
transcode = "debug"

[logging.modules]
relay = "error"
`)

	cfg, err := LoadLogging(path)
	if err != nil {
		t.Fatalf("LoadLogging failed: %v", err)
	}
	if cfg.Level != "warn" || cfg.Format != "json" {
		t.Errorf("unexpected global settings: %+v", cfg)
	}
	want := map[string]string{"transcode": "debug", "relay": "error"}
	if !reflect.DeepEqual(cfg.Modules, want) {
		t.Errorf("Modules = %v, want %v", cfg.Modules, want)
	}
}

func TestLoadLoggingDefaults(t *testing.T) {
	cfg, err := LoadLogging(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Level != "info" || cfg.Format != "text" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}
