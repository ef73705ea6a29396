package led

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeLEDRoot creates a sysfs-like tree with one LED directory per name.
func fakeLEDRoot(t *testing.T, names ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, name := range names {
		dir := filepath.Join(root, name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		for _, f := range []string{"trigger", "brightness"} {
			if err := os.WriteFile(filepath.Join(dir, f), nil, 0o644); err != nil {
				t.Fatal(err)
			}
		}
	}
	return root
}

func readLED(t *testing.T, root, name, file string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, name, file))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestNoopController(t *testing.T) {
	ctrl := newNoop(testLogger())

	if err := ctrl.Set("act", true, PatternSolid); err != nil {
		t.Errorf("Set() returned error: %v", err)
	}
	if types := ctrl.Available(); len(types) != 0 {
		t.Errorf("Available() = %v, want empty slice", types)
	}
	if patterns := ctrl.Patterns(); len(patterns) != 0 {
		t.Errorf("Patterns() = %v, want empty slice", patterns)
	}
}

func TestSysfsAvailableSorted(t *testing.T) {
	ctrl := newSysfs(map[string]string{"pwr": "PWR", "act": "ACT"})
	if got := ctrl.Available(); !slices.Equal(got, []string{"act", "pwr"}) {
		t.Errorf("Available() = %v", got)
	}
	if got := ctrl.Patterns(); !slices.Equal(got, []string{PatternSolid, PatternBlink, PatternHeartbeat}) {
		t.Errorf("Patterns() = %v", got)
	}
}

func TestSysfsSet(t *testing.T) {
	tests := []struct {
		name           string
		enabled        bool
		pattern        string
		wantTrigger    string
		wantBrightness string
	}{
		{"solid", true, PatternSolid, "none", "1"},
		{"blink", true, PatternBlink, "timer", "1"},
		{"heartbeat", true, PatternHeartbeat, "heartbeat", "1"},
		{"raw trigger", true, "mmc0", "mmc0", "1"},
		{"off", false, PatternHeartbeat, "none", "0"},
		{"on keeps trigger", true, "", "", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := fakeLEDRoot(t, "ACT")
			ctrl := newSysfs(map[string]string{"act": "ACT"})
			ctrl.root = root

			if err := ctrl.Set("act", tt.enabled, tt.pattern); err != nil {
				t.Fatalf("Set() error: %v", err)
			}
			if got := readLED(t, root, "ACT", "trigger"); got != tt.wantTrigger {
				t.Errorf("trigger = %q, want %q", got, tt.wantTrigger)
			}
			if got := readLED(t, root, "ACT", "brightness"); got != tt.wantBrightness {
				t.Errorf("brightness = %q, want %q", got, tt.wantBrightness)
			}
		})
	}
}

func TestSysfsSetInvalidType(t *testing.T) {
	ctrl := newSysfs(map[string]string{"act": "ACT"})
	if err := ctrl.Set("nonexistent", true, ""); err == nil {
		t.Error("Set() with invalid LED type should return error")
	}
}

func TestSysfsSetMissingLED(t *testing.T) {
	ctrl := newSysfs(map[string]string{"act": "ACT"})
	ctrl.root = t.TempDir()
	if err := ctrl.Set("act", true, PatternSolid); err == nil {
		t.Error("Set() on missing sysfs entry should return error")
	}
}
