package led

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

const sysfsLEDPath = "/sys/class/leds"

// sysfs drives LEDs through /sys/class/leds/<name>/{trigger,brightness}.
type sysfs struct {
	root string
	leds map[string]string // LED type -> sysfs name
}

func newSysfs(leds map[string]string) *sysfs {
	return &sysfs{root: sysfsLEDPath, leds: leds}
}

// triggerFor maps a pattern to a kernel LED trigger. Unknown patterns are
// passed through as raw trigger names.
func triggerFor(pattern string) string {
	switch pattern {
	case PatternSolid:
		return "none"
	case PatternBlink:
		return "timer"
	default:
		return pattern
	}
}

func (s *sysfs) Set(ledType string, enabled bool, pattern string) error {
	name, ok := s.leds[ledType]
	if !ok {
		return fmt.Errorf("LED type %q not supported on this board", ledType)
	}

	ledPath := filepath.Join(s.root, name)
	if _, err := os.Stat(ledPath); err != nil {
		return fmt.Errorf("LED %q not found at %s: %w", ledType, ledPath, err)
	}

	trigger := ""
	switch {
	case !enabled:
		trigger = "none"
	case pattern != "":
		trigger = triggerFor(pattern)
	}
	if trigger != "" {
		if err := os.WriteFile(filepath.Join(ledPath, "trigger"), []byte(trigger), 0o644); err != nil {
			return fmt.Errorf("set LED trigger: %w", err)
		}
	}

	brightness := "0"
	if enabled {
		brightness = "1"
	}
	if err := os.WriteFile(filepath.Join(ledPath, "brightness"), []byte(brightness), 0o644); err != nil {
		return fmt.Errorf("set LED brightness: %w", err)
	}
	return nil
}

func (s *sysfs) Available() []string {
	types := make([]string, 0, len(s.leds))
	for ledType := range s.leds {
		types = append(types, ledType)
	}
	slices.Sort(types)
	return types
}

func (s *sysfs) Patterns() []string {
	return []string{PatternSolid, PatternBlink, PatternHeartbeat}
}
