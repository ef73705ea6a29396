package led

import (
	"log/slog"
	"os"
	"strings"
)

const deviceTreeModelPath = "/proc/device-tree/model"

// New returns a controller for the detected board, or a no-op controller
// when the board has no known LEDs.
func New(logger *slog.Logger) Controller {
	if logger == nil {
		logger = slog.Default()
	}
	model := detectBoard()
	logger.Info("Detecting board for LED control", "board_model", model)

	if leds := boardLEDs(model); leds != nil {
		logger.Info("Using sysfs LED controller", "board_model", model)
		return newSysfs(leds)
	}
	logger.Info("No LED support detected, using no-op controller", "board_model", model)
	return newNoop(logger)
}

// boardLEDs maps LED types to sysfs names for known boards.
func boardLEDs(model string) map[string]string {
	switch {
	case strings.Contains(model, "Raspberry Pi"):
		return map[string]string{"act": "ACT", "pwr": "PWR"}
	case strings.Contains(model, "NanoPC-T6"):
		return map[string]string{"user": "usr_led", "system": "sys_led"}
	case strings.Contains(model, "Orange Pi"):
		return map[string]string{"blue": "blue_led", "green": "green_led"}
	default:
		return nil
	}
}

// detectBoard reads the device tree model, which is NUL-terminated.
func detectBoard() string {
	data, err := os.ReadFile(deviceTreeModelPath)
	if err != nil {
		return "unknown"
	}
	return strings.TrimRight(string(data), "\x00")
}
