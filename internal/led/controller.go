package led

// Controller drives board LEDs. LED names and capabilities are board-specific.
type Controller interface {
	// Set turns ledType on or off. A non-empty pattern (solid, blink,
	// heartbeat) also changes how it lights.
	Set(ledType string, enabled bool, pattern string) error

	// Available lists the LED types this board exposes.
	Available() []string

	// Patterns lists the patterns Set accepts.
	Patterns() []string
}

// Patterns understood by every controller.
const (
	PatternSolid     = "solid"
	PatternBlink     = "blink"
	PatternHeartbeat = "heartbeat"
)
