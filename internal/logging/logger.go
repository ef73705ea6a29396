package logging

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

// DefaultBufferSize is the number of entries kept for /api/logs.
const DefaultBufferSize = 1000

// SyslogIdentifier tags every journal entry.
const SyslogIdentifier = "camnode"

// Config represents the [logging] table.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`
}

var (
	mutex          sync.RWMutex
	globalConfig   Config
	isInitialized  bool
	moduleLoggers  = make(map[string]*slog.Logger)
	moduleLevels   = make(map[string]*slog.LevelVar)
	globalLevelVar = &slog.LevelVar{}
	logBuffer      = NewRingBuffer(DefaultBufferSize)
	logCallback    LogCallback
)

// Initialize sets up output routing and levels. Loggers handed out earlier
// keep their outputs but follow the new levels; later GetLogger calls return
// loggers with the configured format.
func Initialize(config Config) {
	mutex.Lock()
	defer mutex.Unlock()

	globalConfig = config
	isInitialized = true
	applyLevelsLocked()

	for module, levelVar := range moduleLevels {
		moduleLoggers[module] = slog.New(createHandler(config.Format, levelVar)).With("module", module)
	}
	slog.SetDefault(slog.New(createHandler(config.Format, globalLevelVar)))
}

// SetLevels changes global and per-module levels at runtime. The output
// format is fixed at Initialize and is not affected.
func SetLevels(config Config) {
	mutex.Lock()
	defer mutex.Unlock()

	globalConfig.Level = config.Level
	globalConfig.Modules = config.Modules
	applyLevelsLocked()
}

// applyLevelsLocked pushes globalConfig into every LevelVar. Caller holds mutex.
func applyLevelsLocked() {
	globalLevelVar.Set(levelFor(""))
	for module, levelVar := range moduleLevels {
		levelVar.Set(levelFor(module))
	}
}

// levelFor resolves the level of module from globalConfig; "" is the global level.
func levelFor(module string) slog.Level {
	level := slog.LevelInfo
	if parsed, ok := parseLevel(globalConfig.Level); ok {
		level = parsed
	}
	if module == "" {
		return level
	}
	if parsed, ok := parseLevel(globalConfig.Modules[module]); ok {
		level = parsed
	}
	return level
}

// GetBuffer returns the log ring buffer.
func GetBuffer() *RingBuffer {
	mutex.RLock()
	defer mutex.RUnlock()
	return logBuffer
}

// SetLogCallback registers a function called for every buffered entry.
// The API uses it to publish log events without importing the bus here.
func SetLogCallback(callback LogCallback) {
	mutex.Lock()
	defer mutex.Unlock()
	logCallback = callback
}

// dispatchLog forwards an entry to the registered callback, if any.
func dispatchLog(entry LogEntry) {
	mutex.RLock()
	callback := logCallback
	mutex.RUnlock()
	if callback != nil {
		callback(entry)
	}
}

// GetLogger returns the logger for module, creating it if needed.
func GetLogger(module string) *slog.Logger {
	mutex.RLock()
	logger, ok := moduleLoggers[module]
	mutex.RUnlock()
	if ok {
		return logger
	}

	mutex.Lock()
	defer mutex.Unlock()
	if logger, ok := moduleLoggers[module]; ok {
		return logger
	}

	levelVar := &slog.LevelVar{}
	levelVar.Set(levelFor(module))

	format := "text"
	if isInitialized {
		format = globalConfig.Format
	}
	logger = slog.New(createHandler(format, levelVar)).With("module", module)
	moduleLoggers[module] = logger
	moduleLevels[module] = levelVar
	return logger
}

// createHandler fans out to stdout, the journal when present, and the
// ring buffer.
func createHandler(format string, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	var stdoutHandler slog.Handler
	if format == "json" {
		stdoutHandler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		stdoutHandler = slog.NewTextHandler(os.Stdout, opts)
	}

	var handlers []slog.Handler
	if isStdoutAvailable() {
		handlers = append(handlers, stdoutHandler)
	}
	if IsJournalAvailable() {
		handlers = append(handlers, NewJournalHandler(level))
	}
	handlers = append(handlers, NewBufferHandler(logBuffer, level, dispatchLog))

	if len(handlers) == 1 {
		return handlers[0]
	}
	return NewMultiHandler(handlers...)
}

// isStdoutAvailable reports whether stdout goes somewhere other than /dev/null.
func isStdoutAvailable() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	mode := fi.Mode()
	return mode&os.ModeCharDevice != 0 || mode&os.ModeNamedPipe != 0 || mode&os.ModeSocket != 0 || mode.IsRegular()
}

// parseLevel converts a level name to slog.Level.
func parseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return 0, false
	}
}
