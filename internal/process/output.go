package process

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
)

// LogParser maps one line of child output to a log level and message.
type LogParser func(line string) (level, msg string)

// ParseFFmpegLogLevel extracts the level from ffmpeg output produced with
// "-loglevel level+info": "[info] msg" or "[component @ 0x...] [warning] msg".
// The component prefix is kept, the level tag is stripped.
func ParseFFmpegLogLevel(line string) (level, msg string) {
	if len(line) < 3 || line[0] != '[' {
		return "info", line
	}

	end := strings.Index(line, "] ")
	if end == -1 {
		return "info", line
	}
	if tag := line[1:end]; isFFmpegLevel(tag) {
		return tag, line[end+2:]
	}

	component, rest := line[:end+2], line[end+2:]
	if len(rest) > 2 && rest[0] == '[' {
		if next := strings.Index(rest, "] "); next != -1 && isFFmpegLevel(rest[1:next]) {
			return rest[1:next], component + rest[next+2:]
		}
	}
	return "info", line
}

func isFFmpegLevel(s string) bool {
	switch s {
	case "quiet", "panic", "fatal", "error", "warning", "info", "verbose", "debug", "trace":
		return true
	}
	return false
}

// lineLogger is an io.Writer that logs every complete line it receives.
// Both \n and \r terminate a line.
type lineLogger struct {
	logger *slog.Logger
	parser LogParser
	source string

	mu  sync.Mutex
	buf bytes.Buffer
}

func newLineLogger(logger *slog.Logger, parser LogParser, source string) *lineLogger {
	return &lineLogger{logger: logger, parser: parser, source: source}
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf.Write(p)
	for {
		// ffmpeg rewrites its stats line with bare carriage returns.
		idx := bytes.IndexAny(l.buf.Bytes(), "\r\n")
		if idx < 0 {
			break
		}
		line := string(bytes.TrimRight(l.buf.Next(idx+1), "\r\n"))
		l.emit(line)
	}
	return len(p), nil
}

// Flush logs any trailing partial line.
func (l *lineLogger) Flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.buf.Len() > 0 {
		l.emit(strings.TrimRight(l.buf.String(), "\r\n"))
		l.buf.Reset()
	}
}

func (l *lineLogger) emit(line string) {
	if line == "" {
		return
	}
	level, msg := "info", line
	if l.parser != nil {
		level, msg = l.parser(line)
	}

	switch level {
	case "panic", "fatal", "error":
		l.logger.Error(msg, "source", l.source)
	case "warning", "warn":
		l.logger.Warn(msg, "source", l.source)
	case "verbose", "debug", "trace":
		l.logger.Debug(msg, "source", l.source)
	default:
		l.logger.Info(msg, "source", l.source)
	}
}
