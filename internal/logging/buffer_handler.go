package logging

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"time"
)

// LogCallback receives every entry written by a BufferHandler.
type LogCallback func(entry LogEntry)

// BufferHandler writes records to a RingBuffer and passes each entry to an
// optional callback. The module attribute becomes the entry's Module.
type BufferHandler struct {
	buffer   *RingBuffer
	level    slog.Leveler
	scope    scope
	callback LogCallback
}

// NewBufferHandler creates a handler writing to buffer.
func NewBufferHandler(buffer *RingBuffer, level slog.Leveler, callback LogCallback) *BufferHandler {
	return &BufferHandler{buffer: buffer, level: level, callback: callback}
}

func (h *BufferHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *BufferHandler) Handle(_ context.Context, r slog.Record) error {
	entry := LogEntry{
		Timestamp:  r.Time,
		Level:      levelToString(r.Level),
		Module:     SyslogIdentifier,
		Message:    r.Message,
		Attributes: make(map[string]any),
	}
	h.scope.each(r, func(groups []string, a slog.Attr) {
		if isModule(groups, a) {
			entry.Module = a.Value.String()
			return
		}
		flattenAttr(entry.Attributes, groups, a)
	})

	h.buffer.Write(entry)
	if h.callback != nil {
		h.callback(entry)
	}
	return nil
}

func (h *BufferHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.scope = h.scope.withAttrs(attrs)
	return &c
}

func (h *BufferHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.scope = h.scope.withGroup(name)
	return &c
}

// flattenAttr stores a into attrs, joining group names with dots.
func flattenAttr(attrs map[string]any, groups []string, a slog.Attr) {
	if a.Equal(slog.Attr{}) {
		return
	}

	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		if a.Key != "" {
			groups = append(slices.Clone(groups), a.Key)
		}
		for _, ga := range v.Group() {
			flattenAttr(attrs, groups, ga)
		}
		return
	}

	key := a.Key
	if len(groups) > 0 {
		key = strings.Join(groups, ".") + "." + key
	}

	switch v.Kind() {
	case slog.KindTime:
		attrs[key] = v.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		attrs[key] = v.Duration().String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			attrs[key] = err.Error()
		} else {
			attrs[key] = v.Any()
		}
	default:
		attrs[key] = v.Any()
	}
}

// levelToString converts slog.Level to a lowercase string.
func levelToString(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warn"
	case level >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}

// FormatLogLine renders entry as one line for the control panel.
func FormatLogLine(entry LogEntry) string {
	var sb strings.Builder
	sb.WriteString(entry.Timestamp.Format(time.RFC3339Nano))
	sb.WriteString(" [")
	sb.WriteString(strings.ToUpper(entry.Level))
	sb.WriteString("] [")
	sb.WriteString(entry.Module)
	sb.WriteString("] ")
	sb.WriteString(entry.Message)

	if len(entry.Attributes) > 0 {
		keys := make([]string, 0, len(entry.Attributes))
		for k := range entry.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString(" ")
			sb.WriteString(k)
			sb.WriteString("=")
			sb.WriteString(fmt.Sprint(entry.Attributes[k]))
		}
	}

	return sb.String()
}
