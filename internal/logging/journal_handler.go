package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/journal"
)

// JournalHandler sends records to the systemd journal. Attributes become
// uppercase journal fields, with groups joined by underscores, so
// `journalctl -t camnode MODULE=transcode` selects one stage's output.
type JournalHandler struct {
	level slog.Leveler
	scope scope
}

// NewJournalHandler creates a new journal handler.
func NewJournalHandler(level slog.Leveler) *JournalHandler {
	return &JournalHandler{level: level}
}

func (h *JournalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *JournalHandler) Handle(_ context.Context, r slog.Record) error {
	fields := map[string]string{"SYSLOG_IDENTIFIER": SyslogIdentifier}
	h.scope.each(r, func(groups []string, a slog.Attr) {
		addAttrToFields(fields, a, groups)
	})

	if err := journal.Send(r.Message, mapLevelToPriority(r.Level), fields); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to send to journal: %v\n", err)
		return err
	}
	return nil
}

func (h *JournalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &JournalHandler{level: h.level, scope: h.scope.withAttrs(attrs)}
}

func (h *JournalHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &JournalHandler{level: h.level, scope: h.scope.withGroup(name)}
}

// mapLevelToPriority maps slog levels to journal priorities.
func mapLevelToPriority(level slog.Level) journal.Priority {
	switch {
	case level >= slog.LevelError:
		return journal.PriErr
	case level >= slog.LevelWarn:
		return journal.PriWarning
	case level >= slog.LevelInfo:
		return journal.PriInfo
	default:
		return journal.PriDebug
	}
}

// addAttrToFields adds an slog attribute to journal fields.
func addAttrToFields(fields map[string]string, attr slog.Attr, groups []string) {
	if attr.Equal(slog.Attr{}) {
		return
	}

	value := attr.Value.Resolve()
	if value.Kind() == slog.KindGroup {
		if attr.Key != "" {
			groups = append(slices.Clone(groups), attr.Key)
		}
		for _, a := range value.Group() {
			addAttrToFields(fields, a, groups)
		}
		return
	}

	key := attr.Key
	if len(groups) > 0 {
		key = strings.Join(groups, "_") + "_" + key
	}
	key = journalFieldName(key)
	if key == "" {
		return
	}

	switch value.Kind() {
	case slog.KindFloat64:
		fields[key] = strconv.FormatFloat(value.Float64(), 'g', -1, 64)
	case slog.KindTime:
		fields[key] = value.Time().Format(time.RFC3339Nano)
	case slog.KindAny:
		if err, ok := value.Any().(error); ok {
			fields[key] = err.Error()
			return
		}
		fields[key] = value.String()
	default:
		fields[key] = value.String()
	}
}

// journalFieldName maps key to a valid journal field name: uppercase
// letters, digits and underscores, not starting with an underscore.
// Names journald reserves for itself get a prefix.
func journalFieldName(key string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, key)
	name = strings.TrimLeft(name, "_")
	switch {
	case name == "":
		return ""
	case name == "MESSAGE", name == "PRIORITY", name == "SYSLOG_IDENTIFIER":
		return "CAMNODE_" + name
	case name[0] >= '0' && name[0] <= '9':
		return "F" + name
	}
	return name
}

// IsJournalAvailable checks if systemd journal is available.
func IsJournalAvailable() bool {
	return journal.Enabled()
}
