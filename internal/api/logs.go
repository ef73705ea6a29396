package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/camnode/internal/api/models"
	"github.com/smazurov/camnode/internal/events"
	"github.com/smazurov/camnode/internal/logging"
)

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

// registerLogRoutes registers the buffered log query and the live log stream.
func (s *Server) registerLogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-logs",
		Method:      http.MethodGet,
		Path:        "/api/logs",
		Summary:     "Recent Logs",
		Description: "Return recent buffered log entries, including stage process output, optionally filtered by module and minimum level.",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, input *models.LogsRequest) (*models.LogsResponse, error) {
		entries := filterLogs(logging.GetBuffer().ReadAll(), input.Module, input.Level)
		if input.Limit >= 0 && len(entries) > input.Limit {
			entries = entries[len(entries)-input.Limit:]
		}

		resp := &models.LogsResponse{Body: models.LogsData{Entries: entries, Count: len(entries)}}
		if len(entries) > 0 {
			resp.Body.Since = entries[0].Timestamp
		}
		return resp, nil
	})

	sse.Register(s.api, huma.Operation{
		OperationID: "logs-stream",
		Method:      http.MethodGet,
		Path:        "/api/logs/stream",
		Summary:     "Log Stream",
		Description: "Real-time log streaming via Server-Sent Events. Sends buffered logs first, then streams new logs.",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"message": events.LogEntryEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		// Subscribe before replaying so nothing logged in between is lost.
		eventCh := make(chan any, 100)
		unsubscribe := events.SubscribeToChannel[events.LogEntryEvent](s.eventBus, eventCh)
		defer unsubscribe()

		for _, entry := range logging.GetBuffer().ReadAll() {
			if err := send.Data(LogEvent(entry)); err != nil {
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}

// LogEvent converts a buffered entry into its event form.
func LogEvent(entry logging.LogEntry) events.LogEntryEvent {
	return events.LogEntryEvent{
		Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
		Level:      entry.Level,
		Module:     entry.Module,
		Message:    entry.Message,
		Attributes: entry.Attributes,
	}
}

func filterLogs(entries []logging.LogEntry, module, level string) []logging.LogEntry {
	if module == "" && level == "" {
		return entries
	}
	minRank := levelRank[level]
	filtered := make([]logging.LogEntry, 0, len(entries))
	for _, entry := range entries {
		if module != "" && entry.Module != module {
			continue
		}
		if levelRank[entry.Level] < minRank {
			continue
		}
		filtered = append(filtered, entry)
	}
	return filtered
}
