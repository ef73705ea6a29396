package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/camnode/internal/events"
)

// registerSSERoutes registers the pipeline event stream.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time stream of pipeline state changes and stage process starts and exits. The current stream and recording state is sent on connect.",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"stream-state-changed":    events.StreamStateChangedEvent{},
		"recording-state-changed": events.RecordingStateChangedEvent{},
		"slot-started":            events.SlotStartedEvent{},
		"slot-exited":             events.SlotExitedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 32)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.StreamStateChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.RecordingStateChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.SlotStartedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.SlotExitedEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		now := time.Now().UTC().Format(time.RFC3339)
		if err := send.Data(events.StreamStateChangedEvent{
			State:     string(s.supervisor.StreamState()),
			Timestamp: now,
		}); err != nil {
			return
		}
		rec := s.supervisor.RecordingStatus()
		if err := send.Data(events.RecordingStateChangedEvent{
			Recording:   rec.Active,
			Destination: rec.Destination,
			Timestamp:   now,
		}); err != nil {
			return
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
