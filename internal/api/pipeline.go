package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/camnode/internal/api/models"
	"github.com/smazurov/camnode/internal/pipeline"
)

// registerPipelineRoutes registers the stream and recording control routes.
// Outcomes are reported in the status field with HTTP 200, including errors,
// so the control panel can display them as-is.
func (s *Server) registerPipelineRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "start-stream",
		Method:      http.MethodPost,
		Path:        "/start_stream",
		Summary:     "Start Stream",
		Description: "Start capture, relay and transcode in order. Returns once all three are running or the attempt was rolled back.",
		Tags:        []string{"stream"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, _ *struct{}) (*models.CommandResponse, error) {
		err := s.supervisor.StartStream(ctx)
		switch {
		case err == nil:
			return command(models.StatusStarted), nil
		case errors.Is(err, pipeline.ErrAlreadyRunning):
			return command(models.StatusAlreadyRunning), nil
		default:
			s.logger.Warn("Start stream failed", "error", err)
			return command(models.StatusErrorPrefix + err.Error()), nil
		}
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "stop-stream",
		Method:      http.MethodPost,
		Path:        "/stop_stream",
		Summary:     "Stop Stream",
		Description: "Stop transcode, relay and capture in that order. Always succeeds.",
		Tags:        []string{"stream"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.CommandResponse, error) {
		s.supervisor.StopStream()
		return command(models.StatusStopped), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "start-recording",
		Method:      http.MethodPost,
		Path:        "/start_recording",
		Summary:     "Start Recording",
		Description: "Start recording to a new file named after the current time.",
		Tags:        []string{"recording"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.CommandResponse, error) {
		dest, err := s.supervisor.StartRecording()
		switch {
		case err == nil:
			resp := command(models.StatusRecordingStarted)
			resp.Body.Filename = dest
			return resp, nil
		case errors.Is(err, pipeline.ErrAlreadyRecording):
			return command(models.StatusAlreadyRecording), nil
		default:
			s.logger.Warn("Start recording failed", "error", err)
			return command(models.StatusErrorPrefix + err.Error()), nil
		}
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "stop-recording",
		Method:      http.MethodPost,
		Path:        "/stop_recording",
		Summary:     "Stop Recording",
		Description: "Stop the recording gracefully so the file is finalized.",
		Tags:        []string{"recording"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.CommandResponse, error) {
		if _, err := s.supervisor.StopRecording(); err != nil {
			return command(models.StatusNoRecording), nil
		}
		return command(models.StatusRecordingStopped), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-status",
		Method:      http.MethodGet,
		Path:        "/status",
		Summary:     "Pipeline Status",
		Description: "Report which stages currently have a live process. Never waits for a start or stop in progress.",
		Tags:        []string{"stream"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.PipelineStatusResponse, error) {
		status := s.supervisor.Status()
		return &models.PipelineStatusResponse{
			Body: models.PipelineStatusData{
				CameraRunning:     status.Capture,
				RTSPServerRunning: status.Relay,
				FFmpegRunning:     status.Transcode,
				Recording:         s.supervisor.RecordingStatus().Active,
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-slots",
		Method:      http.MethodGet,
		Path:        "/api/slots",
		Summary:     "Pipeline Slots",
		Description: "Per-stage process details: PID, start time, command line and last exit.",
		Tags:        []string{"stream"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.SlotsResponse, error) {
		return &models.SlotsResponse{
			Body: models.SlotsData{
				Slots:     s.supervisor.Slots(),
				Recording: s.supervisor.RecordingStatus(),
			},
		}, nil
	})
}

func command(status string) *models.CommandResponse {
	return &models.CommandResponse{Body: models.CommandData{Status: status}}
}
