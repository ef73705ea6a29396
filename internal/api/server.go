package api

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/smazurov/camnode/internal/api/models"
	"github.com/smazurov/camnode/internal/events"
	"github.com/smazurov/camnode/internal/led"
	"github.com/smazurov/camnode/internal/logging"
	"github.com/smazurov/camnode/internal/pipeline"
	"github.com/smazurov/camnode/internal/version"
	"github.com/smazurov/camnode/ui"
)

const authRealm = `Basic realm="camnode"`

// Supervisor is the pipeline control surface the API drives.
type Supervisor interface {
	StartStream(ctx context.Context) error
	StopStream()
	Status() pipeline.StreamStatus
	StreamState() pipeline.StreamState
	StartRecording() (string, error)
	StopRecording() (string, error)
	RecordingStatus() pipeline.RecordingStatus
	Slots() []pipeline.SlotStatus
}

// Options configures the API server.
type Options struct {
	AuthUsername   string
	AuthPassword   string
	Supervisor     Supervisor
	EventBus       *events.Bus
	MetricsHandler http.Handler  // served at /metrics when set
	LEDController  led.Controller // enables /api/leds when set
}

// Server is the HTTP API server.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	supervisor Supervisor
	eventBus   *events.Bus
	options    *Options
	logger     *slog.Logger
}

// NewServer creates the API server and registers all routes.
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	corsConfig := DefaultCORSConfig()
	AddCORSHandler(mux, corsConfig)

	config := huma.DefaultConfig("camnode API", version.String())
	config.Info.Description = "Camera pipeline supervisor: start and stop the stream and recording processes"
	config.Servers = []*huma.Server{}
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basicAuth": {
			Type:   "http",
			Scheme: "basic",
		},
	}

	api := humago.New(mux, config)

	bus := opts.EventBus
	if bus == nil {
		bus = events.New()
	}

	server := &Server{
		api:        api,
		mux:        mux,
		supervisor: opts.Supervisor,
		eventBus:   bus,
		options:    opts,
		logger:     logging.GetLogger("api"),
	}

	api.UseMiddleware(NewCORSMiddleware(corsConfig))
	api.UseMiddleware(HTTPLoggingMiddleware)
	if opts.AuthUsername != "" && opts.AuthPassword != "" {
		api.UseMiddleware(server.basicAuthMiddleware(opts.AuthUsername, opts.AuthPassword))
	}

	if opts.MetricsHandler != nil {
		mux.Handle("GET /metrics", opts.MetricsHandler)
	}

	server.registerRoutes()

	mux.Handle("GET /", ui.Handler())

	return server
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// GetAPI returns the Huma API instance.
func (s *Server) GetAPI() huma.API {
	return s.api
}

// Start serves HTTP on addr until Stop is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting camnode API server", "addr", addr)
	s.logger.Info("OpenAPI documentation available", "url", "http://"+addr+"/docs")

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

// Stop closes the listener and all connections, including event streams.
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")
	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health status",
		Tags:        []string{"system"},
		Security:    []map[string][]string{},
	}, func(_ context.Context, _ *struct{}) (*models.HealthResponse, error) {
		return &models.HealthResponse{
			Body: models.HealthData{
				Status:  "ok",
				Message: "API is healthy",
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
		Security:    []map[string][]string{},
	}, func(_ context.Context, _ *struct{}) (*models.VersionResponse, error) {
		info := version.Get()
		return &models.VersionResponse{
			Body: models.VersionData{
				Version:   info.Version,
				GitCommit: info.GitCommit,
				BuildDate: info.BuildDate,
				BuildID:   info.BuildID,
				GoVersion: info.GoVersion,
				Compiler:  info.Compiler,
				Platform:  info.Platform,
			},
		}, nil
	})

	s.registerPipelineRoutes()
	s.registerSSERoutes()
	s.registerLogRoutes()
	s.registerLEDRoutes()
}

// basicAuthMiddleware rejects requests to secured operations without valid
// credentials. EventSource cannot set headers, so event streams may pass
// base64 credentials in the auth query parameter instead.
func (s *Server) basicAuthMiddleware(username, password string) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if op := ctx.Operation(); op != nil && len(op.Security) == 0 {
			next(ctx)
			return
		}

		encoded := ""
		if header := ctx.Header("Authorization"); header != "" {
			const prefix = "Basic "
			if !strings.HasPrefix(header, prefix) {
				s.unauthorized(ctx, "Invalid authentication type")
				return
			}
			encoded = header[len(prefix):]
		} else {
			encoded = ctx.Query("auth")
		}
		if encoded == "" {
			s.unauthorized(ctx, "Authentication required")
			return
		}

		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			s.unauthorized(ctx, "Invalid credentials format", err)
			return
		}
		user, pass, ok := strings.Cut(string(decoded), ":")
		if !ok {
			s.unauthorized(ctx, "Invalid credentials format")
			return
		}

		userOK := subtle.ConstantTimeCompare([]byte(user), []byte(username)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(password)) == 1
		if !userOK || !passOK {
			s.unauthorized(ctx, "Invalid credentials")
			return
		}
		next(ctx)
	}
}

func (s *Server) unauthorized(ctx huma.Context, msg string, errs ...error) {
	ctx.SetHeader("WWW-Authenticate", authRealm)
	_ = huma.WriteErr(s.api, ctx, http.StatusUnauthorized, msg, errs...)
}

// withAuth returns the security requirement for basic auth.
func withAuth() []map[string][]string {
	return []map[string][]string{
		{"basicAuth": {}},
	}
}
