package api

import (
	"log/slog"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/camnode/internal/logging"
)

// quietPaths are polled by the control panel; successful hits log at debug.
var quietPaths = map[string]bool{
	"/status":     true,
	"/api/health": true,
}

// HTTPLoggingMiddleware logs each request at a level derived from its status.
func HTTPLoggingMiddleware(ctx huma.Context, next func(huma.Context)) {
	start := time.Now()
	logger := logging.GetLogger("http")

	method := ctx.Method()
	path := ctx.URL().Path

	next(ctx)

	status := ctx.Status()
	attrs := []slog.Attr{
		slog.String("method", method),
		slog.String("path", path),
		slog.String("remote_addr", ctx.RemoteAddr()),
		slog.Int("status", status),
		slog.Duration("duration", time.Since(start)),
	}
	if query := ctx.URL().RawQuery; query != "" && ctx.Query("auth") == "" {
		attrs = append(attrs, slog.String("query", query))
	}

	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	case method == "OPTIONS", quietPaths[path]:
		level = slog.LevelDebug
	}
	logger.LogAttrs(ctx.Context(), level, "HTTP request completed", attrs...)
}
