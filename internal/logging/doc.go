// Package logging provides structured logging with per-module levels.
//
// Records go to stdout (when it is connected to something), to the systemd
// journal (when journald is running) and always to an in-memory ring buffer
// that backs /api/logs and the log event stream.
//
// Initialize once at startup, then get a logger per module:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"transcode": "debug",
//			"api":       "warn",
//		},
//	})
//
//	logger := logging.GetLogger("supervisor")
//	logger.Info("Stream pipeline started")
//
// Each stage of the pipeline logs its process output under its slot name
// (capture, relay, transcode, recording), so one noisy stage can be turned
// up or down without touching the others. SetLevels applies a new [logging]
// table at runtime; the config watcher calls it when the file changes.
//
// Journal entries carry SYSLOG_IDENTIFIER=camnode and every attribute as an
// uppercase field:
//
//	journalctl -t camnode -f
//	journalctl -t camnode MODULE=transcode -p warning
package logging
