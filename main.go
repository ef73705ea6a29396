package main

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"os"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/camnode/cmd"
	"github.com/smazurov/camnode/internal/api"
	"github.com/smazurov/camnode/internal/config"
	"github.com/smazurov/camnode/internal/events"
	"github.com/smazurov/camnode/internal/led"
	"github.com/smazurov/camnode/internal/logging"
	"github.com/smazurov/camnode/internal/metrics"
	"github.com/smazurov/camnode/internal/pipeline"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:":8000" toml:"server.port" env:"SERVER_PORT"`

	// Auth settings; empty credentials disable auth
	AuthUsername string `help:"Basic auth username" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Pipeline timing
	SettleDelay    string `help:"Wait between relay and transcode start" default:"3s" toml:"pipeline.settle_delay" env:"PIPELINE_SETTLE_DELAY"`
	RelayReadyAddr string `help:"Poll this TCP address for relay readiness instead of a fixed delay" default:"" toml:"pipeline.relay_ready_addr" env:"PIPELINE_RELAY_READY_ADDR"`
	ReadyTimeout   string `help:"Maximum wait for relay readiness" default:"10s" toml:"pipeline.ready_timeout" env:"PIPELINE_READY_TIMEOUT"`
	GracePeriod    string `help:"Time a stage may take to exit before it is killed" default:"5s" toml:"pipeline.grace_period" env:"PIPELINE_GRACE_PERIOD"`

	// Recording settings
	RecordingDir    string `help:"Directory for recordings (must exist)" default:"./recordings" toml:"recording.dir" env:"RECORDING_DIR"`
	RecordingExt    string `help:"Recording file extension" default:".mp4" toml:"recording.extension" env:"RECORDING_EXTENSION"`
	RecordingSource string `help:"Stream URL the recorder reads" default:"rtsp://127.0.0.1:8554/stream" toml:"recording.source" env:"RECORDING_SOURCE"`

	// Features settings
	FeaturesLEDControl bool   `help:"Show pipeline state on a board LED" default:"false" toml:"features.led_control_enabled" env:"FEATURES_LED_CONTROL"`
	FeaturesLED        string `help:"LED used for pipeline state (default: act)" default:"" toml:"features.led" env:"FEATURES_LED"`

	// Logging settings
	LoggingLevel      string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat     string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingSupervisor string `help:"Supervisor logging level" default:"" toml:"logging.supervisor" env:"LOGGING_SUPERVISOR"`
	LoggingCapture    string `help:"Capture process output logging level" default:"" toml:"logging.capture" env:"LOGGING_CAPTURE"`
	LoggingRelay      string `help:"Relay process output logging level" default:"" toml:"logging.relay" env:"LOGGING_RELAY"`
	LoggingTranscode  string `help:"Transcode process output logging level" default:"" toml:"logging.transcode" env:"LOGGING_TRANSCODE"`
	LoggingRecording  string `help:"Recording process output logging level" default:"" toml:"logging.recording" env:"LOGGING_RECORDING"`
	LoggingAPI        string `help:"API logging level" default:"" toml:"logging.api" env:"LOGGING_API"`
}

// loggingConfig merges the [logging] table with levels set by flag or env.
func (o *Options) loggingConfig() logging.Config {
	cfg, err := config.LoadLogging(o.Config)
	if err != nil {
		cfg = logging.Config{Modules: make(map[string]string)}
	}
	cfg.Level = o.LoggingLevel
	cfg.Format = o.LoggingFormat

	flags := map[string]string{
		"supervisor": o.LoggingSupervisor,
		"capture":    o.LoggingCapture,
		"relay":      o.LoggingRelay,
		"transcode":  o.LoggingTranscode,
		"recording":  o.LoggingRecording,
		"api":        o.LoggingAPI,
	}
	maps.DeleteFunc(flags, func(_, level string) bool { return level == "" })
	maps.Copy(cfg.Modules, flags)
	return cfg
}

// supervisorOptions resolves recipes and timing into pipeline options.
func (o *Options) supervisorOptions(bus *events.Bus) (pipeline.Options, error) {
	recipes, err := config.LoadPipeline(o.Config)
	if err != nil {
		return pipeline.Options{}, err
	}

	settle, err := parseDuration("pipeline.settle_delay", o.SettleDelay)
	if err != nil {
		return pipeline.Options{}, err
	}
	ready, err := parseDuration("pipeline.ready_timeout", o.ReadyTimeout)
	if err != nil {
		return pipeline.Options{}, err
	}
	grace, err := parseDuration("pipeline.grace_period", o.GracePeriod)
	if err != nil {
		return pipeline.Options{}, err
	}

	return pipeline.Options{
		Capture:         recipes.Capture,
		Relay:           recipes.Relay,
		Transcode:       recipes.Transcode,
		Recording:       recipes.Recording,
		SettleDelay:     settle,
		RelayReadyAddr:  o.RelayReadyAddr,
		ReadyTimeout:    ready,
		GracePeriod:     grace,
		RecordingDir:    o.RecordingDir,
		RecordingExt:    o.RecordingExt,
		RecordingSource: o.RecordingSource,
		EventBus:        bus,
	}, nil
}

// parseDuration parses value, treating empty as zero so the supervisor
// default applies.
func parseDuration(key, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func main() {
	var cli humacli.CLI
	var loadErr error
	var resolved *Options

	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load configuration automatically
		loadErr = config.LoadConfig(opts, cli.Root())
		resolved = opts

		logging.Initialize(opts.loggingConfig())
		logger := logging.GetLogger("main")
		if loadErr != nil {
			logger.Error("Failed to load config", "error", loadErr, "config", opts.Config)
		}

		// Create event bus for in-process event handling
		eventBus := events.New()
		logging.SetLogCallback(func(entry logging.LogEntry) {
			eventBus.Publish(api.LogEvent(entry))
		})

		var supervisor *pipeline.Supervisor
		var server *api.Server
		var ledManager *led.Manager
		var watcher *config.Watcher[logging.Config]
		ctx, cancel := context.WithCancel(context.Background())

		hooks.OnStart(func() {
			if loadErr != nil {
				os.Exit(1)
			}
			supOpts, err := opts.supervisorOptions(eventBus)
			if err != nil {
				logger.Error("Invalid pipeline configuration", "error", err, "config", opts.Config)
				os.Exit(1)
			}
			supervisor = pipeline.NewSupervisor(supOpts)

			apiOpts := &api.Options{
				AuthUsername:   opts.AuthUsername,
				AuthPassword:   opts.AuthPassword,
				Supervisor:     supervisor,
				EventBus:       eventBus,
				MetricsHandler: metrics.Handler(),
			}

			// Initialize LED control if enabled
			if opts.FeaturesLEDControl {
				logger.Info("LED control enabled, initializing")
				ledController := led.New(logging.GetLogger("led"))
				ledManager = led.NewManager(ledController, eventBus, opts.FeaturesLED, logging.GetLogger("led"))
				ledManager.Start()
				apiOpts.LEDController = ledController
			}

			server = api.NewServer(apiOpts)

			// Log levels follow the config file; recipes do not
			if _, statErr := os.Stat(opts.Config); statErr == nil {
				watcher, err = config.WatchLogging(ctx, opts.Config, logging.GetLogger("config"))
				if err != nil {
					logger.Warn("Failed to start config watcher, log level reload disabled", "error", err)
				}
			}

			if _, notifyErr := daemon.SdNotify(false, daemon.SdNotifyReady); notifyErr != nil {
				logger.Debug("sd_notify failed", "error", notifyErr)
			}

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				supervisor.Close()
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
			cancel()

			if server != nil {
				if stopErr := server.Stop(); stopErr != nil {
					logger.Error("Error stopping HTTP server", "error", stopErr)
				}
			}
			if watcher != nil {
				_ = watcher.Stop()
			}

			// Stop all stage processes after the HTTP server stops accepting requests
			if supervisor != nil {
				logger.Info("Stopping pipeline processes")
				supervisor.Close()
			}
			if ledManager != nil {
				ledManager.Stop()
			}
		})
	})

	loadOptions := func() (pipeline.Options, error) {
		if loadErr != nil {
			return pipeline.Options{}, loadErr
		}
		return resolved.supervisorOptions(nil)
	}
	cli.Root().AddCommand(cmd.CreateCheckCmd(loadOptions))
	cli.Root().AddCommand(cmd.CreateRunCmd(loadOptions))

	// Run the CLI
	cli.Run()
}
