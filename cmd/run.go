package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/smazurov/camnode/internal/events"
	"github.com/smazurov/camnode/internal/logging"
	"github.com/smazurov/camnode/internal/pipeline"
	"github.com/spf13/cobra"
)

// CreateRunCmd creates the run command: the stream pipeline in the
// foreground without the HTTP server.
func CreateRunCmd(load OptionsLoader) *cobra.Command {
	var record bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the stream pipeline in the foreground",
		Long: `Starts capture, relay and transcode and keeps them running until SIGINT or SIGTERM, ` +
			`or until any stage exits. No HTTP server is started.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return Run(ctx, opts, record)
		},
	}

	cmd.Flags().BoolVar(&record, "record", false, "Also record the stream until shutdown")
	return cmd
}

// Run starts the stream pipeline and blocks until ctx is done or a stage
// exits, then stops everything.
func Run(ctx context.Context, opts pipeline.Options, record bool) error {
	logger := logging.GetLogger("run")

	if opts.EventBus == nil {
		opts.EventBus = events.New()
	}
	exited := make(chan events.SlotExitedEvent, 1)
	unsubscribe := opts.EventBus.Subscribe(func(e events.SlotExitedEvent) {
		select {
		case exited <- e:
		default:
		}
	})
	defer unsubscribe()

	sup := pipeline.NewSupervisor(opts)
	defer sup.Close()

	if err := sup.StartStream(ctx); err != nil {
		return err
	}
	logger.Info("Stream running, press Ctrl+C to stop")

	if record {
		dest, err := sup.StartRecording()
		if err != nil {
			return err
		}
		logger.Info("Recording", "destination", dest)
	}

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
		return nil
	case e := <-exited:
		logger.Error("Stage exited, shutting down", "slot", e.Slot, "exit_code", e.ExitCode)
		return &pipeline.Error{Op: "run", Slot: pipeline.SlotName(e.Slot), Err: pipeline.ErrStageExited}
	}
}
