package cmd

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smazurov/camnode/internal/pipeline"
	"github.com/smazurov/camnode/internal/process"
)

const cooperativeScript = "trap 'exit 0' INT TERM; while :; do sleep 0.1; done"

func runOptions(t *testing.T, transcodeScript string) pipeline.Options {
	t.Helper()
	sh := func(script string) process.Recipe {
		return process.Recipe{Program: "sh", Args: []string{"-c", script}}
	}
	return pipeline.Options{
		Capture:      sh(cooperativeScript),
		Relay:        sh(cooperativeScript),
		Transcode:    sh(transcodeScript),
		Recording:    sh(cooperativeScript),
		SettleDelay:  10 * time.Millisecond,
		GracePeriod:  time.Second,
		RecordingDir: t.TempDir(),
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, runOptions(t, cooperativeScript), false) }()

	time.Sleep(300 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunReturnsWhenStageExits(t *testing.T) {
	done := make(chan error, 1)
	go func() { done <- Run(context.Background(), runOptions(t, "sleep 0.3; exit 1"), false) }()

	select {
	case err := <-done:
		if !errors.Is(err, pipeline.ErrStageExited) {
			t.Fatalf("expected ErrStageExited, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after stage exit")
	}
}

func TestRunStartFailure(t *testing.T) {
	opts := runOptions(t, cooperativeScript)
	opts.Relay.Program = "camnode-no-such-program"

	if err := Run(context.Background(), opts, false); !errors.Is(err, process.ErrSpawn) {
		t.Fatalf("expected ErrSpawn, got %v", err)
	}
}
