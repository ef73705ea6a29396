package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smazurov/camnode/internal/pipeline"
	"github.com/smazurov/camnode/internal/process"
)

func validOptions(t *testing.T) pipeline.Options {
	t.Helper()
	sh := process.Recipe{Program: "sh", Args: []string{"-c", "exit 0"}}
	return pipeline.Options{
		Capture:      sh,
		Relay:        sh,
		Transcode:    sh,
		Recording:    sh,
		RecordingDir: t.TempDir(),
	}
}

func TestCheckPasses(t *testing.T) {
	if problems := Check(validOptions(t)); len(problems) != 0 {
		t.Fatalf("expected no problems, got %v", problems)
	}
}

func TestCheckMissingProgram(t *testing.T) {
	opts := validOptions(t)
	opts.Relay.Program = "camnode-no-such-program"
	opts.Capture.Program = ""

	problems := Check(opts)
	if len(problems) != 2 {
		t.Fatalf("expected 2 problems, got %v", problems)
	}
	if problems[0].Subject != string(pipeline.SlotCapture) || problems[1].Subject != string(pipeline.SlotRelay) {
		t.Errorf("unexpected subjects: %v", problems)
	}
}

func TestCheckRelativeProgramInStageDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "mediamtx"), []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	opts := validOptions(t)
	opts.Relay = process.Recipe{Program: "./mediamtx", Dir: dir}
	if problems := Check(opts); len(problems) != 0 {
		t.Fatalf("expected relay found in its dir, got %v", problems)
	}

	opts.Relay.Dir = t.TempDir()
	if problems := Check(opts); len(problems) != 1 {
		t.Fatalf("expected relay missing, got %v", problems)
	}
}

func TestCheckRecordingDir(t *testing.T) {
	opts := validOptions(t)
	opts.RecordingDir = filepath.Join(t.TempDir(), "missing")
	if problems := Check(opts); len(problems) != 1 || problems[0].Subject != "recording dir" {
		t.Fatalf("expected recording dir problem, got %v", problems)
	}

	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	opts.RecordingDir = file
	if problems := Check(opts); len(problems) != 1 {
		t.Fatalf("expected not-a-directory problem, got %v", problems)
	}
}

func TestCheckCmdOutput(t *testing.T) {
	opts := validOptions(t)
	opts.Transcode.Program = "camnode-no-such-program"

	cmd := CreateCheckCmd(func() (pipeline.Options, error) { return opts, nil })
	var stderr bytes.Buffer
	cmd.SetErr(&stderr)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs(nil)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected check to fail")
	}
	if !strings.Contains(stderr.String(), "FAIL transcode") {
		t.Errorf("unexpected output %q", stderr.String())
	}
}
