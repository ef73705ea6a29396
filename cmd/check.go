package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/smazurov/camnode/internal/pipeline"
	"github.com/spf13/cobra"
)

// OptionsLoader returns the supervisor options resolved from the root
// configuration.
type OptionsLoader func() (pipeline.Options, error)

// Problem is one failed check.
type Problem struct {
	Subject string
	Err     error
}

func (p Problem) String() string {
	return fmt.Sprintf("%s: %v", p.Subject, p.Err)
}

// Check verifies that every stage program can be found and that the
// recording directory exists. It never starts a process.
func Check(opts pipeline.Options) []Problem {
	var problems []Problem

	stages := []struct {
		name    pipeline.SlotName
		program string
		dir     string
	}{
		{pipeline.SlotCapture, opts.Capture.Program, opts.Capture.Dir},
		{pipeline.SlotRelay, opts.Relay.Program, opts.Relay.Dir},
		{pipeline.SlotTranscode, opts.Transcode.Program, opts.Transcode.Dir},
		{pipeline.SlotRecording, opts.Recording.Program, opts.Recording.Dir},
	}
	for _, stage := range stages {
		if err := lookProgram(stage.program, stage.dir); err != nil {
			problems = append(problems, Problem{Subject: string(stage.name), Err: err})
		}
	}

	dir := opts.RecordingDir
	if dir == "" {
		dir = pipeline.DefaultRecordingDir
	}
	if info, err := os.Stat(dir); err != nil {
		problems = append(problems, Problem{Subject: "recording dir", Err: err})
	} else if !info.IsDir() {
		problems = append(problems, Problem{Subject: "recording dir", Err: fmt.Errorf("%s is not a directory", dir)})
	}

	return problems
}

// lookProgram resolves program the way the stage will be launched: relative
// paths such as ./mediamtx against the stage's working directory.
func lookProgram(program, dir string) error {
	if program == "" {
		return errors.New("empty program")
	}
	if dir != "" && strings.ContainsRune(program, '/') && !filepath.IsAbs(program) {
		program = filepath.Join(dir, program)
	}
	_, err := exec.LookPath(program)
	return err
}

func printProblems(w io.Writer, problems []Problem) {
	for _, p := range problems {
		_, _ = fmt.Fprintf(w, "FAIL %s\n", p)
	}
}

// CreateCheckCmd creates the check command.
func CreateCheckCmd(load OptionsLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify pipeline programs and the recording directory",
		Long: `Resolves every configured stage program on PATH (or relative to its working directory) ` +
			`and checks that the recording directory exists. No process is started.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := load()
			if err != nil {
				return err
			}
			problems := Check(opts)
			if len(problems) > 0 {
				printProblems(cmd.ErrOrStderr(), problems)
				return fmt.Errorf("%d check(s) failed", len(problems))
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}
}
