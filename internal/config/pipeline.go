package config

import (
	"errors"
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/camnode/internal/process"
)

// RecipeConfig is one [pipeline.<slot>] table. Either Command, a single
// shell-like string, or Program plus Args may be given; Command wins.
type RecipeConfig struct {
	Command    string   `toml:"command"`
	Program    string   `toml:"program"`
	Args       []string `toml:"args"`
	Dir        string   `toml:"dir"`
	Env        []string `toml:"env"`
	StopSignal string   `toml:"stop_signal"`
}

// PipelineConfig holds the launch recipes of the four stages.
type PipelineConfig struct {
	Capture   RecipeConfig `toml:"capture"`
	Relay     RecipeConfig `toml:"relay"`
	Transcode RecipeConfig `toml:"transcode"`
	Recording RecipeConfig `toml:"recording"`
}

// Pipeline is the resolved set of recipes handed to the supervisor.
type Pipeline struct {
	Capture   process.Recipe
	Relay     process.Recipe
	Transcode process.Recipe
	Recording process.Recipe
}

// DefaultPipeline returns the stock Raspberry Pi camera pipeline: rpicam-vid
// serving H.264 on tcp://0.0.0.0:3000, mediamtx from the working directory,
// and ffmpeg remuxing the camera feed to rtsp://0.0.0.0:8554/stream. The
// recorder copies {source} into {output}.
func DefaultPipeline() Pipeline {
	return Pipeline{
		Capture: process.Recipe{
			Name:    "capture",
			Program: "rpicam-vid",
			Args: []string{
				"-t", "0",
				"--width", "1920", "--height", "1080",
				"--framerate", "12.5",
				"--shutter", "15000",
				"--gain", "10",
				"--brightness", "0.0",
				"--contrast", "1.0",
				"--awb", "auto",
				"--denoise", "cdn_off",
				"--codec", "h264",
				"--profile", "baseline",
				"--level", "4.2",
				"--bitrate", "4000000",
				"--inline",
				"--listen",
				"-o", "tcp://0.0.0.0:3000",
			},
		},
		Relay: process.Recipe{
			Name:    "relay",
			Program: "./mediamtx",
		},
		Transcode: process.Recipe{
			Name:    "transcode",
			Program: "ffmpeg",
			Args: []string{
				"-fflags", "+genpts+igndts",
				"-use_wallclock_as_timestamps", "1",
				"-analyzeduration", "10M",
				"-probesize", "10M",
				"-f", "h264",
				"-i", "tcp://0.0.0.0:3000",
				"-c", "copy",
				"-rtsp_transport", "tcp",
				"-threads", "4",
				"-muxdelay", "0",
				"-muxpreload", "0",
				"-max_delay", "0",
				"-f", "rtsp",
				"rtsp://0.0.0.0:8554/stream",
			},
		},
		Recording: process.Recipe{
			Name:    "recording",
			Program: "ffmpeg",
			Args:    []string{"-i", "{source}", "-c", "copy", "{output}"},
		},
	}
}

// LoadPipeline reads the [pipeline] tables from path. Stages without a
// table, or with an empty one, keep their default recipe. A missing file
// yields DefaultPipeline.
func LoadPipeline(path string) (Pipeline, error) {
	p := DefaultPipeline()

	data, err := readFile(path)
	if err != nil || data == nil {
		return p, err
	}

	var wrapper struct {
		Pipeline PipelineConfig `toml:"pipeline"`
	}
	if err := toml.Unmarshal(data, &wrapper); err != nil {
		return p, fmt.Errorf("invalid [pipeline] table: %w", err)
	}

	stages := []struct {
		name   string
		cfg    RecipeConfig
		recipe *process.Recipe
	}{
		{"capture", wrapper.Pipeline.Capture, &p.Capture},
		{"relay", wrapper.Pipeline.Relay, &p.Relay},
		{"transcode", wrapper.Pipeline.Transcode, &p.Transcode},
		{"recording", wrapper.Pipeline.Recording, &p.Recording},
	}
	for _, stage := range stages {
		if err := stage.cfg.apply(stage.recipe); err != nil {
			return p, fmt.Errorf("pipeline.%s: %w", stage.name, err)
		}
	}
	return p, nil
}

// apply overrides recipe with whatever the table sets.
func (c RecipeConfig) apply(recipe *process.Recipe) error {
	switch {
	case c.Command != "":
		argv, err := process.ParseCommand(c.Command)
		if err != nil {
			return err
		}
		if len(argv) == 0 {
			return errors.New("empty command")
		}
		recipe.Program, recipe.Args = argv[0], argv[1:]
	case c.Program != "":
		recipe.Program, recipe.Args = c.Program, c.Args
	case c.Args != nil:
		recipe.Args = c.Args
	}

	if c.Dir != "" {
		recipe.Dir = c.Dir
	}
	if c.Env != nil {
		recipe.Env = c.Env
	}
	if c.StopSignal != "" {
		sig, err := process.ParseSignal(c.StopSignal)
		if err != nil {
			return err
		}
		recipe.StopSignal = sig
	}
	return nil
}
