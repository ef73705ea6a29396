package process

import (
	"reflect"
	"syscall"
	"testing"
)

func TestRecipeExpand(t *testing.T) {
	recipe := Recipe{
		Name:    "recording",
		Program: "ffmpeg",
		Args:    []string{"-i", "{source}", "-c", "copy", "{output}"},
	}

	got := recipe.Expand(map[string]string{
		"source": "rtsp://127.0.0.1:8554/stream",
		"output": "recordings/2025-01-27_10_30_00.mp4",
	})

	want := []string{"-i", "rtsp://127.0.0.1:8554/stream", "-c", "copy", "recordings/2025-01-27_10_30_00.mp4"}
	if !reflect.DeepEqual(got.Args, want) {
		t.Errorf("Expand() args = %v, want %v", got.Args, want)
	}
	if recipe.Args[1] != "{source}" || recipe.Args[4] != "{output}" {
		t.Errorf("Expand() mutated the original recipe: %v", recipe.Args)
	}
}

func TestRecipeExpandNoVars(t *testing.T) {
	recipe := Recipe{Program: "mediamtx", Args: []string{"mediamtx.yml"}}
	got := recipe.Expand(nil)
	got.Args[0] = "changed"
	if recipe.Args[0] != "mediamtx.yml" {
		t.Error("expanded copy must not share the args slice")
	}
}

func TestParseSignal(t *testing.T) {
	tests := []struct {
		input   string
		want    syscall.Signal
		wantErr bool
	}{
		{"", 0, false},
		{"SIGTERM", syscall.SIGTERM, false},
		{"term", syscall.SIGTERM, false},
		{"INT", syscall.SIGINT, false},
		{"SIGBOGUS", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSignal(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSignal(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseSignal(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{"simple", "./mediamtx", []string{"./mediamtx"}, false},
		{"args", "ffmpeg -i tcp://0.0.0.0:3000 -c copy", []string{"ffmpeg", "-i", "tcp://0.0.0.0:3000", "-c", "copy"}, false},
		{"double quotes", `sh -c "echo hi"`, []string{"sh", "-c", "echo hi"}, false},
		{"single quotes", `sh -c 'trap "" INT'`, []string{"sh", "-c", `trap "" INT`}, false},
		{"empty quoted arg", `prog ""`, []string{"prog", ""}, false},
		{"escape", `a\ b c`, []string{"a b", "c"}, false},
		{"extra spaces", "  a   b  ", []string{"a", "b"}, false},
		{"unclosed", `sh -c "oops`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommand(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCommand() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseCommand() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseFFmpegLogLevel(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantLevel string
		wantMsg   string
	}{
		{"simple warning", "[warning] deprecated option", "warning", "deprecated option"},
		{"simple error", "[error] Connection refused", "error", "Connection refused"},
		{
			"component prefix with info",
			"[rtsp @ 0x55f4a8c00000] [info] Output stream ready",
			"info",
			"[rtsp @ 0x55f4a8c00000] Output stream ready",
		},
		{
			"component prefix without level",
			"[h264 @ 0x55f4a8c00000] non-existing PPS 0 referenced",
			"info",
			"[h264 @ 0x55f4a8c00000] non-existing PPS 0 referenced",
		},
		{"no prefix", "frame=100 fps=12 q=-1.0 size=1024kB", "info", "frame=100 fps=12 q=-1.0 size=1024kB"},
		{"empty line", "", "info", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotLevel, gotMsg := ParseFFmpegLogLevel(tt.input)
			if gotLevel != tt.wantLevel || gotMsg != tt.wantMsg {
				t.Errorf("ParseFFmpegLogLevel() = (%q, %q), want (%q, %q)", gotLevel, gotMsg, tt.wantLevel, tt.wantMsg)
			}
		})
	}
}
