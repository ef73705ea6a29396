package process

import (
	"fmt"
	"slices"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// Recipe describes how to launch one stage.
type Recipe struct {
	Name       string
	Program    string
	Args       []string
	Dir        string
	Env        []string       // appended to the supervisor's environment
	StopSignal syscall.Signal // graceful stop signal, SIGINT when zero
}

// Expand returns a copy of the recipe with {key} placeholders in Args replaced
// by vars[key]. The receiver is left untouched.
func (r Recipe) Expand(vars map[string]string) Recipe {
	out := r
	out.Args = slices.Clone(r.Args)
	out.Env = slices.Clone(r.Env)
	if len(vars) == 0 {
		return out
	}

	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	replacer := strings.NewReplacer(pairs...)
	for i, arg := range out.Args {
		out.Args[i] = replacer.Replace(arg)
	}
	return out
}

// String renders the recipe as a shell-like command line for logs.
func (r Recipe) String() string {
	parts := make([]string, 0, len(r.Args)+1)
	parts = append(parts, r.Program)
	for _, arg := range r.Args {
		if arg == "" || strings.ContainsAny(arg, " \t\"'") {
			arg = fmt.Sprintf("%q", arg)
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}

func (r Recipe) stopSignal() syscall.Signal {
	if r.StopSignal == 0 {
		return syscall.SIGINT
	}
	return r.StopSignal
}

// ParseSignal converts a signal name such as "SIGTERM", "term" or "INT"
// into a signal number. An empty name yields zero (use the default).
func ParseSignal(name string) (syscall.Signal, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return 0, nil
	}
	if !strings.HasPrefix(name, "SIG") {
		name = "SIG" + name
	}
	sig := unix.SignalNum(name)
	if sig == 0 {
		return 0, fmt.Errorf("unknown signal %q", name)
	}
	return sig, nil
}
