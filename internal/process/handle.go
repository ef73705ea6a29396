package process

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

const (
	// DefaultGracePeriod is used by Terminate when no positive grace is given.
	DefaultGracePeriod = 5 * time.Second

	defaultKillTimeout = 5 * time.Second

	// outputWaitDelay bounds how long the reaper waits for output pipes held
	// open by grandchildren after the child itself has exited.
	outputWaitDelay = 2 * time.Second
)

// Option configures a Handle at launch.
type Option func(*Handle)

// WithLogger sets the logger for lifecycle messages and child output.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handle) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithLogParser sets the parser used to map child output to log levels.
func WithLogParser(parser LogParser) Option {
	return func(h *Handle) {
		h.parser = parser
	}
}

// WithOnExit registers a callback invoked once, from the reaper goroutine,
// after the child has been reaped and before Wait returns. It must not block.
func WithOnExit(fn func(ExitResult)) Option {
	return func(h *Handle) {
		h.onExit = fn
	}
}

// WithOnStart registers a callback invoked with the child's PID once it is
// running and before its exit can be observed. It must not block.
func WithOnStart(fn func(pid int)) Option {
	return func(h *Handle) {
		h.onStart = fn
	}
}

// WithKillTimeout bounds the wait after SIGKILL.
func WithKillTimeout(d time.Duration) Option {
	return func(h *Handle) {
		if d > 0 {
			h.killTimeout = d
		}
	}
}

// Handle owns one external OS process.
type Handle struct {
	recipe      Recipe
	cmd         *exec.Cmd
	logger      *slog.Logger
	parser      LogParser
	onStart     func(int)
	onExit      func(ExitResult)
	killTimeout time.Duration
	stdout      *lineLogger
	stderr      *lineLogger
	done        chan struct{} // closed by the reaper

	mu        sync.Mutex
	state     State
	pid       int
	startedAt time.Time
	killed    bool
	result    ExitResult
}

// Launch spawns the recipe's program and returns a running Handle.
// Every returned error wraps ErrSpawn.
func Launch(recipe Recipe, opts ...Option) (*Handle, error) {
	h := &Handle{
		recipe:      recipe,
		logger:      slog.Default(),
		killTimeout: defaultKillTimeout,
		done:        make(chan struct{}),
		state:       StateNotStarted,
	}
	for _, opt := range opts {
		opt(h)
	}

	if recipe.Program == "" {
		return nil, fmt.Errorf("%w: %s: empty program", ErrSpawn, recipe.Name)
	}

	h.stdout = newLineLogger(h.logger, h.parser, "stdout")
	h.stderr = newLineLogger(h.logger, h.parser, "stderr")

	cmd := exec.Command(recipe.Program, recipe.Args...)
	cmd.Dir = recipe.Dir
	if len(recipe.Env) > 0 {
		cmd.Env = append(os.Environ(), recipe.Env...)
	}
	cmd.Stdout = h.stdout
	cmd.Stderr = h.stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.WaitDelay = outputWaitDelay

	if err := cmd.Start(); err != nil {
		h.logger.Error("Failed to start process", "error", err, "command", recipe.String())
		return nil, fmt.Errorf("%w: %s: %w", ErrSpawn, recipe.Program, err)
	}

	h.cmd = cmd
	h.mu.Lock()
	h.pid = cmd.Process.Pid
	h.startedAt = time.Now()
	h.state = StateRunning
	h.mu.Unlock()

	h.logger.Info("Process started", "pid", h.pid, "command", recipe.String())

	if h.onStart != nil {
		h.onStart(h.pid)
	}
	go h.reap()
	return h, nil
}

// reap waits for the child so it never lingers as a zombie.
func (h *Handle) reap() {
	waitErr := h.cmd.Wait()
	h.stdout.Flush()
	h.stderr.Flush()

	result := exitResultFrom(h.cmd.ProcessState, waitErr)

	h.mu.Lock()
	result.PID = h.pid
	result.Killed = h.killed
	h.result = result
	h.state = StateExited
	h.mu.Unlock()

	if result.Success() {
		h.logger.Info("Process exited", "pid", result.PID, "exit_code", result.Code)
	} else {
		h.logger.Warn("Process exited", "pid", result.PID, "exit_code", result.Code,
			"signaled", result.Signaled, "killed", result.Killed, "error", result.Err)
	}

	// onExit completes before waiters are released, so nothing observes the
	// handle as dead while its exit is still being recorded.
	if h.onExit != nil {
		h.onExit(result)
	}
	close(h.done)
}

// exitResultFrom converts the outcome of cmd.Wait into an ExitResult.
// Signal deaths are reported as 128+signal, the shell convention.
func exitResultFrom(state *os.ProcessState, waitErr error) ExitResult {
	result := ExitResult{ExitedAt: time.Now()}

	if state == nil {
		result.Code = -1
		result.Err = waitErr
		return result
	}

	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		result.Signaled = true
		result.Code = 128 + int(ws.Signal())
	} else {
		result.Code = state.ExitCode()
	}

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) && !errors.Is(waitErr, exec.ErrWaitDelay) {
		result.Err = waitErr
	}
	return result
}

// PID returns the OS process ID of the child.
func (h *Handle) PID() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pid
}

// State returns the current lifecycle state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// StartedAt returns when the child was spawned.
func (h *Handle) StartedAt() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.startedAt
}

// Recipe returns the recipe the child was launched from.
func (h *Handle) Recipe() Recipe {
	return h.recipe
}

// Done is closed once the child has been reaped.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// IsAlive reports whether the child is still running. It never blocks.
func (h *Handle) IsAlive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Result returns the exit result and whether the child has exited.
func (h *Handle) Result() (ExitResult, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result, h.state == StateExited
}

// Wait blocks until the child exits or timeout elapses, whichever is first.
// A non-positive timeout waits without bound.
func (h *Handle) Wait(timeout time.Duration) (ExitResult, error) {
	if timeout <= 0 {
		<-h.done
		result, _ := h.Result()
		return result, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-h.done:
		result, _ := h.Result()
		return result, nil
	case <-timer.C:
		return ExitResult{}, ErrTimedOut
	}
}

// Terminate stops the child: the recipe's stop signal first, SIGKILL after
// grace. It is safe to call repeatedly and concurrently; calls on an exited
// handle return the recorded result.
func (h *Handle) Terminate(grace time.Duration) ExitResult {
	if grace <= 0 {
		grace = DefaultGracePeriod
	}

	h.mu.Lock()
	switch h.state {
	case StateExited:
		result := h.result
		h.mu.Unlock()
		return result
	case StateRunning:
		h.state = StateTerminating
		h.mu.Unlock()
		h.signal(h.recipe.stopSignal())
	default:
		h.mu.Unlock()
	}

	if result, err := h.Wait(grace); err == nil {
		return result
	}

	h.logger.Warn("Graceful shutdown timeout, forcing kill", "pid", h.PID(), "grace", grace)
	h.mu.Lock()
	h.killed = true
	h.mu.Unlock()
	h.signal(syscall.SIGKILL)

	if result, err := h.Wait(h.killTimeout); err == nil {
		return result
	}
	h.logger.Error("Process did not exit after kill signal", "pid", h.PID())
	return ExitResult{PID: h.PID(), Code: -1, Killed: true, Err: ErrTimedOut}
}

// signal delivers sig to the child's process group.
func (h *Handle) signal(sig syscall.Signal) {
	h.mu.Lock()
	pid, exited := h.pid, h.state == StateExited
	h.mu.Unlock()
	if exited {
		return
	}
	h.logger.Debug("Sending signal to process group", "pid", pid, "signal", sig.String())

	err := unix.Kill(-pid, sig)
	if err == nil || errors.Is(err, unix.ESRCH) {
		return
	}
	// Group gone or not ours; fall back to the child alone.
	if perr := h.cmd.Process.Signal(sig); perr != nil && !errors.Is(perr, os.ErrProcessDone) {
		h.logger.Warn("Failed to signal process", "pid", pid, "signal", sig.String(), "error", perr)
	}
}
