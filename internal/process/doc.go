// Package process wraps a single external OS process.
//
// A Handle is created by Launch and owns exactly one child process:
//   - The child runs in its own process group so signals reach anything it forks
//   - A reaper goroutine collects the exit status as soon as the child exits
//   - Terminate sends the recipe's stop signal (SIGINT by default), then SIGKILL
//     once the grace period expires
//   - Child stdout/stderr is forwarded line by line to a slog logger, optionally
//     through a LogParser that maps tool output to log levels
//
// Handle states only move forward:
//
//	not_started -> running -> terminating -> exited
//	                      \-----------------^ (child exited on its own)
//
// Example:
//
//	h, err := process.Launch(process.Recipe{
//	    Name:    "relay",
//	    Program: "./mediamtx",
//	}, process.WithLogger(logger))
//	if err != nil {
//	    return err // wraps process.ErrSpawn
//	}
//	defer h.Terminate(5 * time.Second)
package process
