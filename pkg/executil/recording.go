package executil

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// RecordedCommand captures a command that was executed.
type RecordedCommand struct {
	Dir  string
	Cmd  string
	Args []string
}

// String renders the command the way it would appear on a shell line,
// which keeps test assertions readable.
func (c RecordedCommand) String() string {
	return strings.TrimSpace(c.Cmd + " " + strings.Join(c.Args, " "))
}

// RecordingExecutor captures commands for testing. Outputs and Errors
// are keyed by command prefix ("git branch", "gh pr view", ...); the
// longest matching prefix wins so tests can configure per-subcommand
// behavior.
type RecordingExecutor struct {
	mu       sync.Mutex
	Commands []RecordedCommand

	Outputs map[string][]byte
	Errors  map[string]error
}

// Run records the command and returns configured output/error.
func (e *RecordingExecutor) Run(ctx context.Context, cmd string, args ...string) ([]byte, error) {
	return e.record("", cmd, args...)
}

// RunDir records the command with directory and returns configured
// output/error.
func (e *RecordingExecutor) RunDir(ctx context.Context, dir, cmd string, args ...string) ([]byte, error) {
	return e.record(dir, cmd, args...)
}

func (e *RecordingExecutor) record(dir, cmd string, args ...string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec := RecordedCommand{Dir: dir, Cmd: cmd, Args: args}
	e.Commands = append(e.Commands, rec)

	line := rec.String()
	var (
		out      []byte
		err      error
		matchLen = -1
	)
	for prefix, o := range e.Outputs {
		if strings.HasPrefix(line, prefix) && len(prefix) > matchLen {
			out = o
			matchLen = len(prefix)
		}
	}
	matchLen = -1
	for prefix, cfgErr := range e.Errors {
		if strings.HasPrefix(line, prefix) && len(prefix) > matchLen {
			err = cfgErr
			matchLen = len(prefix)
		}
	}
	if err != nil {
		return out, fmt.Errorf("exec %s: %w", cmd, err)
	}
	return out, nil
}

// CommandLines returns every recorded command as a shell-style line.
func (e *RecordingExecutor) CommandLines() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	lines := make([]string, len(e.Commands))
	for i, c := range e.Commands {
		lines[i] = c.String()
	}
	return lines
}

// Reset clears recorded commands.
func (e *RecordingExecutor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Commands = nil
}
