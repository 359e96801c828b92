// Package shell runs one-shot child processes with output capture, a
// timeout and process tree cleanup.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

var (
	// ErrTimeout is returned when a command outlives its timeout.
	ErrTimeout = errors.New("command timed out")

	// ErrEmptyCommand is returned for a blank command line.
	ErrEmptyCommand = errors.New("empty command not allowed")
)

const DefaultTimeout = 30 * time.Second

// Command describes a single process invocation.
type Command struct {
	Name    string
	Args    []string
	Dir     string
	Stdin   string
	Env     []string
	Timeout time.Duration
}

// String renders the command line for logs.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Result represents the result of a finished command
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
	Duration time.Duration
}

// Runner starts commands. The zero value is not usable, see NewRunner.
type Runner struct {
	logger         *slog.Logger
	defaultTimeout time.Duration
}

// NewRunner creates a runner that applies defaultTimeout to commands
// without their own.
func NewRunner(logger *slog.Logger, defaultTimeout time.Duration) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultTimeout
	}
	return &Runner{
		logger:         logger.With("component", "shell"),
		defaultTimeout: defaultTimeout,
	}
}

// ShellCommand wraps a command line for the platform shell.
func ShellCommand(line string) Command {
	if runtime.GOOS == "windows" {
		return Command{Name: "cmd", Args: []string{"/C", line}}
	}
	return Command{Name: "sh", Args: []string{"-c", line}}
}

// Run executes c and waits for it. A non-zero exit status is reported in
// Result.ExitCode, not as an error. When the timeout fires the whole process
// tree is killed and ErrTimeout is returned together with the partial result.
func (r *Runner) Run(ctx context.Context, c Command) (*Result, error) {
	if strings.TrimSpace(c.Name) == "" {
		return nil, ErrEmptyCommand
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = r.defaultTimeout
	}

	logger := r.logger.With("command", c.String())

	cmd := exec.Command(c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = c.Env
	}
	if c.Stdin != "" {
		cmd.Stdin = strings.NewReader(c.Stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// orphaned grandchildren may hold the pipes open after a kill
	cmd.WaitDelay = time.Second

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", c.Name, err)
	}
	logger.Debug("started command", "pid", cmd.Process.Pid, "timeout", timeout)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var waitErr, stopErr error
	timedOut := false
	select {
	case waitErr = <-done:
	case <-timer.C:
		timedOut = true
		r.killTree(cmd.Process.Pid)
		waitErr = <-done
		stopErr = fmt.Errorf("%w after %v", ErrTimeout, timeout)
	case <-ctx.Done():
		r.killTree(cmd.Process.Pid)
		waitErr = <-done
		stopErr = ctx.Err()
	}

	res := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode(cmd, waitErr),
		TimedOut: timedOut,
		Duration: time.Since(start),
	}
	logger.Debug("command finished", "exit_code", res.ExitCode, "duration", res.Duration, "timed_out", timedOut)

	if stopErr != nil {
		return res, stopErr
	}

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		return res, fmt.Errorf("failed to wait for %s: %w", c.Name, waitErr)
	}
	return res, nil
}

func exitCode(cmd *exec.Cmd, waitErr error) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// killTree kills pid and every descendant, children first.
func (r *Runner) killTree(pid int) {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		r.logger.Debug("process already gone", "pid", pid, "error", err)
		return
	}
	r.killProcess(proc)
}

func (r *Runner) killProcess(proc *process.Process) {
	children, err := proc.Children()
	if err == nil {
		for _, child := range children {
			r.killProcess(child)
		}
	}
	if err := proc.Kill(); err != nil {
		r.logger.Debug("failed to kill process", "pid", proc.Pid, "error", err)
	}
}
