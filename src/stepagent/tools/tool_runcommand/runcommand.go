package tool_runcommand

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/elee1766/stepwise/src/agent"
	"github.com/elee1766/stepwise/src/shell"
	"github.com/elee1766/stepwise/src/stepagent/toolsutil"
)

// Tool name constant
const Name = "run_command"

const runCommandPrompt = `Executes a single command line in a fresh system shell and returns its output.

HOW TO USE:
- The command argument is required and is passed to the shell as one line
- Optionally set working_dir; relative paths are resolved against the default working directory
- Optionally set a timeout in seconds (default %s)

OUTPUT:
- On success the combined standard output and standard error
- A non-zero exit status is reported as an error together with the output

NOTES:
- Each call runs in a new shell, so cd and exported variables do not persist
- Chain dependent commands with && in a single call
- Host platform: %s`

// RunCommandInput represents the parameters for run_command
type RunCommandInput struct {
	Command    string `json:"command" required:"true" validate:"required" description:"The command to execute"`
	WorkingDir string `json:"working_dir,omitempty" description:"Working directory for the command"`
	Timeout    int    `json:"timeout,omitempty" validate:"omitempty,min=1" description:"Timeout in seconds"`
}

// Options configures the run_command tool.
type Options struct {
	Runner     *shell.Runner
	Timeout    time.Duration
	WorkingDir string
}

// Tool returns the run_command tool definition using GenericTool
func Tool(opts Options) (agent.Tool, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = shell.DefaultTimeout
	}
	if opts.Runner == nil {
		opts.Runner = shell.NewRunner(toolsutil.GetLogger(), opts.Timeout)
	}

	return agent.NewGenericTool(Name,
		fmt.Sprintf(runCommandPrompt, opts.Timeout, shell.Platform()),
		makeRunCommandHandler(opts),
		agent.WithUnsafe(),
	)
}

// makeRunCommandHandler creates a type-safe handler for the run_command tool
func makeRunCommandHandler(opts Options) agent.GenericToolHandler[RunCommandInput] {
	return func(ctx context.Context, input RunCommandInput) (string, error) {
		logger := toolsutil.GetLogger()

		if strings.TrimSpace(input.Command) == "" {
			return "", shell.ErrEmptyCommand
		}

		cmd := shell.ShellCommand(input.Command)
		cmd.Dir = resolveDir(opts.WorkingDir, input.WorkingDir)
		cmd.Timeout = toolsutil.Timeout(input.Timeout, opts.Timeout)

		res, err := opts.Runner.Run(ctx, cmd)
		if err != nil {
			if res != nil {
				return "", fmt.Errorf("%w: %s", err, toolsutil.CombinedOutput(res))
			}
			return "", err
		}

		output := toolsutil.CombinedOutput(res)
		logger.Info("ran command", "command", input.Command, "dir", cmd.Dir, "exit_code", res.ExitCode, "duration", res.Duration)

		if res.ExitCode != 0 {
			return "", fmt.Errorf("command exited with status %d: %s", res.ExitCode, output)
		}
		return output, nil
	}
}

func resolveDir(base, dir string) string {
	switch {
	case dir == "":
		return base
	case filepath.IsAbs(dir) || base == "":
		return dir
	default:
		return filepath.Join(base, dir)
	}
}
