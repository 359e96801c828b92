package tool_runscript

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/elee1766/stepwise/src/agent"
	"github.com/elee1766/stepwise/src/shell"
	"github.com/elee1766/stepwise/src/stepagent/toolsutil"
	"github.com/spf13/afero"
)

// Tool name constant
const Name = "run_script"

// DefaultInterpreter runs scripts when neither the call nor the options name one.
const DefaultInterpreter = "python3"

// interpreters maps allowed interpreters to their script file extension.
var interpreters = map[string]string{
	"sh":      ".sh",
	"bash":    ".sh",
	"python3": ".py",
	"python":  ".py",
	"node":    ".js",
}

const runScriptPrompt = `Runs a script in a fresh interpreter process and returns what it printed.

HOW TO USE:
- Put the complete program in the script argument
- Optionally choose the interpreter: sh, bash, python3, python or node (default %s)
- Optionally set a timeout in seconds

OUTPUT:
- Standard output first
- A "stderr:" section when the script wrote to standard error
- "exit status N" when the script exited with a non-zero status

NOTES:
- Every call starts from scratch, nothing persists between calls
- Print the values you need, only printed output is returned
- Host platform: %s`

// RunScriptInput represents the parameters for run_script
type RunScriptInput struct {
	Script      string `json:"script" required:"true" validate:"required" description:"The complete script source"`
	Interpreter string `json:"interpreter,omitempty" validate:"omitempty,oneof=sh bash python3 python node" description:"Interpreter to run the script with"`
	Timeout     int    `json:"timeout,omitempty" validate:"omitempty,min=1" description:"Optional timeout in seconds"`
}

// Options configures the run_script tool.
type Options struct {
	// Fs holds the temporary script files. It must be backed by the OS
	// filesystem since the interpreter reads the file by path.
	Fs          afero.Fs
	Runner      *shell.Runner
	Interpreter string
	Timeout     time.Duration
	WorkingDir  string
}

// Tool returns the run_script tool definition using GenericTool
func Tool(opts Options) (agent.Tool, error) {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Runner == nil {
		opts.Runner = shell.NewRunner(toolsutil.GetLogger(), opts.Timeout)
	}
	if opts.Interpreter == "" {
		opts.Interpreter = DefaultInterpreter
	}
	if _, ok := interpreters[opts.Interpreter]; !ok {
		return nil, fmt.Errorf("%w: %s", toolsutil.ErrInterpreterRejected, opts.Interpreter)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = shell.DefaultTimeout
	}

	return agent.NewGenericTool(Name,
		fmt.Sprintf(runScriptPrompt, opts.Interpreter, shell.Platform()),
		makeRunScriptHandler(opts),
		agent.WithUnsafe(),
	)
}

func makeRunScriptHandler(opts Options) agent.GenericToolHandler[RunScriptInput] {
	return func(ctx context.Context, input RunScriptInput) (string, error) {
		interpreter := input.Interpreter
		if interpreter == "" {
			interpreter = opts.Interpreter
		}
		ext, ok := interpreters[interpreter]
		if !ok {
			return "", fmt.Errorf("%w: %s", toolsutil.ErrInterpreterRejected, interpreter)
		}

		path, err := writeScript(opts.Fs, input.Script, ext)
		if err != nil {
			return "", err
		}
		defer func() {
			if err := opts.Fs.Remove(path); err != nil {
				toolsutil.GetLogger().Warn("failed to remove script file", "path", path, "error", err)
			}
		}()

		res, err := opts.Runner.Run(ctx, shell.Command{
			Name:    interpreter,
			Args:    []string{path},
			Dir:     opts.WorkingDir,
			Timeout: toolsutil.Timeout(input.Timeout, opts.Timeout),
		})
		if err != nil {
			if errors.Is(err, shell.ErrTimeout) && res != nil {
				return "", fmt.Errorf("%w\n%s", err, toolsutil.ProcessReport(res))
			}
			return "", err
		}

		toolsutil.GetLogger().Info("ran script",
			"interpreter", interpreter,
			"exit_code", res.ExitCode,
			"duration", res.Duration,
			"stdout", toolsutil.FormatBytes(int64(len(res.Stdout))),
		)
		return toolsutil.ProcessReport(res), nil
	}
}

func writeScript(fs afero.Fs, script, ext string) (string, error) {
	f, err := afero.TempFile(fs, "", "stepwise-script-*"+ext)
	if err != nil {
		return "", fmt.Errorf("failed to create script file: %w", err)
	}
	path := f.Name()
	if _, err := f.WriteString(script); err != nil {
		f.Close()
		fs.Remove(path)
		return "", fmt.Errorf("failed to write script file: %w", err)
	}
	if err := f.Close(); err != nil {
		fs.Remove(path)
		return "", fmt.Errorf("failed to close script file: %w", err)
	}
	return path, nil
}
