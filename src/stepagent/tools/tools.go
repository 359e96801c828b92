package tools

// This file provides barrel-style re-exports for all tools and builds the
// toolbox a run is given.

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/elee1766/stepwise/src/agent"
	"github.com/elee1766/stepwise/src/fs"
	"github.com/elee1766/stepwise/src/shell"
	tool_calculate "github.com/elee1766/stepwise/src/stepagent/tools/tool_calculate"
	tool_listdir "github.com/elee1766/stepwise/src/stepagent/tools/tool_listdir"
	tool_readfile "github.com/elee1766/stepwise/src/stepagent/tools/tool_readfile"
	tool_runcommand "github.com/elee1766/stepwise/src/stepagent/tools/tool_runcommand"
	tool_runscript "github.com/elee1766/stepwise/src/stepagent/tools/tool_runscript"
	tool_webfetch "github.com/elee1766/stepwise/src/stepagent/tools/tool_webfetch"
	"github.com/elee1766/stepwise/src/stepagent/toolsutil"
	"github.com/spf13/afero"
)

// Tool name constants - re-exported from individual packages
const (
	CalculateName  = tool_calculate.Name
	RunScriptName  = tool_runscript.Name
	RunCommandName = tool_runcommand.Name
	WebFetchName   = tool_webfetch.Name
	ReadFileName   = tool_readfile.Name
	ListDirName    = tool_listdir.Name
)

// AllNames lists every tool this package can build, in registration order.
var AllNames = []string{CalculateName, RunScriptName, RunCommandName, WebFetchName, ReadFileName, ListDirName}

// DefaultEnabled are the tools registered when no selection is configured.
var DefaultEnabled = []string{CalculateName, RunScriptName, RunCommandName}

// Config selects and configures the tools of a toolbox.
type Config struct {
	Enabled           []string
	ScriptInterpreter string
	Timeout           time.Duration
	WorkingDir        string
}

func CalculateTool() (agent.Tool, error) { return tool_calculate.Tool() }
func RunScriptTool(opts tool_runscript.Options) (agent.Tool, error) {
	return tool_runscript.Tool(opts)
}
func RunCommandTool(opts tool_runcommand.Options) (agent.Tool, error) {
	return tool_runcommand.Tool(opts)
}
func WebFetchTool() (agent.Tool, error) { return tool_webfetch.Tool(tool_webfetch.Options{}) }
func ReadFileTool(fsys *fs.ContextualFs) (agent.Tool, error) { return tool_readfile.Tool(fsys) }
func ListDirTool(fsys *fs.ContextualFs) (agent.Tool, error)  { return tool_listdir.Tool(fsys) }

// NewToolbox registers the enabled tools, in the order of AllNames, behind
// panic recovery and logging middleware. base holds temporary script files
// and is what the file tools read, relative to cfg.WorkingDir.
func NewToolbox(cfg Config, base afero.Fs, logger *slog.Logger) (*agent.DefaultToolbox, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if base == nil {
		base = afero.NewOsFs()
	}
	workFs := fs.NewContextualFs(base, cfg.WorkingDir)
	toolsutil.SetLogger(logger.With("component", "tools"))

	enabled := cfg.Enabled
	if enabled == nil {
		enabled = DefaultEnabled
	}
	want := make(map[string]bool, len(enabled))
	for _, name := range enabled {
		if !slices.Contains(AllNames, name) {
			return nil, fmt.Errorf("unknown tool %q", name)
		}
		want[name] = true
	}

	runner := shell.NewRunner(logger, cfg.Timeout)

	tb := agent.NewToolbox[agent.Tool]()
	tb.RegisterMiddleware(agent.RecoverMiddleware())
	tb.RegisterMiddleware(agent.LoggingMiddleware(logger.With("component", "toolbox")))

	for _, name := range AllNames {
		if !want[name] {
			continue
		}

		var (
			tool agent.Tool
			err  error
		)
		switch name {
		case CalculateName:
			tool, err = CalculateTool()
		case RunScriptName:
			tool, err = RunScriptTool(tool_runscript.Options{
				Fs:          base,
				Runner:      runner,
				Interpreter: cfg.ScriptInterpreter,
				Timeout:     cfg.Timeout,
				WorkingDir:  cfg.WorkingDir,
			})
		case RunCommandName:
			tool, err = RunCommandTool(tool_runcommand.Options{
				Runner:     runner,
				Timeout:    cfg.Timeout,
				WorkingDir: cfg.WorkingDir,
			})
		case WebFetchName:
			tool, err = WebFetchTool()
		case ReadFileName:
			tool, err = ReadFileTool(workFs)
		case ListDirName:
			tool, err = ListDirTool(workFs)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create %s tool: %w", name, err)
		}
		if err := tb.RegisterTool(tool); err != nil {
			return nil, err
		}
	}

	return tb, nil
}
