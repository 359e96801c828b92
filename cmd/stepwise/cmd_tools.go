package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/elee1766/stepwise/src/agent"
	"github.com/elee1766/stepwise/src/app"
	"github.com/elee1766/stepwise/src/stepagent/tools"
)

// ToolsCmd represents all tool-related commands
type ToolsCmd struct {
	List ToolsListCmd `cmd:"list" help:"List available tools"`
	Show ToolsShowCmd `cmd:"show" help:"Show the declaration sent to the model for a tool"`
	Exec ToolsExecCmd `cmd:"exec" help:"Run a tool directly with JSON arguments"`
}

// ToolsListCmd lists available tools
type ToolsListCmd struct {
	Format string `short:"f" enum:"table,json" default:"table" help:"Output format"`
}

func (c *ToolsListCmd) Run(ctx context.Context, cli *CLI) error {
	cfg, err := cli.loadConfig()
	if err != nil {
		return err
	}
	enabled := cfg.Tools.Enabled
	cfg.Tools.Enabled = tools.AllNames

	box, err := app.NewToolbox(cfg, createCLILogger(cfg.Log.Level))
	if err != nil {
		return fmt.Errorf("failed to build toolbox: %w", err)
	}

	switch c.Format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(box.Declarations())
	default:
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tENABLED\tSTRICT\tUNSAFE\tDESCRIPTION")
		for _, tool := range box.Tools() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				tool.GetName(),
				yesNo(slices.Contains(enabled, tool.GetName())),
				yesNo(tool.IsStrict()),
				yesNo(tool.IsUnsafe()),
				firstLine(tool.GetDescription()),
			)
		}
		return w.Flush()
	}
}

// ToolsShowCmd shows tool details
type ToolsShowCmd struct {
	Name string `arg:"" help:"Tool name"`
}

func (c *ToolsShowCmd) Run(ctx context.Context, cli *CLI) error {
	cfg, err := cli.loadConfig()
	if err != nil {
		return err
	}
	cfg.Tools.Enabled = tools.AllNames

	box, err := app.NewToolbox(cfg, createCLILogger(cfg.Log.Level))
	if err != nil {
		return fmt.Errorf("failed to build toolbox: %w", err)
	}
	tool, ok := box.GetTool(c.Name)
	if !ok {
		return fmt.Errorf("%w: unknown tool %q", errUsage, c.Name)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(agent.ToChatTool(tool))
}

// ToolsExecCmd runs one tool call outside of a run
type ToolsExecCmd struct {
	Name string `arg:"" help:"Tool name"`
	Args string `arg:"" optional:"" default:"{}" help:"Tool arguments as a JSON object"`
}

func (c *ToolsExecCmd) Run(ctx context.Context, cli *CLI) error {
	cfg, err := cli.loadConfig()
	if err != nil {
		return err
	}
	if !json.Valid([]byte(c.Args)) {
		return fmt.Errorf("%w: arguments are not valid JSON", errUsage)
	}

	box, err := app.NewToolbox(cfg, createCLILogger(cfg.Log.Level))
	if err != nil {
		return fmt.Errorf("failed to build toolbox: %w", err)
	}
	if !box.HasTool(c.Name) {
		return fmt.Errorf("%w: tool %q is not enabled (enabled: %s)", errUsage, c.Name, strings.Join(box.Names(), ", "))
	}

	fmt.Println(box.Dispatch(ctx, c.Name, json.RawMessage(c.Args)))
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func firstLine(s string) string {
	s, _, _ = strings.Cut(strings.TrimSpace(s), "\n")
	return s
}
