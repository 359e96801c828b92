package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/elee1766/stepwise/src/app"
	"github.com/elee1766/stepwise/src/orchestrator"
	"github.com/elee1766/stepwise/src/storage"
)

var errUsage = errors.New("usage error")

// RunCmd plans a task and executes it step by step
type RunCmd struct {
	Task                []string `arg:"" optional:"" help:"Task to run. Asked for on stdin when omitted."`
	MaxSteps            int      `help:"Maximum number of plan steps"`
	MaxToolTurns        int      `help:"Maximum executor turns per step"`
	ContinueOnTurnLimit bool     `help:"Go on with the next step when a step runs out of turns"`
	Summary             bool     `short:"s" help:"Print a per-tool summary after the run"`
	JSON                bool     `help:"Print the final report as JSON instead of the trace"`
}

func (c *RunCmd) Run(ctx context.Context, cli *CLI) error {
	cfg, err := cli.loadConfig()
	if err != nil {
		return err
	}
	if c.MaxSteps != 0 {
		cfg.Planner.MaxSteps = c.MaxSteps
	}
	if c.MaxToolTurns != 0 {
		cfg.Executor.MaxToolTurns = c.MaxToolTurns
	}
	if c.ContinueOnTurnLimit {
		cfg.Run.ContinueOnTurnLimit = true
	}

	logger := createCLILogger(cfg.Log.Level)
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	out := os.Stdout
	if !c.JSON {
		fmt.Fprintf(out, "=== Using model %s from %s ===\n", cfg.API.Model, cfg.API.BaseURL)
	}
	task, err := readTask(c.Task, os.Stdin, out)
	if err != nil {
		return err
	}

	var processors []orchestrator.EventProcessor
	if !c.JSON {
		processors = append(processors, orchestrator.NewConsoleEventProcessor(orchestrator.ConsoleProcessorConfig{
			Out:               out,
			Color:             cli.color(),
			ShowToolArguments: cfg.Run.ShowToolArguments,
			MaxResultPreview:  cfg.Run.MaxResultPreview,
		}))
	}
	sink := orchestrator.NewChannelEventSink(64, logger, processors...)

	report, runErr := a.NewOrchestrator(sink).Run(ctx, task)
	if err := sink.Close(); err != nil {
		logger.Warn("failed to close event sink", "error", err)
	}
	if report == nil {
		return runErr
	}

	if c.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	}
	if c.Summary {
		// the journal is read after ctx may have been cancelled
		if err := printToolSummary(context.WithoutCancel(ctx), out, a.Journal, report.RunID); err != nil {
			logger.Warn("failed to print tool summary", "error", err)
		}
	}
	return runErr
}

// readTask joins args into the task, or prompts for it on in.
func readTask(args []string, in io.Reader, out io.Writer) (string, error) {
	task := strings.TrimSpace(strings.Join(args, " "))
	if task != "" {
		return task, nil
	}

	fmt.Fprint(out, "Task > ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read task: %w", err)
	}
	task = strings.TrimSpace(line)
	if task == "" {
		return "", fmt.Errorf("%w: no task given", errUsage)
	}
	return task, nil
}

func printToolSummary(ctx context.Context, out io.Writer, journal *storage.DB, runID string) error {
	summary, err := journal.ToolSummary(ctx, runID)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "=== Tool summary ===")
	if len(summary) == 0 {
		fmt.Fprintln(out, "no tool calls")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TOOL\tCALLS\tERRORS\tTIME")
	for _, s := range summary {
		fmt.Fprintf(w, "%s\t%d\t%d\t%dms\n", s.ToolName, s.Calls, s.Errors, s.TotalDurationMs)
	}
	return w.Flush()
}
