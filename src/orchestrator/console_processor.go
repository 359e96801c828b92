package orchestrator

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/elee1766/stepwise/src/theme"
)

// ConsoleProcessorConfig configures the console event processor
type ConsoleProcessorConfig struct {
	Out io.Writer
	// Color enables lipgloss styling and chroma highlighting of tool
	// arguments.
	Color bool
	// ShowToolArguments prints the arguments of executed tool calls.
	ShowToolArguments bool
	// MaxResultPreview is the display width tool outputs are cut to. A
	// negative value disables truncation.
	MaxResultPreview int
	HighlightStyle   string
	// Theme colors the trace when Color is set. Unset colors fall back to
	// theme.Default.
	Theme theme.Theme
}

// ConsoleEventProcessor prints the run trace.
type ConsoleEventProcessor struct {
	config ConsoleProcessorConfig

	header  lipgloss.Style
	section lipgloss.Style
	warning lipgloss.Style
	muted   lipgloss.Style
}

// NewConsoleEventProcessor creates a new console event processor
func NewConsoleEventProcessor(config ConsoleProcessorConfig) *ConsoleEventProcessor {
	if config.Out == nil {
		config.Out = os.Stdout
	}
	if config.MaxResultPreview == 0 {
		config.MaxResultPreview = 200
	}
	if config.HighlightStyle == "" {
		config.HighlightStyle = "monokai"
	}

	r := lipgloss.NewRenderer(config.Out)
	p := &ConsoleEventProcessor{
		config:  config,
		header:  r.NewStyle(),
		section: r.NewStyle(),
		warning: r.NewStyle(),
		muted:   r.NewStyle(),
	}
	if config.Color {
		t := config.Theme.OrDefault()
		p.header = p.header.Bold(true).Foreground(t.Header)
		p.section = p.section.Bold(true).Foreground(t.Section)
		p.warning = p.warning.Bold(true).Foreground(t.Warning)
		p.muted = p.muted.Foreground(t.Muted)
	}
	return p
}

// Process handles a single event
func (p *ConsoleEventProcessor) Process(event Event) error {
	switch e := event.(type) {
	case *PlanCreatedEvent:
		p.processPlanCreated(e)
	case *StepStartedEvent:
		p.printf("%s\n", p.section.Render(fmt.Sprintf("== Step %d ==", e.StepIndex)))
		p.printf("Step: %s\n\n", e.Step)
	case *ToolsRequestedEvent:
		p.printf("%s\n", p.section.Render(fmt.Sprintf("== Model requested %d tool calls ==", len(e.ToolCalls))))
	case *ToolCallExecutedEvent:
		p.processToolCallExecuted(e)
	case *StepCompletedEvent:
		p.printf("%s\n", p.header.Render(fmt.Sprintf("=== Result of step %d ===", e.StepIndex)))
		p.printf("Result: %s\n", e.Result.Result)
		p.printf("Observation: %s\n", e.Result.Observation)
	case *StepWarningEvent:
		p.processStepWarning(e)
	case *RunCompletedEvent:
		p.printf("%s\n", p.header.Render("=== Token usage ==="))
		p.printf("planner tokens used: %s\n", e.Usage.Planner)
		p.printf("executor tokens used: %s\n", e.Usage.Executor)
		p.printf("combined tokens used: %s\n", e.Usage.Combined)
	}
	return nil
}

// Close cleans up resources
func (p *ConsoleEventProcessor) Close() error {
	return nil
}

func (p *ConsoleEventProcessor) processPlanCreated(e *PlanCreatedEvent) {
	p.printf("%s\n\n", p.header.Render("=== Plan ==="))
	for i, step := range e.Steps {
		p.printf("Step %d. %s\n", i+1, step)
	}
	p.printf("%s\n", p.muted.Render(strings.Repeat("=", 20)))
	p.printf("%s\n", p.header.Render("=== Execution ==="))
}

func (p *ConsoleEventProcessor) processToolCallExecuted(e *ToolCallExecutedEvent) {
	args := ""
	if p.config.ShowToolArguments {
		args = p.highlight(string(e.ToolCall.Function.Arguments))
	}
	p.printf("%s%s%s%s\n",
		p.section.Render("== Executed tool call "),
		e.ToolCall.Function.Name+"("+args+")",
		" = "+quote(p.preview(e.Output)),
		p.section.Render(" =="),
	)
}

func (p *ConsoleEventProcessor) processStepWarning(e *StepWarningEvent) {
	var msg string
	switch e.Status {
	case StatusTurnLimit:
		msg = fmt.Sprintf("=== WARNING (%s) ===", e.Reason)
	default:
		msg = fmt.Sprintf("=== WARNING (no result for step %d: %s) ===", e.StepIndex, e.Reason)
	}
	p.printf("%s\n", p.warning.Render(msg))
}

// preview cuts s to MaxResultPreview cells.
func (p *ConsoleEventProcessor) preview(s string) string {
	if p.config.MaxResultPreview < 0 {
		return s
	}
	return ansi.Truncate(s, p.config.MaxResultPreview, "...")
}

func (p *ConsoleEventProcessor) highlight(args string) string {
	if !p.config.Color || args == "" {
		return args
	}
	var b strings.Builder
	if err := quick.Highlight(&b, args, "json", "terminal256", p.config.HighlightStyle); err != nil {
		return args
	}
	return b.String()
}

func (p *ConsoleEventProcessor) printf(format string, args ...any) {
	fmt.Fprintf(p.config.Out, format, args...)
}

func quote(s string) string {
	return "'" + s + "'"
}
