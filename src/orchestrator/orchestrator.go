// Package orchestrator drives a task through planning and the per-step
// execute/tool loop.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/elee1766/stepwise/src/aisdk"
	"github.com/elee1766/stepwise/src/executor"
	"github.com/elee1766/stepwise/src/memory"
	"github.com/elee1766/stepwise/src/planner"
	"github.com/elee1766/stepwise/src/storage"
	"github.com/google/uuid"
)

const (
	DefaultMaxSteps     = 50
	DefaultMaxToolTurns = 8
)

var (
	// ErrTurnLimitExceeded is wrapped by TurnLimitError.
	ErrTurnLimitExceeded = errors.New("tool call limit exceeded")

	// ErrEmptyTask is planner.ErrEmptyTask, returned before the run starts.
	ErrEmptyTask = planner.ErrEmptyTask
)

// TurnLimitError reports the step that ran out of turns.
type TurnLimitError struct {
	StepIndex int
	Step      string
	Limit     int
}

func (e *TurnLimitError) Error() string {
	return fmt.Sprintf("step %d %q exceeded tool call limit (%d)", e.StepIndex, e.Step, e.Limit)
}

func (e *TurnLimitError) Unwrap() error { return ErrTurnLimitExceeded }

// Planner produces the plan for a task.
type Planner interface {
	Plan(ctx context.Context, task string, maxSteps int) (*planner.Plan, error)
	Usage() aisdk.TokenCounter
}

// StepExecutor runs one turn of a step.
type StepExecutor interface {
	Execute(ctx context.Context, stepContext []*aisdk.Message, step string, tools []*aisdk.ChatTool) (executor.Outcome, error)
	Usage() aisdk.TokenCounter
}

// Dispatcher runs tool calls by name. Dispatch never fails, errors are
// rendered into the returned text.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, args json.RawMessage) string
	Declarations() []*aisdk.ChatTool
	HasTool(name string) bool
}

// Journal records what happened during a run.
type Journal interface {
	CreateRun(ctx context.Context, run *storage.Run) error
	FinishRun(ctx context.Context, run *storage.Run) error
	RecordStep(ctx context.Context, step *storage.Step) error
	RecordToolExecution(ctx context.Context, execution *storage.ToolExecution) error
}

// Config configures an Orchestrator.
type Config struct {
	MaxSteps     int
	MaxToolTurns int
	// ContinueOnTurnLimit records a step that runs out of turns as
	// StatusTurnLimit and moves on instead of failing the run.
	ContinueOnTurnLimit bool
	// Model is only stored in the journal.
	Model  string
	Logger *slog.Logger
}

type Orchestrator struct {
	config   Config
	planner  Planner
	executor StepExecutor
	tools    Dispatcher
	sink     EventSink
	journal  Journal
	logger   *slog.Logger
}

// New creates an orchestrator. sink and journal may be nil.
func New(config Config, p Planner, e StepExecutor, tools Dispatcher, sink EventSink, journal Journal) *Orchestrator {
	if config.MaxSteps <= 0 {
		config.MaxSteps = DefaultMaxSteps
	}
	if config.MaxToolTurns <= 0 {
		config.MaxToolTurns = DefaultMaxToolTurns
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		config:   config,
		planner:  p,
		executor: e,
		tools:    tools,
		sink:     sink,
		journal:  journal,
		logger:   logger.With("component", "orchestrator"),
	}
}

// Run plans task and executes every step in order. The report is returned
// even when the run fails, with whatever was completed and the token usage
// so far.
//
// Steps that end with an unusable answer are abandoned and the run goes on.
// Executor errors, plan failures and an exhausted turn budget (unless
// ContinueOnTurnLimit is set) abort the run.
func (o *Orchestrator) Run(ctx context.Context, task string) (report *Report, err error) {
	task = strings.TrimSpace(task)
	if task == "" {
		return nil, ErrEmptyTask
	}

	started := time.Now()
	mem := memory.NewStore()
	report = &Report{RunID: uuid.New().String(), Task: task}
	logger := o.logger.With("run_id", report.RunID)

	run := &storage.Run{ID: report.RunID, Task: task, Model: o.config.Model, StartedAt: started}
	if o.journal != nil {
		if jerr := o.journal.CreateRun(ctx, run); jerr != nil {
			logger.Warn("failed to record run", "error", jerr)
		}
	}

	defer func() {
		report.Usage = o.usage()
		report.Memory = mem.Pairs()
		report.Duration = time.Since(started)
		o.emit(&RunCompletedEvent{
			BaseEvent: o.base(EventRunCompleted, report.RunID, 0),
			Usage:     report.Usage,
			Duration:  report.Duration,
			Err:       err,
		})
		o.finishRun(ctx, run, report, err)
		if err != nil {
			logger.Error("run failed", "error", err, "duration", report.Duration)
		} else {
			logger.Info("run completed", "steps", len(report.Steps), "duration", report.Duration)
		}
	}()

	plan, err := o.planner.Plan(ctx, task, o.config.MaxSteps)
	if err != nil {
		return report, fmt.Errorf("planning failed: %w", err)
	}
	report.Plan = plan.Steps
	logger.Info("plan created", "steps", len(plan.Steps))
	o.emit(&PlanCreatedEvent{
		BaseEvent: o.base(EventPlanCreated, report.RunID, 0),
		Task:      task,
		Steps:     plan.Steps,
	})

	tools := o.tools.Declarations()
	for i, step := range plan.Steps {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		stepReport, err := o.runStep(ctx, report.RunID, i+1, step, mem, tools)
		report.Steps = append(report.Steps, stepReport)
		o.recordStep(ctx, report.RunID, stepReport)
		if err != nil {
			return report, err
		}
	}
	return report, nil
}

func (o *Orchestrator) runStep(ctx context.Context, runID string, index int, step string, mem *memory.Store, tools []*aisdk.ChatTool) (StepReport, error) {
	logger := o.logger.With("run_id", runID, "step_index", index)
	sr := StepReport{Index: index, Step: step}
	o.emit(&StepStartedEvent{BaseEvent: o.base(EventStepStarted, runID, index), Step: step})

	// the context is per step, memory is the only thing carried over
	var stepContext []*aisdk.Message
	if msg := mem.Message(); msg != nil {
		stepContext = append(stepContext, msg)
	}

	for {
		if sr.Turns >= o.config.MaxToolTurns {
			limitErr := &TurnLimitError{StepIndex: index, Step: step, Limit: o.config.MaxToolTurns}
			sr.Status = StatusTurnLimit
			sr.Reason = limitErr.Error()
			o.warn(runID, sr)
			if o.config.ContinueOnTurnLimit {
				logger.Warn("step exceeded tool call limit, continuing", "limit", o.config.MaxToolTurns)
				return sr, nil
			}
			return sr, limitErr
		}
		sr.Turns++

		out, err := o.executor.Execute(ctx, stepContext, step, tools)
		if err != nil {
			sr.Status = StatusFailed
			sr.Reason = err.Error()
			return sr, fmt.Errorf("step %d: %w", index, err)
		}

		switch out.Kind {
		case executor.OutcomeFailed:
			sr.Status = StatusAbandoned
			sr.Reason = out.Reason
			logger.Warn("step abandoned", "reason", out.Reason, "turns", sr.Turns)
			o.warn(runID, sr)
			return sr, nil

		case executor.OutcomeToolsRequested:
			o.emit(&ToolsRequestedEvent{
				BaseEvent: o.base(EventToolsRequested, runID, index),
				Turn:      sr.Turns,
				ToolCalls: out.ToolCalls,
			})
			stepContext = append(stepContext, out.Message)
			for _, call := range out.ToolCalls {
				stepContext = append(stepContext, o.dispatch(ctx, runID, index, sr.Turns, call).Message())
			}

		case executor.OutcomeCompleted:
			sr.Status = StatusCompleted
			sr.Result = out.Result.Result
			sr.Observation = out.Result.Observation
			sr.MemoryUpdates = out.Result.MemoryUpdates
			mem.Apply(out.Result.MemoryUpdates)
			o.emit(&StepCompletedEvent{
				BaseEvent: o.base(EventStepCompleted, runID, index),
				Step:      step,
				Turns:     sr.Turns,
				Result:    out.Result,
			})
			return sr, nil
		}
	}
}

// dispatch runs one tool call sequentially and records it.
func (o *Orchestrator) dispatch(ctx context.Context, runID string, index, turn int, call aisdk.ToolCall) executor.ToolResult {
	start := time.Now()
	output := o.tools.Dispatch(ctx, call.Function.Name, call.Function.Arguments)
	duration := time.Since(start)

	o.emit(&ToolCallExecutedEvent{
		BaseEvent: o.base(EventToolCallExecuted, runID, index),
		Turn:      turn,
		ToolCall:  call,
		Output:    output,
		Duration:  duration,
	})

	if o.journal != nil {
		err := o.journal.RecordToolExecution(ctx, &storage.ToolExecution{
			RunID:      runID,
			StepIndex:  index,
			Turn:       turn,
			CallID:     call.ID,
			ToolName:   call.Function.Name,
			Input:      string(call.Function.Arguments),
			Output:     output,
			IsError:    !o.tools.HasTool(call.Function.Name) || strings.HasPrefix(output, "Error: "),
			DurationMs: duration.Milliseconds(),
		})
		if err != nil {
			o.logger.Warn("failed to record tool execution", "tool", call.Function.Name, "error", err)
		}
	}

	return executor.ToolResult{CallID: call.ID, Output: output}
}

func (o *Orchestrator) warn(runID string, sr StepReport) {
	o.emit(&StepWarningEvent{
		BaseEvent: o.base(EventStepWarning, runID, sr.Index),
		Step:      sr.Step,
		Status:    sr.Status,
		Reason:    sr.Reason,
	})
}

func (o *Orchestrator) usage() Usage {
	p := o.planner.Usage()
	e := o.executor.Usage()
	return Usage{Planner: p, Executor: e, Combined: p.Plus(e)}
}

func (o *Orchestrator) base(t EventType, runID string, stepIndex int) BaseEvent {
	return BaseEvent{Type: t, Timestamp: time.Now(), RunID: runID, StepIndex: stepIndex}
}

func (o *Orchestrator) emit(event Event) {
	if o.sink == nil {
		return
	}
	if err := o.sink.Send(event); err != nil {
		o.logger.Debug("failed to send event", "event", event.GetType(), "error", err)
	}
}

func (o *Orchestrator) recordStep(ctx context.Context, runID string, sr StepReport) {
	if o.journal == nil {
		return
	}
	keys := make(storage.JSONStringArray, 0, len(sr.MemoryUpdates))
	for _, kv := range sr.MemoryUpdates {
		keys = append(keys, kv.Key)
	}
	err := o.journal.RecordStep(ctx, &storage.Step{
		RunID:       runID,
		StepIndex:   sr.Index,
		Step:        sr.Step,
		Status:      string(sr.Status),
		Result:      sr.Result,
		Observation: sr.Observation,
		Reason:      sr.Reason,
		Turns:       sr.Turns,
		MemoryKeys:  keys,
	})
	if err != nil {
		o.logger.Warn("failed to record step", "step_index", sr.Index, "error", err)
	}
}

func (o *Orchestrator) finishRun(ctx context.Context, run *storage.Run, report *Report, runErr error) {
	if o.journal == nil {
		return
	}
	run.Status = storage.RunStatusCompleted
	if runErr != nil {
		run.Status = storage.RunStatusFailed
		run.Error = runErr.Error()
	}
	run.Plan = report.Plan
	run.PlannerInputTokens = report.Usage.Planner.Input
	run.PlannerOutputTokens = report.Usage.Planner.Output
	run.PlannerTotalTokens = report.Usage.Planner.Total
	run.ExecutorInputTokens = report.Usage.Executor.Input
	run.ExecutorOutputTokens = report.Usage.Executor.Output
	run.ExecutorTotalTokens = report.Usage.Executor.Total
	// the run is closed out even when ctx was cancelled
	if err := o.journal.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		o.logger.Warn("failed to finish run", "error", err)
	}
}
