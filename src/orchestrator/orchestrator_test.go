package orchestrator

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/elee1766/stepwise/src/agent"
	"github.com/elee1766/stepwise/src/aisdk"
	"github.com/elee1766/stepwise/src/aisdk/aisdktest"
	"github.com/elee1766/stepwise/src/executor"
	"github.com/elee1766/stepwise/src/planner"
	"github.com/elee1766/stepwise/src/stepagent/tools"
	"github.com/elee1766/stepwise/src/storage"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type harness struct {
	plannerClient  *aisdktest.Client
	executorClient *aisdktest.Client
	toolbox        *agent.DefaultToolbox
	collector      *EventCollector
	sink           *ChannelEventSink
	journal        *storage.DB
	orch           *Orchestrator
}

func newHarness(t *testing.T, cfg Config, plan []string, executorReplies ...aisdktest.Reply) *harness {
	t.Helper()

	h := &harness{
		plannerClient:  aisdktest.NewClient(aisdktest.JSON(map[string]any{"steps": plan}, aisdktest.Usage(10, 5))),
		executorClient: aisdktest.NewClient(executorReplies...),
		collector:      &EventCollector{},
	}

	var err error
	h.toolbox, err = tools.NewToolbox(tools.Config{Enabled: []string{tools.CalculateName}}, afero.NewMemMapFs(), discard)
	require.NoError(t, err)

	h.journal, err = storage.OpenMemory(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { h.journal.Close() })

	h.sink = NewChannelEventSink(16, discard, h.collector)
	t.Cleanup(func() { h.sink.Close() })

	cfg.Logger = discard
	h.orch = New(cfg,
		planner.New(h.plannerClient, planner.Config{Logger: discard}),
		executor.New(h.executorClient, executor.Config{Logger: discard}),
		h.toolbox, h.sink, h.journal)
	return h
}

// events closes the sink so every event has been processed.
func (h *harness) events(t *testing.T) []EventType {
	t.Helper()
	require.NoError(t, h.sink.Close())
	return h.collector.Types()
}

func result(res, obs string, memory ...[]string) aisdktest.Reply {
	answer := map[string]any{"result": res, "observation": obs}
	if len(memory) > 0 {
		answer["memory_updates"] = memory
	}
	return aisdktest.JSON(answer, aisdktest.Usage(3, 1))
}

func calc(id, expr string) aisdktest.Reply {
	return aisdktest.ToolCalls(aisdktest.Usage(4, 2), aisdktest.Call(id, "calculate", `{"expression":"`+expr+`"}`))
}

func TestRunSingleToolCall(t *testing.T) {
	h := newHarness(t, Config{}, []string{"Compute 12 * 7"},
		calc("call_1", "12*7"),
		result("84", "Multiplied 12 by 7 with the calculator."),
	)

	report, err := h.orch.Run(context.Background(), "Compute 12 * 7")
	require.NoError(t, err)

	assert.Equal(t, []string{"Compute 12 * 7"}, report.Plan)
	require.Len(t, report.Steps, 1)
	assert.Equal(t, StepReport{
		Index:       1,
		Step:        "Compute 12 * 7",
		Status:      StatusCompleted,
		Result:      "84",
		Observation: "Multiplied 12 by 7 with the calculator.",
		Turns:       2,
	}, report.Steps[0])
	assert.True(t, report.Completed())

	// the second turn sees the assistant tool call and its result
	reqs := h.executorClient.Requests()
	require.Len(t, reqs, 2)
	assert.Len(t, reqs[0].Messages, 2)
	require.Len(t, reqs[1].Messages, 4)
	assert.Equal(t, aisdk.RoleAssistant, reqs[1].Messages[2].Role)
	toolMsg := reqs[1].Messages[3]
	assert.Equal(t, aisdk.RoleTool, toolMsg.Role)
	assert.Equal(t, "call_1", toolMsg.ToolCallID)
	assert.JSONEq(t, `{"result":"84"}`, toolMsg.Content)
	assert.NotEmpty(t, reqs[0].Tools)

	assert.Equal(t, []EventType{
		EventPlanCreated,
		EventStepStarted,
		EventToolsRequested,
		EventToolCallExecuted,
		EventStepCompleted,
		EventRunCompleted,
	}, h.events(t))
}

func TestRunUnknownTool(t *testing.T) {
	h := newHarness(t, Config{}, []string{"Translate hello to French"},
		aisdktest.ToolCalls(aisdktest.Usage(1, 1), aisdktest.Call("call_1", "translate", `{"text":"hello"}`)),
		result("bonjour", "No translation tool exists, answered directly."),
	)

	report, err := h.orch.Run(context.Background(), "Translate hello to French")
	require.NoError(t, err)
	assert.Equal(t, "bonjour", report.Steps[0].Result)

	toolMsg := h.executorClient.Requests()[1].Messages[3]
	assert.JSONEq(t, `{"result":"Tool translate does not exist"}`, toolMsg.Content)

	summary, err := h.journal.ToolSummary(context.Background(), report.RunID)
	require.NoError(t, err)
	assert.Equal(t, []storage.ToolSummary{{ToolName: "translate", Calls: 1, Errors: 1}}, summary)
}

func TestRunTurnLimit(t *testing.T) {
	h := newHarness(t, Config{}, []string{"Loop forever", "Never reached"}, calc("", "1+1"))
	h.executorClient.Repeat = true

	report, err := h.orch.Run(context.Background(), "loop")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTurnLimitExceeded)

	var limitErr *TurnLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, 1, limitErr.StepIndex)
	assert.Equal(t, "Loop forever", limitErr.Step)
	assert.Equal(t, DefaultMaxToolTurns, limitErr.Limit)

	assert.Equal(t, DefaultMaxToolTurns, h.executorClient.Calls())
	require.Len(t, report.Steps, 1)
	assert.Equal(t, StatusTurnLimit, report.Steps[0].Status)
	assert.Equal(t, DefaultMaxToolTurns, report.Steps[0].Turns)
	assert.False(t, report.Completed())

	// usage is reported for every call made before the abort
	assert.Equal(t, 6*DefaultMaxToolTurns, report.Usage.Executor.Total)

	run, err := storage.GetRunByID(context.Background(), h.journal.DB(), report.RunID)
	require.NoError(t, err)
	assert.Equal(t, storage.RunStatusFailed, run.Status)
	assert.Contains(t, run.Error, "exceeded tool call limit (8)")
}

func TestRunContinueOnTurnLimit(t *testing.T) {
	h := newHarness(t, Config{MaxToolTurns: 2, ContinueOnTurnLimit: true}, []string{"Loop", "Finish"},
		calc("a", "1"),
		calc("b", "2"),
		result("done", "Finished."),
	)

	report, err := h.orch.Run(context.Background(), "task")
	require.NoError(t, err)
	require.Len(t, report.Steps, 2)
	assert.Equal(t, StatusTurnLimit, report.Steps[0].Status)
	assert.Equal(t, 2, report.Steps[0].Turns)
	assert.Equal(t, StatusCompleted, report.Steps[1].Status)
	assert.Equal(t, 3, h.executorClient.Calls())
	assert.Contains(t, h.events(t), EventStepWarning)
}

func TestRunCarriesMemoryAcrossSteps(t *testing.T) {
	h := newHarness(t, Config{}, []string{"Compute 12 * 7", "Add 1 to the product"},
		result("84", "Computed.", []string{"product", "84"}),
		result("85", "Added one.", []string{"product", "85"}, []string{"done", "yes"}),
	)

	report, err := h.orch.Run(context.Background(), "task")
	require.NoError(t, err)

	reqs := h.executorClient.Requests()
	require.Len(t, reqs, 2)
	// the first step has no memory, the second starts with it
	assert.Len(t, reqs[0].Messages, 2)
	require.Len(t, reqs[1].Messages, 3)
	assert.Equal(t, aisdk.RoleUser, reqs[1].Messages[2].Role)
	assert.Equal(t, "Memory from previous steps (key/value pairs):\n[[\"product\",\"84\"]]", reqs[1].Messages[2].Content)

	require.Len(t, report.Memory, 2)
	assert.Equal(t, "product", report.Memory[0].Key)
	assert.Equal(t, "85", report.Memory[0].Value)
	assert.Equal(t, "done", report.Memory[1].Key)

	steps, err := storage.GetStepsByRunID(context.Background(), h.journal.DB(), report.RunID)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, storage.JSONStringArray{"product", "done"}, steps[1].MemoryKeys)
}

func TestRunAbandonedStepContinues(t *testing.T) {
	h := newHarness(t, Config{}, []string{"Say nothing", "Say something"},
		aisdktest.Text("", aisdktest.Usage(1, 0)),
		result("something", "Said it."),
	)

	report, err := h.orch.Run(context.Background(), "task")
	require.NoError(t, err)
	require.Len(t, report.Steps, 2)
	assert.Equal(t, StatusAbandoned, report.Steps[0].Status)
	assert.Equal(t, "empty answer", report.Steps[0].Reason)
	assert.Equal(t, StatusCompleted, report.Steps[1].Status)
	assert.False(t, report.Completed())

	events := h.events(t)
	assert.Contains(t, events, EventStepWarning)
	assert.Equal(t, EventRunCompleted, events[len(events)-1])
}

func TestRunProtocolViolation(t *testing.T) {
	both := calc("call_1", "1+1")
	both.Response.Choices[0].Message.Content = `{"result":"2","observation":"added"}`
	h := newHarness(t, Config{}, []string{"Add", "Never reached"}, both)

	report, err := h.orch.Run(context.Background(), "task")
	assert.ErrorIs(t, err, executor.ErrProtocolViolation)
	require.Len(t, report.Steps, 1)
	assert.Equal(t, StatusFailed, report.Steps[0].Status)
	assert.Equal(t, 1, h.executorClient.Calls())
}

func TestRunPlanFailure(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	h.plannerClient = aisdktest.NewClient(aisdktest.Text("1. do it", aisdktest.Usage(7, 3)))
	h.orch.planner = planner.New(h.plannerClient, planner.Config{Logger: discard})

	report, err := h.orch.Run(context.Background(), "task")
	assert.ErrorIs(t, err, planner.ErrSchemaParseFailure)
	require.NotNil(t, report)
	assert.Empty(t, report.Steps)
	assert.Equal(t, aisdk.TokenCounter{Input: 7, Output: 3, Total: 10}, report.Usage.Planner)
	assert.Equal(t, 0, h.executorClient.Calls())
	assert.Equal(t, []EventType{EventRunCompleted}, h.events(t))
}

func TestRunPassesMaxSteps(t *testing.T) {
	h := newHarness(t, Config{MaxSteps: 3}, []string{"a", "b", "c", "d"})

	_, err := h.orch.Run(context.Background(), "task")
	assert.ErrorIs(t, err, planner.ErrSchemaParseFailure)
	assert.Contains(t, h.plannerClient.Requests()[0].Messages[0].Content, "max_steps:\n3")
}

func TestRunUsageAggregation(t *testing.T) {
	h := newHarness(t, Config{}, []string{"Compute 12 * 7"},
		calc("call_1", "12*7"),
		result("84", "done"),
	)

	report, err := h.orch.Run(context.Background(), "task")
	require.NoError(t, err)
	assert.Equal(t, Usage{
		Planner:  aisdk.TokenCounter{Input: 10, Output: 5, Total: 15},
		Executor: aisdk.TokenCounter{Input: 7, Output: 3, Total: 10},
		Combined: aisdk.TokenCounter{Input: 17, Output: 8, Total: 25},
	}, report.Usage)

	run, err := storage.GetRunByID(context.Background(), h.journal.DB(), report.RunID)
	require.NoError(t, err)
	assert.Equal(t, storage.RunStatusCompleted, run.Status)
	assert.Equal(t, 15, run.PlannerTotalTokens)
	assert.Equal(t, 10, run.ExecutorTotalTokens)
	assert.Equal(t, storage.JSONStringArray{"Compute 12 * 7"}, run.Plan)
}

func TestRunEmptyTask(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	_, err := h.orch.Run(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyTask)
	assert.ErrorIs(t, err, planner.ErrEmptyTask)
	assert.Equal(t, 0, h.plannerClient.Calls())
}

func TestRunWithoutSinkOrJournal(t *testing.T) {
	plannerClient := aisdktest.NewClient(aisdktest.JSON(map[string]any{"steps": []string{"a"}}, aisdktest.Usage(1, 1)))
	executorClient := aisdktest.NewClient(result("x", "y"))
	toolbox := agent.NewToolbox[agent.Tool]()

	o := New(Config{Logger: discard},
		planner.New(plannerClient, planner.Config{Logger: discard}),
		executor.New(executorClient, executor.Config{Logger: discard}),
		toolbox, nil, nil)

	report, err := o.Run(context.Background(), "task")
	require.NoError(t, err)
	assert.Equal(t, "x", report.Steps[0].Result)
	// no tools, no declarations
	assert.Nil(t, executorClient.Requests()[0].Tools)
}

func TestConsoleTrace(t *testing.T) {
	var out bytes.Buffer
	console := NewConsoleEventProcessor(ConsoleProcessorConfig{Out: &out, ShowToolArguments: true})

	h := newHarness(t, Config{}, []string{"Compute 12 * 7"},
		calc("call_1", "12*7"),
		result("84", "Multiplied."),
	)
	h.sink = NewChannelEventSink(16, discard, console)
	h.orch.sink = h.sink

	_, err := h.orch.Run(context.Background(), "Compute 12 * 7")
	require.NoError(t, err)
	require.NoError(t, h.sink.Close())

	want := "=== Plan ===\n" +
		"\n" +
		"Step 1. Compute 12 * 7\n" +
		"====================\n" +
		"=== Execution ===\n" +
		"== Step 1 ==\n" +
		"Step: Compute 12 * 7\n" +
		"\n" +
		"== Model requested 1 tool calls ==\n" +
		"== Executed tool call calculate({\"expression\":\"12*7\"}) = '84' ==\n" +
		"=== Result of step 1 ===\n" +
		"Result: 84\n" +
		"Observation: Multiplied.\n" +
		"=== Token usage ===\n" +
		"planner tokens used: input 10, output 5, total 15\n" +
		"executor tokens used: input 7, output 3, total 10\n" +
		"combined tokens used: input 17, output 8, total 25\n"
	assert.Equal(t, want, ansi.Strip(out.String()))
}

func TestConsoleTruncatesOutput(t *testing.T) {
	var out bytes.Buffer
	console := NewConsoleEventProcessor(ConsoleProcessorConfig{Out: &out, MaxResultPreview: 8})

	require.NoError(t, console.Process(&ToolCallExecutedEvent{
		BaseEvent: BaseEvent{Type: EventToolCallExecuted, StepIndex: 1},
		ToolCall:  aisdktest.Call("c", "run_command", `{"command":"ls"}`),
		Output:    "abcdefghijklmnop",
	}))
	assert.Equal(t, "== Executed tool call run_command() = 'abcde...' ==\n", ansi.Strip(out.String()))
}

func TestConsoleWarnings(t *testing.T) {
	var out bytes.Buffer
	console := NewConsoleEventProcessor(ConsoleProcessorConfig{Out: &out})

	require.NoError(t, console.Process(&StepWarningEvent{
		BaseEvent: BaseEvent{Type: EventStepWarning, StepIndex: 2},
		Status:    StatusAbandoned,
		Reason:    "empty answer",
	}))
	limit := &TurnLimitError{StepIndex: 3, Step: "loop", Limit: 8}
	require.NoError(t, console.Process(&StepWarningEvent{
		BaseEvent: BaseEvent{Type: EventStepWarning, StepIndex: 3},
		Status:    StatusTurnLimit,
		Reason:    limit.Error(),
	}))

	assert.Equal(t,
		"=== WARNING (no result for step 2: empty answer) ===\n"+
			"=== WARNING (step 3 \"loop\" exceeded tool call limit (8)) ===\n",
		ansi.Strip(out.String()))
}

func TestChannelEventSinkClosed(t *testing.T) {
	sink := NewChannelEventSink(1, discard)
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())
	assert.ErrorIs(t, sink.Send(&StepStartedEvent{}), ErrSinkClosed)
}
