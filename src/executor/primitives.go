package executor

import (
	"encoding/json"

	"github.com/elee1766/stepwise/src/aisdk"
	"github.com/elee1766/stepwise/src/memory"
)

// OutcomeKind tells which case of Outcome is populated.
type OutcomeKind int

const (
	// OutcomeFailed means the answer was empty or did not parse
	OutcomeFailed OutcomeKind = iota
	// OutcomeCompleted means the step resolved with a result
	OutcomeCompleted
	// OutcomeToolsRequested means the model wants tool calls executed first
	OutcomeToolsRequested
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeCompleted:
		return "completed"
	case OutcomeToolsRequested:
		return "tools_requested"
	default:
		return "failed"
	}
}

// ExecutionResult is the terminal outcome of a step.
type ExecutionResult struct {
	Result        string        `json:"result"`
	Observation   string        `json:"observation"`
	MemoryUpdates []memory.Pair `json:"memory_updates,omitempty"`
}

// Outcome is the result of one Execute call. Exactly one of Result,
// ToolCalls or Reason is meaningful, selected by Kind.
type Outcome struct {
	Kind OutcomeKind

	// Result is set for OutcomeCompleted.
	Result *ExecutionResult

	// ToolCalls is non-empty for OutcomeToolsRequested. Message is the
	// assistant turn that requested them, to be appended to the context.
	ToolCalls []aisdk.ToolCall
	Message   *aisdk.Message

	// Reason explains an OutcomeFailed.
	Reason string
}

// ToolResult is the output of one dispatched tool call.
type ToolResult struct {
	CallID string
	Output string
}

// Message builds the tool turn fed back to the model. The content is
// {"result": output}.
func (r ToolResult) Message() *aisdk.Message {
	// marshalling a string map cannot fail
	content, _ := json.Marshal(map[string]string{"result": r.Output})
	return &aisdk.Message{
		Role:       aisdk.RoleTool,
		Content:    string(content),
		ToolCallID: r.CallID,
	}
}
