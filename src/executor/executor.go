// Package executor runs one turn of a step: a single structured chat
// completion that either resolves the step or asks for tool calls.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/elee1766/stepwise/src/aisdk"
	"github.com/elee1766/stepwise/src/memory"
	"github.com/elee1766/stepwise/src/schema"
	"github.com/google/uuid"
	jsonschema "github.com/swaggest/jsonschema-go"
)

const (
	DefaultTemperature     = 0.0
	DefaultMaxOutputTokens = 150
)

// Config configures an Executor.
type Config struct {
	Temperature     float64
	MaxOutputTokens int
	Logger          *slog.Logger
}

// Executor executes steps. Its token counter accumulates across calls.
type Executor struct {
	client aisdk.ModelClient
	config Config
	logger *slog.Logger

	mu    sync.Mutex
	usage aisdk.TokenCounter
}

// New creates an executor that talks to client.
func New(client aisdk.ModelClient, config Config) *Executor {
	if config.MaxOutputTokens <= 0 {
		config.MaxOutputTokens = DefaultMaxOutputTokens
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		client: client,
		config: config,
		logger: logger.With("component", "executor"),
	}
}

// resultAnswer is the wire form of ExecutionResult. Pointers tell a missing
// key from an empty string.
type resultAnswer struct {
	Result        *string    `json:"result" validate:"required"`
	Observation   *string    `json:"observation" validate:"required"`
	// pair length is checked here, the schema leaves item bounds out
	MemoryUpdates [][]string `json:"memory_updates" validate:"omitempty,dive,len=2"`
}

// Schema is the response schema results are requested with.
func Schema() *jsonschema.Schema {
	pair := schema.CreateArraySchema("", schema.CreateStringSchema(""), 0, -1)
	return schema.CreateStrictObjectSchema(map[string]*jsonschema.Schema{
		"result":         schema.CreateStringSchema("The outcome of the step"),
		"observation":    schema.CreateStringSchema("What happened while executing the step"),
		"memory_updates": schema.CreateArraySchema("Key/value pairs to remember for later steps", pair, 0, -1),
	}, []string{"result", "observation", "memory_updates"})
}

// Execute performs one turn of step. The request holds the policy, the step
// and stepContext in that order, with tools attached when there are any.
//
// A response with both a parsable result and tool calls fails with
// ErrProtocolViolation. A response with neither yields OutcomeFailed.
// Transport errors are returned wrapped.
func (e *Executor) Execute(ctx context.Context, stepContext []*aisdk.Message, step string, tools []*aisdk.ChatTool) (Outcome, error) {
	if strings.TrimSpace(step) == "" {
		return Outcome{}, ErrEmptyStep
	}

	messages := make([]*aisdk.Message, 0, len(stepContext)+2)
	messages = append(messages,
		&aisdk.Message{Role: aisdk.RoleSystem, Content: policy},
		&aisdk.Message{Role: aisdk.RoleUser, Content: "Step: " + step},
	)
	messages = append(messages, stepContext...)

	temperature := e.config.Temperature
	maxTokens := e.config.MaxOutputTokens
	req := &aisdk.ChatCompletionRequest{
		Messages:       messages,
		Temperature:    &temperature,
		MaxTokens:      &maxTokens,
		ResponseFormat: aisdk.NewJSONSchemaFormat("execution_result", Schema()),
	}
	if len(tools) > 0 {
		req.Tools = tools
		req.ToolChoice = "auto"
	}

	logger := e.logger.With("step", step)
	logger.Debug("executing step", "context_items", len(stepContext), "tools", len(tools))

	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return Outcome{}, fmt.Errorf("execute request failed: %w", err)
	}
	e.addUsage(resp.Usage)

	if len(resp.Choices) == 0 {
		logger.Warn("response has no choices")
		return Outcome{Kind: OutcomeFailed, Reason: "no choices in response"}, nil
	}
	msg := resp.Choices[0].Message

	var result *ExecutionResult
	var parseErr error
	if strings.TrimSpace(msg.Content) != "" {
		result, parseErr = decodeResult(msg.Content)
	}

	switch {
	case result != nil && len(msg.ToolCalls) > 0:
		logger.Error("response has both a result and tool calls", "tool_calls", len(msg.ToolCalls))
		return Outcome{}, fmt.Errorf("%w: %d tool calls alongside result %q", ErrProtocolViolation, len(msg.ToolCalls), result.Result)

	case len(msg.ToolCalls) > 0:
		calls := make([]aisdk.ToolCall, len(msg.ToolCalls))
		copy(calls, msg.ToolCalls)
		for i := range calls {
			if calls[i].ID == "" {
				calls[i].ID = "call_" + uuid.NewString()
			}
			if calls[i].Type == "" {
				calls[i].Type = "function"
			}
		}
		logger.Debug("model requested tool calls", "count", len(calls))
		return Outcome{
			Kind:      OutcomeToolsRequested,
			ToolCalls: calls,
			Message: &aisdk.Message{
				Role:      aisdk.RoleAssistant,
				Content:   msg.Content,
				ToolCalls: calls,
			},
		}, nil

	case result != nil:
		logger.Debug("step completed", "result", result.Result)
		return Outcome{Kind: OutcomeCompleted, Result: result}, nil

	case parseErr != nil:
		logger.Warn("answer did not parse", "error", parseErr)
		return Outcome{Kind: OutcomeFailed, Reason: parseErr.Error()}, nil

	default:
		logger.Warn("empty answer")
		return Outcome{Kind: OutcomeFailed, Reason: "empty answer"}, nil
	}
}

func decodeResult(content string) (*ExecutionResult, error) {
	var answer resultAnswer
	if err := schema.Decode(content, &answer); err != nil {
		return nil, err
	}

	res := &ExecutionResult{
		Result:      *answer.Result,
		Observation: *answer.Observation,
	}
	for _, kv := range answer.MemoryUpdates {
		res.MemoryUpdates = append(res.MemoryUpdates, memory.Pair{Key: kv[0], Value: kv[1]})
	}
	return res, nil
}

func (e *Executor) addUsage(u *aisdk.Usage) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.usage.Add(u)
}

// Usage returns a copy of the executor's token counter.
func (e *Executor) Usage() aisdk.TokenCounter {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.usage
}
