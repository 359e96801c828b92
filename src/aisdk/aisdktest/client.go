// Package aisdktest provides a scripted aisdk.ModelClient for tests.
package aisdktest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/elee1766/stepwise/src/aisdk"
)

// Reply is one scripted answer. Either Err or Response is returned.
type Reply struct {
	Response *aisdk.ChatCompletionResponse
	Err      error
}

// Client replays scripted replies in order and records every request it sees.
// When the script runs out, the last reply is repeated if Repeat is set,
// otherwise an error is returned.
type Client struct {
	Model  string
	Repeat bool

	mu       sync.Mutex
	replies  []Reply
	requests []*aisdk.ChatCompletionRequest
}

var _ aisdk.ModelClient = (*Client)(nil)

// NewClient creates a client that answers with the given replies.
func NewClient(replies ...Reply) *Client {
	return &Client{Model: "test-model", replies: replies}
}

func (c *Client) ModelName() string { return c.Model }

// CreateChatCompletion returns the next scripted reply.
func (c *Client) CreateChatCompletion(ctx context.Context, req *aisdk.ChatCompletionRequest) (*aisdk.ChatCompletionResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests = append(c.requests, req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx := len(c.requests) - 1
	if idx >= len(c.replies) {
		if !c.Repeat || len(c.replies) == 0 {
			return nil, fmt.Errorf("aisdktest: no scripted reply for call %d", idx+1)
		}
		idx = len(c.replies) - 1
	}
	r := c.replies[idx]
	return r.Response, r.Err
}

// Requests returns the requests received so far.
func (c *Client) Requests() []*aisdk.ChatCompletionRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*aisdk.ChatCompletionRequest(nil), c.requests...)
}

// Calls returns how many requests were made.
func (c *Client) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

// Text builds a reply whose assistant content is the given text.
func Text(content string, usage aisdk.Usage) Reply {
	return Reply{Response: &aisdk.ChatCompletionResponse{
		ID: "resp",
		Choices: []aisdk.Choice{{
			Message:      aisdk.Message{Role: aisdk.RoleAssistant, Content: content},
			FinishReason: "stop",
		}},
		Usage: &usage,
	}}
}

// JSON builds a reply whose assistant content is v encoded as JSON.
func JSON(v any, usage aisdk.Usage) Reply {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return Text(string(data), usage)
}

// ToolCalls builds a reply that requests the given tool calls.
func ToolCalls(usage aisdk.Usage, calls ...aisdk.ToolCall) Reply {
	return Reply{Response: &aisdk.ChatCompletionResponse{
		ID: "resp",
		Choices: []aisdk.Choice{{
			Message:      aisdk.Message{Role: aisdk.RoleAssistant, ToolCalls: calls},
			FinishReason: "tool_calls",
		}},
		Usage: &usage,
	}}
}

// Call builds a function tool call.
func Call(id, name, args string) aisdk.ToolCall {
	return aisdk.ToolCall{
		ID:   id,
		Type: "function",
		Function: aisdk.FunctionCall{
			Name:      name,
			Arguments: json.RawMessage(args),
		},
	}
}

// Usage is shorthand for an aisdk.Usage whose total is input+output.
func Usage(input, output int) aisdk.Usage {
	return aisdk.Usage{PromptTokens: input, CompletionTokens: output, TotalTokens: input + output}
}
