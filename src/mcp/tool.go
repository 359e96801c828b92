package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elee1766/stepwise/src/aisdk"
	"github.com/elee1766/stepwise/src/schema"
	jsonschema "github.com/swaggest/jsonschema-go"
)

// maxToolNameLength is the longest function name chat APIs accept.
const maxToolNameLength = 64

// RemoteTool exposes one server tool through the agent.Tool interface.
// Remote tools are never strict since their schemas are not ours to close.
type RemoteTool struct {
	client *Client
	name   string
	tool   Tool
	params *jsonschema.Schema
}

// NewRemoteTool wraps tool as served by client. The registered name is
// "<server>_<tool>" with characters outside [a-zA-Z0-9_-] replaced.
func NewRemoteTool(client *Client, tool Tool) (*RemoteTool, error) {
	params := schema.CreateObjectSchema(nil, nil)
	if len(tool.InputSchema) > 0 && string(tool.InputSchema) != "null" {
		params = &jsonschema.Schema{}
		if err := json.Unmarshal(tool.InputSchema, params); err != nil {
			return nil, fmt.Errorf("invalid input schema for %s: %w", tool.Name, err)
		}
	}

	return &RemoteTool{
		client: client,
		name:   ToolName(client.Name(), tool.Name),
		tool:   tool,
		params: params,
	}, nil
}

// ToolName builds the registered name of a remote tool.
func ToolName(server, tool string) string {
	name := sanitize(server) + "_" + sanitize(tool)
	if len(name) > maxToolNameLength {
		name = name[:maxToolNameLength]
	}
	return name
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, s)
}

func (t *RemoteTool) GetType() string                   { return "function" }
func (t *RemoteTool) GetName() string                   { return t.name }
func (t *RemoteTool) GetParameters() *jsonschema.Schema { return t.params }
func (t *RemoteTool) IsStrict() bool                    { return false }
func (t *RemoteTool) IsUnsafe() bool                    { return true }

func (t *RemoteTool) GetDescription() string {
	if t.tool.Description == "" {
		return fmt.Sprintf("%s tool from the %s MCP server", t.tool.Name, t.client.Name())
	}
	return t.tool.Description
}

// Execute forwards the call to the server. Text content is joined with
// newlines; other content types are summarized.
func (t *RemoteTool) Execute(ctx context.Context, call *aisdk.ToolCall) (*aisdk.ToolResponse, error) {
	args := json.RawMessage(call.Function.Arguments)
	if len(strings.TrimSpace(string(args))) == 0 {
		args = json.RawMessage("{}")
	}
	if !json.Valid(args) {
		return &aisdk.ToolResponse{Type: "error", Content: []byte("failed to parse arguments: invalid JSON"), IsError: true}, nil
	}

	result, err := t.client.CallTool(ctx, t.tool.Name, args)
	if err != nil {
		return &aisdk.ToolResponse{Type: "error", Content: []byte(err.Error()), IsError: true}, nil
	}

	text := ContentText(result.Content)
	if result.IsError {
		return &aisdk.ToolResponse{Type: "error", Content: []byte(text), IsError: true}, nil
	}
	return &aisdk.ToolResponse{Type: "text", Content: []byte(text)}, nil
}

// ContentText flattens tool result content into a string.
func ContentText(items []ContentItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		switch item.Type {
		case "text":
			parts = append(parts, item.Text)
		default:
			parts = append(parts, fmt.Sprintf("[%s content, %s]", item.Type, item.MimeType))
		}
	}
	return strings.Join(parts, "\n")
}
