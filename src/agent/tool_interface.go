package agent

import (
	"context"

	"github.com/elee1766/stepwise/src/aisdk"
	jsonschema "github.com/swaggest/jsonschema-go"
)

// Tool is the interface that all tools must implement
type Tool interface {
	// GetType returns the tool type (always "function" for now)
	GetType() string

	// GetName returns the tool's name
	GetName() string

	// GetDescription returns the tool's description
	GetDescription() string

	// GetParameters returns the JSON schema for the tool's parameters
	GetParameters() *jsonschema.Schema

	// IsStrict reports whether arguments outside the schema are rejected
	IsStrict() bool

	// IsUnsafe reports whether the tool runs arbitrary code or commands
	IsUnsafe() bool

	// Execute runs the tool with the given parameters. Failures are reported
	// through ToolResponse.IsError; a returned error is reserved for
	// failures of the tool machinery itself.
	Execute(ctx context.Context, call *aisdk.ToolCall) (*aisdk.ToolResponse, error)
}
