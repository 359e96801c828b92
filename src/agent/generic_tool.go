package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/elee1766/stepwise/src/aisdk"
	"github.com/elee1766/stepwise/src/schema"
	"github.com/swaggest/jsonschema-go"
)

// GenericToolHandler is a type-safe handler function. The returned string is
// handed back to the model unchanged.
type GenericToolHandler[TInput any] func(ctx context.Context, input TInput) (string, error)

// GenericTool is a tool whose parameter schema is reflected from TInput.
type GenericTool[TInput any] struct {
	Type        string
	Name        string
	Description string
	InputType   reflect.Type
	Schema      *jsonschema.Schema
	Handler     GenericToolHandler[TInput]
	Strict      bool
	Unsafe      bool
}

// ToolOption configures a GenericTool.
type ToolOption func(*toolOptions)

type toolOptions struct {
	strict bool
	unsafe bool
}

// WithStrict sets additionalProperties to false in the schema and rejects
// arguments with unknown keys.
func WithStrict() ToolOption {
	return func(o *toolOptions) { o.strict = true }
}

// WithUnsafe marks a tool that executes arbitrary code or commands.
func WithUnsafe() ToolOption {
	return func(o *toolOptions) { o.unsafe = true }
}

// GetType returns the tool type (always "function" for now)
func (gt *GenericTool[TInput]) GetType() string {
	return gt.Type
}

// GetName returns the tool's name
func (gt *GenericTool[TInput]) GetName() string {
	return gt.Name
}

// GetDescription returns the tool's description
func (gt *GenericTool[TInput]) GetDescription() string {
	return gt.Description
}

// GetParameters returns the JSON schema for the tool's parameters
func (gt *GenericTool[TInput]) GetParameters() *jsonschema.Schema {
	return gt.Schema
}

func (gt *GenericTool[TInput]) IsStrict() bool { return gt.Strict }

func (gt *GenericTool[TInput]) IsUnsafe() bool { return gt.Unsafe }

// Execute parses and validates the call arguments, then runs the handler.
// Every failure comes back as an error response, never as a Go error.
func (gt *GenericTool[TInput]) Execute(ctx context.Context, call *aisdk.ToolCall) (*aisdk.ToolResponse, error) {
	args := bytes.TrimSpace(call.Function.Arguments)
	if len(args) == 0 {
		args = []byte("{}")
	}

	var present map[string]json.RawMessage
	if err := json.Unmarshal(args, &present); err != nil {
		return errorResponse("failed to parse arguments: %v", err), nil
	}

	if gt.Schema != nil {
		for _, key := range gt.Schema.Required {
			if _, ok := present[key]; !ok {
				return errorResponse("key '%s' not present in argument", key), nil
			}
		}
	}

	var input TInput
	dec := json.NewDecoder(bytes.NewReader(args))
	if gt.Strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(&input); err != nil {
		return errorResponse("invalid arguments: %v", err), nil
	}

	if err := schema.Validate(&input); err != nil {
		return errorResponse("validation failed: %v", err), nil
	}

	output, err := gt.Handler(ctx, input)
	if err != nil {
		return &aisdk.ToolResponse{
			Type:    "error",
			Content: []byte(err.Error()),
			IsError: true,
		}, nil
	}

	return &aisdk.ToolResponse{
		Type:    "text",
		Content: []byte(output),
	}, nil
}

func errorResponse(format string, args ...any) *aisdk.ToolResponse {
	return &aisdk.ToolResponse{
		Type:    "error",
		Content: []byte(fmt.Sprintf(format, args...)),
		IsError: true,
	}
}

// NewGenericTool creates a new generic tool with automatic schema generation
func NewGenericTool[TInput any](name, description string, handler GenericToolHandler[TInput], opts ...ToolOption) (*GenericTool[TInput], error) {
	var options toolOptions
	for _, opt := range opts {
		opt(&options)
	}

	var input TInput
	inputType := reflect.TypeOf(input)

	// Ensure input type is a struct
	if inputType == nil || inputType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("tool input type must be a struct, got %v", inputType)
	}

	if handler == nil {
		return nil, fmt.Errorf("tool %s has no handler", name)
	}

	s, err := schema.Reflect(input, options.strict)
	if err != nil {
		return nil, err
	}

	return &GenericTool[TInput]{
		Type:        "function",
		Name:        name,
		Description: description,
		InputType:   inputType,
		Schema:      s,
		Handler:     handler,
		Strict:      options.strict,
		Unsafe:      options.unsafe,
	}, nil
}

// Ensure GenericTool implements the Tool interface
var _ Tool = (*GenericTool[struct{}])(nil)
