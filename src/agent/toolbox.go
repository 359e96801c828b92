package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/elee1766/stepwise/src/aisdk"
)

// ToolExecutor is a function type for tool execution
type ToolExecutor func(ctx context.Context, call *aisdk.ToolCall) (*aisdk.ToolResponse, error)

// DefaultToolbox is a toolbox over the Tool interface.
type DefaultToolbox = Toolbox[Tool]

// Toolbox holds the registered tools and dispatches calls to them.
type Toolbox[T Tool] struct {
	tools      map[string]T
	order      []string
	middleware []ToolMiddleware
}

// ToolMiddleware is a function that wraps a ToolExecutor to add functionality.
type ToolMiddleware func(next ToolExecutor) ToolExecutor

// NewToolbox creates a new tool manager.
func NewToolbox[T Tool]() *Toolbox[T] {
	return &Toolbox[T]{
		tools: make(map[string]T),
	}
}

// RegisterTool registers a tool.
func (tm *Toolbox[T]) RegisterTool(tool T) error {
	if tool.GetName() == "" {
		return fmt.Errorf("tool name cannot be empty")
	}

	// Check for duplicate tool names
	if _, exists := tm.tools[tool.GetName()]; exists {
		return fmt.Errorf("tool %s is already registered", tool.GetName())
	}

	tm.tools[tool.GetName()] = tool
	tm.order = append(tm.order, tool.GetName())
	return nil
}

// RegisterMiddleware registers middleware that will be applied to all tool executions.
// Middleware is applied in the order it's registered (first registered = outermost layer).
func (tm *Toolbox[T]) RegisterMiddleware(middleware ToolMiddleware) {
	tm.middleware = append(tm.middleware, middleware)
}

// Tools returns the registered tools in registration order.
func (tm *Toolbox[T]) Tools() []T {
	out := make([]T, 0, len(tm.order))
	for _, name := range tm.order {
		out = append(out, tm.tools[name])
	}
	return out
}

// Names returns the registered tool names in registration order.
func (tm *Toolbox[T]) Names() []string {
	return append([]string(nil), tm.order...)
}

// Declarations returns the tool declarations sent to the model.
func (tm *Toolbox[T]) Declarations() []*aisdk.ChatTool {
	if len(tm.order) == 0 {
		return nil
	}
	return ToChatTools(tm.Tools())
}

// ExecuteTool executes a tool call with middleware applied.
func (tm *Toolbox[T]) ExecuteTool(ctx context.Context, call *aisdk.ToolCall) (*aisdk.ToolResponse, error) {
	tool, exists := tm.tools[call.Function.Name]
	if !exists {
		return nil, fmt.Errorf("tool %s not found", call.Function.Name)
	}

	toolExecutor := ToolExecutor(func(ctx context.Context, call *aisdk.ToolCall) (*aisdk.ToolResponse, error) {
		return tool.Execute(ctx, call)
	})

	// Apply middleware chain
	finalExecutor := toolExecutor
	for i := len(tm.middleware) - 1; i >= 0; i-- {
		finalExecutor = tm.middleware[i](finalExecutor)
	}

	return finalExecutor(ctx, call)
}

// Dispatch runs the named tool and always yields the text handed back to the
// model. Unknown tools, malformed arguments and handler failures become
// descriptive strings instead of errors. A panicking tool is reported the
// same way whether or not RecoverMiddleware is registered.
func (tm *Toolbox[T]) Dispatch(ctx context.Context, name string, args json.RawMessage) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = fmt.Sprintf("Error: %s returned error: panic: %v", name, r)
		}
	}()

	if !tm.HasTool(name) {
		return fmt.Sprintf("Tool %s does not exist", name)
	}

	resp, err := tm.ExecuteTool(ctx, &aisdk.ToolCall{
		Type:     "function",
		Function: aisdk.FunctionCall{Name: name, Arguments: args},
	})
	switch {
	case err != nil:
		return fmt.Sprintf("Error: %s returned error: %s", name, err)
	case resp == nil:
		return ""
	case resp.IsError:
		return fmt.Sprintf("Error: %s returned error: %s", name, resp.Content)
	default:
		return string(resp.Content)
	}
}

// GetTool returns a specific tool by name.
func (tm *Toolbox[T]) GetTool(name string) (T, bool) {
	tool, exists := tm.tools[name]
	return tool, exists
}

// HasTool checks if a tool is available.
func (tm *Toolbox[T]) HasTool(name string) bool {
	_, exists := tm.tools[name]
	return exists
}

// Common middleware implementations

// RecoverMiddleware turns a panicking tool into an ordinary error.
func RecoverMiddleware() ToolMiddleware {
	return func(next ToolExecutor) ToolExecutor {
		return func(ctx context.Context, call *aisdk.ToolCall) (resp *aisdk.ToolResponse, err error) {
			defer func() {
				if r := recover(); r != nil {
					resp = nil
					err = fmt.Errorf("panic: %v", r)
				}
			}()
			return next(ctx, call)
		}
	}
}

// LoggingMiddleware logs tool execution details.
func LoggingMiddleware(logger *slog.Logger) ToolMiddleware {
	return func(next ToolExecutor) ToolExecutor {
		return func(ctx context.Context, call *aisdk.ToolCall) (*aisdk.ToolResponse, error) {
			start := time.Now()
			logger.Debug("executing tool", "tool", call.Function.Name, "params", string(call.Function.Arguments))
			result, err := next(ctx, call)
			switch {
			case err != nil:
				logger.Warn("tool execution failed", "tool", call.Function.Name, "error", err, "duration", time.Since(start))
			case result != nil && result.IsError:
				logger.Info("tool returned error", "tool", call.Function.Name, "error", string(result.Content), "duration", time.Since(start))
			default:
				logger.Debug("tool execution completed", "tool", call.Function.Name, "duration", time.Since(start))
			}
			return result, err
		}
	}
}
