// Package planner turns a task into a bounded, ordered list of atomic steps
// with a single structured chat completion.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/elee1766/stepwise/src/aisdk"
	"github.com/elee1766/stepwise/src/schema"
	jsonschema "github.com/swaggest/jsonschema-go"
)

var (
	// ErrSchemaParseFailure is returned when the answer is not a valid plan.
	ErrSchemaParseFailure = errors.New("plan does not match schema")

	// ErrInvalidMaxSteps is returned for a step bound below one.
	ErrInvalidMaxSteps = errors.New("max steps must be at least 1")

	// ErrEmptyTask is returned for a blank task before any request is made.
	ErrEmptyTask = errors.New("task is empty")
)

const (
	DefaultTemperature     = 0.0
	DefaultMaxOutputTokens = 300
)

// Plan is an ordered list of steps.
type Plan struct {
	Steps []string `json:"steps" validate:"required,min=1,dive,required"`
}

// Config configures a Planner.
type Config struct {
	Temperature     float64
	MaxOutputTokens int
	Logger          *slog.Logger
}

// Planner produces plans. Its token counter accumulates across calls.
type Planner struct {
	client aisdk.ModelClient
	config Config
	logger *slog.Logger

	mu    sync.Mutex
	usage aisdk.TokenCounter
}

// New creates a planner that talks to client.
func New(client aisdk.ModelClient, config Config) *Planner {
	if config.MaxOutputTokens <= 0 {
		config.MaxOutputTokens = DefaultMaxOutputTokens
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{
		client: client,
		config: config,
		logger: logger.With("component", "planner"),
	}
}

// Schema is the response schema plans are requested with.
func Schema() *jsonschema.Schema {
	steps := schema.CreateArraySchema("Atomic steps in execution order", schema.CreateStringSchema(""), 0, -1)
	return schema.CreateStrictObjectSchema(map[string]*jsonschema.Schema{"steps": steps}, []string{"steps"})
}

// Plan asks the model for a plan of at most maxSteps steps. Usage is counted
// whenever a response arrives, even if it does not parse. A parse failure
// wraps ErrSchemaParseFailure and is not retried.
func (p *Planner) Plan(ctx context.Context, task string, maxSteps int) (*Plan, error) {
	if maxSteps < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidMaxSteps, maxSteps)
	}
	if task == "" {
		return nil, ErrEmptyTask
	}

	temperature := p.config.Temperature
	maxTokens := p.config.MaxOutputTokens
	req := &aisdk.ChatCompletionRequest{
		Messages: []*aisdk.Message{{
			Role:    aisdk.RoleSystem,
			Content: policy + "\n\nTask:\n" + task + "\n\nmax_steps:\n" + strconv.Itoa(maxSteps),
		}},
		Temperature:    &temperature,
		MaxTokens:      &maxTokens,
		ResponseFormat: aisdk.NewJSONSchemaFormat("plan", Schema()),
	}

	p.logger.Debug("requesting plan", "max_steps", maxSteps)
	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("plan request failed: %w", err)
	}
	p.addUsage(resp.Usage)

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", ErrSchemaParseFailure)
	}

	var plan Plan
	if err := schema.Decode(resp.Choices[0].Message.Content, &plan); err != nil {
		p.logger.Warn("plan did not parse", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrSchemaParseFailure, err)
	}
	if len(plan.Steps) > maxSteps {
		return nil, fmt.Errorf("%w: %d steps exceed max_steps %d", ErrSchemaParseFailure, len(plan.Steps), maxSteps)
	}

	p.logger.Info("plan created", "steps", len(plan.Steps))
	return &plan, nil
}

func (p *Planner) addUsage(u *aisdk.Usage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.usage.Add(u)
}

// Usage returns a copy of the planner's token counter.
func (p *Planner) Usage() aisdk.TokenCounter {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.usage
}
