package orchestrator

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/elee1766/stepwise/src/aisdk"
	"github.com/elee1766/stepwise/src/executor"
)

// EventType represents the type of run event
type EventType string

const (
	EventPlanCreated      EventType = "plan_created"
	EventStepStarted      EventType = "step_started"
	EventToolsRequested   EventType = "tools_requested"
	EventToolCallExecuted EventType = "tool_call_executed"
	EventStepCompleted    EventType = "step_completed"
	EventStepWarning      EventType = "step_warning"
	EventRunCompleted     EventType = "run_completed"
)

// ErrSinkClosed is returned by Send after Close.
var ErrSinkClosed = errors.New("event sink is closed")

// Event is the base interface for all run events
type Event interface {
	GetType() EventType
	GetTimestamp() time.Time
	GetRunID() string
	// GetStepIndex is the 1-based step number, or 0 for run level events.
	GetStepIndex() int
}

// BaseEvent contains common fields for all events
type BaseEvent struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"run_id"`
	StepIndex int       `json:"step_index,omitempty"`
}

func (e BaseEvent) GetType() EventType      { return e.Type }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetRunID() string        { return e.RunID }
func (e BaseEvent) GetStepIndex() int       { return e.StepIndex }

type PlanCreatedEvent struct {
	BaseEvent
	Task  string   `json:"task"`
	Steps []string `json:"steps"`
}

type StepStartedEvent struct {
	BaseEvent
	Step string `json:"step"`
}

// ToolsRequestedEvent is sent when the model asks for tool calls on a turn.
type ToolsRequestedEvent struct {
	BaseEvent
	Turn      int              `json:"turn"`
	ToolCalls []aisdk.ToolCall `json:"tool_calls"`
}

// ToolCallExecutedEvent is sent after each dispatched call. Output is the
// exact string fed back to the model.
type ToolCallExecutedEvent struct {
	BaseEvent
	Turn     int            `json:"turn"`
	ToolCall aisdk.ToolCall `json:"tool_call"`
	Output   string         `json:"output"`
	Duration time.Duration  `json:"duration"`
}

type StepCompletedEvent struct {
	BaseEvent
	Step   string                    `json:"step"`
	Turns  int                       `json:"turns"`
	Result *executor.ExecutionResult `json:"result"`
}

// StepWarningEvent is sent when a step ends without a result, either because
// the answer was unusable or because the turn budget ran out.
type StepWarningEvent struct {
	BaseEvent
	Step   string     `json:"step"`
	Status StepStatus `json:"status"`
	Reason string     `json:"reason"`
}

type RunCompletedEvent struct {
	BaseEvent
	Usage    Usage         `json:"usage"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// EventSink receives run events.
type EventSink interface {
	Send(event Event) error
	Close() error
}

// EventProcessor processes run events
type EventProcessor interface {
	Process(event Event) error
	Close() error
}

// ChannelEventSink fans events out to processors on a single goroutine, so
// processors see events in the order they were sent.
type ChannelEventSink struct {
	events     chan Event
	processors []EventProcessor
	done       chan struct{}
	logger     *slog.Logger

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewChannelEventSink creates a new channel-based event sink
func NewChannelEventSink(bufferSize int, logger *slog.Logger, processors ...EventProcessor) *ChannelEventSink {
	if logger == nil {
		logger = slog.Default()
	}
	sink := &ChannelEventSink{
		events:     make(chan Event, bufferSize),
		processors: processors,
		done:       make(chan struct{}),
		logger:     logger.With("component", "event_sink"),
	}

	go sink.processEvents()

	return sink
}

// Send queues an event. It blocks while the buffer is full.
func (s *ChannelEventSink) Send(event Event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSinkClosed
	}
	s.events <- event
	return nil
}

// Close drains queued events, then closes every processor.
func (s *ChannelEventSink) Close() error {
	var errs []error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.events)
		s.mu.Unlock()
		<-s.done

		for _, p := range s.processors {
			if err := p.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}

func (s *ChannelEventSink) processEvents() {
	defer close(s.done)

	for event := range s.events {
		for _, processor := range s.processors {
			if err := processor.Process(event); err != nil {
				s.logger.Warn("event processor failed", "event", event.GetType(), "error", err)
			}
		}
	}
}

// EventCollector keeps every event it processes. It is meant for tests and
// for callers that want the trace after the run.
type EventCollector struct {
	mu     sync.Mutex
	events []Event
}

func (c *EventCollector) Process(event Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *EventCollector) Close() error { return nil }

// Events returns the collected events in order.
func (c *EventCollector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

// Types returns the type of every collected event in order.
func (c *EventCollector) Types() []EventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	types := make([]EventType, len(c.events))
	for i, e := range c.events {
		types[i] = e.GetType()
	}
	return types
}
