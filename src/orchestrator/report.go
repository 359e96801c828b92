package orchestrator

import (
	"time"

	"github.com/elee1766/stepwise/src/aisdk"
	"github.com/elee1766/stepwise/src/memory"
)

type StepStatus string

const (
	StatusCompleted StepStatus = "completed"
	// StatusAbandoned means the executor gave no usable answer. The run
	// continues with the next step.
	StatusAbandoned StepStatus = "abandoned"
	StatusTurnLimit StepStatus = "turn_limit"
	// StatusFailed marks the step during which the run was aborted.
	StatusFailed StepStatus = "failed"
)

// Usage is the token usage of a run.
type Usage struct {
	Planner  aisdk.TokenCounter `json:"planner"`
	Executor aisdk.TokenCounter `json:"executor"`
	Combined aisdk.TokenCounter `json:"combined"`
}

type StepReport struct {
	// Index is 1-based.
	Index         int           `json:"index"`
	Step          string        `json:"step"`
	Status        StepStatus    `json:"status"`
	Result        string        `json:"result,omitempty"`
	Observation   string        `json:"observation,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	Turns         int           `json:"turns"`
	MemoryUpdates []memory.Pair `json:"memory_updates,omitempty"`
}

// Report is the outcome of a run. Steps holds only the steps that were
// reached.
type Report struct {
	RunID    string        `json:"run_id"`
	Task     string        `json:"task"`
	Plan     []string      `json:"plan"`
	Steps    []StepReport  `json:"steps"`
	Memory   []memory.Pair `json:"memory,omitempty"`
	Usage    Usage         `json:"usage"`
	Duration time.Duration `json:"duration"`
}

// Completed reports whether every planned step completed.
func (r *Report) Completed() bool {
	if len(r.Steps) != len(r.Plan) {
		return false
	}
	for _, s := range r.Steps {
		if s.Status != StatusCompleted {
			return false
		}
	}
	return true
}
