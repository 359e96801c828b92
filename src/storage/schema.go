package storage

import "time"

// Run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Run is one task from planning to the final report.
type Run struct {
	ID                   string          `json:"id" db:"id"`
	Task                 string          `json:"task" db:"task"`
	Model                string          `json:"model" db:"model"`
	Status               string          `json:"status" db:"status"`
	Error                string          `json:"error" db:"error"`
	Plan                 JSONStringArray `json:"plan" db:"plan"`
	PlannerInputTokens   int             `json:"planner_input_tokens" db:"planner_input_tokens"`
	PlannerOutputTokens  int             `json:"planner_output_tokens" db:"planner_output_tokens"`
	PlannerTotalTokens   int             `json:"planner_total_tokens" db:"planner_total_tokens"`
	ExecutorInputTokens  int             `json:"executor_input_tokens" db:"executor_input_tokens"`
	ExecutorOutputTokens int             `json:"executor_output_tokens" db:"executor_output_tokens"`
	ExecutorTotalTokens  int             `json:"executor_total_tokens" db:"executor_total_tokens"`
	StartedAt            time.Time       `json:"started_at" db:"started_at"`
	FinishedAt           *time.Time      `json:"finished_at,omitempty" db:"finished_at"`
}

// Step is the outcome of one plan step. MemoryKeys lists the keys the step
// wrote, values stay in memory only.
type Step struct {
	ID          string          `json:"id" db:"id"`
	RunID       string          `json:"run_id" db:"run_id"`
	StepIndex   int             `json:"step_index" db:"step_index"`
	Step        string          `json:"step" db:"step"`
	Status      string          `json:"status" db:"status"`
	Result      string          `json:"result" db:"result"`
	Observation string          `json:"observation" db:"observation"`
	Reason      string          `json:"reason" db:"reason"`
	Turns       int             `json:"turns" db:"turns"`
	MemoryKeys  JSONStringArray `json:"memory_keys" db:"memory_keys"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

type ToolExecution struct {
	ID         string    `json:"id" db:"id"`
	RunID      string    `json:"run_id" db:"run_id"`
	StepIndex  int       `json:"step_index" db:"step_index"`
	Turn       int       `json:"turn" db:"turn"`
	CallID     string    `json:"call_id" db:"call_id"`
	ToolName   string    `json:"tool_name" db:"tool_name"`
	Input      string    `json:"input" db:"input"`
	Output     string    `json:"output" db:"output"`
	IsError    bool      `json:"is_error" db:"is_error"`
	DurationMs int64     `json:"duration_ms" db:"duration_ms"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// ToolSummary aggregates the tool executions of a run per tool.
type ToolSummary struct {
	ToolName        string `json:"tool_name" db:"tool_name"`
	Calls           int    `json:"calls" db:"calls"`
	Errors          int    `json:"errors" db:"errors"`
	TotalDurationMs int64  `json:"total_duration_ms" db:"total_duration_ms"`
}
