package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a looked up row does not exist.
var ErrNotFound = errors.New("not found")

// CreateRun inserts a run in the running state.
func CreateRun(ctx context.Context, db Execer, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if run.Status == "" {
		run.Status = RunStatusRunning
	}

	query := `INSERT INTO runs (id, task, model, status, plan, started_at) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query, run.ID, run.Task, run.Model, run.Status, run.Plan, run.StartedAt)
	return err
}

// FinishRun stores the final status, plan and token usage of a run.
func FinishRun(ctx context.Context, db Execer, run *Run) error {
	if run.FinishedAt == nil {
		now := time.Now()
		run.FinishedAt = &now
	}

	query := `UPDATE runs SET status = ?, error = ?, plan = ?,
		planner_input_tokens = ?, planner_output_tokens = ?, planner_total_tokens = ?,
		executor_input_tokens = ?, executor_output_tokens = ?, executor_total_tokens = ?,
		finished_at = ? WHERE id = ?`
	res, err := db.ExecContext(ctx, query,
		run.Status,
		run.Error,
		run.Plan,
		run.PlannerInputTokens,
		run.PlannerOutputTokens,
		run.PlannerTotalTokens,
		run.ExecutorInputTokens,
		run.ExecutorOutputTokens,
		run.ExecutorTotalTokens,
		run.FinishedAt,
		run.ID,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetRunByID retrieves a run by its ID
func GetRunByID(ctx context.Context, db sqlscan.Querier, runID string) (*Run, error) {
	query := `SELECT id, task, model, status, error, plan,
		planner_input_tokens, planner_output_tokens, planner_total_tokens,
		executor_input_tokens, executor_output_tokens, executor_total_tokens,
		started_at, finished_at FROM runs WHERE id = ?`
	var run Run
	if err := sqlscan.Get(ctx, db, &run, query, runID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &run, nil
}

// CreateStep records the outcome of a step.
func CreateStep(ctx context.Context, db Execer, step *Step) error {
	if step.ID == "" {
		step.ID = uuid.New().String()
	}
	if step.CreatedAt.IsZero() {
		step.CreatedAt = time.Now()
	}

	query := `INSERT INTO steps (id, run_id, step_index, step, status, result, observation, reason, turns, memory_keys, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query,
		step.ID,
		step.RunID,
		step.StepIndex,
		step.Step,
		step.Status,
		step.Result,
		step.Observation,
		step.Reason,
		step.Turns,
		step.MemoryKeys,
		step.CreatedAt,
	)
	return err
}

// GetStepsByRunID retrieves the steps of a run in plan order
func GetStepsByRunID(ctx context.Context, db sqlscan.Querier, runID string) ([]Step, error) {
	query := `SELECT id, run_id, step_index, step, status, result, observation, reason, turns, memory_keys, created_at FROM steps WHERE run_id = ? ORDER BY step_index`
	var steps []Step
	if err := sqlscan.Select(ctx, db, &steps, query, runID); err != nil {
		return nil, err
	}
	return steps, nil
}

// CreateToolExecution creates a new tool execution record in the database
func CreateToolExecution(ctx context.Context, db Execer, execution *ToolExecution) error {
	if execution.ID == "" {
		execution.ID = uuid.New().String()
	}
	if execution.CreatedAt.IsZero() {
		execution.CreatedAt = time.Now()
	}

	query := `INSERT INTO tool_executions (id, run_id, step_index, turn, call_id, tool_name, input, output, is_error, duration_ms, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query,
		execution.ID,
		execution.RunID,
		execution.StepIndex,
		execution.Turn,
		execution.CallID,
		execution.ToolName,
		execution.Input,
		execution.Output,
		execution.IsError,
		execution.DurationMs,
		execution.CreatedAt,
	)
	return err
}

// GetToolExecutionsByRunID retrieves the tool executions of a run in the order they ran
func GetToolExecutionsByRunID(ctx context.Context, db sqlscan.Querier, runID string) ([]ToolExecution, error) {
	query := `SELECT id, run_id, step_index, turn, call_id, tool_name, input, output, is_error, duration_ms, created_at FROM tool_executions WHERE run_id = ? ORDER BY step_index, turn, created_at`
	var executions []ToolExecution
	if err := sqlscan.Select(ctx, db, &executions, query, runID); err != nil {
		return nil, err
	}
	return executions, nil
}

// GetToolSummary aggregates the tool executions of a run per tool name.
func GetToolSummary(ctx context.Context, db sqlscan.Querier, runID string) ([]ToolSummary, error) {
	query := `SELECT tool_name,
		COUNT(*) AS calls,
		COALESCE(SUM(CASE WHEN is_error THEN 1 ELSE 0 END), 0) AS errors,
		COALESCE(SUM(duration_ms), 0) AS total_duration_ms
		FROM tool_executions WHERE run_id = ? GROUP BY tool_name ORDER BY calls DESC, tool_name`
	var summary []ToolSummary
	if err := sqlscan.Select(ctx, db, &summary, query, runID); err != nil {
		return nil, err
	}
	return summary, nil
}

func (d *DB) CreateRun(ctx context.Context, run *Run) error {
	return CreateRun(ctx, d.db, run)
}

func (d *DB) FinishRun(ctx context.Context, run *Run) error {
	return FinishRun(ctx, d.db, run)
}

func (d *DB) RecordStep(ctx context.Context, step *Step) error {
	return CreateStep(ctx, d.db, step)
}

func (d *DB) RecordToolExecution(ctx context.Context, execution *ToolExecution) error {
	return CreateToolExecution(ctx, d.db, execution)
}

func (d *DB) ToolSummary(ctx context.Context, runID string) ([]ToolSummary, error) {
	return GetToolSummary(ctx, d.db, runID)
}
