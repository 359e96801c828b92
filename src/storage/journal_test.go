package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMemory(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	run := &Run{Task: "Compute 12 * 7", Model: "test-model"}
	require.NoError(t, db.CreateRun(ctx, run))
	assert.NotEmpty(t, run.ID)

	got, err := GetRunByID(ctx, db.DB(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusRunning, got.Status)
	assert.Equal(t, JSONStringArray{}, got.Plan)
	assert.Nil(t, got.FinishedAt)

	run.Status = RunStatusCompleted
	run.Plan = JSONStringArray{"Compute 12 * 7"}
	run.PlannerInputTokens, run.PlannerOutputTokens, run.PlannerTotalTokens = 10, 5, 15
	run.ExecutorInputTokens, run.ExecutorOutputTokens, run.ExecutorTotalTokens = 20, 6, 26
	require.NoError(t, db.FinishRun(ctx, run))

	got, err = GetRunByID(ctx, db.DB(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusCompleted, got.Status)
	assert.Equal(t, JSONStringArray{"Compute 12 * 7"}, got.Plan)
	assert.Equal(t, 15, got.PlannerTotalTokens)
	assert.Equal(t, 26, got.ExecutorTotalTokens)
	require.NotNil(t, got.FinishedAt)
}

func TestFinishUnknownRun(t *testing.T) {
	db := openTestDB(t)
	err := db.FinishRun(context.Background(), &Run{ID: "missing", Status: RunStatusFailed})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = GetRunByID(context.Background(), db.DB(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStepsAndToolExecutions(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	run := &Run{Task: "t"}
	require.NoError(t, db.CreateRun(ctx, run))

	require.NoError(t, db.RecordStep(ctx, &Step{RunID: run.ID, StepIndex: 2, Step: "second", Status: "abandoned", Reason: "empty answer", Turns: 1}))
	require.NoError(t, db.RecordStep(ctx, &Step{RunID: run.ID, StepIndex: 1, Step: "first", Status: "completed", Result: "84", Turns: 2, MemoryKeys: JSONStringArray{"product"}}))

	steps, err := GetStepsByRunID(ctx, db.DB(), run.ID)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, "first", steps[0].Step)
	assert.Equal(t, JSONStringArray{"product"}, steps[0].MemoryKeys)
	assert.Equal(t, "empty answer", steps[1].Reason)

	executions := []*ToolExecution{
		{RunID: run.ID, StepIndex: 1, Turn: 1, CallID: "a", ToolName: "calculate", Input: `{"expression":"12*7"}`, Output: "84", DurationMs: 2},
		{RunID: run.ID, StepIndex: 1, Turn: 1, CallID: "b", ToolName: "calculate", Input: `{}`, Output: "Error: calculate returned error: x", IsError: true, DurationMs: 1},
		{RunID: run.ID, StepIndex: 1, Turn: 2, CallID: "c", ToolName: "run_script", Input: `{"script":"print(1)"}`, Output: "1\n", DurationMs: 40},
	}
	for _, e := range executions {
		require.NoError(t, db.RecordToolExecution(ctx, e))
	}

	stored, err := GetToolExecutionsByRunID(ctx, db.DB(), run.ID)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	assert.Equal(t, "c", stored[2].CallID)
	assert.True(t, stored[1].IsError)

	summary, err := db.ToolSummary(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, []ToolSummary{
		{ToolName: "calculate", Calls: 2, Errors: 1, TotalDurationMs: 3},
		{ToolName: "run_script", Calls: 1, Errors: 0, TotalDurationMs: 40},
	}, summary)
}

func TestStepRequiresRun(t *testing.T) {
	db := openTestDB(t)
	err := db.RecordStep(context.Background(), &Step{RunID: "nope", StepIndex: 1, Step: "x", Status: "completed"})
	assert.Error(t, err)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.runMigrations(context.Background()))

	var versions []int
	rows, err := db.DB().Query("SELECT version FROM schema_migrations")
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var v int
		require.NoError(t, rows.Scan(&v))
		versions = append(versions, v)
	}
	assert.Equal(t, []int{1}, versions)
}

func TestExtractUpMigration(t *testing.T) {
	up := extractUpMigration(journalSchema)
	assert.Contains(t, up, "CREATE TABLE runs")
	assert.NotContains(t, up, "DROP TABLE")
	assert.NotContains(t, up, "goose")
}
