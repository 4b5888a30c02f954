package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baderkha/mysql2ch/pkg/migrate/event"
)

func newTestManager(t *testing.T) *GormManager {
	t.Helper()
	mgr, err := NewSqliteGormManager(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	return mgr
}

func TestTaskLifecycle(t *testing.T) {
	mgr := newTestManager(t)

	id, err := mgr.CreateTask("run-1", "nightly", "tables: []", 3)
	require.NoError(t, err)
	require.NotZero(t, id)

	task, err := mgr.GetTask(id)
	require.NoError(t, err)
	assert.Equal(t, TaskRunning, task.Status)
	assert.Equal(t, "nightly", task.TaskName)
	assert.Equal(t, 3, task.TotalTables)

	require.NoError(t, mgr.CompleteTask(id, TaskCompleted, 2, 0, 1, 50000, 12.5, ""))

	task, err = mgr.GetTask(id)
	require.NoError(t, err)
	assert.Equal(t, TaskCompleted, task.Status)
	assert.Equal(t, 2, task.SuccessTables)
	assert.Equal(t, 1, task.SkippedTables)
	assert.Equal(t, int64(50000), task.TotalRows)
}

func TestTableMigrationsAndLogs(t *testing.T) {
	mgr := newTestManager(t)
	id, err := mgr.CreateTask("run-2", "adhoc", "", 2)
	require.NoError(t, err)

	require.NoError(t, mgr.AddTableMigration(&TableMigration{
		TaskID: id, SourceTable: "users", TargetTable: "users",
		Status: "succeeded", RowsRead: 25000, RowsWritten: 25000,
		SourceCount: 25000, TargetCount: 25000, Verified: true, Seconds: 4.2,
	}))
	require.NoError(t, mgr.AddTableMigration(&TableMigration{
		TaskID: id, SourceTable: "orders", TargetTable: "orders",
		Status: "failed", RowsWritten: 20000, ErrMsg: "writing to orders failed after 3 attempt(s)",
	}))
	require.NoError(t, mgr.AddLog(id, "ERROR", "table orders failed"))

	recs, err := mgr.GetTableMigrations(id)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "users", recs[0].SourceTable)
	assert.True(t, recs[0].Verified)
	assert.Equal(t, "failed", recs[1].Status)
	assert.Equal(t, int64(20000), recs[1].RowsWritten)

	logs, err := mgr.GetTaskLogs(id, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "ERROR", logs[0].Level)
}

func TestShutdownSweepAbortsRunningTask(t *testing.T) {
	mgr := newTestManager(t)
	id, err := mgr.CreateTask("run-3", "interrupted", "", 1)
	require.NoError(t, err)

	mgr.OnShutDownEv()

	task, err := mgr.GetTask(id)
	require.NoError(t, err)
	assert.Equal(t, TaskAborted, task.Status)
}

func TestShutdownSweepLeavesFinishedTasksAlone(t *testing.T) {
	mgr := newTestManager(t)
	id, err := mgr.CreateTask("run-4", "done", "", 1)
	require.NoError(t, err)
	require.NoError(t, mgr.CompleteTask(id, TaskCompleted, 1, 0, 0, 10, 1, ""))

	mgr.OnShutDownEv()

	task, err := mgr.GetTask(id)
	require.NoError(t, err)
	assert.Equal(t, TaskCompleted, task.Status)
}

func TestListenerPersistsLifecycle(t *testing.T) {
	mgr := newTestManager(t)
	l := NewListener(mgr, "nightly", "tables: []", zerolog.Nop())

	l.OnTaskStarted(event.TaskStarted{RunID: "run-5", Tables: []string{"users", "orders"}, At: time.Now()})
	l.OnTableStarted(event.TableStarted{RunID: "run-5", SourceTable: "users", TargetTable: "users", Index: 0, Total: 2, SourceRows: 100})
	l.OnTableCompleted(event.TableCompleted{
		RunID: "run-5", SourceTable: "users", TargetTable: "users",
		Status: "succeeded", RowsRead: 100, RowsWritten: 100,
		SourceCount: 100, TargetCount: 100, Verified: true,
		Duration: 3 * time.Second,
	})
	l.OnTableCompleted(event.TableCompleted{
		RunID: "run-5", SourceTable: "orders", TargetTable: "orders",
		Status: "failed", Err: "count mismatch",
	})
	l.OnTaskCompleted(event.TaskCompleted{
		RunID: "run-5", Status: "failed", TotalTables: 2,
		SuccessTables: 1, FailedTables: 1, TotalRows: 100,
		Duration: 5 * time.Second, FirstError: "orders: count mismatch",
	})

	tasks, err := mgr.GetAllTasks(10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, TaskFailed, tasks[0].Status)
	assert.Equal(t, "run-5", tasks[0].RunID)
	assert.Equal(t, "orders: count mismatch", tasks[0].ErrMsg)

	recs, err := mgr.GetTableMigrations(tasks[0].ID)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 3.0, recs[0].Seconds)
	assert.Equal(t, "count mismatch", recs[1].ErrMsg)

	// the start line plus the failure line
	logs, err := mgr.GetTaskLogs(tasks[0].ID, 10)
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}
