package migrate

import (
	"time"

	"github.com/baderkha/mysql2ch/pkg/migrate/config"
)

// Status : terminal state of one table's migration, set exactly once
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// TableState : where a table migration currently is. Used to stamp errors
// with the state they happened in.
type TableState string

const (
	StatePending   TableState = "PENDING"
	StateSyncing   TableState = "SYNCING"
	StateStreaming TableState = "STREAMING"
	StateVerifying TableState = "VERIFYING"
)

// TableResult : finalized exactly once when a table's migration ends,
// immutable after that.
type TableResult struct {
	Spec        config.TableSpec
	Status      Status
	FailedIn    TableState
	RowsRead    int64
	RowsWritten int64
	SourceCount int64
	TargetCount int64
	Verified    bool
	Err         error
	Duration    time.Duration
}

// TaskStatus : aggregate outcome across all tables
type TaskStatus string

const (
	// TaskSuccess : every table succeeded
	TaskSuccess TaskStatus = "success"
	// TaskSuccessWithWarnings : some tables failed but were skipped over
	// under continue_on_error
	TaskSuccessWithWarnings TaskStatus = "success_with_warnings"
	// TaskFailed : a table failed with continue_on_error off, or the task
	// never got off the ground
	TaskFailed TaskStatus = "failed"
)

// TaskResult : built incrementally as each table finishes, in task order
type TaskResult struct {
	RunID    string
	Status   TaskStatus
	Tables   []*TableResult
	Duration time.Duration
}

// TotalRows : rows written across all tables
func (t *TaskResult) TotalRows() int64 {
	var total int64
	for _, r := range t.Tables {
		total += r.RowsWritten
	}
	return total
}

// CountByStatus : number of tables in the given terminal status
func (t *TaskResult) CountByStatus(s Status) int {
	var n int
	for _, r := range t.Tables {
		if r.Status == s {
			n++
		}
	}
	return n
}

// FirstError : the first table error in task order, empty when none
func (t *TaskResult) FirstError() string {
	for _, r := range t.Tables {
		if r.Err != nil {
			return r.Spec.SourceTable + ": " + r.Err.Error()
		}
	}
	return ""
}

// finalize : derives the aggregate status from the per table outcomes
func (t *TaskResult) finalize(halted bool) {
	switch {
	case halted:
		t.Status = TaskFailed
	case t.CountByStatus(StatusFailed) > 0:
		t.Status = TaskSuccessWithWarnings
	default:
		t.Status = TaskSuccess
	}
}
