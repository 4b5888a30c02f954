package state

import (
	"fmt"
	"sync"

	"github.com/baderkha/mysql2ch/pkg/migrate/event"
	"github.com/rs/zerolog"
)

// Listener : persists lifecycle events into the task history store. Safe to
// call from concurrently running table migrations.
type Listener struct {
	mgr      Manager
	taskName string
	snapshot string
	log      zerolog.Logger

	mu     sync.Mutex
	taskID uint
}

func NewListener(mgr Manager, taskName string, configSnapshot string, log zerolog.Logger) *Listener {
	return &Listener{
		mgr:      mgr,
		taskName: taskName,
		snapshot: configSnapshot,
		log:      log,
	}
}

var _ event.Listener = (*Listener)(nil)

func (l *Listener) OnTaskStarted(ev event.TaskStarted) {
	id, err := l.mgr.CreateTask(ev.RunID, l.taskName, l.snapshot, len(ev.Tables))
	if err != nil {
		l.log.Error().Err(err).Msg("task history: create task failed")
		return
	}
	l.mu.Lock()
	l.taskID = id
	l.mu.Unlock()
}

func (l *Listener) OnTableStarted(ev event.TableStarted) {
	l.addLog("INFO", fmt.Sprintf("[TABLE %d/%d] %s -> %s (%d source rows)",
		ev.Index+1, ev.Total, ev.SourceTable, ev.TargetTable, ev.SourceRows))
}

func (l *Listener) OnTableProgress(ev event.TableProgress) {}

func (l *Listener) OnTableCompleted(ev event.TableCompleted) {
	l.mu.Lock()
	taskID := l.taskID
	l.mu.Unlock()
	err := l.mgr.AddTableMigration(&TableMigration{
		TaskID:      taskID,
		SourceTable: ev.SourceTable,
		TargetTable: ev.TargetTable,
		Status:      ev.Status,
		RowsRead:    ev.RowsRead,
		RowsWritten: ev.RowsWritten,
		SourceCount: ev.SourceCount,
		TargetCount: ev.TargetCount,
		Verified:    ev.Verified,
		Seconds:     ev.Duration.Seconds(),
		ErrMsg:      ev.Err,
	})
	if err != nil {
		l.log.Error().Err(err).Str("table", ev.SourceTable).Msg("task history: record table failed")
	}
	if ev.Err != "" {
		l.addLog("ERROR", fmt.Sprintf("table %s failed: %s", ev.SourceTable, ev.Err))
	}
}

func (l *Listener) OnTaskCompleted(ev event.TaskCompleted) {
	l.mu.Lock()
	taskID := l.taskID
	l.mu.Unlock()
	status := TaskCompleted
	if ev.Status == "failed" {
		status = TaskFailed
	}
	err := l.mgr.CompleteTask(taskID, status,
		ev.SuccessTables, ev.FailedTables, ev.SkippedTables,
		ev.TotalRows, ev.Duration.Seconds(), ev.FirstError)
	if err != nil {
		l.log.Error().Err(err).Msg("task history: complete task failed")
	}
}

func (l *Listener) addLog(level string, msg string) {
	l.mu.Lock()
	taskID := l.taskID
	l.mu.Unlock()
	if err := l.mgr.AddLog(taskID, level, msg); err != nil {
		l.log.Error().Err(err).Msg("task history: add log failed")
	}
}
