package state

import "time"

type TaskStatus string

const (
	TaskRunning   TaskStatus = "RUNNING"
	TaskCompleted TaskStatus = "COMPLETED"
	TaskFailed    TaskStatus = "FAILED"
	TaskAborted   TaskStatus = "ABORTED"
)

type Base struct {
	CreatedAt *time.Time `json:"created_at" db:"created_at"`
	UpdatedAt *time.Time `json:"updated_at" db:"updated_at"`
}

// Task : one migration run, append only from the engine's point of view
type Task struct {
	ID             uint       `json:"id" db:"id" gorm:"primaryKey;autoIncrement"`
	RunID          string     `json:"run_id" db:"run_id" gorm:"type:varchar(64);index"`
	TaskName       string     `json:"task_name" db:"task_name" gorm:"type:varchar(255)"`
	ConfigSnapshot string     `json:"config_snapshot" db:"config_snapshot"`
	Status         TaskStatus `json:"status" db:"status" gorm:"type:varchar(50)"`
	TotalTables    int        `json:"total_tables" db:"total_tables"`
	SuccessTables  int        `json:"success_tables" db:"success_tables"`
	FailedTables   int        `json:"failed_tables" db:"failed_tables"`
	SkippedTables  int        `json:"skipped_tables" db:"skipped_tables"`
	TotalRows      int64      `json:"total_rows" db:"total_rows"`
	TotalSeconds   float64    `json:"total_seconds" db:"total_seconds"`
	ErrMsg         string     `json:"error_message" db:"error_message"`
	Base
}

// TableMigration : per table outcome for a run
type TableMigration struct {
	ID          uint    `json:"id" db:"id" gorm:"primaryKey;autoIncrement"`
	TaskID      uint    `json:"task_id" db:"task_id" gorm:"index"`
	SourceTable string  `json:"source_table" db:"source_table" gorm:"type:varchar(255)"`
	TargetTable string  `json:"target_table" db:"target_table" gorm:"type:varchar(255)"`
	Status      string  `json:"status" db:"status" gorm:"type:varchar(50)"`
	RowsRead    int64   `json:"rows_read" db:"rows_read"`
	RowsWritten int64   `json:"rows_written" db:"rows_written"`
	SourceCount int64   `json:"source_count" db:"source_count"`
	TargetCount int64   `json:"target_count" db:"target_count"`
	Verified    bool    `json:"verified" db:"verified"`
	Seconds     float64 `json:"seconds" db:"seconds"`
	ErrMsg      string  `json:"error_message" db:"error_message"`
	Base
}

// TaskLog : one structured log line attached to a run, for later display
type TaskLog struct {
	ID      uint   `json:"id" db:"id" gorm:"primaryKey;autoIncrement"`
	TaskID  uint   `json:"task_id" db:"task_id" gorm:"index"`
	Level   string `json:"log_level" db:"log_level" gorm:"type:varchar(20)"`
	Message string `json:"log_message" db:"log_message"`
	Base
}

// Manager : append only task history. The engine writes, a display layer
// reads, the engine never reads it back to decide behavior.
type Manager interface {
	CreateTask(runID string, taskName string, configSnapshot string, totalTables int) (uint, error)
	CompleteTask(taskID uint, status TaskStatus, successTables, failedTables, skippedTables int, totalRows int64, totalSeconds float64, errMsg string) error
	AddTableMigration(rec *TableMigration) error
	AddLog(taskID uint, level string, message string) error

	GetTask(taskID uint) (*Task, error)
	GetAllTasks(limit int) ([]*Task, error)
	GetTableMigrations(taskID uint) ([]*TableMigration, error)
	GetTaskLogs(taskID uint, limit int) ([]*TaskLog, error)
}
