package state

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type GormManager struct {
	DB *gorm.DB
}

func NewSqliteGormManager(path string) (*GormManager, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening task history db %s: %w", path, err)
	}
	if err := db.AutoMigrate(&Task{}, &TableMigration{}, &TaskLog{}); err != nil {
		return nil, fmt.Errorf("migrating task history schema: %w", err)
	}
	return &GormManager{DB: db}, nil
}

// OnShutDownEv : a run interrupted mid flight must not stay RUNNING forever
func (m *GormManager) OnShutDownEv() {
	var last Task
	if err := m.DB.Order("created_at desc").First(&last).Error; err != nil {
		return
	}
	if last.Status == TaskRunning {
		m.DB.Model(&Task{}).
			Where("id = ? AND status = ?", last.ID, TaskRunning).
			Updates(map[string]any{"status": TaskAborted, "updated_at": currentTime()})
	}
}

func (m *GormManager) CreateTask(runID string, taskName string, configSnapshot string, totalTables int) (uint, error) {
	task := Task{
		RunID:          runID,
		TaskName:       taskName,
		ConfigSnapshot: configSnapshot,
		Status:         TaskRunning,
		TotalTables:    totalTables,
		Base:           Base{CreatedAt: currentTime(), UpdatedAt: currentTime()},
	}
	if err := m.DB.Create(&task).Error; err != nil {
		return 0, err
	}
	return task.ID, nil
}

func (m *GormManager) CompleteTask(taskID uint, status TaskStatus, successTables, failedTables, skippedTables int, totalRows int64, totalSeconds float64, errMsg string) error {
	return m.DB.Model(&Task{}).Where("id = ?", taskID).Updates(map[string]any{
		"status":         status,
		"success_tables": successTables,
		"failed_tables":  failedTables,
		"skipped_tables": skippedTables,
		"total_rows":     totalRows,
		"total_seconds":  totalSeconds,
		"err_msg":        errMsg,
		"updated_at":     currentTime(),
	}).Error
}

func (m *GormManager) AddTableMigration(rec *TableMigration) error {
	if rec.CreatedAt == nil {
		rec.Base = Base{CreatedAt: currentTime(), UpdatedAt: currentTime()}
	}
	return m.DB.Create(rec).Error
}

func (m *GormManager) AddLog(taskID uint, level string, message string) error {
	return m.DB.Create(&TaskLog{
		TaskID:  taskID,
		Level:   level,
		Message: message,
		Base:    Base{CreatedAt: currentTime(), UpdatedAt: currentTime()},
	}).Error
}

func (m *GormManager) GetTask(taskID uint) (*Task, error) {
	var task Task
	if err := m.DB.Where("id = ?", taskID).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (m *GormManager) GetAllTasks(limit int) ([]*Task, error) {
	var tasks []*Task
	if err := m.DB.Order("created_at desc").Limit(limit).Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (m *GormManager) GetTableMigrations(taskID uint) ([]*TableMigration, error) {
	var recs []*TableMigration
	if err := m.DB.Where("task_id = ?", taskID).Order("id").Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

func (m *GormManager) GetTaskLogs(taskID uint, limit int) ([]*TaskLog, error) {
	var logs []*TaskLog
	if err := m.DB.Where("task_id = ?", taskID).Order("id desc").Limit(limit).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func currentTime() *time.Time {
	now := time.Now()
	return &now
}
