package config

import (
	"fmt"
	"time"

	"github.com/baderkha/mysql2ch/pkg/migrate/notify"
)

// TableSpec : one table to migrate. Immutable once a task starts.
type TableSpec struct {
	SourceTable     string `json:"source_table" mapstructure:"source_table"`
	TargetTable     string `json:"target_table" mapstructure:"target_table"`
	BatchSize       int    `json:"batch_size" mapstructure:"batch_size"`
	Verify          *bool  `json:"verify" mapstructure:"verify"`
	ContinueOnError *bool  `json:"continue_on_error" mapstructure:"continue_on_error"`
}

// Config : configuration for the job
type Config[S any, T any] struct {
	MaxConcurrency   int           `json:"max_concurrency" mapstructure:"max_concurrency"`
	BatchRecordSize  int           `json:"max_batch_record_size" mapstructure:"max_batch_record_size"`
	FlushInterval    time.Duration `json:"flush_interval" mapstructure:"flush_interval"`
	PipelineDepth    int           `json:"pipeline_depth" mapstructure:"pipeline_depth"`
	MaxRetry         int           `json:"max_retry" mapstructure:"max_retry"`
	RetryBackoff     time.Duration `json:"retry_backoff" mapstructure:"retry_backoff"`
	DefaultVerify    bool          `json:"default_verify" mapstructure:"default_verify"`
	ContinueOnError  bool          `json:"continue_on_error" mapstructure:"continue_on_error"`
	SkipEmptyTables  bool          `json:"skip_empty_tables" mapstructure:"skip_empty_tables"`
	DropBeforeCreate bool          `json:"drop_before_create" mapstructure:"drop_before_create"`
	Tables           []TableSpec   `json:"tables" mapstructure:"tables"`
	SourceConfig     S             `json:"source" mapstructure:"source"`
	Target           T             `json:"target" mapstructure:"target"`
	Notify           notify.Config `json:"notify" mapstructure:"notify"`
}

const (
	DefaultBatchSize     = 10000
	DefaultMaxRetry      = 3
	DefaultRetryBackoff  = 2 * time.Second
	DefaultPipelineDepth = 2
)

// ApplyDefaults : fills the zero valued tuning knobs in place so the engine
// never has to guess.
func (c *Config[S, T]) ApplyDefaults() {
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 1
	}
	if c.BatchRecordSize <= 0 {
		c.BatchRecordSize = DefaultBatchSize
	}
	if c.PipelineDepth <= 0 {
		c.PipelineDepth = DefaultPipelineDepth
	}
	if c.MaxRetry <= 0 {
		c.MaxRetry = DefaultMaxRetry
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = DefaultRetryBackoff
	}
	for i := range c.Tables {
		if c.Tables[i].BatchSize <= 0 {
			c.Tables[i].BatchSize = c.BatchRecordSize
		}
		if c.Tables[i].TargetTable == "" {
			c.Tables[i].TargetTable = c.Tables[i].SourceTable
		}
	}
}

// Validate : rejects configs the engine cannot run.
func (c *Config[S, T]) Validate() error {
	if len(c.Tables) == 0 {
		return fmt.Errorf("config: no tables configured")
	}
	for i, t := range c.Tables {
		if t.SourceTable == "" {
			return fmt.Errorf("config: tables[%d] is missing source_table", i)
		}
		if t.BatchSize < 0 {
			return fmt.Errorf("config: tables[%d] (%s) has a negative batch_size", i, t.SourceTable)
		}
	}
	return nil
}

// ShouldVerify : per table flag falling back to the task default
func (c *Config[S, T]) ShouldVerify(t TableSpec) bool {
	if t.Verify != nil {
		return *t.Verify
	}
	return c.DefaultVerify
}

// ShouldContinueOnError : per table flag falling back to the task default
func (c *Config[S, T]) ShouldContinueOnError(t TableSpec) bool {
	if t.ContinueOnError != nil {
		return *t.ContinueOnError
	}
	return c.ContinueOnError
}
