package config

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestApplyDefaults(t *testing.T) {
	cfg := MysqlClickhouse{
		Tables: []TableSpec{
			{SourceTable: "users"},
			{SourceTable: "orders", TargetTable: "orders_v2", BatchSize: 500},
		},
	}
	cfg.ApplyDefaults()

	assert.Equal(t, 1, cfg.MaxConcurrency)
	assert.Equal(t, DefaultBatchSize, cfg.BatchRecordSize)
	assert.Equal(t, DefaultPipelineDepth, cfg.PipelineDepth)
	assert.Equal(t, DefaultMaxRetry, cfg.MaxRetry)
	assert.Equal(t, DefaultRetryBackoff, cfg.RetryBackoff)

	assert.Equal(t, "users", cfg.Tables[0].TargetTable, "target table defaults to source name")
	assert.Equal(t, DefaultBatchSize, cfg.Tables[0].BatchSize)
	assert.Equal(t, "orders_v2", cfg.Tables[1].TargetTable)
	assert.Equal(t, 500, cfg.Tables[1].BatchSize, "explicit batch size wins")
}

func TestValidate(t *testing.T) {
	cfg := MysqlClickhouse{}
	require.Error(t, cfg.Validate(), "empty table list")

	cfg.Tables = []TableSpec{{}}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing source_table")

	cfg.Tables = []TableSpec{{SourceTable: "users", BatchSize: -1}}
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative batch_size")

	cfg.Tables = []TableSpec{{SourceTable: "users"}}
	assert.NoError(t, cfg.Validate())
}

func TestPerTableOverrides(t *testing.T) {
	cfg := MysqlClickhouse{DefaultVerify: true, ContinueOnError: false}

	assert.True(t, cfg.ShouldVerify(TableSpec{}))
	assert.False(t, cfg.ShouldVerify(TableSpec{Verify: boolPtr(false)}))

	assert.False(t, cfg.ShouldContinueOnError(TableSpec{}))
	assert.True(t, cfg.ShouldContinueOnError(TableSpec{ContinueOnError: boolPtr(true)}))
}

func TestLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/conf.yaml", []byte(`
source:
  host: 10.0.0.5
  port: 3306
  user_name: reader
  password: secret
  db: appdb
target:
  host: 10.0.0.9
  user_name: default
  db: analytics
max_batch_record_size: 5000
retry_backoff: 5s
default_verify: true
skip_empty_tables: true
tables:
  - source_table: users
    target_table: users_v2
  - source_table: orders
    verify: false
`), 0644))

	cfg, err := Load(fs, "/conf.yaml")
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.5", cfg.SourceConfig.Host)
	assert.Equal(t, "appdb", cfg.SourceConfig.DB)
	assert.Equal(t, "analytics", cfg.Target.DB)
	assert.Equal(t, 5000, cfg.BatchRecordSize)
	assert.Equal(t, 5*time.Second, cfg.RetryBackoff)
	assert.True(t, cfg.SkipEmptyTables)

	require.Len(t, cfg.Tables, 2)
	assert.Equal(t, "users_v2", cfg.Tables[0].TargetTable)
	assert.Equal(t, "orders", cfg.Tables[1].TargetTable, "defaults applied during load")
	assert.Equal(t, 5000, cfg.Tables[1].BatchSize)
	assert.True(t, cfg.ShouldVerify(cfg.Tables[0]))
	assert.False(t, cfg.ShouldVerify(cfg.Tables[1]))
}

func TestLoadRejectsBadFile(t *testing.T) {
	fs := afero.NewMemMapFs()

	_, err := Load(fs, "/missing.yaml")
	require.Error(t, err)

	require.NoError(t, afero.WriteFile(fs, "/empty.yaml", []byte("tables: []\n"), 0644))
	_, err = Load(fs, "/empty.yaml")
	require.Error(t, err)
}

func TestTemplateParses(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/conf.yaml", []byte(Template), 0644))

	cfg, err := Load(fs, "/conf.yaml")
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Tables)
}
