package config

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/baderkha/mysql2ch/pkg/migrate/config/sourcecfg"
	"github.com/baderkha/mysql2ch/pkg/migrate/config/targetcfg"
)

// MysqlClickhouse : the one route this tool ships
type MysqlClickhouse = Config[sourcecfg.MYSQL, targetcfg.Clickhouse]

// Load : reads and resolves a yaml job file. The returned value is complete,
// nothing downstream reads ambient state.
func Load(fs afero.Fs, path string) (*MysqlClickhouse, error) {
	v := viper.New()
	v.SetFs(fs)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var cfg MysqlClickhouse
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Template : a commented starter job file
const Template = `# mysql2ch job file
source:
  host: 127.0.0.1
  port: 3306
  user_name: root
  password: ""
  db: mydb
  charset: utf8mb4
  connect_timeout: 30s
  read_timeout: 60s
  query_log: false

target:
  host: 127.0.0.1
  port: 9000
  user_name: default
  password: ""
  db: analytics
  compression: true
  query_log: false

# task level defaults, overridable per table
max_concurrency: 1
max_batch_record_size: 10000
pipeline_depth: 2
max_retry: 3
retry_backoff: 2s
default_verify: true
continue_on_error: false
skip_empty_tables: true
drop_before_create: true

tables:
  - source_table: users
    target_table: users
    batch_size: 10000
    verify: true
  - source_table: orders

notify:
  enabled: false
  webhook_url: ""
  notify_on_start: true
  notify_on_success: true
  notify_on_failure: true
  env_name: Production
  project_name: Data Migration
`
