package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/baderkha/mysql2ch/pkg/migrate/config"
	"github.com/baderkha/mysql2ch/pkg/migrate/config/sourcecfg"
	"github.com/baderkha/mysql2ch/pkg/migrate/config/targetcfg"
	"github.com/baderkha/mysql2ch/pkg/migrate/connection"
	"github.com/baderkha/mysql2ch/pkg/migrate/event"
	"github.com/baderkha/mysql2ch/pkg/migrate/stream"
	"github.com/baderkha/mysql2ch/pkg/migrate/table"
)

// MysqlToClickhouse : executes one migration task end to end. Tables run
// sequentially by default, or under a bounded worker limit when
// max_concurrency allows it. Each table owns its cursor and its write
// handle exclusively for its duration.
type MysqlToClickhouse struct {
	runID  string
	source *sql.DB
	target *connection.Clickhouse
	events event.Listener
	log    zerolog.Logger
}

var _ Runner[sourcecfg.MYSQL, targetcfg.Clickhouse] = (*MysqlToClickhouse)(nil)

func NewMysqlToClickhouse(events event.Listener, log zerolog.Logger) *MysqlToClickhouse {
	uid, err := uuid.NewV4()
	if err != nil {
		panic(err)
	}
	if events == nil {
		events = event.Nop{}
	}
	return &MysqlToClickhouse{
		runID:  uid.String(),
		events: events,
		log:    log.With().Str("run_id", uid.String()).Logger(),
	}
}

// RunID : this task's unique identity, stamped on every event
func (m *MysqlToClickhouse) RunID() string {
	return m.runID
}

func (m *MysqlToClickhouse) init(ctx context.Context, cfg config.Config[sourcecfg.MYSQL, targetcfg.Clickhouse]) error {
	source, err := connection.DialMysql(ctx, &cfg.SourceConfig, cfg.MaxConcurrency)
	if err != nil {
		return err
	}
	target, err := connection.DialClickhouse(ctx, &cfg.Target, m.log)
	if err != nil {
		source.Close()
		return err
	}
	m.source = source
	m.target = target
	return nil
}

// Run : migrates every configured table and aggregates the outcomes.
// Connection failure before any table starts is fatal for the whole task
// and is the only error this returns, everything table scoped lands on the
// TaskResult instead.
func (m *MysqlToClickhouse) Run(ctx context.Context, cfg config.Config[sourcecfg.MYSQL, targetcfg.Clickhouse]) (*TaskResult, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := m.init(ctx, cfg); err != nil {
		return nil, err
	}
	defer m.cleanUp()

	var (
		start   = time.Now()
		fetcher = table.NewInfoFetcherMysql(m.source, cfg.SourceConfig.DB)
		src     = &mysqlSource{db: m.source, fetcher: fetcher}
		orch    = NewOrchestrator(src, m.target, m.events, m.log, m.runID, Options{
			SkipEmptyTables:  cfg.SkipEmptyTables,
			DropBeforeCreate: cfg.DropBeforeCreate,
			PipelineDepth:    cfg.PipelineDepth,
			MaxRetry:         cfg.MaxRetry,
			RetryBackoff:     cfg.RetryBackoff,
			FlushInterval:    cfg.FlushInterval,
		})
		res = &TaskResult{
			RunID:  m.runID,
			Tables: make([]*TableResult, len(cfg.Tables)),
		}
	)

	tableNames := make([]string, len(cfg.Tables))
	for i, t := range cfg.Tables {
		tableNames[i] = t.SourceTable
	}
	m.events.OnTaskStarted(event.TaskStarted{
		RunID:    m.runID,
		SourceDB: cfg.SourceConfig.DB,
		TargetDB: cfg.Target.DB,
		Tables:   tableNames,
		At:       start,
	})
	m.log.Info().Int("tables", len(cfg.Tables)).Msg("task started")

	halted := executeTables(ctx, &cfg, orch, m.events, m.runID, res)

	res.Duration = time.Since(start)
	res.finalize(halted)

	m.events.OnTaskCompleted(event.TaskCompleted{
		RunID:         m.runID,
		Status:        string(res.Status),
		TotalTables:   len(res.Tables),
		SuccessTables: res.CountByStatus(StatusSucceeded),
		FailedTables:  res.CountByStatus(StatusFailed),
		SkippedTables: res.CountByStatus(StatusSkipped),
		TotalRows:     res.TotalRows(),
		Duration:      res.Duration,
		FirstError:    res.FirstError(),
	})
	m.log.Info().
		Str("status", string(res.Status)).
		Int64("rows", res.TotalRows()).
		Dur("took", res.Duration).
		Msg("task completed")
	return res, nil
}

// tableMigrator : one table driven to a terminal state
type tableMigrator interface {
	Migrate(ctx context.Context, spec config.TableSpec, doVerify bool, idx int, total int) *TableResult
}

// executeTables : runs every configured table under the bounded worker
// limit and fills res.Tables in task order. Once a table fails without
// continue_on_error, every table that has not started yet lands on SKIPPED.
// Returns whether the task halted on such a failure.
func executeTables[S any, T any](ctx context.Context, cfg *config.Config[S, T], orch tableMigrator, events event.Listener, runID string, res *TaskResult) bool {
	var (
		g      errgroup.Group
		mu     sync.Mutex
		halted bool
	)
	g.SetLimit(cfg.MaxConcurrency)

	for i := range cfg.Tables {
		i := i
		spec := cfg.Tables[i]
		g.Go(func() error {
			mu.Lock()
			stop := halted
			mu.Unlock()
			if stop || ctx.Err() != nil {
				skipped := &TableResult{Spec: spec, Status: StatusSkipped}
				mu.Lock()
				res.Tables[i] = skipped
				mu.Unlock()
				events.OnTableCompleted(event.TableCompleted{
					RunID:       runID,
					SourceTable: spec.SourceTable,
					TargetTable: spec.TargetTable,
					Status:      string(StatusSkipped),
				})
				return nil
			}

			tr := orch.Migrate(ctx, spec, cfg.ShouldVerify(spec), i, len(cfg.Tables))

			mu.Lock()
			res.Tables[i] = tr
			if tr.Status == StatusFailed && !cfg.ShouldContinueOnError(spec) {
				halted = true
			}
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	return halted
}

func (m *MysqlToClickhouse) cleanUp() {
	if m.source != nil {
		m.source.Close()
	}
	if m.target != nil {
		m.target.Close()
	}
}

// mysqlSource : glues the metadata fetcher and the streaming cursor into
// the engine's source capability set
type mysqlSource struct {
	db      *sql.DB
	fetcher table.InfoFetcher
}

func (s *mysqlSource) Describe(ctx context.Context, tableName string) (*table.Info, error) {
	return s.fetcher.Describe(ctx, tableName)
}

func (s *mysqlSource) CountRows(ctx context.Context, tableName string) (int64, error) {
	return s.fetcher.CountRows(ctx, tableName)
}

func (s *mysqlSource) OpenCursor(ctx context.Context, tableName string, columns []string) (stream.Cursor, error) {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = table.WrapQ(c)
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s", strings.Join(quoted, ","), table.WrapQ(tableName)))
	if err != nil {
		return nil, &stream.ReadError{Table: tableName, Cause: err}
	}
	return rows, nil
}
