package migrate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/baderkha/mysql2ch/pkg/migrate/config"
	"github.com/baderkha/mysql2ch/pkg/migrate/event"
	"github.com/baderkha/mysql2ch/pkg/migrate/schema"
	"github.com/baderkha/mysql2ch/pkg/migrate/sink"
	"github.com/baderkha/mysql2ch/pkg/migrate/stream"
	"github.com/baderkha/mysql2ch/pkg/migrate/table"
	"github.com/baderkha/mysql2ch/pkg/migrate/table/colmap"
	"github.com/baderkha/mysql2ch/pkg/migrate/verify"
)

// Source : what the engine needs from the mysql side
type Source interface {
	Describe(ctx context.Context, tableName string) (*table.Info, error)
	CountRows(ctx context.Context, tableName string) (int64, error)
	OpenCursor(ctx context.Context, tableName string, columns []string) (stream.Cursor, error)
}

// Target : what the engine needs from the clickhouse side
type Target interface {
	Exec(ctx context.Context, query string) error
	TableExists(ctx context.Context, tableName string) (bool, error)
	ColumnNames(ctx context.Context, tableName string) ([]string, error)
	NewBatch(ctx context.Context, tableName string, columns []string) (sink.Batch, error)
	CountRows(ctx context.Context, tableName string) (int64, error)
}

// Options : engine tuning shared by every table of a task
type Options struct {
	SkipEmptyTables  bool
	DropBeforeCreate bool
	PipelineDepth    int
	MaxRetry         int
	RetryBackoff     time.Duration
	FlushInterval    time.Duration
}

// Orchestrator : drives one table end to end through
// PENDING -> SYNCING -> STREAMING -> VERIFYING and isolates its failure so
// one bad table never aborts the rest of the task.
type Orchestrator struct {
	source Source
	target Target
	sync   *schema.Synchronizer
	events event.Listener
	log    zerolog.Logger
	opt    Options
	runID  string
}

func NewOrchestrator(src Source, dst Target, events event.Listener, log zerolog.Logger, runID string, opt Options) *Orchestrator {
	if opt.PipelineDepth <= 0 {
		opt.PipelineDepth = config.DefaultPipelineDepth
	}
	if opt.MaxRetry <= 0 {
		opt.MaxRetry = config.DefaultMaxRetry
	}
	return &Orchestrator{
		source: src,
		target: dst,
		sync:   schema.NewSynchronizer(dst, opt.DropBeforeCreate, log),
		events: events,
		log:    log,
		opt:    opt,
		runID:  runID,
	}
}

// Migrate : runs one table to a terminal state. Always returns a finalized
// TableResult, errors are captured on it rather than propagated.
func (o *Orchestrator) Migrate(ctx context.Context, spec config.TableSpec, doVerify bool, idx int, total int) *TableResult {
	var (
		res   = &TableResult{Spec: spec}
		start = time.Now()
		log   = o.log.With().Str("table", spec.SourceTable).Logger()
	)
	// PENDING
	if err := ctx.Err(); err != nil {
		res.Status = StatusSkipped
		res.FailedIn = StatePending
		o.emitCompleted(res, start)
		return res
	}

	sourceRows, err := o.source.CountRows(ctx, spec.SourceTable)
	if err != nil {
		return o.fail(res, start, StatePending, fmt.Errorf("pre-count of %s: %w", spec.SourceTable, err))
	}
	if sourceRows == 0 && o.opt.SkipEmptyTables {
		log.Warn().Msg("empty table, skipping")
		res.Status = StatusSkipped
		o.emitCompleted(res, start)
		return res
	}

	o.events.OnTableStarted(event.TableStarted{
		RunID:       o.runID,
		SourceTable: spec.SourceTable,
		TargetTable: spec.TargetTable,
		Index:       idx,
		Total:       total,
		SourceRows:  sourceRows,
		At:          time.Now(),
	})

	// SYNCING
	info, err := o.source.Describe(ctx, spec.SourceTable)
	if err != nil {
		return o.fail(res, start, StateSyncing, err)
	}
	cols, err := mapColumns(info)
	if err != nil {
		return o.fail(res, start, StateSyncing, err)
	}
	if err := o.sync.EnsureTable(ctx, spec.TargetTable, cols, info.PrimaryKey); err != nil {
		return o.fail(res, start, StateSyncing, err)
	}
	log.Info().Int("columns", len(cols)).Int64("source_rows", sourceRows).Msg("target table ready")

	// STREAMING
	rowsRead, rowsWritten, err := o.streamTable(ctx, spec, cols, info.ColumnNames(), sourceRows)
	res.RowsRead = rowsRead
	res.RowsWritten = rowsWritten
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			res.Status = StatusSkipped
			res.FailedIn = StateStreaming
			o.emitCompleted(res, start)
			return res
		}
		return o.fail(res, start, StateStreaming, err)
	}
	log.Info().Int64("rows", rowsWritten).Dur("took", time.Since(start)).Msg("streaming done")

	// VERIFYING
	if doVerify {
		counts, err := verify.Counts(ctx, o.source, o.target, spec.SourceTable, spec.TargetTable)
		res.SourceCount = counts.SourceCount
		res.TargetCount = counts.TargetCount
		if err != nil {
			return o.fail(res, start, StateVerifying, err)
		}
		if !counts.Match() {
			return o.fail(res, start, StateVerifying, &verify.MismatchError{
				SourceTable: spec.SourceTable,
				TargetTable: spec.TargetTable,
				Result:      counts,
			})
		}
		res.Verified = true
		log.Info().Int64("count", counts.SourceCount).Msg("verification passed")
	}

	res.Status = StatusSucceeded
	o.emitCompleted(res, start)
	return res
}

// streamTable : pipelined read/write for one table. The bounded channel
// between reader and writer is the backpressure, a slow target suspends
// the source cursor instead of buffering unboundedly.
func (o *Orchestrator) streamTable(ctx context.Context, spec config.TableSpec, cols []colmap.Column, colNames []string, sourceRows int64) (int64, int64, error) {
	cur, err := o.source.OpenCursor(ctx, spec.SourceTable, colNames)
	if err != nil {
		return 0, 0, err
	}
	reader, err := stream.New(cur, spec.SourceTable, colNames, spec.BatchSize)
	if err != nil {
		return 0, 0, err
	}
	defer reader.Close()

	writer := sink.NewWriter(o.target, spec.TargetTable, cols, sink.Options{
		BatchSize:     spec.BatchSize,
		MaxRetry:      o.opt.MaxRetry,
		RetryBackoff:  o.opt.RetryBackoff,
		FlushInterval: o.opt.FlushInterval,
	})

	chunks := make(chan []stream.Row, o.opt.PipelineDepth)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(chunks)
		for {
			chunk, err := reader.NextChunk(gctx)
			if err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
			select {
			case chunks <- chunk:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	g.Go(func() error {
		for chunk := range chunks {
			if err := writer.Add(gctx, chunk); err != nil {
				return err
			}
			o.events.OnTableProgress(event.TableProgress{
				RunID:       o.runID,
				SourceTable: spec.SourceTable,
				RowsRead:    reader.RowsRead(),
				RowsWritten: writer.RowsWritten(),
				SourceRows:  sourceRows,
				Batches:     writer.Flushes(),
			})
		}
		// the stream is drained, the final partial batch always goes out
		return writer.Finish(gctx)
	})

	err = g.Wait()
	return reader.RowsRead(), writer.RowsWritten(), err
}

// fail : moves the table to FAILED exactly once with the state it died in
func (o *Orchestrator) fail(res *TableResult, start time.Time, in TableState, err error) *TableResult {
	res.Status = StatusFailed
	res.FailedIn = in
	res.Err = err
	o.log.Error().Err(err).Str("table", res.Spec.SourceTable).Str("state", string(in)).Msg("table migration failed")
	o.emitCompleted(res, start)
	return res
}

func (o *Orchestrator) emitCompleted(res *TableResult, start time.Time) {
	res.Duration = time.Since(start)
	ev := event.TableCompleted{
		RunID:       o.runID,
		SourceTable: res.Spec.SourceTable,
		TargetTable: res.Spec.TargetTable,
		Status:      string(res.Status),
		RowsRead:    res.RowsRead,
		RowsWritten: res.RowsWritten,
		SourceCount: res.SourceCount,
		TargetCount: res.TargetCount,
		Verified:    res.Verified,
		Duration:    res.Duration,
	}
	if res.Err != nil {
		ev.Err = res.Err.Error()
	}
	o.events.OnTableCompleted(ev)
}

// mapColumns : maps every source column, collecting all bad columns into
// one error instead of reporting them one run at a time.
func mapColumns(info *table.Info) ([]colmap.Column, error) {
	var (
		cols     = make([]colmap.Column, 0, len(info.Schema))
		finalErr error
	)
	for _, c := range info.Schema {
		mapped, err := colmap.Convert(c.ColumnName, c.Type, c.Nullable)
		if err != nil {
			finalErr = multierror.Append(finalErr, fmt.Errorf("bad cast for %s.%s: %w", info.TableName, c.ColumnName, err))
			continue
		}
		cols = append(cols, mapped)
	}
	if finalErr != nil {
		return nil, finalErr
	}
	return cols, nil
}
