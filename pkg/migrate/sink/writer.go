// package sink
//
// accumulates coerced rows and bulk inserts them into clickhouse with a
// bounded retry budget per batch.
package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/baderkha/mysql2ch/pkg/migrate/stream"
	"github.com/baderkha/mysql2ch/pkg/migrate/table/colmap"
)

// Batch : one bulk insert in flight. driver.Batch from clickhouse-go
// satisfies this.
type Batch interface {
	Append(v ...any) error
	Send() error
	Abort() error
}

// BatchOpener : the destination's bulk insert capability.
type BatchOpener interface {
	NewBatch(ctx context.Context, tableName string, columns []string) (Batch, error)
}

// WriteError : a batch could not be written after exhausting the retry
// budget. Fatal for the table.
type WriteError struct {
	Table    string
	Attempts int
	Cause    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing to %s failed after %d attempt(s): %v", e.Table, e.Attempts, e.Cause)
}

func (e *WriteError) Unwrap() error { return e.Cause }

type Writer struct {
	dest          BatchOpener
	tableName     string
	columns       []colmap.Column
	colNames      []string
	batchSize     int
	maxRetry      int
	backoff       time.Duration
	flushInterval time.Duration
	buf           [][]any
	lastFlush     time.Time
	rowsWritten   int64
	flushes       int64
}

type Options struct {
	BatchSize     int
	MaxRetry      int
	RetryBackoff  time.Duration
	FlushInterval time.Duration
}

func NewWriter(dest BatchOpener, tableName string, columns []colmap.Column, opt Options) *Writer {
	if opt.MaxRetry <= 0 {
		opt.MaxRetry = 1
	}
	colNames := make([]string, len(columns))
	for i, c := range columns {
		colNames[i] = c.Name
	}
	return &Writer{
		dest:          dest,
		tableName:     tableName,
		columns:       columns,
		colNames:      colNames,
		batchSize:     opt.BatchSize,
		maxRetry:      opt.MaxRetry,
		backoff:       opt.RetryBackoff,
		flushInterval: opt.FlushInterval,
		buf:           make([][]any, 0, opt.BatchSize),
		lastFlush:     time.Now(),
	}
}

// Add : coerces the rows through the column mapping and buffers them,
// flushing every time a full batch accumulates. Coercion failures surface
// here, before anything is sent.
func (w *Writer) Add(ctx context.Context, rows []stream.Row) error {
	for _, row := range rows {
		if len(row) != len(w.columns) {
			return &colmap.CoercionError{
				Column: w.tableName,
				Value:  fmt.Sprintf("%d cells", len(row)),
				Cause:  fmt.Errorf("row width does not match %d mapped columns", len(w.columns)),
			}
		}
		coerced := make([]any, len(row))
		for i, cell := range row {
			v, err := colmap.Coerce(cell, w.columns[i])
			if err != nil {
				return err
			}
			coerced[i] = v
		}
		w.buf = append(w.buf, coerced)
	}

	for len(w.buf) >= w.batchSize {
		if err := w.flush(ctx, w.batchSize); err != nil {
			return err
		}
	}
	if w.flushInterval > 0 && len(w.buf) > 0 && time.Since(w.lastFlush) >= w.flushInterval {
		return w.flush(ctx, len(w.buf))
	}
	return nil
}

// Finish : flushes whatever partial batch is left. The final partial batch
// is always written, never dropped.
func (w *Writer) Finish(ctx context.Context) error {
	if len(w.buf) == 0 {
		return nil
	}
	return w.flush(ctx, len(w.buf))
}

// RowsWritten : rows acknowledged by the destination so far
func (w *Writer) RowsWritten() int64 {
	return w.rowsWritten
}

// Flushes : bulk insert calls performed so far
func (w *Writer) Flushes() int64 {
	return w.flushes
}

// flush : sends the first n buffered rows as one bulk insert. Every retry
// prepares a fresh batch and re-appends the rows, a failed attempt's batch
// object is never resent. The destination is append only, so a retried
// batch that partially landed may duplicate rows, count verification is the
// backstop for that.
func (w *Writer) flush(ctx context.Context, n int) error {
	var (
		pending = w.buf[:n]
		lastErr error
	)
	for attempt := 1; attempt <= w.maxRetry; attempt++ {
		lastErr = w.send(ctx, pending)
		if lastErr == nil {
			w.rowsWritten += int64(n)
			w.flushes++
			w.buf = append(w.buf[:0], w.buf[n:]...)
			w.lastFlush = time.Now()
			return nil
		}
		if ctx.Err() != nil {
			break
		}
		if attempt < w.maxRetry {
			if err := sleep(ctx, w.backoff*time.Duration(1<<(attempt-1))); err != nil {
				break
			}
		}
	}
	return &WriteError{Table: w.tableName, Attempts: w.maxRetry, Cause: lastErr}
}

func (w *Writer) send(ctx context.Context, rows [][]any) error {
	batch, err := w.dest.NewBatch(ctx, w.tableName, w.colNames)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if err := batch.Append(row...); err != nil {
			batch.Abort()
			return err
		}
	}
	return batch.Send()
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
