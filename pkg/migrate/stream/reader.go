// package stream
//
// forward only streaming read of a source table. Memory use is bounded by
// the chunk size no matter how large the table is.
package stream

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
)

// Row : one source row as raw wire bytes in fixed column order. A nil cell
// is a SQL NULL. Rows are copied out of the driver's scan buffer and never
// mutated after that.
type Row [][]byte

// Cursor : the part of *sql.Rows the reader needs. Satisfied by *sql.Rows.
type Cursor interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// ReadError : transient source failure (connection drop, timeout) while
// pulling rows. Retrying means reopening the table's cursor from the start.
type ReadError struct {
	Table string
	Cause error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("reading %s: %v", e.Table, e.Cause)
}

func (e *ReadError) Unwrap() error { return e.Cause }

// DriftError : the live source columns no longer match the set captured at
// read-start. Fatal for the table.
type DriftError struct {
	Table    string
	Expected []string
	Actual   []string
}

func (e *DriftError) Error() string {
	return fmt.Sprintf("source columns of %s drifted: expected (%s) got (%s)",
		e.Table, strings.Join(e.Expected, ","), strings.Join(e.Actual, ","))
}

type Reader struct {
	cur       Cursor
	tableName string
	chunkSize int
	rowsRead  atomic.Int64
	done      bool
}

// New : wraps an open cursor. Verifies the cursor's live column set against
// the columns captured at table describe time, mismatch is a DriftError.
func New(cur Cursor, tableName string, expectedCols []string, chunkSize int) (*Reader, error) {
	actual, err := cur.Columns()
	if err != nil {
		cur.Close()
		return nil, &ReadError{Table: tableName, Cause: err}
	}
	if len(actual) != len(expectedCols) {
		cur.Close()
		return nil, &DriftError{Table: tableName, Expected: expectedCols, Actual: actual}
	}
	for i := range actual {
		if actual[i] != expectedCols[i] {
			cur.Close()
			return nil, &DriftError{Table: tableName, Expected: expectedCols, Actual: actual}
		}
	}
	return &Reader{
		cur:       cur,
		tableName: tableName,
		chunkSize: chunkSize,
	}, nil
}

// NextChunk : pulls up to chunkSize rows. Returns io.EOF once the stream is
// exhausted. The returned rows own their memory.
func (r *Reader) NextChunk(ctx context.Context) ([]Row, error) {
	if r.done {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cols, err := r.cur.Columns()
	if err != nil {
		return nil, &ReadError{Table: r.tableName, Cause: err}
	}

	var (
		chunk = make([]Row, 0, r.chunkSize)
		raw   = make([]sql.RawBytes, len(cols))
		dest  = make([]any, len(cols))
	)
	for i := range raw {
		dest[i] = &raw[i]
	}

	for len(chunk) < r.chunkSize {
		if !r.cur.Next() {
			r.done = true
			if err := r.cur.Err(); err != nil {
				return nil, &ReadError{Table: r.tableName, Cause: err}
			}
			break
		}
		if err := r.cur.Scan(dest...); err != nil {
			return nil, &ReadError{Table: r.tableName, Cause: err}
		}
		// RawBytes is only valid until the next cursor advance
		row := make(Row, len(raw))
		for i, cell := range raw {
			if cell == nil {
				continue
			}
			row[i] = append([]byte(nil), cell...)
		}
		chunk = append(chunk, row)
	}

	if len(chunk) == 0 {
		return nil, io.EOF
	}
	r.rowsRead.Add(int64(len(chunk)))
	return chunk, nil
}

// RowsRead : total rows pulled so far. Safe to poll from the consuming
// side while the producer is still reading.
func (r *Reader) RowsRead() int64 {
	return r.rowsRead.Load()
}

func (r *Reader) Close() error {
	return r.cur.Close()
}
