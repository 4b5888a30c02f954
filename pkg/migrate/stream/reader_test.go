package stream

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCursor : scripted rows plus optional mid-stream failure, stands in for
// *sql.Rows
type fakeCursor struct {
	cols    []string
	rows    [][][]byte
	pos     int
	failAt  int // fail the Next() at this 1-based row, 0 disables
	err     error
	closed  bool
	colsErr error
}

func (c *fakeCursor) Columns() ([]string, error) {
	if c.colsErr != nil {
		return nil, c.colsErr
	}
	return c.cols, nil
}

func (c *fakeCursor) Next() bool {
	if c.failAt > 0 && c.pos+1 == c.failAt {
		c.err = errors.New("connection reset by peer")
		return false
	}
	if c.pos >= len(c.rows) {
		return false
	}
	c.pos++
	return true
}

func (c *fakeCursor) Scan(dest ...any) error {
	row := c.rows[c.pos-1]
	for i, d := range dest {
		*(d.(*sql.RawBytes)) = sql.RawBytes(row[i])
	}
	return nil
}

func (c *fakeCursor) Err() error   { return c.err }
func (c *fakeCursor) Close() error { c.closed = true; return nil }

func makeRows(n int) [][][]byte {
	rows := make([][][]byte, n)
	for i := range rows {
		rows[i] = [][]byte{[]byte(fmt.Sprint(i)), []byte("name")}
	}
	return rows
}

func TestReaderChunking(t *testing.T) {
	cur := &fakeCursor{cols: []string{"id", "name"}, rows: makeRows(25)}
	r, err := New(cur, "users", []string{"id", "name"}, 10)
	require.NoError(t, err)

	ctx := context.Background()
	var sizes []int
	for {
		chunk, err := r.NextChunk(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		sizes = append(sizes, len(chunk))
	}

	assert.Equal(t, []int{10, 10, 5}, sizes)
	assert.Equal(t, int64(25), r.RowsRead())

	// exhausted stream keeps answering EOF
	_, err = r.NextChunk(ctx)
	assert.True(t, errors.Is(err, io.EOF))
}

func TestReaderEmptyTable(t *testing.T) {
	cur := &fakeCursor{cols: []string{"id", "name"}}
	r, err := New(cur, "users", []string{"id", "name"}, 10)
	require.NoError(t, err)

	_, err = r.NextChunk(context.Background())
	assert.True(t, errors.Is(err, io.EOF))
	assert.Equal(t, int64(0), r.RowsRead())
}

func TestReaderCopiesCells(t *testing.T) {
	rows := [][][]byte{
		{[]byte("1"), []byte("alice")},
		{[]byte("2"), nil},
	}
	cur := &fakeCursor{cols: []string{"id", "name"}, rows: rows}
	r, err := New(cur, "users", []string{"id", "name"}, 10)
	require.NoError(t, err)

	chunk, err := r.NextChunk(context.Background())
	require.NoError(t, err)
	require.Len(t, chunk, 2)

	assert.Equal(t, []byte("alice"), []byte(chunk[0][1]))
	assert.Nil(t, chunk[1][1], "NULL cells survive as nil")

	// mutating the driver buffer must not leak into delivered rows
	rows[0][1][0] = 'X'
	assert.Equal(t, []byte("alice"), []byte(chunk[0][1]))
}

func TestReaderColumnDrift(t *testing.T) {
	cur := &fakeCursor{cols: []string{"id", "renamed"}}
	_, err := New(cur, "users", []string{"id", "name"}, 10)

	var de *DriftError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "users", de.Table)
	assert.Equal(t, []string{"id", "name"}, de.Expected)
	assert.Equal(t, []string{"id", "renamed"}, de.Actual)
	assert.True(t, cur.closed)

	cur = &fakeCursor{cols: []string{"id"}}
	_, err = New(cur, "users", []string{"id", "name"}, 10)
	require.True(t, errors.As(err, &de), "missing column is drift too")
}

func TestReaderMidStreamFailure(t *testing.T) {
	cur := &fakeCursor{cols: []string{"id", "name"}, rows: makeRows(25), failAt: 15}
	r, err := New(cur, "users", []string{"id", "name"}, 10)
	require.NoError(t, err)

	ctx := context.Background()
	chunk, err := r.NextChunk(ctx)
	require.NoError(t, err)
	assert.Len(t, chunk, 10)

	_, err = r.NextChunk(ctx)
	var re *ReadError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "users", re.Table)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestReaderCancelledContext(t *testing.T) {
	cur := &fakeCursor{cols: []string{"id", "name"}, rows: makeRows(5)}
	r, err := New(cur, "users", []string{"id", "name"}, 10)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.NextChunk(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}
