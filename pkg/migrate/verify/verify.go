// package verify
//
// post-write row count comparison between source and target.
package verify

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Counter : exact row count capability, implemented by both sides.
type Counter interface {
	CountRows(ctx context.Context, tableName string) (int64, error)
}

type Result struct {
	SourceCount int64
	TargetCount int64
}

// Match : true iff counts are exactly equal
func (r Result) Match() bool {
	return r.SourceCount == r.TargetCount
}

// MismatchError : the counts differ. Reported, never auto retried, it means
// either concurrent source writes during migration or a lost batch and both
// need an operator.
type MismatchError struct {
	SourceTable string
	TargetTable string
	Result      Result
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("count mismatch for %s -> %s: source=%d target=%d (diff %d)",
		e.SourceTable, e.TargetTable, e.Result.SourceCount, e.Result.TargetCount,
		e.Result.SourceCount-e.Result.TargetCount)
}

// Counts : issues one count query against each side.
func Counts(ctx context.Context, src Counter, dst Counter, sourceTable string, targetTable string) (Result, error) {
	var (
		res Result
		wg  errgroup.Group
	)
	wg.Go(func() error {
		n, err := src.CountRows(ctx, sourceTable)
		if err != nil {
			return fmt.Errorf("counting source %s: %w", sourceTable, err)
		}
		res.SourceCount = n
		return nil
	})
	wg.Go(func() error {
		n, err := dst.CountRows(ctx, targetTable)
		if err != nil {
			return fmt.Errorf("counting target %s: %w", targetTable, err)
		}
		res.TargetCount = n
		return nil
	})
	if err := wg.Wait(); err != nil {
		return res, err
	}
	return res, nil
}
