// package schema
//
// makes sure the destination table exists with the mapped column layout
// before any rows flow.
package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/baderkha/mysql2ch/pkg/migrate/table/colmap"
	"github.com/rs/zerolog"
)

// Executor : the destination's DDL and catalog capability.
type Executor interface {
	Exec(ctx context.Context, query string) error
	TableExists(ctx context.Context, tableName string) (bool, error)
	ColumnNames(ctx context.Context, tableName string) ([]string, error)
}

// MismatchError : the live destination table cannot receive the mapped
// columns. Fatal for the table, structural reconciliation is out of scope.
type MismatchError struct {
	Table   string
	Missing []string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("target table %s is missing column(s): %s", e.Table, strings.Join(e.Missing, ", "))
}

type Synchronizer struct {
	dest             Executor
	dropBeforeCreate bool
	log              zerolog.Logger
}

func NewSynchronizer(dest Executor, dropBeforeCreate bool, log zerolog.Logger) *Synchronizer {
	return &Synchronizer{
		dest:             dest,
		dropBeforeCreate: dropBeforeCreate,
		log:              log,
	}
}

// EnsureTable : creates the destination table if absent. An existing table
// is only checked for column compatibility, never restructured. orderBy is
// the source primary key, an empty one falls back to tuple().
func (s *Synchronizer) EnsureTable(ctx context.Context, tableName string, cols []colmap.Column, orderBy []string) error {
	if s.dropBeforeCreate {
		if err := s.dest.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS `%s`", tableName)); err != nil {
			return fmt.Errorf("dropping %s: %w", tableName, err)
		}
		s.log.Info().Str("table", tableName).Msg("dropped old target table")
	}

	exists, err := s.dest.TableExists(ctx, tableName)
	if err != nil {
		return fmt.Errorf("checking %s: %w", tableName, err)
	}
	if exists {
		return s.checkCompatible(ctx, tableName, cols)
	}

	ddl := DDL(tableName, cols, orderBy)
	if err := s.dest.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("creating %s: %w", tableName, err)
	}
	s.log.Info().Str("table", tableName).Int("columns", len(cols)).Msg("created target table")
	return nil
}

// checkCompatible : the live column set must be a superset of the mapped
// columns.
func (s *Synchronizer) checkCompatible(ctx context.Context, tableName string, cols []colmap.Column) error {
	live, err := s.dest.ColumnNames(ctx, tableName)
	if err != nil {
		return fmt.Errorf("describing target %s: %w", tableName, err)
	}
	have := make(map[string]struct{}, len(live))
	for _, name := range live {
		have[name] = struct{}{}
	}
	var missing []string
	for _, c := range cols {
		if _, ok := have[c.Name]; !ok {
			missing = append(missing, c.Name)
		}
	}
	if len(missing) > 0 {
		return &MismatchError{Table: tableName, Missing: missing}
	}
	return nil
}

// DDL : renders the MergeTree create statement with columns in source order
// and the sort key derived from the source primary key.
func DDL(tableName string, cols []colmap.Column, orderBy []string) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = fmt.Sprintf("    `%s` %s", c.Name, c.TargetType)
	}

	orderExpr := "tuple()"
	if len(orderBy) > 0 {
		quoted := make([]string, len(orderBy))
		for i, c := range orderBy {
			quoted[i] = "`" + c + "`"
		}
		orderExpr = strings.Join(quoted, ", ")
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS `%s`\n(\n%s\n)\nENGINE = MergeTree()\nORDER BY (%s)\nSETTINGS index_granularity = 8192",
		tableName, strings.Join(defs, ",\n"), orderExpr)
}
