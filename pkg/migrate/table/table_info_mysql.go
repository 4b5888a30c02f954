package table

import (
	"context"
	"database/sql"
	"fmt"

	"golang.org/x/sync/errgroup"
)

func NewInfoFetcherMysql(db *sql.DB, dbName string) InfoFetcher {
	return &InfoFetcherMYSQL{
		source: db,
		dbName: dbName,
	}
}

type InfoFetcherMYSQL struct {
	source *sql.DB
	dbName string
}

func (m *InfoFetcherMYSQL) Describe(ctx context.Context, tableName string) (*Info, error) {
	var (
		info = Info{
			TableName:    tableName,
			DatabaseName: m.dbName,
		}
		wg errgroup.Group
	)

	wg.Go(func() error {
		schema, err := m.getColumns(ctx, tableName)
		if err != nil {
			return err
		}
		info.Schema = schema
		return nil
	})
	wg.Go(func() error {
		pks, err := m.getPrimaryKey(ctx, tableName)
		if err != nil {
			return err
		}
		info.PrimaryKey = pks
		return nil
	})
	if err := wg.Wait(); err != nil {
		return nil, err
	}

	if len(info.Schema) == 0 {
		return nil, fmt.Errorf("table %s.%s does not exist or has no columns", m.dbName, tableName)
	}
	return &info, nil
}

func (m *InfoFetcherMYSQL) CountRows(ctx context.Context, tableName string) (int64, error) {
	var count int64
	err := m.source.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", WrapQ(tableName))).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting rows of %s: %w", tableName, err)
	}
	return count, nil
}

func (m *InfoFetcherMYSQL) getColumns(ctx context.Context, tableName string) ([]*ColumnTypes, error) {
	rows, err := m.source.QueryContext(ctx, `
	SELECT COLUMN_NAME AS col_name,
		COLUMN_TYPE AS col_type,
		(IS_NULLABLE = 'YES') AS is_nullable
	FROM information_schema.COLUMNS
	WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
	ORDER BY ORDINAL_POSITION`, m.dbName, tableName)
	if err != nil {
		return nil, fmt.Errorf("describing %s: %w", tableName, err)
	}
	defer rows.Close()

	var res []*ColumnTypes
	for rows.Next() {
		var col ColumnTypes
		if err := rows.Scan(&col.ColumnName, &col.Type, &col.Nullable); err != nil {
			return nil, err
		}
		res = append(res, &col)
	}
	return res, rows.Err()
}

func (m *InfoFetcherMYSQL) getPrimaryKey(ctx context.Context, tableName string) ([]string, error) {
	rows, err := m.source.QueryContext(ctx, `
	SELECT COLUMN_NAME AS col_name
	FROM information_schema.KEY_COLUMN_USAGE
	WHERE TABLE_SCHEMA = ?
		AND TABLE_NAME = ?
		AND CONSTRAINT_NAME = 'PRIMARY'
	ORDER BY ORDINAL_POSITION`, m.dbName, tableName)
	if err != nil {
		return nil, fmt.Errorf("fetching primary key of %s: %w", tableName, err)
	}
	defer rows.Close()

	var pks []string
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, err
		}
		pks = append(pks, col)
	}
	return pks, rows.Err()
}

// WrapQ : backtick quotes a mysql identifier
func WrapQ(ident string) string {
	return "`" + ident + "`"
}
