package table

import "context"

type ColumnTypes struct {
	ColumnName string `db:"col_name"`
	Type       string `db:"col_type"`
	Nullable   bool   `db:"is_nullable"`
}

type Index struct {
	ColumnName   string `db:"col_name"`
	IndexName    string `db:"index_name"`
	IsPrimaryKey bool   `db:"is_primary_key"`
}

type Info struct {
	TableName    string `db:"table_name"`
	DatabaseName string `db:"db_name"`
	Schema       []*ColumnTypes
	PrimaryKey   []string
}

// ColumnNames : source ordered column names, fixed once per table at
// read-start and reused for the cursor query and the target insert.
func (i *Info) ColumnNames() []string {
	names := make([]string, 0, len(i.Schema))
	for _, c := range i.Schema {
		names = append(names, c.ColumnName)
	}
	return names
}

type InfoFetcher interface {
	// Describe : fetches the schema for a single table in catalog order
	Describe(ctx context.Context, tableName string) (*Info, error)
	// CountRows : exact row count for a table
	CountRows(ctx context.Context, tableName string) (int64, error)
}
