package connection

import (
	"context"
	"fmt"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/baderkha/mysql2ch/pkg/migrate/config/targetcfg"
	"github.com/baderkha/mysql2ch/pkg/migrate/sink"
	"github.com/rs/zerolog"
)

// Clickhouse : the target side capability set (DDL, bulk insert, counts)
// over one native protocol connection pool.
type Clickhouse struct {
	conn driver.Conn
	db   string
	log  zerolog.Logger
}

// DialClickhouse : opens and pings the target. A failure here is fatal for
// the whole task.
func DialClickhouse(ctx context.Context, cfg *targetcfg.Clickhouse, log zerolog.Logger) (*Clickhouse, error) {
	opts := &clickhouse.Options{
		Addr: []string{cfg.Addr()},
		Auth: clickhouse.Auth{
			Database: cfg.DB,
			Username: cfg.UserName,
			Password: cfg.Password,
		},
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.Compression {
		opts.Compression = &clickhouse.Compression{Method: clickhouse.CompressionLZ4}
	}
	if cfg.QueryLogging {
		opts.Debug = true
		opts.Debugf = func(format string, v ...any) {
			log.Debug().Str("driver", "clickhouse").Msgf(format, v...)
		}
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("CLICKHOUSE_TARGET : could not dial connection to clickhouse : %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("CLICKHOUSE_TARGET : could not reach clickhouse at %s : %w", cfg.Addr(), err)
	}
	return &Clickhouse{conn: conn, db: cfg.DB, log: log}, nil
}

func (c *Clickhouse) Exec(ctx context.Context, query string) error {
	return c.conn.Exec(ctx, query)
}

func (c *Clickhouse) TableExists(ctx context.Context, tableName string) (bool, error) {
	var exists uint8
	err := c.conn.QueryRow(ctx, fmt.Sprintf("EXISTS TABLE `%s`", tableName)).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists == 1, nil
}

func (c *Clickhouse) ColumnNames(ctx context.Context, tableName string) ([]string, error) {
	rows, err := c.conn.Query(ctx,
		"SELECT name FROM system.columns WHERE database = currentDatabase() AND table = ? ORDER BY position",
		tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (c *Clickhouse) NewBatch(ctx context.Context, tableName string, columns []string) (sink.Batch, error) {
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = "`" + col + "`"
	}
	return c.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO `%s` (%s)", tableName, strings.Join(quoted, ",")))
}

func (c *Clickhouse) CountRows(ctx context.Context, tableName string) (int64, error) {
	var count uint64
	err := c.conn.QueryRow(ctx, fmt.Sprintf("SELECT count() FROM `%s`", tableName)).Scan(&count)
	if err != nil {
		return 0, err
	}
	return int64(count), nil
}

func (c *Clickhouse) Close() error {
	return c.conn.Close()
}
