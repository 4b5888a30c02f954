package connection

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/baderkha/mysql2ch/pkg/migrate/config/sourcecfg"
	"github.com/rs/zerolog"
	sqldblogger "github.com/simukti/sqldb-logger"
	"github.com/simukti/sqldb-logger/logadapter/zerologadapter"
)

func AddLogger(db *sql.DB, dsn string, driverName string) *sql.DB {
	loggerAdapter := zerologadapter.New(zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime}).With().Str("driver", driverName).Logger())
	db = sqldblogger.OpenDriver(dsn, db.Driver(), loggerAdapter,
		sqldblogger.WithWrapResult(false),
		sqldblogger.WithDurationFieldname("dur_ms"),
		sqldblogger.WithDurationUnit(sqldblogger.DurationMillisecond),
		sqldblogger.WithSQLQueryAsMessage(true),
		sqldblogger.WithSQLQueryFieldname("sql_query"),
	)
	return db
}

// DialMysql : opens and pings the source. A failure here is fatal for the
// whole task, nothing has started yet.
func DialMysql(ctx context.Context, cfg *sourcecfg.MYSQL, maxConc int) (*sql.DB, error) {
	dsn := cfg.GetDSN()
	sqlDB, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("MYSQL_SOURCE : could not dial connection to mysql : %w", err)
	}
	if cfg.QueryLogging {
		sqlDB = AddLogger(sqlDB, dsn, "mysql")
	}
	sqlDB.SetMaxOpenConns(maxConc + 1)
	sqlDB.SetMaxIdleConns(maxConc + 1)
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("MYSQL_SOURCE : could not reach mysql at %s:%d : %w", cfg.Host, cfg.Port, err)
	}
	return sqlDB, nil
}
