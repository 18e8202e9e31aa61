package repository

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/bolingo/bolingo-backend/internal/repository/migrations"
)

// SQL drivers registered with database/sql.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "pgx"
)

// NewDB creates a database connection pool for the given driver and DSN.
// An unreachable server is logged but not fatal; requests fail until it comes up.
func NewDB(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	if driver == DriverMySQL {
		var err error
		if dsn, err = mysqlDSN(dsn); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", driver, err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		slog.WarnContext(ctx, "database ping failed", "driver", driver, "error", err)
	}

	return db, nil
}

// mysqlDSN enables parseTime so DATETIME columns scan into time.Time.
func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parsing mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate applies the embedded schema migrations for driver.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	var (
		fsys    fs.FS
		dialect string
		dir     string
	)
	switch driver {
	case DriverMySQL:
		fsys, dialect, dir = migrations.MySQL, "mysql", "mysql"
	case DriverPostgres:
		fsys, dialect, dir = migrations.Postgres, "postgres", "postgres"
	default:
		return fmt.Errorf("no migrations for driver %q", driver)
	}

	goose.SetBaseFS(fsys)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("running %s migrations: %w", driver, err)
	}
	return nil
}
