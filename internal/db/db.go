package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectMySQL    Dialect = "mysql"
	DialectPostgres Dialect = "pgx"
)

// Open connects the session database for the configured driver. For sqlite
// target is a file path, otherwise a driver DSN.
func Open(driver, target string, maxOpen, maxIdle int, maxLifetime time.Duration) (*sql.DB, Dialect, error) {
	switch Dialect(driver) {
	case DialectSQLite, "":
		db, err := OpenSQLite(target, maxOpen, maxIdle, maxLifetime)
		return db, DialectSQLite, err
	case DialectMySQL, DialectPostgres:
		db, err := sql.Open(driver, target)
		if err != nil {
			return nil, "", err
		}
		configurePool(db, maxOpen, maxIdle, maxLifetime)
		if err := db.Ping(); err != nil {
			_ = db.Close()
			return nil, "", fmt.Errorf("ping %s: %w", driver, err)
		}
		return db, Dialect(driver), nil
	default:
		return nil, "", fmt.Errorf("unsupported session db driver: %s", driver)
	}
}

func OpenSQLite(path string, maxOpen, maxIdle int, maxLifetime time.Duration) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	configurePool(db, maxOpen, maxIdle, maxLifetime)
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

func configurePool(db *sql.DB, maxOpen, maxIdle int, maxLifetime time.Duration) {
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(maxLifetime)
}
