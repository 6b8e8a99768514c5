// Package sqlstore persists assets, history and settings through database/sql.
// The same queries run on PostgreSQL and SQLite; only the schema and the
// placeholder syntax differ per dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Dialect identifies the SQL flavour of a connection
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite3"
)

// DB wraps the database connection
type DB struct {
	*sql.DB
	Dialect Dialect
}

// NewDB creates a new database connection.
// For postgres the dsn is a lib/pq connection string such as
// "host=localhost port=5432 user=postgres password=postgres dbname=assetflow sslmode=disable";
// for sqlite3 it is a file path, or empty for an in-memory database.
func NewDB(driver, dsn string) (*DB, error) {
	dialect := Dialect(driver)
	switch dialect {
	case Postgres:
	case SQLite:
		dsn = sqliteDSN(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if dialect == SQLite {
		// one connection keeps an in-memory database alive and serialises writers
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db, Dialect: dialect}, nil
}

func sqliteDSN(dsn string) string {
	if dsn == "" {
		dsn = ":memory:"
	}
	if strings.Contains(dsn, "_foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on"
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// rebind rewrites $N placeholders into the dialect's syntax
func (db *DB) rebind(query string) string {
	if db.Dialect != SQLite {
		return query
	}
	return strings.ReplaceAll(query, "$", "?")
}

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
