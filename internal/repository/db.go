package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DB wraps the database connection with the driver it was opened with
type DB struct {
	*sql.DB
	driver string
}

// Open establishes a connection to the database and verifies it
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if driver == DriverSQLite {
		// A single connection keeps ":memory:" databases shared and avoids SQLITE_BUSY
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
	}

	return &DB{DB: db, driver: driver}, nil
}

// Driver returns the driver name the connection was opened with
func (db *DB) Driver() string {
	return db.driver
}

// Rebind converts '?' placeholders to the driver's bind syntax
func (db *DB) Rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS health_samples (
		id         TEXT NOT NULL,
		user_id    TEXT NOT NULL,
		kind       TEXT NOT NULL,
		value      DOUBLE PRECISION NOT NULL DEFAULT 0,
		stage      TEXT NOT NULL DEFAULT '',
		start_ms   BIGINT NOT NULL,
		end_ms     BIGINT NOT NULL,
		source     TEXT NOT NULL DEFAULT '',
		created_ms BIGINT NOT NULL,
		PRIMARY KEY (user_id, id),
		UNIQUE (user_id, kind, start_ms, end_ms, value, stage)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_health_samples_user_kind_end
		ON health_samples (user_id, kind, end_ms)`,
}

// Migrate creates the schema if it does not exist
func (db *DB) Migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute migration %d: %w", i+1, err)
		}
	}
	return nil
}
