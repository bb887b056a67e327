// Package db is the optional Postgres job ledger.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// DB wraps the connection pool; the ledger methods hang off it.
type DB struct {
	*sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id               TEXT PRIMARY KEY,
	status           TEXT NOT NULL,
	duration_seconds INTEGER NOT NULL,
	language         TEXT NOT NULL DEFAULT '',
	facts            TEXT[] NOT NULL DEFAULT '{}',
	s3_key           TEXT,
	error_message    TEXT,
	started_at       TIMESTAMPTZ,
	finished_at      TIMESTAMPTZ,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
)`

func New(databaseURL string) (*DB, error) {
	conn, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &DB{DB: conn}, nil
}

// Migrate creates the jobs table when it does not exist yet.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}
