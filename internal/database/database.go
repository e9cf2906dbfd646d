// Package database provides the Postgres connection, schema setup, and the
// session repository.
package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// DB wraps the database connection
type DB struct {
	conn *sql.DB
}

// New creates a new database connection and ensures the schema exists.
func New(dsn string) (*DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies the connection, for health checks.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// createTables applies the idempotent schema statements.
func (db *DB) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS voice_sessions (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			channel_id BIGINT NOT NULL,
			joined_ts BIGINT NOT NULL,
			left_ts BIGINT
		)`,
		// "find my open session" lookup
		`CREATE INDEX IF NOT EXISTS idx_voice_open ON voice_sessions(user_id) WHERE left_ts IS NULL`,
		// window scans by join time
		`CREATE INDEX IF NOT EXISTS idx_voice_join ON voice_sessions(joined_ts)`,
	}

	for i, s := range stmts {
		if _, err := db.conn.Exec(s); err != nil {
			return fmt.Errorf("schema step %d failed: %w", i, err)
		}
	}

	return nil
}
