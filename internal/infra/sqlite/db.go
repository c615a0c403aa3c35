// Package sqlite provides persistent storage for the credit transaction log,
// seller balances, and the notification retry ledger.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies all migrations.
// Use ":memory:" for an ephemeral database in tests.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// Serialized access keeps BEGIN IMMEDIATE transactions from racing
	// the driver's connection pool on a single file.
	conn.SetMaxOpenConns(1)

	db := &DB{db: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error { return db.db.Close() }

// Migrations returns the schema migration statements.
// Each string is a single SQL statement (SQLite executes one at a time).
func Migrations() []string {
	return []string{
		// Seller balances — mutated only through the credit ledger
		`CREATE TABLE IF NOT EXISTS seller_balances (
			seller_id  TEXT PRIMARY KEY,
			balance    INTEGER NOT NULL DEFAULT 0 CHECK(balance >= 0),
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,

		// Immutable credit transaction log
		`CREATE TABLE IF NOT EXISTS credit_transactions (
			id         TEXT PRIMARY KEY,
			seller_id  TEXT NOT NULL,
			amount     INTEGER NOT NULL,
			type       TEXT NOT NULL,
			metadata   TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tx_seller ON credit_transactions(seller_id)`,

		// Notification retry ledger
		`CREATE TABLE IF NOT EXISTS notifications (
			id          TEXT PRIMARY KEY,
			seller_id   TEXT NOT NULL,
			type        TEXT NOT NULL,
			payload     TEXT NOT NULL DEFAULT '',
			read        INTEGER NOT NULL DEFAULT 0,
			sent        INTEGER NOT NULL DEFAULT 0,
			retry_count INTEGER NOT NULL DEFAULT 0,
			max_retries INTEGER NOT NULL DEFAULT 5,
			created_at  TEXT NOT NULL,
			sent_at     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notif_seller ON notifications(seller_id)`,
		`CREATE INDEX IF NOT EXISTS idx_notif_pending ON notifications(sent, retry_count)`,
	}
}

func (db *DB) migrate() error {
	for _, stmt := range Migrations() {
		if _, err := db.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
