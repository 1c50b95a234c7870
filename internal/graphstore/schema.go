// Package graphstore keeps the loaded wallet graph in SQLite. The store is
// rebuilt from a dataset on every load; it is not a durable record of edits.
package graphstore

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS nodes (
	id     TEXT PRIMARY KEY,
	ord    INTEGER NOT NULL,
	label  TEXT NOT NULL DEFAULT '',
	x      REAL NOT NULL DEFAULT 0,
	y      REAL NOT NULL DEFAULT 0,
	hidden INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS edges (
	id     TEXT PRIMARY KEY,
	ord    INTEGER NOT NULL,
	source TEXT NOT NULL,
	target TEXT NOT NULL,
	label  TEXT NOT NULL DEFAULT '',
	amount TEXT,
	hidden INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS overrides (
	id    TEXT PRIMARY KEY,
	color TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source);
CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target);
`

// MemoryDSN selects a private in-memory database.
const MemoryDSN = ":memory:"

// DB wraps a sql.DB with graph-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	if dsn == "" {
		dsn = MemoryDSN
	}
	params := "_busy_timeout=5000"
	if !strings.Contains(dsn, ":memory:") {
		params += "&_journal_mode=WAL"
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}

	conn, err := sql.Open("sqlite3", dsn+sep+params)
	if err != nil {
		return nil, fmt.Errorf("graphstore: open db: %w", err)
	}
	// Every connection to :memory: is a separate database.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("graphstore: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("graphstore: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
