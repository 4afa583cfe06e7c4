package index

import (
	"database/sql"
	_ "embed"
	"fmt"
	"net/url"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// migrations upgrade an index created by an older binary. Entry i moves
// user_version from i to i+1; the last entry's target is the current version.
var migrations = []string{
	`CREATE INDEX IF NOT EXISTS idx_refs_field_target ON refs(field, target)`,
}

// DB is the SQLite lookup index.
type DB struct {
	db *sql.DB
}

// connParams are applied by the driver on every new connection. The index is
// disposable, so NORMAL sync is enough; WAL keeps `index show` readable while
// another process rebuilds.
var connParams = url.Values{
	"_journal_mode": {"WAL"},
	"_synchronous":  {"NORMAL"},
	"_busy_timeout": {"5000"},
	"_foreign_keys": {"on"},
}

// Open creates or opens the index database at path, creating tables and
// upgrading older layouts as needed.
func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?" + connParams.Encode()
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open index %s: %w", path, err)
	}
	// One writer at a time; a single pooled connection also keeps the
	// per-connection settings above authoritative.
	conn.SetMaxOpenConns(1)

	if err := prepare(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("prepare index %s: %w", path, err)
	}
	return &DB{db: conn}, nil
}

// Close releases the connection. Closing a zero DB is a no-op.
func (d *DB) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

func prepare(conn *sql.DB) error {
	if err := conn.Ping(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}

	var have int
	if err := conn.QueryRow("PRAGMA user_version").Scan(&have); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	for v := have; v < len(migrations); v++ {
		if _, err := conn.Exec(migrations[v]); err != nil {
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
	}
	if have < len(migrations) {
		if _, err := conn.Exec(fmt.Sprintf("PRAGMA user_version = %d", len(migrations))); err != nil {
			return fmt.Errorf("write user_version: %w", err)
		}
	}
	return nil
}

// pragma reads a single pragma value as text.
func (d *DB) pragma(name string) (string, error) {
	var value string
	err := d.db.QueryRow("PRAGMA " + name).Scan(&value)
	if err != nil {
		return "", fmt.Errorf("read pragma %s: %w", name, err)
	}
	return value, nil
}
