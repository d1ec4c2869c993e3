package storage

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is stamped into PRAGMA user_version. Bump it with every
// change to schema.sql.
const schemaVersion = 1

var (
	// ErrNotFound is returned when no dataset matches a hash prefix.
	ErrNotFound = errors.New("dataset not found")

	// ErrNewerSchema is returned by Open for a database written by a newer build.
	ErrNewerSchema = errors.New("database schema is newer than this build")
)

// DB wraps a sql.DB for the telemetry dataset store.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database at the given path and applies the schema.
func Open(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// :memory: databases are per-connection.
	if path == ":memory:" {
		conn.SetMaxOpenConns(1)
	}
	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// SchemaVersion reports the user_version stamped in the database.
func (db *DB) SchemaVersion() (int, error) {
	var v int
	if err := db.conn.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

func (db *DB) migrate() error {
	current, err := db.SchemaVersion()
	if err != nil {
		return err
	}
	if current > schemaVersion {
		return fmt.Errorf("%w: have %d, build supports %d", ErrNewerSchema, current, schemaVersion)
	}
	if _, err := db.conn.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	if current == schemaVersion {
		return nil
	}
	// PRAGMA does not take bind parameters.
	if _, err := db.conn.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("stamp schema version: %w", err)
	}
	return nil
}

// withTx runs fn in a transaction, committing only when fn succeeds.
func (db *DB) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// insertRows bulk-inserts n rows into table through one prepared statement.
// row returns the values for row i, without the leading dataset hash and seq.
func (db *DB) insertRows(table string, cols []string, hash string, n int, row func(i int) ([]any, error)) error {
	all := append([]string{"dataset_hash", "seq"}, cols...)
	query := fmt.Sprintf("INSERT OR REPLACE INTO %s(%s) VALUES (%s)",
		table, strings.Join(all, ", "), placeholders(len(all)))

	return db.withTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(query)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i := 0; i < n; i++ {
			vals, err := row(i)
			if err != nil {
				return err
			}
			args := append([]any{hash, i}, vals...)
			if _, err := stmt.Exec(args...); err != nil {
				return fmt.Errorf("insert %s row %d: %w", table, i, err)
			}
		}
		return nil
	})
}
