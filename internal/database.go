package internal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const createKVTableSQL = `
CREATE TABLE IF NOT EXISTS libraKV (
	key TEXT PRIMARY KEY,
	value TEXT
)`

// SQLiteKV is the default KVStore, one row per key in the libraKV table
type SQLiteKV struct {
	db   *sql.DB
	path string
}

var _ KVStore = (*SQLiteKV)(nil)

// OpenDatabase opens (creating if needed) a SQLite database for read-write use
func OpenDatabase(path string) (*sql.DB, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
		dsn = path + "?_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return db, nil
}

// OpenSQLiteKV opens the database at path and ensures the libraKV table exists
func OpenSQLiteKV(path string) (*SQLiteKV, error) {
	db, err := OpenDatabase(path)
	if err != nil {
		return nil, &StorageError{Path: path, Op: "open", Err: err}
	}
	return NewSQLiteKV(db, path)
}

// NewSQLiteKV wraps an already open database
func NewSQLiteKV(db *sql.DB, path string) (*SQLiteKV, error) {
	if _, err := db.Exec(createKVTableSQL); err != nil {
		db.Close()
		return nil, &StorageError{Path: path, Op: "open", Err: fmt.Errorf("failed to create libraKV table: %w", err)}
	}
	return &SQLiteKV{db: db, path: path}, nil
}

// Get returns the value stored under key
func (s *SQLiteKV) Get(ctx context.Context, key string) (string, bool, error) {
	var value sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT value FROM libraKV WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, &StorageError{Path: s.path, Op: "get", Err: err}
	}
	if !value.Valid {
		return "", false, nil
	}
	return value.String, true, nil
}

// Apply runs every op inside one transaction
func (s *SQLiteKV) Apply(ctx context.Context, ops ...KVOp) error {
	if len(ops) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &StorageError{Path: s.path, Op: "apply", Err: err}
	}

	for _, op := range ops {
		if op.Delete {
			_, err = tx.ExecContext(ctx, "DELETE FROM libraKV WHERE key = ?", op.Key)
		} else {
			_, err = tx.ExecContext(ctx,
				"INSERT INTO libraKV (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
				op.Key, op.Value)
		}
		if err != nil {
			_ = tx.Rollback()
			return &StorageError{Path: s.path, Op: "apply", Err: fmt.Errorf("key %s: %w", op.Key, err)}
		}
	}

	if err := tx.Commit(); err != nil {
		return &StorageError{Path: s.path, Op: "apply", Err: err}
	}
	return nil
}

// Keys lists stored keys, for healthcheck reporting
func (s *SQLiteKV) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key FROM libraKV ORDER BY key")
	if err != nil {
		return nil, &StorageError{Path: s.path, Op: "get", Err: err}
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return keys, nil
}

// Path returns the database location
func (s *SQLiteKV) Path() string {
	return s.path
}

// Close closes the underlying database
func (s *SQLiteKV) Close() error {
	return s.db.Close()
}
