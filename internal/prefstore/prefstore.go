// Package prefstore keeps viewer preferences in a small SQLite key-value table.
// It persists the reduced-motion override across runs.
package prefstore

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"
)

// ReducedMotionKey is the key of the reduced-motion override.
const ReducedMotionKey = "pref-reduced-motion"

const schema = `
CREATE TABLE IF NOT EXISTS preferences (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at INTEGER NOT NULL  -- UnixNano
);
`

// Store is a SQLite-backed preference table. It implements
// seqplay.OverrideStore.
type Store struct {
	db *sql.DB
}

// Open opens or creates the preference database at path. ":memory:" keeps
// the table in memory.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection, so an in-memory table is shared by every query.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value of key and whether it is set.
func (s *Store) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM preferences WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set stores value under key.
func (s *Store) Set(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixNano())
	return err
}

// Delete removes key.
func (s *Store) Delete(key string) error {
	_, err := s.db.Exec("DELETE FROM preferences WHERE key = ?", key)
	return err
}

// LoadOverride returns the persisted reduced-motion override.
// A value that does not parse is treated as unset.
func (s *Store) LoadOverride() (bool, bool, error) {
	raw, ok, err := s.Get(ReducedMotionKey)
	if err != nil || !ok {
		return false, false, err
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, nil
	}
	return value, true, nil
}

// SaveOverride persists the reduced-motion override.
func (s *Store) SaveOverride(value bool) error {
	return s.Set(ReducedMotionKey, strconv.FormatBool(value))
}

// ClearOverride removes the reduced-motion override.
func (s *Store) ClearOverride() error {
	return s.Delete(ReducedMotionKey)
}
