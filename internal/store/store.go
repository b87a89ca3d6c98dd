package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - fresh file, nothing applied yet
// 1 - packages, clusters, extensions, sessions
const CurrentSchemaVersion = 1

// ErrSchemaVersionMismatch is returned by Open when the file was written by
// a different schema version. Nothing may be loaded into such a store.
var ErrSchemaVersionMismatch = errors.New("store schema version mismatch")

// SchemaVersionError carries the versions involved in a mismatch.
type SchemaVersionError struct {
	Path     string
	Found    int
	Expected int
}

func (e *SchemaVersionError) Error() string {
	return fmt.Sprintf("%s: %s: found %d, expected %d", e.Path, ErrSchemaVersionMismatch, e.Found, e.Expected)
}

func (e *SchemaVersionError) Unwrap() error {
	return ErrSchemaVersionMismatch
}

// Store is the persistent metadata and session database.
// A Store has no internal locking beyond SQLite's own; callers must not
// issue concurrent mutations.
type Store struct {
	db   *sql.DB
	q    querier
	tx   *sql.Tx // set on the Store handed to an Update callback
	path string
	keys KeyGenerator
}

// Option configures a Store at open time.
type Option func(*Store)

// WithKeyGenerator overrides the session key generator (for testing).
func WithKeyGenerator(g KeyGenerator) Option {
	return func(s *Store) {
		s.keys = g
	}
}

// Open creates or opens a SQLite store at the given path.
//
// The database is configured with:
//   - WAL mode
//   - NORMAL synchronous mode
//   - 5-second busy timeout
//   - Foreign key enforcement
//
// A fresh file gets the schema and the current version stamped. An existing
// file must already carry CurrentSchemaVersion, otherwise Open fails with a
// *SchemaVersionError.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db, path); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db, q: db, path: path, keys: UUIDv7Generator{}}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	if s.tx != nil {
		return errors.New("store: Close called inside Update")
	}
	return s.db.Close()
}

// Path returns the file the store was opened from.
func (s *Store) Path() string {
	return s.path
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// SetInfo records a key/value pair describing the application that wrote
// the store (version, feature level).
func (s *Store) SetInfo(ctx context.Context, key, value string) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO store_info (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("set store info %q: %w", key, err)
	}
	return nil
}

// Info returns a value previously written with SetInfo.
// Returns sql.ErrNoRows if the key is absent.
func (s *Store) Info(ctx context.Context, key string) (string, error) {
	var value string
	err := s.q.QueryRowContext(ctx, `SELECT value FROM store_info WHERE key = ?`, key).Scan(&value)
	return value, err
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema checks the schema version and creates tables if needed.
func applySchema(db *sql.DB, path string) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version != 0 && version != CurrentSchemaVersion {
		return &SchemaVersionError{Path: path, Found: version, Expected: CurrentSchemaVersion}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if version == 0 {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", CurrentSchemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}

	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
