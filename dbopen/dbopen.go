// Package dbopen opens the service's SQLite files with the pragmas the
// monitoring and booking stores rely on: WAL so the monitor can write
// notifications while HTTP handlers read, foreign keys on, and a busy
// timeout tuned for two processes sharing one file.
//
//	import _ "modernc.org/sqlite"
//	db, err := dbopen.Open("data/bookings.db", dbopen.WithSchema(booking.Schema))
//
// Tests use OpenMemory, which pins the pool to one connection so every
// query sees the same in-memory database.
package dbopen

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

const (
	defaultBusyTimeoutMS = 10_000
	defaultSynchronous   = "NORMAL"
)

type settings struct {
	busyTimeoutMS int
	synchronous   string
	cacheSize     int
	foreignKeys   bool
	mkdirAll      bool
	schemas       []string
	schemaFiles   []string
}

// Option adjusts how Open prepares the database.
type Option func(*settings)

// WithBusyTimeout overrides PRAGMA busy_timeout (milliseconds).
func WithBusyTimeout(ms int) Option { return func(s *settings) { s.busyTimeoutMS = ms } }

// WithSynchronous overrides PRAGMA synchronous. Default NORMAL, which is
// the right durability/speed point under WAL.
func WithSynchronous(mode string) Option { return func(s *settings) { s.synchronous = mode } }

// WithCacheSize sets PRAGMA cache_size. Zero keeps the SQLite default;
// negative values are KiB.
func WithCacheSize(pages int) Option { return func(s *settings) { s.cacheSize = pages } }

// WithMkdirAll creates the database file's parent directories first.
func WithMkdirAll() Option { return func(s *settings) { s.mkdirAll = true } }

// WithSchema queues DDL to execute once the pragmas are in place. Repeat
// to layer several schemas onto one file.
func WithSchema(ddl string) Option {
	return func(s *settings) { s.schemas = append(s.schemas, ddl) }
}

// WithSchemaFile queues an .sql file to read and execute like WithSchema.
func WithSchemaFile(path string) Option {
	return func(s *settings) { s.schemaFiles = append(s.schemaFiles, path) }
}

// WithoutForeignKeys leaves PRAGMA foreign_keys off.
func WithoutForeignKeys() Option { return func(s *settings) { s.foreignKeys = false } }

// Open opens (creating if needed) the SQLite database at path, applies
// the pragmas and any queued schemas, and verifies the connection with a
// ping. The sqlite driver must be blank-imported by the caller:
//
//	import _ "modernc.org/sqlite"
func Open(path string, opts ...Option) (*sql.DB, error) {
	s := settings{
		busyTimeoutMS: defaultBusyTimeoutMS,
		synchronous:   defaultSynchronous,
		foreignKeys:   true,
	}
	for _, opt := range opts {
		opt(&s)
	}

	if s.mkdirAll && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("dbopen: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("dbopen: open %s: %w", path, err)
	}

	if err := s.apply(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("dbopen: ping %s: %w", path, err)
	}
	return db, nil
}

// OpenMemory opens a fresh in-memory database for a test and closes it
// via t.Cleanup. Every ":memory:" connection is its own database, so the
// pool is capped at one connection.
func OpenMemory(t testing.TB, opts ...Option) *sql.DB {
	t.Helper()
	db, err := Open(":memory:", opts...)
	if err != nil {
		t.Fatalf("dbopen.OpenMemory: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

// apply runs the pragmas, then the queued schemas. busy_timeout goes
// first so the WAL switch itself waits instead of failing on a file
// another process currently holds.
func (s *settings) apply(db *sql.DB) error {
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", s.busyTimeoutMS),
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA synchronous = %s", s.synchronous),
	}
	if s.foreignKeys {
		pragmas = append(pragmas, "PRAGMA foreign_keys = ON")
	}
	if s.cacheSize != 0 {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA cache_size = %d", s.cacheSize))
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("dbopen: %s: %w", p, err)
		}
	}

	for _, path := range s.schemaFiles {
		ddl, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("dbopen: schema file %s: %w", path, err)
		}
		s.schemas = append(s.schemas, string(ddl))
	}
	for _, ddl := range s.schemas {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("dbopen: apply schema: %w", err)
		}
	}
	return nil
}
