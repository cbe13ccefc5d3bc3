package booking

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hazyhaar/escale/dbopen"
)

// Schema holds the booking session KV table. One row per (session, key),
// JSON values, overwritten in place on re-selection.
const Schema = `
CREATE TABLE IF NOT EXISTS booking_sessions (
    session_id TEXT NOT NULL,
    key        TEXT NOT NULL,
    value      TEXT NOT NULL,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (session_id, key)
);
`

// Store is the session KV layer over an already-opened database.
type Store struct {
	DB *sql.DB
}

// NewStore creates a Store from an opened database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

// ApplySchema creates the booking tables.
func ApplySchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}

// Put stores v as JSON under (session, key), replacing any prior value.
func (s *Store) Put(ctx context.Context, session, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("booking: marshal %s: %w", key, err)
	}
	_, err = dbopen.Exec(ctx, s.DB,
		`INSERT INTO booking_sessions (session_id, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id, key) DO UPDATE SET
		value = excluded.value, updated_at = excluded.updated_at`,
		session, key, string(raw), time.Now().UnixMilli(),
	)
	return err
}

// Get decodes the value under (session, key) into out. An absent key
// returns ErrKeyNotFound wrapped with the key name.
func (s *Store) Get(ctx context.Context, session, key string, out any) error {
	var raw string
	err := s.DB.QueryRowContext(ctx,
		`SELECT value FROM booking_sessions WHERE session_id = ? AND key = ?`,
		session, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("booking: unmarshal %s: %w", key, err)
	}
	return nil
}

// Has reports whether (session, key) exists.
func (s *Store) Has(ctx context.Context, session, key string) (bool, error) {
	var one int
	err := s.DB.QueryRowContext(ctx,
		`SELECT 1 FROM booking_sessions WHERE session_id = ? AND key = ?`,
		session, key).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Keys returns the keys present for the session.
func (s *Store) Keys(ctx context.Context, session string) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT key FROM booking_sessions WHERE session_id = ? ORDER BY key`, session)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Delete removes one key.
func (s *Store) Delete(ctx context.Context, session, key string) error {
	_, err := dbopen.Exec(ctx, s.DB,
		`DELETE FROM booking_sessions WHERE session_id = ? AND key = ?`, session, key)
	return err
}

// Reset removes every key of the session.
func (s *Store) Reset(ctx context.Context, session string) error {
	_, err := dbopen.Exec(ctx, s.DB,
		`DELETE FROM booking_sessions WHERE session_id = ?`, session)
	return err
}

// Sessions lists the distinct session ids with stored data.
func (s *Store) Sessions(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT DISTINCT session_id FROM booking_sessions ORDER BY session_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
