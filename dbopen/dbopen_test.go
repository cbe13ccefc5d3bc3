package dbopen_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/escale/dbopen"
)

func pragmaInt(t *testing.T, db *sql.DB, name string) int {
	t.Helper()
	var v int
	if err := db.QueryRow("PRAGMA " + name).Scan(&v); err != nil {
		t.Fatalf("read pragma %s: %v", name, err)
	}
	return v
}

func TestOpenDefaults(t *testing.T) {
	db := dbopen.OpenMemory(t)

	// :memory: reports journal_mode "memory"; on a file this is "wal".
	var journal string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journal); err != nil {
		t.Fatal(err)
	}
	if journal != "wal" && journal != "memory" {
		t.Errorf("journal_mode = %q", journal)
	}

	checks := []struct {
		pragma string
		want   int
	}{
		{"busy_timeout", 10_000},
		{"foreign_keys", 1},
		{"synchronous", 1}, // NORMAL
	}
	for _, c := range checks {
		if got := pragmaInt(t, db, c.pragma); got != c.want {
			t.Errorf("%s = %d, want %d", c.pragma, got, c.want)
		}
	}
}

func TestOpenOverrides(t *testing.T) {
	t.Run("busy timeout", func(t *testing.T) {
		db := dbopen.OpenMemory(t, dbopen.WithBusyTimeout(2500))
		if got := pragmaInt(t, db, "busy_timeout"); got != 2500 {
			t.Errorf("busy_timeout = %d", got)
		}
	})
	t.Run("synchronous full", func(t *testing.T) {
		db := dbopen.OpenMemory(t, dbopen.WithSynchronous("FULL"))
		if got := pragmaInt(t, db, "synchronous"); got != 2 {
			t.Errorf("synchronous = %d, want 2", got)
		}
	})
	t.Run("cache size", func(t *testing.T) {
		db := dbopen.OpenMemory(t, dbopen.WithCacheSize(-16000))
		if got := pragmaInt(t, db, "cache_size"); got != -16000 {
			t.Errorf("cache_size = %d", got)
		}
	})
	t.Run("foreign keys off", func(t *testing.T) {
		db := dbopen.OpenMemory(t, dbopen.WithoutForeignKeys())
		if got := pragmaInt(t, db, "foreign_keys"); got != 0 {
			t.Errorf("foreign_keys = %d, want 0", got)
		}
	})
}

func TestSchemasLayer(t *testing.T) {
	// Two stores share one file in production; both schemas must apply.
	db := dbopen.OpenMemory(t,
		dbopen.WithSchema(`CREATE TABLE first (id TEXT PRIMARY KEY)`),
		dbopen.WithSchema(`CREATE TABLE second (id TEXT PRIMARY KEY)`),
	)
	if _, err := db.Exec(`INSERT INTO first (id) VALUES ('a')`); err != nil {
		t.Fatalf("first schema missing: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO second (id) VALUES ('b')`); err != nil {
		t.Fatalf("second schema missing: %v", err)
	}
}

func TestSchemaFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.sql")
	ddl := []byte(`CREATE TABLE from_file (id TEXT PRIMARY KEY)`)
	if err := os.WriteFile(path, ddl, 0o644); err != nil {
		t.Fatal(err)
	}

	db := dbopen.OpenMemory(t, dbopen.WithSchemaFile(path))
	if _, err := db.Exec(`INSERT INTO from_file (id) VALUES ('a')`); err != nil {
		t.Fatalf("schema file not applied: %v", err)
	}
}

func TestMkdirAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dirs", "app.db")

	db, err := dbopen.Open(path, dbopen.WithMkdirAll())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Fatalf("parent directory missing: %v", err)
	}
}

func TestIsBusy(t *testing.T) {
	busy := []error{
		errors.New("SQLITE_BUSY"),
		errors.New("store: insert: SQLITE_BUSY (5)"),
		errors.New("database is locked"),
		errors.New("database table is locked"),
	}
	for _, err := range busy {
		if !dbopen.IsBusy(err) {
			t.Errorf("IsBusy(%v) = false", err)
		}
	}
	notBusy := []error{
		nil,
		errors.New("no such table: missing"),
		context.Canceled,
	}
	for _, err := range notBusy {
		if dbopen.IsBusy(err) {
			t.Errorf("IsBusy(%v) = true", err)
		}
	}
}

func TestExec(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(`CREATE TABLE kv (k TEXT PRIMARY KEY, v TEXT)`))
	ctx := context.Background()

	res, err := dbopen.Exec(ctx, db, `INSERT INTO kv (k, v) VALUES (?, ?)`, "greeting", "hello")
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		t.Errorf("rows affected = %d, want 1", n)
	}
}

func TestExecCancelledContext(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(`CREATE TABLE kv (k TEXT PRIMARY KEY)`))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := dbopen.Exec(ctx, db, `INSERT INTO kv (k) VALUES ('a')`); err == nil {
		t.Fatal("expected an error from a cancelled context")
	}
}
