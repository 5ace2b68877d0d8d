package db

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestApplyMigrationsDirCreatesSettingsTable(t *testing.T) {
	sqdb, err := OpenSQLite(filepath.Join(t.TempDir(), "console.db"), 1, 1, time.Minute)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqdb.Close() })

	dir := filepath.Join("..", "..", "migrations")
	if err := ApplyMigrationsDir(sqdb, dir); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	// Second run must be a no-op.
	if err := ApplyMigrationsDir(sqdb, dir); err != nil {
		t.Fatalf("re-apply migrations: %v", err)
	}
	if _, err := sqdb.Exec(`INSERT INTO settings(name,value,updated_at) VALUES(?,?,?)`, "k", "v", time.Now().UTC()); err != nil {
		t.Fatalf("insert setting: %v", err)
	}
}

func TestApplyMigrationsDirRejectsEmptyDir(t *testing.T) {
	sqdb, err := OpenSQLite(filepath.Join(t.TempDir(), "console.db"), 1, 1, time.Minute)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqdb.Close() })
	if err := ApplyMigrationsDir(sqdb, t.TempDir()); err == nil {
		t.Fatalf("expected error for empty migrations dir")
	}
}

func TestApplyMigrationFileSplitsStatements(t *testing.T) {
	sqdb, err := OpenSQLite(filepath.Join(t.TempDir(), "console.db"), 1, 1, time.Minute)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqdb.Close() })
	path := filepath.Join(t.TempDir(), "001_two.sql")
	src := "CREATE TABLE a (x TEXT);\n\nCREATE TABLE b (y TEXT);\n"
	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		t.Fatalf("write migration: %v", err)
	}
	if err := ApplyMigrationFile(sqdb, path); err != nil {
		t.Fatalf("apply migration: %v", err)
	}
	for _, table := range []string{"a", "b"} {
		if _, err := sqdb.Exec("SELECT COUNT(1) FROM " + table); err != nil {
			t.Fatalf("expected table %s: %v", table, err)
		}
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, _, err := Open("oracle", "x", 1, 1, time.Minute); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
}
