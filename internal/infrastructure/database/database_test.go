package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ppetr/arduino-influxdb/internal/infrastructure/config"
)

func testConfig(t *testing.T) config.QueueConfig {
	t.Helper()
	return config.QueueConfig{
		Path:        filepath.Join(t.TempDir(), "queue.db"),
		BusyTimeout: 5,
		Synchronous: "full",
	}
}

func TestOpen_CreatesDirectoryAndFile(t *testing.T) {
	cfg := config.QueueConfig{
		Path:        filepath.Join(t.TempDir(), "nested", "dir", "queue.db"),
		BusyTimeout: 5,
		Synchronous: "full",
	}

	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	if db.Path() != cfg.Path {
		t.Errorf("Path() = %q, want %q", db.Path(), cfg.Path)
	}
}

func TestOpen_AppliesPragmas(t *testing.T) {
	db, err := Open(testConfig(t))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("querying journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("journal_mode = %q, want \"wal\"", journalMode)
	}

	// FULL = 2 in SQLite's numeric representation.
	var synchronous int
	if err := db.QueryRow("PRAGMA synchronous").Scan(&synchronous); err != nil {
		t.Fatalf("querying synchronous: %v", err)
	}
	if synchronous != 2 {
		t.Errorf("synchronous = %d, want 2 (FULL)", synchronous)
	}
}

func TestOpen_NormalSynchronous(t *testing.T) {
	cfg := testConfig(t)
	cfg.Synchronous = "normal"

	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	var synchronous int
	if err := db.QueryRow("PRAGMA synchronous").Scan(&synchronous); err != nil {
		t.Fatalf("querying synchronous: %v", err)
	}
	if synchronous != 1 {
		t.Errorf("synchronous = %d, want 1 (NORMAL)", synchronous)
	}
}

func TestHealthCheck(t *testing.T) {
	db, err := Open(testConfig(t))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if err := db.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v, want nil", err)
	}

	db.Close()
	if err := db.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() after Close = nil, want error")
	}
}

func TestClose_Idempotent(t *testing.T) {
	db, err := Open(testConfig(t))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if err := db.Close(); err != nil {
		t.Errorf("first Close() error = %v", err)
	}
	if err := db.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

// Reopening the same file must work; the collector does this on every
// restart and the queue content must survive it.
func TestOpen_Reopen(t *testing.T) {
	cfg := testConfig(t)

	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := db.Exec("CREATE TABLE probe (n INTEGER)"); err != nil {
		t.Fatalf("creating table: %v", err)
	}
	if _, err := db.Exec("INSERT INTO probe (n) VALUES (42)"); err != nil {
		t.Fatalf("inserting: %v", err)
	}
	db.Close()

	db, err = Open(cfg)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer db.Close()

	var n int
	if err := db.QueryRow("SELECT n FROM probe").Scan(&n); err != nil {
		t.Fatalf("reading after reopen: %v", err)
	}
	if n != 42 {
		t.Errorf("value after reopen = %d, want 42", n)
	}
}
