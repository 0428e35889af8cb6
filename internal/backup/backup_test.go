package backup

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestManager(t *testing.T, retention int) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "feather.db")
	if err := os.WriteFile(dbPath, []byte("database contents"), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := New(Config{
		DBPath:    dbPath,
		BackupDir: filepath.Join(dir, "backups"),
		Retention: retention,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return m, dbPath
}

func TestBackupRoundTrip(t *testing.T) {
	m, _ := newTestManager(t, 5)

	snap, err := m.Backup()
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	if snap.SizeBytes == 0 {
		t.Error("snapshot is empty")
	}

	f, err := os.Open(filepath.Join(m.backupDir, snap.Filename))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()

	gr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("snapshot is not gzip: %v", err)
	}
	data, err := io.ReadAll(gr)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "database contents" {
		t.Errorf("restored contents = %q", data)
	}
}

func TestBackupPrunesOldSnapshots(t *testing.T) {
	m, _ := newTestManager(t, 2)

	// Pre-seed snapshots with distinct mod times; prune keeps the newest.
	for i, name := range []string{"feather_20240101_000000.db.gz", "feather_20240102_000000.db.gz"} {
		path := filepath.Join(m.backupDir, name)
		if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
			t.Fatal(err)
		}
		old := time.Now().Add(-time.Duration(48-i) * time.Hour)
		if err := os.Chtimes(path, old, old); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := m.Backup(); err != nil {
		t.Fatalf("Backup() error = %v", err)
	}

	snapshots, err := m.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(snapshots) != 2 {
		t.Fatalf("snapshots after prune = %d, want 2", len(snapshots))
	}
	if snapshots[len(snapshots)-1].Filename == "feather_20240101_000000.db.gz" {
		t.Error("oldest snapshot should have been pruned")
	}
}

func TestBackupMissingDatabase(t *testing.T) {
	m, dbPath := newTestManager(t, 1)
	if err := os.Remove(dbPath); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Backup(); err == nil {
		t.Error("Backup() error = nil, want open failure")
	}
}
