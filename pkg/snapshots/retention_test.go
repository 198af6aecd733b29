package snapshots

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newRetentionExporter(dir string, retentionDays int) *Exporter {
	return NewExporter(nil, nil, nil, dir, "/config/snapshot", retentionDays, zap.NewNop())
}

func writeAged(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	mtime := time.Now().Add(-age)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCleanupRemovesOnlyExpiredSnapshots(t *testing.T) {
	dir := t.TempDir()

	old := writeAged(t, dir, "20250101T000000Z_a_t1.snapshot.json", 10*24*time.Hour)
	fresh := writeAged(t, dir, "20260830T000000Z_a_t1.snapshot.json", 24*time.Hour)
	unrelated := writeAged(t, dir, "notes.json", 10*24*time.Hour)

	exporter := newRetentionExporter(dir, 7)
	removed, err := exporter.Cleanup()
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("expired snapshot should be deleted")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("fresh snapshot must survive")
	}
	if _, err := os.Stat(unrelated); err != nil {
		t.Error("files without the snapshot suffix must never be touched")
	}
}

func TestCleanupDisabledWhenRetentionZero(t *testing.T) {
	dir := t.TempDir()
	old := writeAged(t, dir, "20200101T000000Z_a_t1.snapshot.json", 2000*24*time.Hour)

	exporter := newRetentionExporter(dir, 0)
	removed, err := exporter.Cleanup()
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if removed != 0 {
		t.Errorf("removed = %d, want 0", removed)
	}
	if _, err := os.Stat(old); err != nil {
		t.Error("retention 0 must not delete anything")
	}
}

func TestCleanupBoundary(t *testing.T) {
	dir := t.TempDir()

	// Just inside the window: must survive.
	inside := writeAged(t, dir, "a_t1.snapshot.json", 7*24*time.Hour-time.Hour)
	// Just past the window: must go.
	outside := writeAged(t, dir, "b_t2.snapshot.json", 7*24*time.Hour+time.Hour)

	exporter := newRetentionExporter(dir, 7)
	if _, err := exporter.Cleanup(); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}

	if _, err := os.Stat(inside); err != nil {
		t.Error("snapshot inside the retention window was deleted")
	}
	if _, err := os.Stat(outside); !os.IsNotExist(err) {
		t.Error("snapshot past the retention window was kept")
	}
}
