package snapshots

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestLatestPerTenantPicksNewest(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"20260101T000000Z_alpha_t1.snapshot.json",
		"20260301T120000Z_alpha_t1.snapshot.json",
		"20260201T000000Z_beta_t2.snapshot.json",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	exporter := NewExporter(nil, nil, nil, dir, "", 0, zap.NewNop())
	latest, err := exporter.LatestPerTenant()
	if err != nil {
		t.Fatalf("LatestPerTenant failed: %v", err)
	}

	if len(latest) != 2 {
		t.Fatalf("got %d tenants, want 2: %v", len(latest), latest)
	}
	if latest["t1"] != "2026-03-01T12:00:00Z" {
		t.Errorf("t1 latest = %q", latest["t1"])
	}
	if latest["t2"] != "2026-02-01T00:00:00Z" {
		t.Errorf("t2 latest = %q", latest["t2"])
	}
}

func TestLatestPerTenantFallsBackToMtime(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "badprefix_alpha_t1.snapshot.json")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	mtime := time.Date(2026, 5, 1, 6, 30, 0, 0, time.UTC)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}

	exporter := NewExporter(nil, nil, nil, dir, "", 0, zap.NewNop())
	latest, err := exporter.LatestPerTenant()
	if err != nil {
		t.Fatalf("LatestPerTenant failed: %v", err)
	}

	if latest["t1"] != "2026-05-01T06:30:00Z" {
		t.Errorf("t1 latest = %q, want mtime fallback", latest["t1"])
	}
}

func TestLatestPerTenantIgnoresUnderscorelessNames(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "junk.snapshot.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	exporter := NewExporter(nil, nil, nil, dir, "", 0, zap.NewNop())
	latest, err := exporter.LatestPerTenant()
	if err != nil {
		t.Fatalf("LatestPerTenant failed: %v", err)
	}
	if len(latest) != 0 {
		t.Errorf("expected no entries, got %v", latest)
	}
}
