package snapshots

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LatestPerTenant returns a map of tenant id to the timestamp of its newest
// snapshot (UTC, RFC 3339). The timestamp is parsed from the filename prefix
// and falls back to the file modification time when the prefix is malformed.
func (e *Exporter) LatestPerTenant() (map[string]string, error) {
	matches, err := filepath.Glob(filepath.Join(e.dir, "*"+FileSuffix))
	if err != nil {
		return nil, err
	}

	latest := make(map[string]time.Time)
	for _, path := range matches {
		tenantID, ok := tenantIDFromFilename(path)
		if !ok {
			continue
		}

		ts, ok := timestampFromFilename(path)
		if !ok {
			info, err := os.Stat(path)
			if err != nil {
				continue
			}
			ts = info.ModTime().UTC()
		}

		if current, ok := latest[tenantID]; !ok || ts.After(current) {
			latest[tenantID] = ts
		}
	}

	out := make(map[string]string, len(latest))
	for tenantID, ts := range latest {
		out[tenantID] = ts.UTC().Truncate(time.Second).Format("2006-01-02T15:04:05Z")
	}
	return out, nil
}

// tenantIDFromFilename extracts the tenant id from
// {ts}_{name}_{tenant_id}.snapshot.json.
func tenantIDFromFilename(path string) (string, bool) {
	name := filepath.Base(path)
	if !strings.HasSuffix(name, FileSuffix) {
		return "", false
	}
	stem := strings.TrimSuffix(name, FileSuffix)

	idx := strings.LastIndex(stem, "_")
	if idx < 0 || idx == len(stem)-1 {
		return "", false
	}
	return stem[idx+1:], true
}

// timestampFromFilename parses the YYYYMMDDTHHMMSSZ prefix before the first
// underscore.
func timestampFromFilename(path string) (time.Time, bool) {
	prefix, _, found := strings.Cut(filepath.Base(path), "_")
	if !found {
		return time.Time{}, false
	}
	ts, err := time.Parse(timestampLayout, prefix)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
