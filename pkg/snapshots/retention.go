package snapshots

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Cleanup deletes snapshot files whose modification time is older than the
// retention window. Retention of zero days disables pruning. Returns the
// number of files removed; per-file stat/remove failures are logged and
// skipped.
func (e *Exporter) Cleanup() (int, error) {
	if e.retentionDays <= 0 {
		return 0, nil
	}

	cutoff := e.now().UTC().Add(-time.Duration(e.retentionDays) * 24 * time.Hour)

	matches, err := filepath.Glob(filepath.Join(e.dir, "*"+FileSuffix))
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if !info.ModTime().UTC().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			e.logger.Warn("failed to delete old snapshot",
				zap.String("path", path),
				zap.Error(err))
			continue
		}
		removed++
	}

	if removed > 0 {
		e.logger.Info("removed old snapshots",
			zap.Int("removed", removed),
			zap.Int("retention_days", e.retentionDays))
	}
	return removed, nil
}
