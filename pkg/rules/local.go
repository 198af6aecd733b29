package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ExportedFile describes one exported object file on disk.
type ExportedFile struct {
	Filename    string `json:"filename"`
	DisplayName string `json:"display_name"`
}

// TenantExports groups the exported files of one tenant directory.
type TenantExports struct {
	TenantName string         `json:"tenant_name"`
	TenantDir  string         `json:"tenant_dir"`
	TenantID   string         `json:"tenant_id,omitempty"`
	Files      []ExportedFile `json:"files"`
}

// ListLocalExports scans a local export tree ({slug}_{tenant_id} dirs) and
// returns the files of the given kind per tenant. Display names come from
// the payload "name" field, falling back to the filename stem.
func ListLocalExports(base, suffix string) ([]TenantExports, error) {
	entries, err := os.ReadDir(base)
	if err != nil {
		return nil, fmt.Errorf("failed to read export dir: %w", err)
	}

	var results []TenantExports
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		tenantName, tenantID := tenantLabelFromDir(entry.Name())
		subdir := filepath.Join(base, entry.Name())

		matches, err := filepath.Glob(filepath.Join(subdir, "*."+suffix+".json"))
		if err != nil {
			return nil, err
		}
		sort.Strings(matches)

		var files []ExportedFile
		for _, path := range matches {
			files = append(files, ExportedFile{
				Filename:    filepath.Base(path),
				DisplayName: readDisplayName(path, suffix),
			})
		}
		if len(files) == 0 {
			continue
		}

		results = append(results, TenantExports{
			TenantName: tenantName,
			TenantDir:  entry.Name(),
			TenantID:   tenantID,
			Files:      files,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].TenantDir < results[j].TenantDir
	})
	return results, nil
}

// LoadLocalPayload reads one exported JSON payload by tenant label and
// filename. The filename must carry the .{suffix}.json extension.
func LoadLocalPayload(base, tenantName, filename, suffix string) (map[string]interface{}, error) {
	if !strings.HasSuffix(filename, "."+suffix+".json") {
		return nil, fmt.Errorf("filename must end with .%s.json (got %q)", suffix, filename)
	}

	target := normalizeLabel(tenantName)

	entries, err := os.ReadDir(base)
	if err != nil {
		return nil, fmt.Errorf("failed to read export dir: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		friendly, _ := tenantLabelFromDir(entry.Name())
		if normalizeLabel(friendly) != target && normalizeLabel(entry.Name()) != target {
			continue
		}

		candidate := filepath.Join(base, entry.Name(), filename)
		data, err := os.ReadFile(candidate)
		if err != nil {
			continue
		}

		var payload map[string]interface{}
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("invalid JSON in %s: %w", candidate, err)
		}
		return payload, nil
	}

	return nil, fmt.Errorf("file %s for tenant %q not found in %s", filename, tenantName, base)
}

// tenantLabelFromDir splits a {slug}_{tenant_id} directory name into a
// human-readable label and the id (empty when the name has no underscore).
func tenantLabelFromDir(dirName string) (string, string) {
	base, tenantID := dirName, ""
	if idx := strings.LastIndex(dirName, "_"); idx >= 0 {
		base, tenantID = dirName[:idx], dirName[idx+1:]
	}

	friendly := strings.TrimSpace(strings.NewReplacer("-", " ", "_", " ").Replace(base))
	if friendly == "" {
		friendly = dirName
	}
	return friendly, tenantID
}

func normalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(
		strings.NewReplacer("-", " ", "_", " ").Replace(label)))
}

// readDisplayName pulls the "name" field out of an exported payload.
func readDisplayName(path, suffix string) string {
	data, err := os.ReadFile(path)
	if err == nil {
		var payload struct {
			Name string `json:"name"`
		}
		if json.Unmarshal(data, &payload) == nil && payload.Name != "" {
			return payload.Name
		}
	}

	stem := filepath.Base(path)
	return strings.TrimSuffix(stem, "."+suffix+".json")
}
