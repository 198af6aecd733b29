package snapshots

import (
	"regexp"
	"strings"
)

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9._-]+`)
	slugDashes  = regexp.MustCompile(`-{2,}`)
)

// Slugify converts a tenant or object name into a filesystem-safe slug.
func Slugify(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	value = slugInvalid.ReplaceAllString(value, "-")
	value = slugDashes.ReplaceAllString(value, "-")
	value = strings.Trim(value, "-")
	if value == "" {
		return "tenant"
	}
	return value
}
