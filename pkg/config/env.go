package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable names understood by FromEnv. These match the
// container deployment of the exporter, where no YAML file is mounted.
const (
	EnvBaseURL       = "AF_URL"
	EnvAPIPath       = "API_PATH"
	EnvVerifySSL     = "VERIFY_SSL"
	EnvTimeout       = "REQUEST_TIMEOUT"
	EnvRefreshSkew   = "TOKEN_REFRESH_SKEW"
	EnvAPIToken      = "API_TOKEN"
	EnvAPITokenFile  = "API_TOKEN_FILE"
	EnvAPILogin      = "API_LOGIN"
	EnvAPIPassword   = "API_PASSWORD"
	EnvLDAPAuth      = "LDAP_AUTH"
	EnvSnapshotsDir  = "SNAPSHOTS_DIR"
	EnvRulesDir      = "RULES_DIR"
	EnvActionsDir    = "ACTIONS_DIR"
	EnvRetentionDays = "SNAPSHOT_RETENTION_DAYS"
	EnvOnlyTenants   = "ONLY_TENANTS"
	EnvSkipTenants   = "SKIP_TENANTS"
	EnvListenAddr    = "LISTEN_ADDR"
	EnvLogLevel      = "LOG_LEVEL"
	EnvLogFile       = "LOG_FILE"
)

// LoadDotenv loads a .env file into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotenv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}

// FromEnv builds Settings from environment variables, applying the same
// defaults and validation as the YAML loader.
func FromEnv() (*Settings, error) {
	settings := &Settings{
		BaseURL:            strings.TrimRight(os.Getenv(EnvBaseURL), "/"),
		APIPath:            os.Getenv(EnvAPIPath),
		InsecureSkipVerify: !toBool(os.Getenv(EnvVerifySSL), true),
		Auth: Auth{
			Token:     os.Getenv(EnvAPIToken),
			TokenFile: os.Getenv(EnvAPITokenFile),
			Username:  strings.TrimSpace(os.Getenv(EnvAPILogin)),
			Password:  strings.TrimSpace(os.Getenv(EnvAPIPassword)),
			LDAP:      toOptBool(os.Getenv(EnvLDAPAuth)),
		},
		Export: Export{
			SnapshotsDir:  os.Getenv(EnvSnapshotsDir),
			RulesDir:      os.Getenv(EnvRulesDir),
			ActionsDir:    os.Getenv(EnvActionsDir),
			RetentionDays: toInt(os.Getenv(EnvRetentionDays), 0),
		},
		Server:      Server{Listen: os.Getenv(EnvListenAddr)},
		Log:         Log{Level: os.Getenv(EnvLogLevel), File: os.Getenv(EnvLogFile)},
		OnlyTenants: toList(os.Getenv(EnvOnlyTenants)),
		SkipTenants: toList(os.Getenv(EnvSkipTenants)),
	}

	if raw := os.Getenv(EnvTimeout); raw != "" {
		d, err := parseDurationSeconds(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvTimeout, err)
		}
		settings.RequestTimeout = Duration(d)
	}
	if raw := os.Getenv(EnvRefreshSkew); raw != "" {
		d, err := parseDurationSeconds(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvRefreshSkew, err)
		}
		settings.TokenRefreshSkew = Duration(d)
	}

	(&SettingsDefaults{}).SetDefaults(settings)

	if errs := (&SettingsValidator{}).Validate(settings); len(errs) > 0 {
		return nil, fmt.Errorf("validation errors: %v", errs)
	}

	return settings, nil
}

// parseDurationSeconds accepts either a Go duration ("45s") or a bare
// number of seconds ("45"), which is what older deployments exported.
func parseDurationSeconds(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(raw)
}

func toBool(raw string, fallback bool) bool {
	v := toOptBool(raw)
	if v == nil {
		return fallback
	}
	return *v
}

// toOptBool parses a tri-state boolean: empty or unparseable input is nil.
func toOptBool(raw string) *bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on", "y", "t":
		v := true
		return &v
	case "0", "false", "no", "off", "n", "f":
		v := false
		return &v
	default:
		return nil
	}
}

func toInt(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return n
}

func toList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
