package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Settings represents the full configuration for one exporter run.
type Settings struct {
	BaseURL string `yaml:"base_url"` // Required: PTAF PRO instance URL, e.g. https://ptaf.example.com
	APIPath string `yaml:"api_path"` // API prefix (default /api/ptaf/v4)

	InsecureSkipVerify bool     `yaml:"insecure_skip_verify,omitempty"` // Disable TLS certificate verification
	RequestTimeout     Duration `yaml:"request_timeout,omitempty"`      // Per-request timeout (default 30s)
	TokenRefreshSkew   Duration `yaml:"token_refresh_skew,omitempty"`   // Refresh tokens this long before expiry (default 30s)

	Auth   Auth   `yaml:"auth"`             // Required authentication settings
	Export Export `yaml:"export"`           // Export destinations and endpoints
	Server Server `yaml:"server,omitempty"` // HTTP wrapper settings
	Log    Log    `yaml:"log,omitempty"`    // Logging settings

	OnlyTenants []string `yaml:"only_tenants,omitempty"` // If set, export only these tenants (name or id)
	SkipTenants []string `yaml:"skip_tenants,omitempty"` // Tenants to skip (name or id)
}

// AuthMethod defines supported authentication modes.
type AuthMethod string

const (
	AuthMethodToken    AuthMethod = "token"
	AuthMethodPassword AuthMethod = "password"
)

// Auth holds API credentials. A static token wins over username/password.
type Auth struct {
	Token     string `yaml:"token,omitempty"`      // Static API token
	TokenFile string `yaml:"token_file,omitempty"` // File containing the static token (e.g. a mounted secret)
	Username  string `yaml:"username,omitempty"`
	Password  string `yaml:"password,omitempty"`

	// LDAP is tri-state: nil means the "ldap" field is not sent at all,
	// otherwise its value is forwarded verbatim to the auth endpoint.
	LDAP *bool `yaml:"ldap,omitempty"`
}

// Export holds snapshot/rules/actions destinations and the vendor endpoints.
type Export struct {
	SnapshotsDir  string `yaml:"snapshots_dir,omitempty"`
	RulesDir      string `yaml:"rules_dir,omitempty"`
	ActionsDir    string `yaml:"actions_dir,omitempty"`
	RetentionDays int    `yaml:"retention_days,omitempty"` // 0 disables pruning

	TenantsEndpoint  string `yaml:"tenants_endpoint,omitempty"`
	SnapshotEndpoint string `yaml:"snapshot_endpoint,omitempty"`
	RulesEndpoint    string `yaml:"rules_endpoint,omitempty"`
	ActionsEndpoint  string `yaml:"actions_endpoint,omitempty"`
}

// Server holds HTTP wrapper settings.
type Server struct {
	Listen string `yaml:"listen,omitempty"` // Listen address (default :8080)
}

// Log holds logging settings.
type Log struct {
	Level string `yaml:"level,omitempty"` // debug, info, warn, error (default info)
	File  string `yaml:"file,omitempty"`  // Optional log file in addition to stderr
}

// Duration wraps time.Duration so YAML values like "30s" parse naturally.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// APIBase returns the full API base URL (instance URL plus API prefix).
func (s *Settings) APIBase() string {
	return strings.TrimRight(s.BaseURL, "/") + s.APIPath
}

// ResolveToken returns the static token, reading Auth.TokenFile if set.
// File contents win over the inline token so mounted secrets can rotate.
func (a *Auth) ResolveToken() string {
	if a.TokenFile != "" {
		data, err := os.ReadFile(a.TokenFile)
		if err == nil {
			if token := strings.TrimSpace(string(data)); token != "" {
				return token
			}
		}
	}
	return strings.TrimSpace(a.Token)
}

// Method resolves the authentication mode from the configured credentials.
func (a *Auth) Method() (AuthMethod, error) {
	if a.ResolveToken() != "" {
		return AuthMethodToken, nil
	}
	if a.Username != "" && a.Password != "" {
		return AuthMethodPassword, nil
	}
	return "", fmt.Errorf("no auth credentials found: set auth.token or auth.username/auth.password")
}
