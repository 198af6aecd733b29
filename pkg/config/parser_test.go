package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const validYAML = `
base_url: https://ptaf.example.com
auth:
  username: admin
  password: ${TEST_PTAF_PASSWORD}
export:
  retention_days: 14
`

func TestLoaderParsesYAMLWithEnvExpansion(t *testing.T) {
	t.Setenv("TEST_PTAF_PASSWORD", "expanded-secret")

	settings, err := NewDefaultLoader().Parse([]byte(validYAML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if settings.BaseURL != "https://ptaf.example.com" {
		t.Errorf("base_url = %q", settings.BaseURL)
	}
	if settings.Auth.Password != "expanded-secret" {
		t.Errorf("password was not expanded: %q", settings.Auth.Password)
	}
	if settings.Export.RetentionDays != 14 {
		t.Errorf("retention_days = %d", settings.Export.RetentionDays)
	}
}

func TestLoaderAppliesDefaults(t *testing.T) {
	t.Setenv("TEST_PTAF_PASSWORD", "x")

	settings, err := NewDefaultLoader().Parse([]byte(validYAML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if settings.APIPath != "/api/ptaf/v4" {
		t.Errorf("api_path default = %q", settings.APIPath)
	}
	if time.Duration(settings.RequestTimeout) != 30*time.Second {
		t.Errorf("request_timeout default = %v", settings.RequestTimeout)
	}
	if settings.Export.SnapshotEndpoint != "/config/snapshot" {
		t.Errorf("snapshot_endpoint default = %q", settings.Export.SnapshotEndpoint)
	}
	if settings.Server.Listen != ":8080" {
		t.Errorf("listen default = %q", settings.Server.Listen)
	}
	if settings.APIBase() != "https://ptaf.example.com/api/ptaf/v4" {
		t.Errorf("APIBase = %q", settings.APIBase())
	}
}

func TestLoaderRejectsMissingBaseURL(t *testing.T) {
	_, err := NewDefaultLoader().Parse([]byte(`
auth:
  token: abc
`))
	if err == nil {
		t.Fatal("expected validation error for missing base_url")
	}
}

func TestLoaderRejectsMissingCredentials(t *testing.T) {
	_, err := NewDefaultLoader().Parse([]byte(`
base_url: https://ptaf.example.com
`))
	if err == nil {
		t.Fatal("expected validation error for missing credentials")
	}
}

func TestLoaderRejectsNegativeRetention(t *testing.T) {
	_, err := NewDefaultLoader().Parse([]byte(`
base_url: https://ptaf.example.com
auth:
  token: abc
export:
  retention_days: -1
`))
	if err == nil {
		t.Fatal("expected validation error for negative retention")
	}
}

func TestDurationUnmarshal(t *testing.T) {
	settings, err := NewDefaultLoader().Parse([]byte(`
base_url: https://ptaf.example.com
request_timeout: 45s
token_refresh_skew: 2m
auth:
  token: abc
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if time.Duration(settings.RequestTimeout) != 45*time.Second {
		t.Errorf("request_timeout = %v", settings.RequestTimeout)
	}
	if time.Duration(settings.TokenRefreshSkew) != 2*time.Minute {
		t.Errorf("token_refresh_skew = %v", settings.TokenRefreshSkew)
	}
}

func TestAuthMethodTokenWins(t *testing.T) {
	a := &Auth{Token: "tok", Username: "admin", Password: "secret"}
	method, err := a.Method()
	if err != nil {
		t.Fatalf("Method failed: %v", err)
	}
	if method != AuthMethodToken {
		t.Errorf("method = %q, want token", method)
	}
}

func TestAuthTokenFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("  file-token\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	a := &Auth{TokenFile: path, Token: "inline-token"}
	if got := a.ResolveToken(); got != "file-token" {
		t.Errorf("ResolveToken = %q, want file contents to win", got)
	}

	// Missing file falls back to the inline token.
	a = &Auth{TokenFile: filepath.Join(t.TempDir(), "absent"), Token: "inline-token"}
	if got := a.ResolveToken(); got != "inline-token" {
		t.Errorf("ResolveToken = %q, want inline fallback", got)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvBaseURL, "https://ptaf.example.com/")
	t.Setenv(EnvAPILogin, "admin")
	t.Setenv(EnvAPIPassword, "secret")
	t.Setenv(EnvLDAPAuth, "true")
	t.Setenv(EnvRetentionDays, "7")
	t.Setenv(EnvOnlyTenants, "alpha, beta")
	t.Setenv(EnvTimeout, "45")
	t.Setenv(EnvVerifySSL, "false")

	settings, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}

	if settings.BaseURL != "https://ptaf.example.com" {
		t.Errorf("base url = %q (trailing slash should be stripped)", settings.BaseURL)
	}
	if settings.Auth.LDAP == nil || !*settings.Auth.LDAP {
		t.Error("LDAP flag should be true")
	}
	if settings.Export.RetentionDays != 7 {
		t.Errorf("retention = %d", settings.Export.RetentionDays)
	}
	if len(settings.OnlyTenants) != 2 || settings.OnlyTenants[1] != "beta" {
		t.Errorf("only tenants = %v", settings.OnlyTenants)
	}
	if time.Duration(settings.RequestTimeout) != 45*time.Second {
		t.Errorf("timeout = %v", settings.RequestTimeout)
	}
	if !settings.InsecureSkipVerify {
		t.Error("VERIFY_SSL=false should disable TLS verification")
	}

	method, err := settings.Auth.Method()
	if err != nil {
		t.Fatalf("Method failed: %v", err)
	}
	if method != AuthMethodPassword {
		t.Errorf("method = %q", method)
	}
}

func TestFromEnvLDAPUnsetIsNil(t *testing.T) {
	t.Setenv(EnvBaseURL, "https://ptaf.example.com")
	t.Setenv(EnvAPIToken, "tok")

	settings, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}
	if settings.Auth.LDAP != nil {
		t.Errorf("LDAP should stay nil when unset, got %v", *settings.Auth.LDAP)
	}
}

func TestLoadDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("TEST_DOTENV_KEY=from-dotenv\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("TEST_DOTENV_KEY", "") // register cleanup
	os.Unsetenv("TEST_DOTENV_KEY")

	if err := LoadDotenv(path); err != nil {
		t.Fatalf("LoadDotenv failed: %v", err)
	}
	if got := os.Getenv("TEST_DOTENV_KEY"); got != "from-dotenv" {
		t.Errorf("TEST_DOTENV_KEY = %q", got)
	}

	// A missing file is not an error.
	if err := LoadDotenv(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("missing env file should not error: %v", err)
	}
}
