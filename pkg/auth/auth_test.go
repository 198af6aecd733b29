package auth

import (
	"net/http"
	"testing"

	"github.com/saturnines/ptaf-export/pkg/config"
)

func TestStaticTokenAuth(t *testing.T) {
	handler := NewStaticTokenAuth("secret-token")

	req, _ := http.NewRequest(http.MethodGet, "https://ptaf.example.com/api", nil)
	if err := handler.ApplyAuth(req); err != nil {
		t.Fatalf("ApplyAuth failed: %v", err)
	}

	if got := req.Header.Get("Authorization"); got != "Bearer secret-token" {
		t.Errorf("Authorization header = %q", got)
	}
}

func TestStaticTokenAuthEmptyToken(t *testing.T) {
	handler := NewStaticTokenAuth("")

	req, _ := http.NewRequest(http.MethodGet, "https://ptaf.example.com/api", nil)
	if err := handler.ApplyAuth(req); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestStaticTokenAuthStringRedactsToken(t *testing.T) {
	handler := NewStaticTokenAuth("secret-token")
	if s := handler.String(); s != "StaticTokenAuth(token: [REDACTED])" {
		t.Errorf("String() leaked something: %q", s)
	}
}

func TestNewProviderPicksStaticToken(t *testing.T) {
	settings := &config.Settings{
		BaseURL: "https://ptaf.example.com",
		Auth: config.Auth{
			Token: "static-token",
			// Username/password present too: token must win.
			Username: "admin",
			Password: "secret",
		},
	}

	provider, err := NewProvider(settings, nil, nil)
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	if _, ok := provider.(*StaticProvider); !ok {
		t.Fatalf("provider is %T, want *StaticProvider", provider)
	}

	req, _ := http.NewRequest(http.MethodGet, "https://ptaf.example.com/api", nil)
	if err := provider.ForTenant("tenant-a").ApplyAuth(req); err != nil {
		t.Fatalf("ApplyAuth failed: %v", err)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer static-token" {
		t.Errorf("Authorization header = %q", got)
	}
}

func TestNewProviderPicksPassword(t *testing.T) {
	settings := &config.Settings{
		BaseURL: "https://ptaf.example.com",
		APIPath: "/api/ptaf/v4",
		Auth: config.Auth{
			Username: "admin",
			Password: "secret",
		},
	}

	provider, err := NewProvider(settings, nil, nil)
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	pw, ok := provider.(*PasswordProvider)
	if !ok {
		t.Fatalf("provider is %T, want *PasswordProvider", provider)
	}
	if pw.Manager == nil {
		t.Fatal("password provider has no token manager")
	}

	handler, ok := provider.ForTenant("tenant-a").(*TenantAuth)
	if !ok {
		t.Fatalf("handler is %T, want *TenantAuth", provider.ForTenant("tenant-a"))
	}
	if handler.TenantID != "tenant-a" {
		t.Errorf("handler tenant = %q", handler.TenantID)
	}
}

func TestNewProviderNoCredentials(t *testing.T) {
	settings := &config.Settings{BaseURL: "https://ptaf.example.com"}

	if _, err := NewProvider(settings, nil, nil); err == nil {
		t.Fatal("expected error when no credentials are configured")
	}
}
