package auth

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/saturnines/ptaf-export/pkg/config"
)

// Provider yields auth handlers scoped to tenants.
type Provider interface {
	// Base returns a handler carrying the base (no-tenant) token.
	Base() Handler
	// ForTenant returns a handler carrying the token for one tenant.
	ForTenant(tenantID string) Handler
	// EnsureReady verifies that credentials work before a run starts.
	EnsureReady(ctx context.Context) error
}

// StaticProvider serves a fixed API token for every scope. The vendor
// accepts static tokens on all endpoints regardless of tenant.
type StaticProvider struct {
	token string
}

// NewStaticProvider creates a provider around a static API token.
func NewStaticProvider(token string) (*StaticProvider, error) {
	if token == "" {
		return nil, ErrMissingCredentials
	}
	return &StaticProvider{token: token}, nil
}

func (p *StaticProvider) Base() Handler                     { return NewStaticTokenAuth(p.token) }
func (p *StaticProvider) ForTenant(string) Handler          { return NewStaticTokenAuth(p.token) }
func (p *StaticProvider) EnsureReady(context.Context) error { return nil }

// PasswordProvider serves per-tenant JWT handlers backed by a TokenManager.
type PasswordProvider struct {
	Manager *TokenManager
}

func (p *PasswordProvider) Base() Handler {
	return &TenantAuth{Manager: p.Manager}
}

func (p *PasswordProvider) ForTenant(tenantID string) Handler {
	return &TenantAuth{Manager: p.Manager, TenantID: tenantID}
}

func (p *PasswordProvider) EnsureReady(ctx context.Context) error {
	_, err := p.Manager.EnsureBaseToken(ctx)
	return err
}

// NewProvider creates a provider based on the configured auth method.
func NewProvider(settings *config.Settings, httpClient *http.Client, logger *zap.Logger) (Provider, error) {
	method, err := settings.Auth.Method()
	if err != nil {
		return nil, err
	}

	switch method {
	case config.AuthMethodToken:
		return NewStaticProvider(settings.Auth.ResolveToken())
	case config.AuthMethodPassword:
		manager, err := NewTokenManager(
			settings.APIBase(),
			settings.Auth.Username,
			settings.Auth.Password,
			WithHTTPClient(httpClient),
			WithLDAP(settings.Auth.LDAP),
			WithRefreshSkew(time.Duration(settings.TokenRefreshSkew)),
			WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		return &PasswordProvider{Manager: manager}, nil
	default:
		return nil, ErrMissingCredentials
	}
}
