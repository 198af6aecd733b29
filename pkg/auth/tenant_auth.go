package auth

import (
	"fmt"
	"net/http"
)

// TenantAuth is a Handler that injects a Bearer token for a given tenant
// using a TokenManager. An empty TenantID scopes the handler to the base
// (no-tenant) token.
type TenantAuth struct {
	Manager  *TokenManager
	TenantID string
}

// ApplyAuth ensures a valid token for the tenant and sets the header.
func (a *TenantAuth) ApplyAuth(req *http.Request) error {
	var (
		token string
		err   error
	)
	if a.TenantID != "" {
		token, err = a.Manager.EnsureTenantToken(req.Context(), a.TenantID)
	} else {
		token, err = a.Manager.EnsureBaseToken(req.Context())
	}
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// Invalidate drops the cached token so the next ApplyAuth refreshes it.
func (a *TenantAuth) Invalidate() {
	if a.TenantID != "" {
		a.Manager.InvalidateTenant(a.TenantID)
		return
	}
	a.Manager.InvalidateBase()
}

// String returns a string representation of this auth method
func (a *TenantAuth) String() string {
	if a.TenantID == "" {
		return "TenantAuth(base)"
	}
	return fmt.Sprintf("TenantAuth(tenant: %s)", a.TenantID)
}
