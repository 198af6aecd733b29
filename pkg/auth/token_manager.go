package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	refreshTokensEndpoint = "/auth/refresh_tokens"
	accessTokensEndpoint  = "/auth/access_tokens"
)

// TokenManager manages PTAF PRO JWT tokens for username/password auth.
//
// The vendor flow has two legs:
//   - POST /auth/refresh_tokens with credentials yields base access and
//     refresh tokens (no tenant bound);
//   - POST /auth/access_tokens exchanges the refresh token for a per-tenant
//     access token, rotating the refresh token on every success.
type TokenManager struct {
	apiBase  string
	username string
	password string
	ldap     *bool // nil: field not sent; otherwise forwarded as-is

	skew       time.Duration
	httpClient *http.Client
	logger     *zap.Logger

	// Fingerprint is required by the PTAF PRO auth API.
	fingerprint string

	mutex       sync.Mutex // prevents concurrent token refreshes
	baseAccess  string
	baseRefresh string
	baseExpiry  time.Time
	tenants     map[string]*tenantTokens
}

type tenantTokens struct {
	access  string
	refresh string
	expiry  time.Time
}

// tokenResponse represents the response from the PTAF PRO auth endpoints.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// ManagerOption customizes a TokenManager.
type ManagerOption func(*TokenManager)

// WithHTTPClient sets the HTTP client used for auth requests.
func WithHTTPClient(client *http.Client) ManagerOption {
	return func(m *TokenManager) {
		if client != nil {
			m.httpClient = client
		}
	}
}

// WithLDAP controls the tri-state "ldap" field of the login request.
func WithLDAP(ldap *bool) ManagerOption {
	return func(m *TokenManager) {
		m.ldap = ldap
	}
}

// WithRefreshSkew sets how long before expiry a token is refreshed.
func WithRefreshSkew(skew time.Duration) ManagerOption {
	return func(m *TokenManager) {
		if skew > 0 {
			m.skew = skew
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) ManagerOption {
	return func(m *TokenManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithFingerprint overrides the generated device fingerprint.
func WithFingerprint(fp string) ManagerOption {
	return func(m *TokenManager) {
		m.fingerprint = fp
	}
}

// NewTokenManager creates a manager for the given API base URL and credentials.
func NewTokenManager(apiBase, username, password string, opts ...ManagerOption) (*TokenManager, error) {
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	m := &TokenManager{
		apiBase:     strings.TrimRight(apiBase, "/"),
		username:    username,
		password:    password,
		skew:        30 * time.Second,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		logger:      zap.NewNop(),
		fingerprint: strings.ReplaceAll(uuid.NewString(), "-", ""),
		tenants:     make(map[string]*tenantTokens),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// EnsureBaseToken returns a valid base (no-tenant) access token, refreshing
// it by password when missing or about to expire.
func (m *TokenManager) EnsureBaseToken(ctx context.Context) (string, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.baseAccess != "" && time.Until(m.baseExpiry) > m.skew {
		return m.baseAccess, nil
	}

	if err := m.requestTokensByPassword(ctx); err != nil {
		return "", &TokenRefreshError{Cause: err}
	}
	return m.baseAccess, nil
}

// EnsureTenantToken returns a valid access token for the given tenant,
// performing the refresh-to-access exchange when needed.
func (m *TokenManager) EnsureTenantToken(ctx context.Context, tenantID string) (string, error) {
	// Make sure base tokens exist first.
	if _, err := m.EnsureBaseToken(ctx); err != nil {
		return "", err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if info, ok := m.tenants[tenantID]; ok {
		if info.access != "" && time.Until(info.expiry) > m.skew {
			return info.access, nil
		}
	}

	if err := m.requestTenantTokens(ctx, tenantID); err != nil {
		return "", err
	}
	return m.tenants[tenantID].access, nil
}

// InvalidateBase drops the cached base tokens to force re-authentication.
func (m *TokenManager) InvalidateBase() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.baseAccess = ""
	m.baseRefresh = ""
	m.baseExpiry = time.Time{}
}

// InvalidateTenant drops the cached token for one tenant.
func (m *TokenManager) InvalidateTenant(tenantID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.tenants, tenantID)
}

// requestTokensByPassword obtains fresh base tokens. Caller must hold mutex.
func (m *TokenManager) requestTokensByPassword(ctx context.Context) error {
	payload := map[string]interface{}{
		"username":    m.username,
		"password":    m.password,
		"fingerprint": m.fingerprint,
	}
	// LDAP flag is tri-state: when unset the field is not sent at all.
	if m.ldap != nil {
		payload["ldap"] = *m.ldap
	}

	m.logger.Debug("requesting tokens by password",
		zap.String("url", m.apiBase+refreshTokensEndpoint),
		zap.Boolp("ldap", m.ldap))

	var tokens tokenResponse
	if err := m.postJSON(ctx, refreshTokensEndpoint, payload, &tokens); err != nil {
		return err
	}

	m.baseAccess = tokens.AccessToken
	m.baseRefresh = tokens.RefreshToken
	m.baseExpiry, _ = tokenExpiry(tokens.AccessToken)

	m.logger.Info("authenticated by password", zap.Boolp("ldap", m.ldap))
	return nil
}

// requestTenantTokens exchanges the current base refresh token for a
// per-tenant access token. On success the returned refresh token replaces
// the cached base refresh token. A 422 invalid_token response triggers a
// single password re-authentication before giving up. Caller must hold mutex.
func (m *TokenManager) requestTenantTokens(ctx context.Context, tenantID string) error {
	if m.baseRefresh == "" {
		return ErrNoRefreshToken
	}

	triedReauth := false
	for {
		payload := map[string]interface{}{
			"refresh_token": m.baseRefresh,
			"tenant_id":     tenantID,
			"fingerprint":   m.fingerprint,
		}

		m.logger.Debug("requesting tenant token", zap.String("tenant_id", tenantID))

		var tokens tokenResponse
		err := m.postJSON(ctx, accessTokensEndpoint, payload, &tokens)
		if err == nil {
			expiry, _ := tokenExpiry(tokens.AccessToken)
			m.tenants[tenantID] = &tenantTokens{
				access:  tokens.AccessToken,
				refresh: tokens.RefreshToken,
				expiry:  expiry,
			}

			// The exchange rotates the refresh token; keep using the new one.
			if tokens.RefreshToken != "" {
				m.baseRefresh = tokens.RefreshToken
			}

			m.logger.Info("tenant token obtained", zap.String("tenant_id", tenantID))
			return nil
		}

		var statusErr *StatusError
		if !triedReauth && errors.As(err, &statusErr) &&
			statusErr.StatusCode == http.StatusUnprocessableEntity &&
			strings.Contains(statusErr.Body, "invalid_token") {
			triedReauth = true
			m.logger.Warn("refresh token rejected, re-authenticating by password",
				zap.String("tenant_id", tenantID))

			m.baseAccess = ""
			m.baseRefresh = ""
			m.baseExpiry = time.Time{}

			if err := m.requestTokensByPassword(ctx); err != nil {
				return fmt.Errorf("re-authentication by password failed: %w", err)
			}
			continue
		}

		return fmt.Errorf("tenant auth failed for %s: %w", tenantID, err)
	}
}

// StatusError reports a non-201 response from an auth endpoint.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("auth endpoint returned status %d: %s", e.StatusCode, e.Body)
}

// postJSON posts a JSON payload to an auth endpoint and decodes the 201 body.
func (m *TokenManager) postJSON(ctx context.Context, endpoint string, payload interface{}, target interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode auth payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiBase+endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("auth request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("failed to decode auth response: %w", err)
	}
	return nil
}
