package auth

import (
	"fmt"
	"net/http"
)

var (
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrNoRefreshToken     = fmt.Errorf("no refresh token")
)

// Handler defines the interface for auth handlers
type Handler interface {
	ApplyAuth(req *http.Request) error
}

// Refresher is implemented by handlers whose cached token can be dropped
// to force a refresh on the next ApplyAuth. The client retries a request
// once on an auth challenge when its handler implements this.
type Refresher interface {
	Handler
	Invalidate()
}

// TokenRefreshError represents a token refresh failure
type TokenRefreshError struct {
	Cause error
}

func (e *TokenRefreshError) Error() string {
	return fmt.Sprintf("token refresh failed: %v", e.Cause)
}

func (e *TokenRefreshError) Unwrap() error {
	return e.Cause
}

// StaticTokenAuth implements the Handler interface for a fixed API token.
type StaticTokenAuth struct {
	Token string // The bearer token
}

// NewStaticTokenAuth creates a new static token authentication handler
func NewStaticTokenAuth(token string) *StaticTokenAuth {
	return &StaticTokenAuth{
		Token: token,
	}
}

// ApplyAuth adds the token to the Authorization header
func (s *StaticTokenAuth) ApplyAuth(req *http.Request) error {
	if s.Token == "" {
		return fmt.Errorf("token is empty and is required for static token auth")
	}

	req.Header.Set("Authorization", "Bearer "+s.Token)

	return nil
}

// String returns a string representation of this auth method
func (s *StaticTokenAuth) String() string {
	// There is no need to actually put the actual token
	return "StaticTokenAuth(token: [REDACTED])"
}
