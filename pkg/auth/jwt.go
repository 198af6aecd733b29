package auth

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"
)

// tokenExpiry extracts the "exp" claim from a JWT access token without
// verifying its signature. The second return value is false when the token
// is not a JWT or carries no exp claim.
func tokenExpiry(token string) (time.Time, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return time.Time{}, false
	}

	payload, err := b64urlDecode(parts[1])
	if err != nil {
		return time.Time{}, false
	}

	var claims struct {
		Exp int64 `json:"exp"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil || claims.Exp == 0 {
		return time.Time{}, false
	}

	return time.Unix(claims.Exp, 0), true
}

func b64urlDecode(data string) ([]byte, error) {
	if pad := len(data) % 4; pad != 0 {
		data += strings.Repeat("=", 4-pad)
	}
	return base64.URLEncoding.DecodeString(data)
}
