package tenants

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/saturnines/ptaf-export/pkg/auth"
	"github.com/saturnines/ptaf-export/pkg/client"
	"github.com/saturnines/ptaf-export/pkg/errors"
)

// DefaultTenantID is the id of the built-in "general" tenant. Some
// endpoints reject it; callers treat its failures as non-fatal.
const DefaultTenantID = "00000000-0000-0000-0000-000000000000"

// Tenant is one PTAF PRO tenant as returned by the tenants endpoint.
type Tenant struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Description string `json:"description,omitempty"`
	IsDefault   bool   `json:"is_default,omitempty"`
}

// Label returns the best human-readable identifier for the tenant.
func (t Tenant) Label() string {
	if t.Name != "" {
		return t.Name
	}
	if t.DisplayName != "" {
		return t.DisplayName
	}
	return t.ID
}

// Service lists tenants visible to the current account.
type Service struct {
	client   *client.Client
	provider auth.Provider
	endpoint string
	only     []string
	skip     []string
	logger   *zap.Logger
}

// NewService creates a tenant service. Only/skip filters match the tenant
// label or id, case-insensitively; an empty only-list means all tenants.
func NewService(c *client.Client, provider auth.Provider, endpoint string, only, skip []string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		client:   c,
		provider: provider,
		endpoint: endpoint,
		only:     only,
		skip:     skip,
		logger:   logger,
	}
}

// List returns the tenants visible to the current account, with the
// configured name filters applied.
func (s *Service) List(ctx context.Context) ([]Tenant, error) {
	resp, err := s.client.Get(ctx, s.endpoint, s.provider.Base())
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrHTTPRequest, "failed to fetch tenants")
	}
	if err := client.CheckStatus(resp, http.StatusOK); err != nil {
		resp.Body.Close()
		return nil, errors.WrapError(err, errors.ErrHTTPResponse, "tenants request failed")
	}

	var raw json.RawMessage
	if err := client.ExtractJSON(resp, &raw); err != nil {
		return nil, errors.WrapError(err, errors.ErrHTTPResponse, "failed to read tenants response")
	}

	var all []Tenant
	if err := client.DecodeItems(raw, &all); err != nil {
		return nil, errors.WrapError(err, errors.ErrHTTPResponse, "failed to decode tenants")
	}

	filtered := s.filter(all)
	s.logger.Info("fetched tenants",
		zap.Int("total", len(all)),
		zap.Int("selected", len(filtered)))
	return filtered, nil
}

func (s *Service) filter(all []Tenant) []Tenant {
	out := make([]Tenant, 0, len(all))
	for _, t := range all {
		if len(s.only) > 0 && !matches(t, s.only) {
			continue
		}
		if matches(t, s.skip) {
			s.logger.Debug("skipping tenant", zap.String("tenant", t.Label()))
			continue
		}
		out = append(out, t)
	}
	return out
}

func matches(t Tenant, names []string) bool {
	for _, name := range names {
		if strings.EqualFold(name, t.Label()) || name == t.ID {
			return true
		}
	}
	return false
}
