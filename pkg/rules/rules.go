package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/saturnines/ptaf-export/pkg/auth"
	"github.com/saturnines/ptaf-export/pkg/client"
	"github.com/saturnines/ptaf-export/pkg/errors"
	"github.com/saturnines/ptaf-export/pkg/snapshots"
	"github.com/saturnines/ptaf-export/pkg/tenants"
)

// Suffixes for exported object files.
const (
	RuleSuffix   = "rule"
	ActionSuffix = "action"
)

// Exporter exports protection rules and actions per tenant, one JSON file
// per object, grouped into {slug}_{tenant_id} directories.
type Exporter struct {
	client   *client.Client
	provider auth.Provider
	tenants  *tenants.Service

	rulesDir        string
	actionsDir      string
	rulesEndpoint   string
	actionsEndpoint string

	logger *zap.Logger
}

// NewExporter creates a rules/actions exporter.
func NewExporter(
	c *client.Client,
	provider auth.Provider,
	svc *tenants.Service,
	rulesDir, actionsDir, rulesEndpoint, actionsEndpoint string,
	logger *zap.Logger,
) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{
		client:          c,
		provider:        provider,
		tenants:         svc,
		rulesDir:        rulesDir,
		actionsDir:      actionsDir,
		rulesEndpoint:   rulesEndpoint,
		actionsEndpoint: actionsEndpoint,
		logger:          logger,
	}
}

// ExportRules exports rules for every tenant. Any tenant failure aborts the
// run; rules are the primary policy objects and a partial tree misleads.
func (e *Exporter) ExportRules(ctx context.Context) ([]string, error) {
	all, err := e.tenants.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		e.logger.Warn("no tenants returned by API (rules export)")
		return nil, nil
	}

	var created []string
	for _, tenant := range all {
		files, err := e.exportObjects(ctx, tenant, e.rulesEndpoint, e.rulesDir, RuleSuffix)
		if err != nil {
			return created, err
		}
		created = append(created, files...)
	}
	return created, nil
}

// ExportActions exports actions for every tenant. Failures on the built-in
// default tenant are collected and reported instead of aborting; its action
// endpoint is not available on all installations.
func (e *Exporter) ExportActions(ctx context.Context) ([]string, []error, error) {
	all, err := e.tenants.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	if len(all) == 0 {
		e.logger.Warn("no tenants returned by API (actions export)")
		return nil, nil, nil
	}

	var (
		created []string
		soft    []error
	)
	for _, tenant := range all {
		files, err := e.exportObjects(ctx, tenant, e.actionsEndpoint, e.actionsDir, ActionSuffix)
		if err != nil {
			if tenant.ID == tenants.DefaultTenantID {
				wrapped := fmt.Errorf("failed to export actions for default tenant: %w", err)
				e.logger.Error("actions export failed",
					zap.String("tenant_id", tenant.ID),
					zap.Error(err))
				soft = append(soft, wrapped)
				continue
			}
			return created, soft, err
		}
		created = append(created, files...)
	}
	return created, soft, nil
}

// exportObjects fetches one list endpoint under a tenant token and writes
// each object to {dir}/{slug}_{tenant_id}/{slug(object)}.{suffix}.json.
func (e *Exporter) exportObjects(ctx context.Context, tenant tenants.Tenant, endpoint, dir, suffix string) ([]string, error) {
	e.logger.Info("exporting objects",
		zap.String("tenant_id", tenant.ID),
		zap.String("endpoint", endpoint))

	resp, err := e.client.Get(ctx, endpoint, e.provider.ForTenant(tenant.ID))
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrHTTPRequest, "object list request failed")
	}
	if err := client.CheckStatus(resp, http.StatusOK); err != nil {
		resp.Body.Close()
		return nil, errors.WrapError(err, errors.ErrHTTPResponse, "object list request failed")
	}

	var raw json.RawMessage
	if err := client.ExtractJSON(resp, &raw); err != nil {
		return nil, errors.WrapError(err, errors.ErrHTTPResponse, "failed to read object list")
	}

	var items []map[string]interface{}
	if err := client.DecodeItems(raw, &items); err != nil {
		return nil, errors.WrapError(err, errors.ErrHTTPResponse, "failed to decode object list")
	}

	subdir := filepath.Join(dir, tenantDirName(tenant))
	if err := os.MkdirAll(subdir, 0o755); err != nil {
		return nil, errors.WrapError(err, errors.ErrSnapshot, "failed to create export dir")
	}

	var created []string
	for _, item := range items {
		name := objectName(item, suffix)
		data, err := json.MarshalIndent(item, "", "  ")
		if err != nil {
			return created, errors.WrapError(err, errors.ErrSnapshot, "failed to encode object")
		}

		path := filepath.Join(subdir, fmt.Sprintf("%s.%s.json", snapshots.Slugify(name), suffix))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return created, errors.WrapError(err, errors.ErrSnapshot, "failed to write object file")
		}
		created = append(created, path)
	}

	e.logger.Info("objects exported",
		zap.String("tenant_id", tenant.ID),
		zap.Int("count", len(created)),
		zap.String("dir", subdir))
	return created, nil
}

// ImportRule posts one previously exported rule payload back to the API
// under the tenant's token.
func (e *Exporter) ImportRule(ctx context.Context, tenantID string, payload map[string]interface{}) (map[string]interface{}, error) {
	return e.importObject(ctx, tenantID, e.rulesEndpoint, payload)
}

// ImportAction posts one previously exported action payload back to the API.
func (e *Exporter) ImportAction(ctx context.Context, tenantID string, payload map[string]interface{}) (map[string]interface{}, error) {
	return e.importObject(ctx, tenantID, e.actionsEndpoint, payload)
}

func (e *Exporter) importObject(ctx context.Context, tenantID, endpoint string, payload map[string]interface{}) (map[string]interface{}, error) {
	resp, err := e.client.Post(ctx, endpoint, payload, e.provider.ForTenant(tenantID))
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrHTTPRequest, "import request failed")
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		err := client.CheckStatus(resp, http.StatusCreated)
		resp.Body.Close()
		return nil, errors.WrapError(err, errors.ErrHTTPResponse, "import request failed")
	}

	var result map[string]interface{}
	if err := client.ExtractJSON(resp, &result); err != nil {
		return nil, errors.WrapError(err, errors.ErrHTTPResponse, "failed to decode import response")
	}

	e.logger.Info("object imported",
		zap.String("tenant_id", tenantID),
		zap.String("endpoint", endpoint))
	return result, nil
}

// tenantDirName builds the {slug}_{tenant_id} directory name.
func tenantDirName(tenant tenants.Tenant) string {
	return fmt.Sprintf("%s_%s", snapshots.Slugify(tenant.Label()), tenant.ID)
}

// objectName picks the filename stem for an object: id, then name, then the
// object kind as a last resort.
func objectName(item map[string]interface{}, fallback string) string {
	if id, ok := item["id"].(string); ok && id != "" {
		return id
	}
	if name, ok := item["name"].(string); ok && name != "" {
		return name
	}
	return fallback
}
