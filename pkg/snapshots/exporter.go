package snapshots

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/saturnines/ptaf-export/pkg/auth"
	"github.com/saturnines/ptaf-export/pkg/client"
	"github.com/saturnines/ptaf-export/pkg/errors"
	"github.com/saturnines/ptaf-export/pkg/tenants"
)

const (
	// FileSuffix marks snapshot files; retention and the latest-index only
	// ever touch files carrying it.
	FileSuffix = ".snapshot.json"

	timestampLayout = "20060102T150405Z"
)

// Exporter writes per-tenant configuration snapshots to local disk.
//
// PTAF PRO exposes a single global snapshot endpoint; the tenant is selected
// through the JWT the request carries.
type Exporter struct {
	client        *client.Client
	provider      auth.Provider
	tenants       *tenants.Service
	dir           string
	endpoint      string
	retentionDays int
	logger        *zap.Logger

	now func() time.Time
}

// NewExporter creates a snapshot exporter.
func NewExporter(
	c *client.Client,
	provider auth.Provider,
	svc *tenants.Service,
	dir, endpoint string,
	retentionDays int,
	logger *zap.Logger,
) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{
		client:        c,
		provider:      provider,
		tenants:       svc,
		dir:           dir,
		endpoint:      endpoint,
		retentionDays: retentionDays,
		logger:        logger,
		now:           time.Now,
	}
}

// ExportAll runs the full stage-1 export:
//
//  1. prune snapshots past retention,
//  2. verify credentials,
//  3. list tenants,
//  4. export one snapshot file per tenant.
//
// A failing tenant is logged and skipped; the run continues. Returns the
// paths of all files written.
func (e *Exporter) ExportAll(ctx context.Context) ([]string, error) {
	if removed, err := e.Cleanup(); err != nil {
		e.logger.Warn("snapshot cleanup failed", zap.Error(err))
	} else if removed > 0 {
		e.logger.Info("cleanup complete", zap.Int("removed", removed))
	}

	if err := e.provider.EnsureReady(ctx); err != nil {
		return nil, errors.WrapError(err, errors.ErrAuthentication,
			"unable to obtain base access token (check credentials)")
	}

	all, err := e.tenants.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		e.logger.Warn("no tenants returned by API")
		return nil, nil
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return nil, errors.WrapError(err, errors.ErrSnapshot, "failed to create snapshots dir")
	}

	e.logger.Info("exporting snapshots", zap.Int("tenants", len(all)))

	var created []string
	for _, tenant := range all {
		path, err := e.exportTenant(ctx, tenant)
		if err != nil {
			e.logger.Error("snapshot export failed",
				zap.String("tenant_id", tenant.ID),
				zap.Error(err))
			continue
		}
		created = append(created, path)
	}

	e.logger.Info("snapshots written", zap.Int("count", len(created)))
	return created, nil
}

// exportTenant fetches one tenant's configuration and writes it to disk.
// The written bytes are the re-encoded JSON of the API response.
func (e *Exporter) exportTenant(ctx context.Context, tenant tenants.Tenant) (string, error) {
	if tenant.ID == "" {
		return "", errors.WrapError(
			fmt.Errorf("tenant %q has no id", tenant.Label()),
			errors.ErrSnapshot, "invalid tenant")
	}

	e.logger.Info("exporting snapshot",
		zap.String("tenant_id", tenant.ID),
		zap.String("endpoint", e.endpoint))

	resp, err := e.client.Get(ctx, e.endpoint, e.provider.ForTenant(tenant.ID))
	if err != nil {
		return "", errors.WrapError(err, errors.ErrHTTPRequest, "snapshot request failed")
	}
	if err := client.CheckStatus(resp, http.StatusOK); err != nil {
		resp.Body.Close()
		return "", errors.WrapError(err, errors.ErrHTTPResponse, "snapshot export failed")
	}

	var payload interface{}
	if err := client.ExtractJSON(resp, &payload); err != nil {
		return "", errors.WrapError(err, errors.ErrHTTPResponse, "failed to decode snapshot")
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", errors.WrapError(err, errors.ErrSnapshot, "failed to encode snapshot")
	}

	path := filepath.Join(e.dir, e.filename(tenant))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.WrapError(err, errors.ErrSnapshot, "failed to write snapshot file")
	}

	e.logger.Info("snapshot written",
		zap.String("tenant_id", tenant.ID),
		zap.String("path", path))
	return path, nil
}

// filename builds {timestamp}_{slug}_{tenant_id}.snapshot.json.
func (e *Exporter) filename(tenant tenants.Tenant) string {
	ts := e.now().UTC().Format(timestampLayout)
	return fmt.Sprintf("%s_%s_%s%s", ts, Slugify(tenant.Label()), tenant.ID, FileSuffix)
}
