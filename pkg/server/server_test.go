package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

type fakeService struct {
	paths     []string
	latest    map[string]string
	exportErr error
}

func (s *fakeService) ExportAll(ctx context.Context) ([]string, error) {
	return s.paths, s.exportErr
}

func (s *fakeService) LatestPerTenant() (map[string]string, error) {
	return s.latest, nil
}

func newTestServer(svc *fakeService, factoryErr error) *Server {
	factory := func() (SnapshotService, error) {
		if factoryErr != nil {
			return nil, factoryErr
		}
		return svc, nil
	}
	return New(":0", factory, zap.NewNop())
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(&fakeService{}, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var payload map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatal(err)
	}
	if payload["status"] != "ok" {
		t.Errorf("payload = %v", payload)
	}
}

func TestInitSnapshotsTrigger(t *testing.T) {
	svc := &fakeService{paths: []string{"/data/a.snapshot.json", "/data/b.snapshot.json"}}
	srv := newTestServer(svc, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/init/snapshots", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var payload struct {
		SnapshotsWritten int      `json:"snapshots_written"`
		Files            []string `json:"files"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatal(err)
	}
	if payload.SnapshotsWritten != 2 || len(payload.Files) != 2 {
		t.Errorf("payload = %+v", payload)
	}
}

func TestInitSnapshotsRequiresPost(t *testing.T) {
	srv := newTestServer(&fakeService{}, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/init/snapshots", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestInitSnapshotsExportFailure(t *testing.T) {
	svc := &fakeService{exportErr: fmt.Errorf("upstream broke")}
	srv := newTestServer(svc, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/init/snapshots", nil))

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "upstream broke") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestInitSnapshotsFactoryFailure(t *testing.T) {
	srv := newTestServer(nil, fmt.Errorf("bad config"))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/init/snapshots", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestLatestEndpoint(t *testing.T) {
	svc := &fakeService{latest: map[string]string{"t1": "2026-03-01T12:00:00Z"}}
	srv := newTestServer(svc, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/snapshots/latest", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var payload struct {
		Tenants map[string]string `json:"tenants"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Tenants["t1"] != "2026-03-01T12:00:00Z" {
		t.Errorf("payload = %+v", payload)
	}
}

func TestIndexAndNotFound(t *testing.T) {
	srv := newTestServer(&fakeService{}, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("index status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown path status = %d", rec.Code)
	}
}

func TestRunShutsDownOnContextCancel(t *testing.T) {
	srv := newTestServer(&fakeService{}, nil)
	// Pick a real ephemeral port for this test.
	srv.httpSrv.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned %v after cancel", err)
	}
}
