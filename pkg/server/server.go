package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// SnapshotService is the slice of the exporter the HTTP wrapper needs.
type SnapshotService interface {
	ExportAll(ctx context.Context) ([]string, error)
	LatestPerTenant() (map[string]string, error)
}

// ExporterFactory builds a fresh SnapshotService per trigger so concurrent
// triggers never share token state.
type ExporterFactory func() (SnapshotService, error)

// Server is the HTTP wrapper around the snapshot exporter.
type Server struct {
	addr    string
	factory ExporterFactory
	logger  *zap.Logger
	httpSrv *http.Server
}

// New creates the HTTP wrapper.
func New(addr string, factory ExporterFactory, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		addr:    addr,
		factory: factory,
		logger:  logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/api/init/snapshots", s.handleInitSnapshots)
	mux.HandleFunc("/api/snapshots/latest", s.handleLatest)
	mux.HandleFunc("/", s.handleIndex)

	s.httpSrv = &http.Server{
		Addr:    addr,
		Handler: s.withLogging(mux),
	}

	return s
}

// Handler exposes the root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.addr))
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.logger.Info("shutting down http server")
	return s.httpSrv.Shutdown(shutdownCtx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleInitSnapshots triggers a full stage-1 snapshot export. Handy for
// debugging; production runs usually go through the CLI.
func (s *Server) handleInitSnapshots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	exporter, err := s.factory()
	if err != nil {
		s.logger.Error("failed to build exporter", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	paths, err := exporter.ExportAll(r.Context())
	if err != nil {
		s.logger.Error("snapshot export failed", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}

	files := paths
	if files == nil {
		files = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"snapshots_written": len(paths),
		"files":             files,
	})
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	exporter, err := s.factory()
	if err != nil {
		s.logger.Error("failed to build exporter", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	latest, err := exporter.LatestPerTenant()
	if err != nil {
		s.logger.Error("failed to index snapshots", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"tenants": latest})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "PTAF PRO export tools - backend is running.",
	})
}

// withLogging logs method, path, status and duration for every request.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
