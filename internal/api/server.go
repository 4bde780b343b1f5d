// Package api exposes persisted position estimates over HTTP: JSON
// endpoints for estimate lookup and listing, a params endpoint showing
// the effective solver tuning, and a debug chart of an epoch's candidate
// cloud.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/qrqiuren/lonepseudoranger/internal/config"
	"github.com/qrqiuren/lonepseudoranger/internal/httputil"
	"github.com/qrqiuren/lonepseudoranger/internal/monitoring"
	"github.com/qrqiuren/lonepseudoranger/internal/storage/sqlite"
	"github.com/qrqiuren/lonepseudoranger/internal/version"
)

// Server handles the HTTP interface for estimate inspection.
type Server struct {
	address string
	store   *sqlite.EstimateStore
	tuning  *config.TuningConfig
	server  *http.Server
}

// ServerConfig contains configuration options for the web server.
type ServerConfig struct {
	Address string
	Store   *sqlite.EstimateStore
	Tuning  *config.TuningConfig
}

// NewServer creates a web server with the provided configuration.
func NewServer(cfg ServerConfig) *Server {
	s := &Server{
		address: cfg.Address,
		store:   cfg.Store,
		tuning:  cfg.Tuning,
	}
	if s.tuning == nil {
		s.tuning = config.EmptyTuningConfig()
	}

	s.server = &http.Server{
		Addr:    s.address,
		Handler: s.setupRoutes(),
	}

	return s
}

// setupRoutes configures the HTTP routes and handlers.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/estimates", s.handleListEstimates)
	mux.HandleFunc("/api/estimates/", s.handleEstimateByID)
	mux.HandleFunc("/api/params", s.handleParams)
	mux.HandleFunc("/debug/candidates/scatter", s.handleCandidateScatter)

	return mux
}

// Start begins the HTTP server and blocks until ctx is cancelled, then
// shuts the server down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		monitoring.Logf("starting HTTP server on %s", s.address)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}
	monitoring.Logf("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("HTTP server shutdown error: %v", err)
		if err := s.server.Close(); err != nil {
			monitoring.Logf("HTTP server force close error: %v", err)
		}
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

// handleListEstimates returns recent estimates, newest first.
// Query params:
//
//	emitter_id (optional) filter to one emitter
//	limit (optional, default 20, max 500)
func (s *Server) handleListEstimates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.store == nil {
		httputil.InternalServerError(w, "no database configured")
		return
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		v, err := strconv.Atoi(l)
		if err != nil || v <= 0 || v > 500 {
			httputil.BadRequest(w, "limit must be an integer in [1, 500]")
			return
		}
		limit = v
	}

	var (
		records []*sqlite.EstimateRecord
		err     error
	)
	if emitter := r.URL.Query().Get("emitter_id"); emitter != "" {
		records, err = s.store.ListByEmitter(emitter, limit)
	} else {
		records, err = s.store.List(limit)
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("list estimates: %v", err))
		return
	}
	if records == nil {
		records = []*sqlite.EstimateRecord{}
	}
	httputil.WriteJSONOK(w, records)
}

// handleEstimateByID serves /api/estimates/{id} and
// /api/estimates/{id}/candidates.
func (s *Server) handleEstimateByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.store == nil {
		httputil.InternalServerError(w, "no database configured")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/estimates/")
	wantCandidates := false
	if strings.HasSuffix(rest, "/candidates") {
		rest = strings.TrimSuffix(rest, "/candidates")
		wantCandidates = true
	}
	estimateID := strings.Trim(rest, "/")
	if estimateID == "" || strings.Contains(estimateID, "/") {
		httputil.BadRequest(w, "malformed estimate path")
		return
	}

	if wantCandidates {
		candidates, err := s.store.Candidates(estimateID)
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("load candidates: %v", err))
			return
		}
		httputil.WriteJSONOK(w, candidates)
		return
	}

	rec, err := s.store.Get(estimateID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			httputil.NotFound(w, err.Error())
			return
		}
		httputil.InternalServerError(w, fmt.Sprintf("load estimate: %v", err))
		return
	}
	httputil.WriteJSONOK(w, rec)
}

// handleParams reports the effective tuning values, defaults filled in.
func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"group_size":                 s.tuning.GetGroupSize(),
		"max_condition_number":       s.tuning.GetMaxConditionNumber(),
		"solver_workers":             s.tuning.GetSolverWorkers(),
		"cluster_distance_threshold": s.tuning.GetClusterDistanceThreshold(),
		"min_cluster_size":           s.tuning.GetMinClusterSize(),
		"cluster_spread_tolerance":   s.tuning.GetClusterSpreadTolerance(),
	})
}
