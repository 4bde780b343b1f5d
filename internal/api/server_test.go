package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qrqiuren/lonepseudoranger/internal/geom"
	"github.com/qrqiuren/lonepseudoranger/internal/multilat"
	"github.com/qrqiuren/lonepseudoranger/internal/storage/sqlite"
	"github.com/qrqiuren/lonepseudoranger/internal/timebase"
)

func setupTestServer(t *testing.T) (*Server, *sqlite.EstimateStore) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "estimates.db")
	db, err := sqlite.Open(dbPath)
	require.NoError(t, err, "open database")
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.MigrateUp(filepath.Join("..", "storage", "sqlite", "migrations")), "migrate up")

	store := sqlite.NewEstimateStore(db)
	return NewServer(ServerConfig{Address: "127.0.0.1:0", Store: store}), store
}

func insertEstimate(t *testing.T, store *sqlite.EstimateStore, emitterID string, candidates []multilat.PositionCandidate) string {
	t.Helper()
	est := multilat.FinalEstimate{
		EmitterID:            emitterID,
		Timestamp:            timebase.New(1700000000, 0),
		Position:             geom.Point{X: 100, Y: 200, Z: 300},
		Confidence:           multilat.ConfidenceOK,
		ContributingStations: []string{"gs-1", "gs-2", "gs-3", "gs-4"},
		Delays:               multilat.DelayStats{Min: 0.01, Mean: 0.02, Max: 0.03},
		CandidateCount:       len(candidates),
		WinningClusterSize:   len(candidates),
	}
	id, err := store.Insert(est, candidates)
	require.NoError(t, err)
	return id
}

func doRequest(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.setupRoutes().ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := setupTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "ok", body["status"])
	require.NotEmpty(t, body["version"])
}

func TestListEstimates(t *testing.T) {
	s, store := setupTestServer(t)
	insertEstimate(t, store, "sat-1", nil)
	insertEstimate(t, store, "sat-2", nil)

	rec := doRequest(t, s, http.MethodGet, "/api/estimates")
	require.Equal(t, http.StatusOK, rec.Code)
	var records []sqlite.EstimateRecord
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&records))
	require.Len(t, records, 2)

	rec = doRequest(t, s, http.MethodGet, "/api/estimates?emitter_id=sat-1")
	require.Equal(t, http.StatusOK, rec.Code)
	records = nil
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&records))
	require.Len(t, records, 1)
	require.Equal(t, "sat-1", records[0].EmitterID)
}

func TestListEstimatesBadLimit(t *testing.T) {
	s, _ := setupTestServer(t)

	for _, limit := range []string{"0", "-1", "501", "abc"} {
		rec := doRequest(t, s, http.MethodGet, "/api/estimates?limit="+limit)
		require.Equal(t, http.StatusBadRequest, rec.Code, "limit=%s", limit)
	}
}

func TestGetEstimate(t *testing.T) {
	s, store := setupTestServer(t)
	id := insertEstimate(t, store, "sat-1", nil)

	rec := doRequest(t, s, http.MethodGet, "/api/estimates/"+id)
	require.Equal(t, http.StatusOK, rec.Code)
	var record sqlite.EstimateRecord
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&record))
	require.Equal(t, id, record.EstimateID)
	require.Equal(t, geom.Point{X: 100, Y: 200, Z: 300}, record.Position)
}

func TestGetEstimateNotFound(t *testing.T) {
	s, _ := setupTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/estimates/no-such-id")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetCandidates(t *testing.T) {
	s, store := setupTestServer(t)
	candidates := []multilat.PositionCandidate{
		{Pos: geom.Point{X: 99, Y: 201, Z: 299}, CombinationID: 0, Residual: 0.5},
		{Pos: geom.Point{X: 101, Y: 199, Z: 301}, CombinationID: 1, Residual: 0.25},
	}
	id := insertEstimate(t, store, "sat-1", candidates)

	rec := doRequest(t, s, http.MethodGet, "/api/estimates/"+id+"/candidates")
	require.Equal(t, http.StatusOK, rec.Code)
	var got []multilat.PositionCandidate
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Len(t, got, 2)
	require.Equal(t, candidates[0].Pos, got[0].Pos)
}

func TestParams(t *testing.T) {
	s, _ := setupTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/params")
	require.Equal(t, http.StatusOK, rec.Code)
	var params map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&params))
	require.Equal(t, float64(4), params["group_size"])
	require.Equal(t, float64(3), params["min_cluster_size"])
}

func TestCandidateScatter(t *testing.T) {
	s, store := setupTestServer(t)
	candidates := []multilat.PositionCandidate{
		{Pos: geom.Point{X: 99, Y: 201, Z: 299}, CombinationID: 0, Residual: 0.5},
		{Pos: geom.Point{X: 101, Y: 199, Z: 301}, CombinationID: 1, Residual: 0.25},
	}
	id := insertEstimate(t, store, "sat-1", candidates)

	rec := doRequest(t, s, http.MethodGet, "/debug/candidates/scatter?estimate_id="+id)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	require.True(t, strings.Contains(rec.Body.String(), "echarts"), "rendered page should reference echarts")
}

func TestCandidateScatterMissingParam(t *testing.T) {
	s, _ := setupTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/debug/candidates/scatter")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := setupTestServer(t)

	for _, target := range []string{"/health", "/api/estimates", "/api/params"} {
		rec := doRequest(t, s, http.MethodPost, target)
		require.Equal(t, http.StatusMethodNotAllowed, rec.Code, target)
	}
}
