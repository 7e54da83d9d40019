package httpserver

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarcsv/scholar-harvest-service/internal/domain"
	"github.com/scholarcsv/scholar-harvest-service/internal/harvest"
	"github.com/scholarcsv/scholar-harvest-service/internal/observability"
)

// ---------------------------------------------------------------------------
// Mock implementations
// ---------------------------------------------------------------------------

// mockHarvester returns a canned event stream and records the request.
type mockHarvester struct {
	gotRequest domain.HarvestRequest
	events     []harvest.Event
}

func (m *mockHarvester) Run(ctx context.Context, req domain.HarvestRequest) <-chan harvest.Event {
	m.gotRequest = req
	ch := make(chan harvest.Event, len(m.events))
	for _, ev := range m.events {
		ch <- ev
	}
	close(ch)
	return ch
}

// mockArtifacts serves a fixed map of artifacts.
type mockArtifacts struct {
	entries map[string]string
}

func (m *mockArtifacts) Get(filename string) (string, error) {
	if content, ok := m.entries[filename]; ok {
		return content, nil
	}
	return "", domain.NewNotFoundError("artifact", filename)
}

func newTestServer(harvester Harvester, artifacts ArtifactGetter, namespace string) *Server {
	return NewServer(
		Config{Address: "127.0.0.1:0"},
		harvester,
		artifacts,
		zerolog.Nop(),
		observability.NewMetrics(namespace),
	)
}

// ---------------------------------------------------------------------------
// Harvest endpoint
// ---------------------------------------------------------------------------

func TestStartHarvest(t *testing.T) {
	t.Run("streams all events in order as SSE", func(t *testing.T) {
		harvester := &mockHarvester{events: []harvest.Event{
			{Kind: harvest.EventStatus, Payload: harvest.StatusPayload{Message: "Starting search...", Phase: harvest.PhaseInit}},
			{Kind: harvest.EventProgress, Payload: harvest.ProgressPayload{Page: 1, Message: "Fetching page 1..."}},
			{Kind: harvest.EventPapers, Payload: harvest.PapersPayload{NewCount: 10, TotalSoFar: 10, LatestTitle: "t"}},
			{Kind: harvest.EventComplete, Payload: harvest.CompletePayload{TotalRecords: 10, Filename: "q_2026-08-30.csv"}},
		}}
		server := newTestServer(harvester, &mockArtifacts{}, "test_http_stream")

		body := bytes.NewBufferString(`{"api_key":"key","query":"crispr","max_results":50}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/harvests", body)
		rec := httptest.NewRecorder()
		server.router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
		assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

		out := rec.Body.String()
		statusIdx := strings.Index(out, "event: status")
		progressIdx := strings.Index(out, "event: progress")
		papersIdx := strings.Index(out, "event: papers")
		completeIdx := strings.Index(out, "event: complete")
		require.NotEqual(t, -1, statusIdx)
		require.NotEqual(t, -1, progressIdx)
		require.NotEqual(t, -1, papersIdx)
		require.NotEqual(t, -1, completeIdx)
		assert.Less(t, statusIdx, progressIdx)
		assert.Less(t, progressIdx, papersIdx)
		assert.Less(t, papersIdx, completeIdx)

		assert.Contains(t, out, `"filename":"q_2026-08-30.csv"`)
		assert.Equal(t, "crispr", harvester.gotRequest.Query)
		assert.Equal(t, 50, harvester.gotRequest.MaxResults)
	})

	t.Run("rejects invalid JSON", func(t *testing.T) {
		server := newTestServer(&mockHarvester{}, &mockArtifacts{}, "test_http_badjson")

		req := httptest.NewRequest(http.MethodPost, "/api/v1/harvests", strings.NewReader("{nope"))
		rec := httptest.NewRecorder()
		server.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid JSON")
	})

	t.Run("rejects missing api_key", func(t *testing.T) {
		server := newTestServer(&mockHarvester{}, &mockArtifacts{}, "test_http_nokey")

		req := httptest.NewRequest(http.MethodPost, "/api/v1/harvests", strings.NewReader(`{"query":"q"}`))
		rec := httptest.NewRecorder()
		server.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects missing query", func(t *testing.T) {
		server := newTestServer(&mockHarvester{}, &mockArtifacts{}, "test_http_noquery")

		req := httptest.NewRequest(http.MethodPost, "/api/v1/harvests", strings.NewReader(`{"api_key":"k","query":"   "}`))
		rec := httptest.NewRecorder()
		server.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("terminal error stream has no complete event", func(t *testing.T) {
		harvester := &mockHarvester{events: []harvest.Event{
			{Kind: harvest.EventStatus, Payload: harvest.StatusPayload{Message: "Starting search...", Phase: harvest.PhaseInit}},
			{Kind: harvest.EventError, Payload: harvest.ErrorPayload{Message: "Invalid API key. Please check your SerpAPI key."}},
		}}
		server := newTestServer(harvester, &mockArtifacts{}, "test_http_autherr")

		req := httptest.NewRequest(http.MethodPost, "/api/v1/harvests", strings.NewReader(`{"api_key":"bad","query":"q"}`))
		rec := httptest.NewRecorder()
		server.router.ServeHTTP(rec, req)

		out := rec.Body.String()
		assert.Contains(t, out, "event: error")
		assert.NotContains(t, out, "event: complete")
	})
}

// ---------------------------------------------------------------------------
// Artifact endpoint
// ---------------------------------------------------------------------------

func TestDownloadArtifact(t *testing.T) {
	t.Run("serves stored CSV with attachment headers", func(t *testing.T) {
		artifacts := &mockArtifacts{entries: map[string]string{
			"x.csv": "a,b\n1,2",
		}}
		server := newTestServer(&mockHarvester{}, artifacts, "test_http_download")

		req := httptest.NewRequest(http.MethodGet, "/api/v1/artifacts/x.csv", nil)
		rec := httptest.NewRecorder()
		server.router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "a,b\n1,2", rec.Body.String())
		assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="x.csv"`, rec.Header().Get("Content-Disposition"))
	})

	t.Run("unknown filename is 404", func(t *testing.T) {
		server := newTestServer(&mockHarvester{}, &mockArtifacts{}, "test_http_miss")

		req := httptest.NewRequest(http.MethodGet, "/api/v1/artifacts/missing.csv", nil)
		rec := httptest.NewRecorder()
		server.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "file not found or expired")
	})
}

// ---------------------------------------------------------------------------
// Health and middleware
// ---------------------------------------------------------------------------

func TestHealthEndpoints(t *testing.T) {
	server := newTestServer(&mockHarvester{}, &mockArtifacts{}, "test_http_health")

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		server.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestCorrelationIDHeader(t *testing.T) {
	server := newTestServer(&mockHarvester{}, &mockArtifacts{}, "test_http_corr")

	t.Run("propagates caller-provided ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set("X-Correlation-ID", "abc-123")
		rec := httptest.NewRecorder()
		server.router.ServeHTTP(rec, req)

		assert.Equal(t, "abc-123", rec.Header().Get("X-Correlation-ID"))
	})

	t.Run("generates an ID when absent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()
		server.router.ServeHTTP(rec, req)

		assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
	})
}
