package httpserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/scholarcsv/scholar-harvest-service/internal/domain"
)

// maxRequestBodySize limits harvest request bodies (1 MB).
const maxRequestBodySize = 1 << 20

// startHarvest handles POST /api/v1/harvests. The response is a Server-Sent
// Events stream: one event per pipeline milestone, closed by the server after
// the terminal event. Client disconnection cancels the run at the next page
// boundary; whatever was collected is still exported.
func (s *Server) startHarvest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := s.logger.With().Str("correlation_id", correlationIDFromContext(ctx)).Logger()

	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req domain.HarvestRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	req.APIKey = strings.TrimSpace(req.APIKey)
	req.Query = strings.TrimSpace(req.Query)

	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "api_key and query are required")
		return
	}
	if err := req.Validate(); err != nil {
		writeDomainError(w, err)
		return
	}

	// Set SSE headers.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	logger.Info().
		Str("query", req.Query).
		Int("max_results", req.Limit()).
		Msg("harvest stream started")

	events := s.harvester.Run(ctx, req)
	for event := range events {
		if err := event.WriteSSE(w); err != nil {
			// Consumer gone; the cancelled request context stops the engine,
			// so keep draining until the channel closes.
			logger.Debug().Err(err).Msg("SSE write failed, consumer disconnected")
			continue
		}
		flusher.Flush()
	}
}

// downloadArtifact handles GET /api/v1/artifacts/{filename}. It serves the
// stored CSV text, or 404 when the filename is unknown or its retention
// window has passed.
func (s *Server) downloadArtifact(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if filename == "" {
		writeError(w, http.StatusBadRequest, "filename is required")
		return
	}

	content, err := s.artifacts.Get(filename)
	if err != nil {
		s.metrics.RecordArtifactMiss()
		writeError(w, http.StatusNotFound, "file not found or expired")
		return
	}

	s.metrics.RecordArtifactDownload()
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(content))
}
