package harvest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/scholarcsv/scholar-harvest-service/internal/domain"
	"github.com/scholarcsv/scholar-harvest-service/internal/observability"
	"github.com/scholarcsv/scholar-harvest-service/internal/scholar"
)

// DefaultPageDelay is the fixed pause between page fetches. It exists only to
// stay clear of upstream rate limits and is skipped after the last page.
const DefaultPageDelay = time.Second

// eventBuffer is the channel capacity for a run's event stream. The transport
// goroutine normally drains faster than pages arrive; the buffer just keeps
// the engine from stalling on a momentarily slow writer.
const eventBuffer = 16

// PageFetcher fetches one upstream result page at the given offset.
type PageFetcher interface {
	FetchPage(ctx context.Context, apiKey, query string, start int) (*scholar.SearchResponse, error)
}

// ArtifactStore registers a finished CSV artifact under its derived filename.
type ArtifactStore interface {
	Put(filename, content string)
}

// EngineConfig holds pagination engine settings.
type EngineConfig struct {
	// PageDelay is the pause between consecutive page fetches.
	// Defaults to DefaultPageDelay if zero.
	PageDelay time.Duration
}

// Engine drives harvest runs: one upstream call at a time in strict sequence,
// the termination policy applied at every iteration, and events emitted on a
// per-run ordered channel. An Engine is stateless across runs and safe for
// concurrent use; each run owns its accumulated records and its channel.
type Engine struct {
	fetcher PageFetcher
	store   ArtifactStore
	logger  zerolog.Logger
	metrics *observability.Metrics
	delay   time.Duration

	// now and sleep are replaceable in tests: now pins artifact filenames,
	// sleep makes the inter-page pause observable without waiting.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

// NewEngine creates a pagination engine.
func NewEngine(cfg EngineConfig, fetcher PageFetcher, store ArtifactStore, logger zerolog.Logger, metrics *observability.Metrics) *Engine {
	delay := cfg.PageDelay
	if delay == 0 {
		delay = DefaultPageDelay
	}
	return &Engine{
		fetcher: fetcher,
		store:   store,
		logger:  logger.With().Str("component", "harvest-engine").Logger(),
		metrics: metrics,
		delay:   delay,
		now:     time.Now,
		sleep:   sleepContext,
	}
}

// Run starts a harvest for the given request and returns the run's event
// channel. Events arrive in run order and the channel is closed after the
// terminal event: a complete event, or an error event when the credential was
// rejected. Cancelling the context stops the loop at the next iteration
// boundary and exports whatever was accumulated.
//
// The request must already be validated; Run does not re-check it.
func (e *Engine) Run(ctx context.Context, req domain.HarvestRequest) <-chan Event {
	events := make(chan Event, eventBuffer)
	go e.run(ctx, req, events)
	return events
}

func (e *Engine) run(ctx context.Context, req domain.HarvestRequest, events chan<- Event) {
	defer close(events)

	started := time.Now()
	run := domain.NewHarvestRun(req)
	logger := observability.WithHarvestContext(e.logger, run.ID.String(), run.Query)

	e.metrics.RecordHarvestStarted()
	logger.Info().Int("limit", run.Limit).Msg("harvest run starting")
	events <- statusEvent("Starting search...", PhaseInit)

	for offset := 0; offset < run.Limit; offset += domain.PageSize {
		// Cancellation is cooperative: checked once per iteration boundary.
		// An in-flight fetch is never interrupted by it.
		if ctx.Err() != nil {
			run.Terminate(domain.TerminationCancelled)
			logger.Info().Int("collected", len(run.Accumulated)).Msg("harvest cancelled by caller")
			break
		}

		page := offset/domain.PageSize + 1
		run.PageIndex = page - 1
		pageLogger := observability.WithPageContext(logger, page, offset)
		events <- progressEvent(page, len(run.Accumulated), fmt.Sprintf("Fetching page %d...", page))

		e.metrics.RecordUpstreamRequest()
		resp, err := e.fetcher.FetchPage(ctx, req.APIKey, run.Query, offset)
		if err != nil {
			if errors.Is(err, domain.ErrUnauthorized) {
				// A rejected credential is fatal: no partial artifact.
				e.metrics.RecordUpstreamFailure("unauthorized")
				e.metrics.RecordHarvestFailed(time.Since(started).Seconds())
				pageLogger.Error().Err(err).Msg("credential rejected by upstream")
				events <- errorEvent("Invalid API key. Please check your SerpAPI key.")
				return
			}

			if errors.Is(err, domain.ErrCancelled) {
				// The fetch was torn down by the caller, not the upstream:
				// same graceful stop as the iteration-boundary check.
				run.Terminate(domain.TerminationCancelled)
				pageLogger.Info().Int("collected", len(run.Accumulated)).Msg("harvest cancelled by caller")
				break
			}

			errType := "upstream_error"
			if errors.Is(err, domain.ErrRateLimited) {
				errType = "rate_limited"
			}
			e.metrics.RecordUpstreamFailure(errType)
			pageLogger.Warn().Err(err).Msg("page fetch failed, keeping partial results")
			events <- errorEvent(pageErrorMessage(page, err))
			run.Terminate(domain.TerminationUpstreamError)
			break
		}

		results := resp.OrganicResults
		if len(results) == 0 {
			run.Terminate(domain.TerminationExhausted)
			events <- statusEvent(fmt.Sprintf("No more results found. Total: %d papers", len(run.Accumulated)), PhaseComplete)
			break
		}

		papers := NormalizePage(results)
		run.Append(papers)
		e.metrics.RecordPageFetched(len(papers))
		events <- papersEvent(len(papers), len(run.Accumulated), run.LatestTitle())

		// Pause before the next fetch; skipped after the final page.
		if offset+domain.PageSize < run.Limit {
			e.sleep(ctx, e.delay)
		}
	}

	if !run.Terminated {
		run.Terminate(domain.TerminationLimitReached)
	}

	e.metrics.RecordPapersPerHarvest(len(run.Accumulated))

	if len(run.Accumulated) > 0 {
		events <- statusEvent("Generating CSV...", PhaseGenerating)
		content := EncodeCSV(run.Accumulated)
		filename := DeriveFilename(run.Query, e.now())
		e.store.Put(filename, content)
		e.metrics.RecordArtifactStored()
		events <- completeEvent(len(run.Accumulated), filename, "")
	} else {
		events <- completeEvent(0, "", "No papers found for this search query.")
	}

	e.metrics.RecordHarvestCompleted(string(run.Reason), time.Since(started).Seconds())
	logger.Info().
		Str("reason", string(run.Reason)).
		Int("collected", len(run.Accumulated)).
		Dur("duration", time.Since(started)).
		Msg("harvest run finished")
}

// pageErrorMessage builds the error event message for a failed page. When
// the upstream reported the failure in-band (a 2xx response carrying an
// error field), its own message is surfaced untouched.
func pageErrorMessage(page int, err error) string {
	var apiErr *domain.ExternalAPIError
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 200 && apiErr.StatusCode < 300 {
		return apiErr.Message
	}
	return fmt.Sprintf("Error on page %d: %v", page, err)
}

// sleepContext waits d, waking early on cancellation so the next iteration
// boundary observes it.
func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
