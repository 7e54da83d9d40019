package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the scholar harvest service.
// Metrics are organized by subsystem: harvests, pages, upstream requests, and
// artifacts. All counters and histograms are registered via promauto with the
// default Prometheus registry.
type Metrics struct {
	// HarvestsStarted counts the total number of harvest runs initiated.
	HarvestsStarted prometheus.Counter

	// HarvestsCompleted counts harvest runs that reached a complete event,
	// labeled by termination reason.
	HarvestsCompleted *prometheus.CounterVec

	// HarvestsFailed counts harvest runs that ended with a terminal error event.
	HarvestsFailed prometheus.Counter

	// HarvestDuration observes the end-to-end duration of harvest runs in seconds.
	HarvestDuration prometheus.Histogram

	// PagesFetched counts upstream pages successfully fetched and normalized.
	PagesFetched prometheus.Counter

	// PapersCollected counts normalized records accumulated across all runs.
	PapersCollected prometheus.Counter

	// PapersPerHarvest observes the distribution of records collected per run.
	PapersPerHarvest prometheus.Histogram

	// UpstreamRequestsTotal counts HTTP requests to the upstream search API.
	UpstreamRequestsTotal prometheus.Counter

	// UpstreamRequestsFailed counts failed upstream requests, labeled by error type.
	UpstreamRequestsFailed *prometheus.CounterVec

	// ArtifactsStored counts CSV artifacts registered in the ephemeral store.
	ArtifactsStored prometheus.Counter

	// ArtifactDownloads counts successful artifact retrievals.
	ArtifactDownloads prometheus.Counter

	// ArtifactMisses counts retrieval requests for unknown or expired filenames.
	ArtifactMisses prometheus.Counter
}

// NewMetrics creates and registers all metrics with the given namespace.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		HarvestsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "harvests_started_total",
			Help:      "Total number of harvest runs started",
		}),
		HarvestsCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "harvests_completed_total",
			Help:      "Total number of harvest runs that completed, by termination reason",
		}, []string{"reason"}),
		HarvestsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "harvests_failed_total",
			Help:      "Total number of harvest runs that ended in a terminal error",
		}),
		HarvestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "harvest_duration_seconds",
			Help:      "Duration of harvest runs in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		PagesFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "Total number of upstream pages fetched and normalized",
		}),
		PapersCollected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_collected_total",
			Help:      "Total number of records collected across all harvests",
		}),
		PapersPerHarvest: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "papers_per_harvest",
			Help:      "Distribution of records collected per harvest run",
			Buckets:   []float64{0, 10, 50, 100, 250, 500, 1000},
		}),
		UpstreamRequestsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Total number of HTTP requests to the upstream search API",
		}),
		UpstreamRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_failed_total",
			Help:      "Total number of failed upstream requests, by error type",
		}, []string{"error_type"}),
		ArtifactsStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_stored_total",
			Help:      "Total number of CSV artifacts registered in the store",
		}),
		ArtifactDownloads: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifact_downloads_total",
			Help:      "Total number of successful artifact downloads",
		}),
		ArtifactMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifact_misses_total",
			Help:      "Total number of downloads for unknown or expired artifacts",
		}),
	}
}

// RecordHarvestStarted increments the started counter.
func (m *Metrics) RecordHarvestStarted() {
	if m == nil {
		return
	}
	m.HarvestsStarted.Inc()
}

// RecordHarvestCompleted records a completed run with its termination reason
// and duration in seconds.
func (m *Metrics) RecordHarvestCompleted(reason string, seconds float64) {
	if m == nil {
		return
	}
	m.HarvestsCompleted.WithLabelValues(reason).Inc()
	m.HarvestDuration.Observe(seconds)
}

// RecordHarvestFailed records a run that ended in a terminal error.
func (m *Metrics) RecordHarvestFailed(seconds float64) {
	if m == nil {
		return
	}
	m.HarvestsFailed.Inc()
	m.HarvestDuration.Observe(seconds)
}

// RecordPageFetched records one normalized upstream page and its record count.
func (m *Metrics) RecordPageFetched(papers int) {
	if m == nil {
		return
	}
	m.PagesFetched.Inc()
	m.PapersCollected.Add(float64(papers))
}

// RecordPapersPerHarvest observes the final record count of a run.
func (m *Metrics) RecordPapersPerHarvest(count int) {
	if m == nil {
		return
	}
	m.PapersPerHarvest.Observe(float64(count))
}

// RecordUpstreamRequest records one upstream API call.
func (m *Metrics) RecordUpstreamRequest() {
	if m == nil {
		return
	}
	m.UpstreamRequestsTotal.Inc()
}

// RecordUpstreamFailure records a failed upstream call by error type.
func (m *Metrics) RecordUpstreamFailure(errorType string) {
	if m == nil {
		return
	}
	m.UpstreamRequestsFailed.WithLabelValues(errorType).Inc()
}

// RecordArtifactStored increments the stored artifact counter.
func (m *Metrics) RecordArtifactStored() {
	if m == nil {
		return
	}
	m.ArtifactsStored.Inc()
}

// RecordArtifactDownload increments the download counter.
func (m *Metrics) RecordArtifactDownload() {
	if m == nil {
		return
	}
	m.ArtifactDownloads.Inc()
}

// RecordArtifactMiss increments the miss counter.
func (m *Metrics) RecordArtifactMiss() {
	if m == nil {
		return
	}
	m.ArtifactMisses.Inc()
}
