// Package observe provides application-wide observability primitives for the
// battle-report extraction pipeline: OpenTelemetry metrics with a Prometheus
// exporter bridge.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. Tests should use [NewMetrics]
// with a custom [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all pipeline metrics.
const meterName = "github.com/adrpadua/battlereport-hud"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// InferenceDuration tracks the latency of one external inference call
	// (a single chunk request, excluding retries).
	InferenceDuration metric.Float64Histogram

	// PipelineDuration tracks the wall-clock time of a full extraction run.
	PipelineDuration metric.Float64Histogram

	// --- Counters ---

	// SegmentsProcessed counts transcript segments after deduplication.
	SegmentsProcessed metric.Int64Counter

	// Matches counts accepted entity matches. Use with attributes:
	//   attribute.String("category", ...), attribute.String("source", ...)
	// where source is "inference", "pattern", or "phonetic".
	Matches metric.Int64Counter

	// InferenceRetries counts retried chunk calls. Use with attribute:
	//   attribute.String("reason", ...) — "rate_limit", "server_error", "connectivity".
	InferenceRetries metric.Int64Counter

	// ChunkFailures counts chunks that exhausted their retry budget and
	// degraded to an empty mapping.
	ChunkFailures metric.Int64Counter

	// ProviderErrors counts inference provider errors. Use with attribute:
	//   attribute.String("kind", ...) — "rate_limit", "payload_too_large",
	//   "server", "client", "other".
	ProviderErrors metric.Int64Counter

	// ValidationFallbacks counts runs where the canonical-name validation
	// service was unavailable and the unvalidated mapping was used.
	ValidationFallbacks metric.Int64Counter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// inference round-trips and batch pipeline runs.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.InferenceDuration, err = m.Float64Histogram("reporthud.inference.duration",
		metric.WithDescription("Latency of a single external inference call."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PipelineDuration, err = m.Float64Histogram("reporthud.pipeline.duration",
		metric.WithDescription("Wall-clock duration of a full extraction run."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SegmentsProcessed, err = m.Int64Counter("reporthud.segments.processed",
		metric.WithDescription("Transcript segments processed after deduplication."),
	); err != nil {
		return nil, err
	}
	if met.Matches, err = m.Int64Counter("reporthud.matches",
		metric.WithDescription("Accepted entity matches by category and source."),
	); err != nil {
		return nil, err
	}
	if met.InferenceRetries, err = m.Int64Counter("reporthud.inference.retries",
		metric.WithDescription("Retried inference chunk calls by reason."),
	); err != nil {
		return nil, err
	}
	if met.ChunkFailures, err = m.Int64Counter("reporthud.inference.chunk_failures",
		metric.WithDescription("Chunks degraded to an empty mapping after exhausting retries."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("reporthud.provider.errors",
		metric.WithDescription("Inference provider errors by kind."),
	); err != nil {
		return nil, err
	}
	if met.ValidationFallbacks, err = m.Int64Counter("reporthud.validation.fallbacks",
		metric.WithDescription("Runs that fell back to unvalidated mappings."),
	); err != nil {
		return nil, err
	}

	return met, nil
}
