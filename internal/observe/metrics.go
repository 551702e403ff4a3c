// Package observe provides application-wide observability primitives for
// Nexus Voice: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/MrWong99/nexusvoice"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per upstream capability ---

	// STTDuration tracks speech-to-text transcription latency.
	STTDuration metric.Float64Histogram

	// LLMDuration tracks LLM generation latency.
	LLMDuration metric.Float64Histogram

	// TTSDuration tracks text-to-speech synthesis latency.
	TTSDuration metric.Float64Histogram

	// RenderDuration tracks end-to-end conversation render latency.
	RenderDuration metric.Float64Histogram

	// --- Counters ---

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// CacheLookups counts synthesis cache lookups. Use with attribute:
	//   attribute.String("result", "hit"|"miss")
	CacheLookups metric.Int64Counter

	// CacheEvictions counts capacity-driven synthesis cache evictions.
	CacheEvictions metric.Int64Counter

	// Renders counts conversation renders. Use with attribute:
	//   attribute.String("status", "ok"|<failure kind>)
	Renders metric.Int64Counter

	// RenderTurns counts turns submitted for rendering.
	RenderTurns metric.Int64Counter

	// --- Gauges ---

	// InFlightRequests tracks API requests currently holding a worker slot.
	InFlightRequests metric.Int64UpDownCounter

	// QueuedRequests tracks API requests waiting for a worker slot.
	QueuedRequests metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...), attribute.Int("status", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) for
// upstream calls, which range from tens of milliseconds to tens of seconds.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	histograms := []struct {
		dst  *metric.Float64Histogram
		name string
		desc string
	}{
		{&met.STTDuration, "nexusvoice.stt.duration", "Latency of speech-to-text transcription."},
		{&met.LLMDuration, "nexusvoice.llm.duration", "Latency of LLM generation."},
		{&met.TTSDuration, "nexusvoice.tts.duration", "Latency of text-to-speech synthesis."},
		{&met.RenderDuration, "nexusvoice.render.duration", "Latency of a full conversation render."},
	}
	for _, h := range histograms {
		if *h.dst, err = m.Float64Histogram(h.name,
			metric.WithDescription(h.desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(latencyBuckets...),
		); err != nil {
			return nil, err
		}
	}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&met.ProviderRequests, "nexusvoice.provider.requests", "Total provider API requests by provider, kind, and status."},
		{&met.ProviderErrors, "nexusvoice.provider.errors", "Total provider errors by provider and kind."},
		{&met.CacheLookups, "nexusvoice.cache.lookups", "Synthesis cache lookups by result."},
		{&met.CacheEvictions, "nexusvoice.cache.evictions", "Synthesis cache entries evicted for capacity."},
		{&met.Renders, "nexusvoice.render.count", "Conversation renders by status."},
		{&met.RenderTurns, "nexusvoice.render.turns", "Turns submitted for rendering."},
	}
	for _, c := range counters {
		if *c.dst, err = m.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, err
		}
	}

	if met.InFlightRequests, err = m.Int64UpDownCounter("nexusvoice.requests.in_flight",
		metric.WithDescription("API requests currently holding a worker slot."),
	); err != nil {
		return nil, err
	}
	if met.QueuedRequests, err = m.Int64UpDownCounter("nexusvoice.requests.queued",
		metric.WithDescription("API requests waiting for a worker slot."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("nexusvoice.http.request.duration",
		metric.WithDescription("HTTP request latency by method, route, and status."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordProviderRequest records a provider request counter increment with
// the standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError records a provider error counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// RecordCacheLookup records one cache lookup as a hit or a miss.
func (m *Metrics) RecordCacheLookup(ctx context.Context, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordRender records the outcome, size, and latency of one render.
func (m *Metrics) RecordRender(ctx context.Context, status string, turns int, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.Renders.Add(ctx, 1, attrs)
	m.RenderTurns.Add(ctx, int64(turns))
	m.RenderDuration.Record(ctx, d.Seconds(), attrs)
}
