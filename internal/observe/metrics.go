// Package observe provides observability primitives for the station and the
// dashboard: OpenTelemetry metrics with a Prometheus exporter bridge and
// structured-logging helpers.
//
// A package-level default [Metrics] instance ([DefaultMetrics]) is provided
// for convenience; tests should use [NewMetrics] with their own
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name for all metrics.
const meterName = "github.com/mwirth/ironlog"

// Metrics holds the metric instruments for the capture pipeline and the
// dashboard. The underlying OTel types handle their own synchronisation.
type Metrics struct {
	// TranscribeDuration tracks speech-to-text latency per clip.
	TranscribeDuration metric.Float64Histogram

	// ExtractDuration tracks structured-extraction latency per transcript.
	ExtractDuration metric.Float64Histogram

	// AppendDuration tracks dataset append latency.
	AppendDuration metric.Float64Histogram

	// PipelineDuration tracks end-to-end key-release to appended-row latency.
	PipelineDuration metric.Float64Histogram

	// Captures counts finished capture attempts. Use with attribute:
	//   attribute.String("status", ...)
	Captures metric.Int64Counter

	// BackendRequests counts completion-backend calls. Use with attributes:
	//   attribute.String("backend", ...), attribute.String("status", ...)
	BackendRequests metric.Int64Counter

	// DashboardPolls counts dashboard poll cycles by outcome.
	DashboardPolls metric.Int64Counter
}

// latencyBuckets is tuned for a pipeline whose slow stage (transcription on
// constrained hardware) runs in whole seconds.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] using the given
// [metric.MeterProvider].
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.TranscribeDuration, err = m.Float64Histogram("ironlog.transcribe.duration",
		metric.WithDescription("Latency of speech-to-text transcription per clip."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ExtractDuration, err = m.Float64Histogram("ironlog.extract.duration",
		metric.WithDescription("Latency of structured extraction per transcript."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AppendDuration, err = m.Float64Histogram("ironlog.append.duration",
		metric.WithDescription("Latency of durable dataset appends."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PipelineDuration, err = m.Float64Histogram("ironlog.pipeline.duration",
		metric.WithDescription("End-to-end latency from key release to appended row."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Captures, err = m.Int64Counter("ironlog.captures",
		metric.WithDescription("Capture attempts by final status."),
	); err != nil {
		return nil, err
	}
	if met.BackendRequests, err = m.Int64Counter("ironlog.backend.requests",
		metric.WithDescription("Completion backend requests by backend and status."),
	); err != nil {
		return nil, err
	}
	if met.DashboardPolls, err = m.Int64Counter("ironlog.dashboard.polls",
		metric.WithDescription("Dashboard poll cycles by outcome."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics], created on first call
// from [otel.GetMeterProvider]. Panics if instrument creation fails, which
// cannot happen with the global provider.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordCapture increments the capture counter with its final status.
func (m *Metrics) RecordCapture(ctx context.Context, status string) {
	m.Captures.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}

// RecordBackendRequest increments the backend request counter.
func (m *Metrics) RecordBackendRequest(ctx context.Context, backend, status string) {
	m.BackendRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("backend", backend),
			attribute.String("status", status),
		),
	)
}

// RecordPoll increments the dashboard poll counter.
func (m *Metrics) RecordPoll(ctx context.Context, outcome string) {
	m.DashboardPolls.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}
