package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetricsCreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestHistogramObservation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	histograms := []struct {
		name string
		h    metric.Float64Histogram
	}{
		{"ironlog.transcribe.duration", m.TranscribeDuration},
		{"ironlog.extract.duration", m.ExtractDuration},
		{"ironlog.append.duration", m.AppendDuration},
		{"ironlog.pipeline.duration", m.PipelineDuration},
	}

	for _, tc := range histograms {
		tc.h.Record(ctx, 0.123)
		tc.h.Record(ctx, 2.5)
	}

	rm := collect(t, reader)
	for _, tc := range histograms {
		t.Run(tc.name, func(t *testing.T) {
			met := findMetric(rm, tc.name)
			if met == nil {
				t.Fatalf("metric %q not found", tc.name)
			}
			hist, ok := met.Data.(metricdata.Histogram[float64])
			if !ok {
				t.Fatalf("metric %q data type = %T, want Histogram[float64]", tc.name, met.Data)
			}
			if len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 2 {
				t.Errorf("metric %q datapoints = %+v, want one point with count 2", tc.name, hist.DataPoints)
			}
		})
	}
}

func TestCaptureCounterAttributes(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordCapture(ctx, "logged")
	m.RecordCapture(ctx, "logged")
	m.RecordCapture(ctx, "extract_failed")

	rm := collect(t, reader)
	met := findMetric(rm, "ironlog.captures")
	if met == nil {
		t.Fatal("metric ironlog.captures not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("data type = %T, want Sum[int64]", met.Data)
	}
	// One series per status value.
	if len(sum.DataPoints) != 2 {
		t.Fatalf("datapoints = %d, want 2 (one per status)", len(sum.DataPoints))
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	if total != 3 {
		t.Errorf("total captures = %d, want 3", total)
	}
}

func TestDefaultMetricsIsSingleton(t *testing.T) {
	first := DefaultMetrics()
	second := DefaultMetrics()
	if first != second {
		t.Error("DefaultMetrics() must return the same instance")
	}
}
