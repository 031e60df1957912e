package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/RyanBlaney/sonido-pitch/inference"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader
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

func counterValue(t *testing.T, rm metricdata.ResourceMetrics, name string, attr attribute.KeyValue) int64 {
	t.Helper()
	met := findMetric(rm, name)
	if met == nil {
		t.Fatalf("metric %q not found", name)
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is not an int64 sum", name)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		if attr.Key == "" {
			total += dp.Value
			continue
		}
		if v, ok := dp.Attributes.Value(attr.Key); ok && v.Emit() == attr.Value.Emit() {
			total += dp.Value
		}
	}
	return total
}

func TestRecordChunk(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordChunk(ctx, 120*time.Millisecond, 90, 10)
	m.RecordChunk(ctx, 80*time.Millisecond, 40, 0)

	rm := collect(t, reader)

	if got := counterValue(t, rm, "sonido.pitch.chunks", attribute.KeyValue{}); got != 2 {
		t.Errorf("chunks = %d, want 2", got)
	}
	if got := counterValue(t, rm, "sonido.pitch.frames", attribute.Bool("voiced", true)); got != 130 {
		t.Errorf("voiced frames = %d, want 130", got)
	}
	if got := counterValue(t, rm, "sonido.pitch.frames", attribute.Bool("voiced", false)); got != 10 {
		t.Errorf("unvoiced frames = %d, want 10", got)
	}

	met := findMetric(rm, "sonido.pitch.chunk.duration")
	if met == nil {
		t.Fatal("chunk duration not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok || len(hist.DataPoints) == 0 {
		t.Fatal("chunk duration has no histogram data")
	}
	if hist.DataPoints[0].Count != 2 {
		t.Errorf("chunk duration count = %d, want 2", hist.DataPoints[0].Count)
	}
}

func TestInstrumentEngine(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	boom := errors.New("boom")
	fail := true
	engine := InstrumentEngine(inference.Func(func(_ context.Context, frames [][]float32) ([][]float32, error) {
		if fail {
			return nil, boom
		}
		return make([][]float32, len(frames)), nil
	}), m)

	if _, err := engine.Infer(ctx, nil); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	fail = false
	if _, err := engine.Infer(ctx, make([][]float32, 3)); err != nil {
		t.Fatalf("Infer: %v", err)
	}

	rm := collect(t, reader)
	if got := counterValue(t, rm, "sonido.pitch.errors", attribute.String("stage", "inference")); got != 1 {
		t.Errorf("inference errors = %d, want 1", got)
	}

	met := findMetric(rm, "sonido.pitch.inference.duration")
	if met == nil {
		t.Fatal("inference duration not found")
	}
	hist := met.Data.(metricdata.Histogram[float64])
	if hist.DataPoints[0].Count != 2 {
		t.Errorf("inference count = %d, want 2", hist.DataPoints[0].Count)
	}
}

func TestDefaultMetricsIsSingleton(t *testing.T) {
	if DefaultMetrics() != DefaultMetrics() {
		t.Error("DefaultMetrics returned different instances")
	}
}
