// Package observe provides OpenTelemetry metrics for the pitch pipeline.
//
// A package-level default [Metrics] instance ([DefaultMetrics]) uses the
// global meter provider; tests should use [NewMetrics] with their own
// [metric.MeterProvider].
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/RyanBlaney/sonido-pitch/crepe"
)

// meterName is the instrumentation scope name used for all metrics
const meterName = "github.com/RyanBlaney/sonido-pitch"

// Metrics holds the metric instruments. All fields are safe for concurrent use.
type Metrics struct {
	// ChunkDuration tracks pitch extraction latency per sliced chunk
	ChunkDuration metric.Float64Histogram

	// InferenceDuration tracks latency of each Engine.Infer call
	InferenceDuration metric.Float64Histogram

	// Chunks counts analyzed chunks
	Chunks metric.Int64Counter

	// Frames counts pitch frames. Use with attribute:
	//   attribute.Bool("voiced", ...)
	Frames metric.Int64Counter

	// Errors counts failures. Use with attribute:
	//   attribute.String("stage", ...)
	Errors metric.Int64Counter
}

// latencyBuckets are histogram boundaries in seconds
var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates the instruments on mp
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.ChunkDuration, err = m.Float64Histogram("sonido.pitch.chunk.duration",
		metric.WithDescription("Latency of pitch extraction for one chunk."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.InferenceDuration, err = m.Float64Histogram("sonido.pitch.inference.duration",
		metric.WithDescription("Latency of one inference batch."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.Chunks, err = m.Int64Counter("sonido.pitch.chunks",
		metric.WithDescription("Total chunks analyzed."),
	); err != nil {
		return nil, err
	}
	if met.Frames, err = m.Int64Counter("sonido.pitch.frames",
		metric.WithDescription("Total pitch frames by voicing."),
	); err != nil {
		return nil, err
	}
	if met.Errors, err = m.Int64Counter("sonido.pitch.errors",
		metric.WithDescription("Total analysis failures by stage."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Panics if instrument creation
// fails.
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

// RecordChunk records one analyzed chunk with its frame counts
func (m *Metrics) RecordChunk(ctx context.Context, elapsed time.Duration, voiced, unvoiced int) {
	m.Chunks.Add(ctx, 1)
	m.ChunkDuration.Record(ctx, elapsed.Seconds())
	m.Frames.Add(ctx, int64(voiced), metric.WithAttributes(attribute.Bool("voiced", true)))
	m.Frames.Add(ctx, int64(unvoiced), metric.WithAttributes(attribute.Bool("voiced", false)))
}

// RecordError counts a failure in stage
func (m *Metrics) RecordError(ctx context.Context, stage string) {
	m.Errors.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

// InstrumentEngine wraps engine so every Infer call is timed
func InstrumentEngine(engine crepe.Engine, m *Metrics) crepe.Engine {
	return &timedEngine{engine: engine, metrics: m}
}

type timedEngine struct {
	engine  crepe.Engine
	metrics *Metrics
}

func (e *timedEngine) Infer(ctx context.Context, frames [][]float32) ([][]float32, error) {
	start := time.Now()
	out, err := e.engine.Infer(ctx, frames)
	e.metrics.InferenceDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		e.metrics.RecordError(ctx, "inference")
	}
	return out, err
}
