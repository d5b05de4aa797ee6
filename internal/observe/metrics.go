// Package observe provides observability primitives for voxalign:
// OpenTelemetry metrics with a Prometheus exporter bridge.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A package-level
// default [Metrics] instance is available via [Default]; tests should use
// [NewMetrics] with a custom [metric.MeterProvider] to avoid cross-test
// pollution.
package observe

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all voxalign metrics.
const meterName = "github.com/voxalign/voxalign"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// SynthesisDuration tracks text-to-speech synthesis latency.
	SynthesisDuration metric.Float64Histogram

	// TransformDuration tracks audio transform latency. Use with attribute:
	//   attribute.String("op", "pitch"|"stretch")
	TransformDuration metric.Float64Histogram

	// AlignerDuration tracks forced-alignment tool latency.
	AlignerDuration metric.Float64Histogram

	// WordsResolved counts phoneme resolutions. Use with attribute:
	//   attribute.String("method", ...)
	WordsResolved metric.Int64Counter

	// ExternalToolErrors counts failed external tool invocations. Use with
	// attribute: attribute.String("tool", ...)
	ExternalToolErrors metric.Int64Counter

	// LipsyncRuns counts lipsync orchestrations. Use with attribute:
	//   attribute.String("status", "ok"|"error")
	LipsyncRuns metric.Int64Counter
}

// latencyBuckets defines histogram bucket boundaries (in seconds). Synthesis
// and alignment are batch operations, so the buckets reach further than
// typical request-latency defaults.
var latencyBuckets = []float64{
	0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SynthesisDuration, err = m.Float64Histogram("voxalign.synthesis.duration",
		metric.WithDescription("Latency of speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TransformDuration, err = m.Float64Histogram("voxalign.transform.duration",
		metric.WithDescription("Latency of audio pitch/tempo transforms."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AlignerDuration, err = m.Float64Histogram("voxalign.aligner.duration",
		metric.WithDescription("Latency of the forced-alignment tool."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.WordsResolved, err = m.Int64Counter("voxalign.phoneme.words_resolved",
		metric.WithDescription("Words resolved to phoneme sequences, by method."),
	); err != nil {
		return nil, err
	}
	if met.ExternalToolErrors, err = m.Int64Counter("voxalign.tool.errors",
		metric.WithDescription("Failed external tool invocations, by tool."),
	); err != nil {
		return nil, err
	}
	if met.LipsyncRuns, err = m.Int64Counter("voxalign.lipsync.runs",
		metric.WithDescription("Lipsync orchestration runs, by status."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// Default returns the process-wide [Metrics] instance backed by the global
// OTel meter provider. Instruments are created on first use.
func Default() *Metrics {
	defaultMetricsOnce.Do(func() {
		m, err := NewMetrics(otel.GetMeterProvider())
		if err != nil {
			// Instrument names are compile-time constants; creation cannot
			// fail at runtime with a healthy SDK.
			panic(err)
		}
		defaultMetrics = m
	})
	return defaultMetrics
}
