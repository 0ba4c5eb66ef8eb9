package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Recorder collects per-run screener metrics on its own registry
type Recorder struct {
	registry   *prometheus.Registry
	symbols    *prometheus.CounterVec
	bucketSize *prometheus.GaugeVec
	duration   *prometheus.HistogramVec
	lastRun    prometheus.Gauge
}

// New creates a new Prometheus metrics recorder
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		symbols: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "screener_symbols_total",
				Help: "Symbols processed, by outcome",
			},
			[]string{"outcome"},
		),
		bucketSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "screener_bucket_size",
				Help: "Symbols in each report bucket",
			},
			[]string{"bucket"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "screener_stage_duration_seconds",
				Help:    "Duration of run stages in seconds",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
			},
			[]string{"stage"},
		),
		lastRun: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "screener_last_run_timestamp_seconds",
				Help: "Unix time of the last completed run",
			},
		),
	}
}

// RecordSymbol counts a symbol outcome (ok, failed, skipped)
func (r *Recorder) RecordSymbol(outcome string) {
	if r == nil {
		return
	}
	r.symbols.WithLabelValues(outcome).Inc()
}

func (r *Recorder) SetBucketSize(bucket string, n int) {
	if r == nil {
		return
	}
	r.bucketSize.WithLabelValues(bucket).Set(float64(n))
}

// ObserveStage records how long a stage took since start
func (r *Recorder) ObserveStage(stage string, start time.Time) {
	if r == nil {
		return
	}
	r.duration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func (r *Recorder) MarkRun(t time.Time) {
	if r == nil {
		return
	}
	r.lastRun.Set(float64(t.Unix()))
}

// Registry exposes the underlying registry for tests and exporters
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Push sends the collected metrics to a Prometheus Pushgateway
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(r.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
