// Package metrics exposes pipeline measurements through a per-process Prometheus registry.
//
// CLI runs push the registry to a Pushgateway when one is configured; the trigger server serves it at /metrics.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/spotetl/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "spotetl"

// Recorder implements tasks.Recorder on top of its own [prometheus.Registry].
type Recorder struct {
	registry    *prometheus.Registry
	rows        *prometheus.CounterVec
	objects     *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
	runs        *prometheus.CounterVec
}

// NewRecorder creates a [Recorder] with a fresh registry. Go runtime and process collectors are included
// when withRuntime is set.
func NewRecorder(withRuntime bool) *Recorder {
	reg := prometheus.NewRegistry()
	if withRuntime {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		rows: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_written_total",
			Help:      "Rows written to transformed datasets.",
		}, []string{"dataset"}),
		objects: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objects_total",
			Help:      "Storage objects handled, by stage and action.",
		}, []string{"stage", "action"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of pipeline runs.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"stage"}),
		lastSuccess: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}, []string{"stage"}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs, by stage and outcome.",
		}, []string{"stage", "outcome"}),
	}
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveRun records a run's duration and outcome.
func (r *Recorder) ObserveRun(stage models.RunKind, d time.Duration, ok bool) {
	r.duration.WithLabelValues(string(stage)).Observe(d.Seconds())

	outcome := "failed"
	if ok {
		outcome = "succeeded"
		r.lastSuccess.WithLabelValues(string(stage)).SetToCurrentTime()
	}
	r.runs.WithLabelValues(string(stage), outcome).Inc()
}

// AddObjects counts n objects handled by stage.
func (r *Recorder) AddObjects(stage models.RunKind, action models.ObjectAction, n int) {
	r.objects.WithLabelValues(string(stage), string(action)).Add(float64(n))
}

// AddRows counts n rows written to dataset.
func (r *Recorder) AddRows(dataset string, n int) {
	r.rows.WithLabelValues(dataset).Add(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Push sends the registry to a Pushgateway under job, replacing the job's previous metrics.
func (r *Recorder) Push(ctx context.Context, gatewayURL, job string) error {
	pusher := push.New(gatewayURL, job).Gatherer(r.registry)
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
