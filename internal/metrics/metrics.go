// Package metrics exposes turn and HTTP counters for Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/KaramelBytes/candlechat/internal/conversation"
)

// Recorder implements conversation.Observer on its own registry.
type Recorder struct {
	reg *prometheus.Registry

	turns        *prometheus.CounterVec
	failures     *prometheus.CounterVec
	generation   prometheus.Histogram
	execution    prometheus.Histogram
	sessions     prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
}

var _ conversation.Observer = (*Recorder)(nil)

// New creates a recorder with a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		reg: reg,
		turns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candlechat_turns_total",
				Help: "Assistant turns by display action and outcome",
			},
			[]string{"action", "outcome"},
		),
		failures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candlechat_turn_failures_total",
				Help: "Failed turns by stage",
			},
			[]string{"stage"},
		),
		generation: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "candlechat_generation_duration_seconds",
			Help:    "Duration of model calls in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		}),
		execution: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "candlechat_execution_duration_seconds",
			Help:    "Duration of snippet executions in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		}),
		sessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "candlechat_sessions",
			Help: "Open chat sessions",
		}),
		httpRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candlechat_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		httpLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "candlechat_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"route", "method"},
		),
	}
}

// TurnCompleted records one finished turn.
func (r *Recorder) TurnCompleted(rep conversation.Report) {
	outcome := "success"
	switch {
	case rep.Demo:
		outcome = "demo"
	case rep.Failed:
		outcome = "failure"
	}
	r.turns.WithLabelValues(rep.Action.String(), outcome).Inc()
	if rep.Failed {
		stage := rep.Stage
		if stage == "" {
			stage = "unknown"
		}
		r.failures.WithLabelValues(stage).Inc()
	}
	if rep.Generation > 0 {
		r.generation.Observe(rep.Generation.Seconds())
	}
	if rep.Execution > 0 {
		r.execution.Observe(rep.Execution.Seconds())
	}
}

// SetSessions records the number of open sessions.
func (r *Recorder) SetSessions(n int) { r.sessions.Set(float64(n)) }

// ObserveHTTP records one request. route should be the templated path.
func (r *Recorder) ObserveHTTP(route, method string, status int, d time.Duration) {
	r.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	r.httpLatency.WithLabelValues(route, method).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }
