// Package metrics exposes Prometheus collectors for the portal admin backend.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const namespace = "portal_admin"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	workflowOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "outcomes_total",
			Help:      "Balance workflow results by workflow and outcome code.",
		},
		[]string{"workflow", "outcome"},
	)

	ledgerAmount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "amount_total",
			Help:      "Sum of balance movements by direction.",
		},
		[]string{"kind"},
	)

	backgroundTasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "background",
			Name:      "tasks_total",
			Help:      "Background tasks run by the worker pool.",
		},
		[]string{"task", "success"},
	)

	backgroundDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "background",
			Name:      "task_duration_seconds",
			Help:      "Duration of background tasks.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"task"},
	)

	breakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "circuit_breaker",
			Name:      "open",
			Help:      "1 while the named circuit breaker is open.",
		},
		[]string{"name"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		workflowOutcomes,
		ledgerAmount,
		backgroundTasks,
		backgroundDuration,
		breakerState,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
// Paths are labelled with the mux route template so ids do not explode
// label cardinality.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		path := routeTemplate(r)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	})
}

// RecordWorkflow counts one balance workflow result. outcome is "ok" or an
// error code.
func RecordWorkflow(workflow, outcome string) {
	workflowOutcomes.WithLabelValues(workflow, outcome).Inc()
}

// RecordLedgerMovement adds amount to the counter for kind.
func RecordLedgerMovement(kind string, amount decimal.Decimal) {
	f, _ := amount.Abs().Float64()
	ledgerAmount.WithLabelValues(kind).Add(f)
}

// RecordBackgroundTask matches worker.Observer.
func RecordBackgroundTask(name string, err error, elapsed time.Duration) {
	if name == "" {
		name = "unknown"
	}
	backgroundTasks.WithLabelValues(name, strconv.FormatBool(err == nil)).Inc()
	backgroundDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}

// RecordBreakerState sets the open gauge for a circuit breaker.
func RecordBreakerState(name string, open bool) {
	v := 0.0
	if open {
		v = 1
	}
	breakerState.WithLabelValues(name).Set(v)
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
