package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	queuePending  prometheus.Gauge
	queueRunning  prometheus.Gauge
	enqueueTotal  prometheus.Counter
	dispatchTotal *prometheus.CounterVec
	handlerErrors *prometheus.CounterVec

	cacheEntries     prometheus.Gauge
	cacheHitsTotal   prometheus.Counter
	cacheMissesTotal prometheus.Counter
	cacheEvictions   prometheus.Counter
	cacheExpiries    prometheus.Counter

	toolInvocationTotal    *prometheus.CounterVec
	toolInvocationDuration *prometheus.HistogramVec
	toolErrorsTotal        *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			queuePending: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "taskqueue_pending",
					Help: "Current number of pending task identifiers.",
				},
			),
			queueRunning: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "taskqueue_running",
					Help: "Current number of running task identifiers.",
				},
			),
			enqueueTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "taskqueue_enqueue_total",
					Help: "Total task enqueue operations.",
				},
			),
			dispatchTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "dispatch_events_total",
					Help: "Total events emitted by kind.",
				},
				[]string{"kind"},
			),
			handlerErrors: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "dispatch_handler_errors_total",
					Help: "Total handler errors by event kind.",
				},
				[]string{"kind"},
			),
			cacheEntries: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "respcache_entries",
					Help: "Current number of live response cache entries.",
				},
			),
			cacheHitsTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "respcache_hits_total",
					Help: "Total response cache hits.",
				},
			),
			cacheMissesTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "respcache_misses_total",
					Help: "Total response cache misses, including lazy expiries.",
				},
			),
			cacheEvictions: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "respcache_evictions_total",
					Help: "Total LRU evictions from the response cache.",
				},
			),
			cacheExpiries: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "respcache_expiries_total",
					Help: "Total TTL expiries removed lazily or by cleanup.",
				},
			),
			toolInvocationTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "tool_invocation_total",
					Help: "Total tool invocations by tool and status.",
				},
				[]string{"tool", "status"},
			),
			toolInvocationDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "tool_invocation_duration_seconds",
					Help:    "Tool invocation duration in seconds by tool.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"tool"},
			),
			toolErrorsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "tool_errors_total",
					Help: "Total tool invocation errors by tool.",
				},
				[]string{"tool"},
			),
		}

		prometheus.MustRegister(
			m.queuePending,
			m.queueRunning,
			m.enqueueTotal,
			m.dispatchTotal,
			m.handlerErrors,
			m.cacheEntries,
			m.cacheHitsTotal,
			m.cacheMissesTotal,
			m.cacheEvictions,
			m.cacheExpiries,
			m.toolInvocationTotal,
			m.toolInvocationDuration,
			m.toolErrorsTotal,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func RecordTaskEnqueue(pending int) {
	m := getMetrics()
	m.enqueueTotal.Inc()
	m.queuePending.Set(float64(pending))
}

func SetQueuePending(pending int) {
	getMetrics().queuePending.Set(float64(pending))
}

func SetQueueRunning(running int) {
	getMetrics().queueRunning.Set(float64(running))
}

func RecordEventEmit(kind string) {
	getMetrics().dispatchTotal.WithLabelValues(kind).Inc()
}

func RecordHandlerError(kind string) {
	getMetrics().handlerErrors.WithLabelValues(kind).Inc()
}

func SetCacheEntries(entries int) {
	getMetrics().cacheEntries.Set(float64(entries))
}

func RecordCacheHit() {
	getMetrics().cacheHitsTotal.Inc()
}

func RecordCacheMiss() {
	getMetrics().cacheMissesTotal.Inc()
}

func RecordCacheEviction() {
	getMetrics().cacheEvictions.Inc()
}

func RecordCacheExpiries(count int) {
	if count <= 0 {
		return
	}
	getMetrics().cacheExpiries.Add(float64(count))
}

func RecordToolInvocation(tool string, duration time.Duration, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.toolInvocationTotal.WithLabelValues(tool, status).Inc()
	m.toolInvocationDuration.WithLabelValues(tool).Observe(duration.Seconds())
	if !success {
		m.toolErrorsTotal.WithLabelValues(tool).Inc()
	}
}
