// Package metrics exposes supervision counters in the Prometheus format.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/charliek/respawn/internal/domain"
)

const namespace = "respawn"

// Collector turns supervision events into metrics. It owns its registry so
// several collectors can coexist in one process.
type Collector struct {
	registry *prometheus.Registry

	events        *prometheus.CounterVec
	exits         *prometheus.CounterVec
	spawnFailures prometheus.Counter
	restarts      prometheus.Counter
	childRunning  prometheus.Gauge
	childStarted  prometheus.Gauge
	childLifetime prometheus.Histogram
	httpRequests  *prometheus.CounterVec

	mu        sync.Mutex
	starts    int
	startedAt time.Time
}

// NewCollector creates a collector with the runtime and process collectors
// registered alongside the supervision metrics
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Supervision events recorded, by phase",
			},
			[]string{"phase"},
		),
		exits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "child_exits_total",
				Help:      "Child exits, by classification",
			},
			[]string{"classification"},
		),
		spawnFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spawn_failures_total",
			Help:      "Attempts to start the child that failed",
		}),
		restarts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restarts_total",
			Help:      "Start attempts after the first one",
		}),
		childRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "child_running",
			Help:      "1 while a child process is alive",
		}),
		childStarted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "child_start_time_seconds",
			Help:      "Unix time the current child was started",
		}),
		childLifetime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "child_lifetime_seconds",
			Help:      "How long each child ran before exiting",
			Buckets:   prometheus.ExponentialBuckets(0.1, 4, 10),
		}),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Status API requests, by method and status code",
			},
			[]string{"method", "status"},
		),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.events,
		c.exits,
		c.spawnFailures,
		c.restarts,
		c.childRunning,
		c.childStarted,
		c.childLifetime,
		c.httpRequests,
	)

	return c
}

// Record updates the metrics for one supervision event
func (c *Collector) Record(event domain.SupervisionEvent) {
	c.events.WithLabelValues(string(event.Phase)).Inc()

	switch event.Phase {
	case domain.PhaseStart:
		c.mu.Lock()
		c.starts++
		first := c.starts == 1
		if !event.Failed() {
			c.startedAt = event.Timestamp
		}
		c.mu.Unlock()

		if !first {
			c.restarts.Inc()
		}
		if event.Failed() {
			c.spawnFailures.Inc()
			return
		}
		c.childRunning.Set(1)
		c.childStarted.Set(float64(event.Timestamp.UnixNano()) / 1e9)

	case domain.PhaseExit:
		c.childRunning.Set(0)
		if event.Exit != nil {
			c.exits.WithLabelValues(string(event.Exit.Kind)).Inc()
		}

		c.mu.Lock()
		started := c.startedAt
		c.startedAt = time.Time{}
		c.mu.Unlock()
		if !started.IsZero() {
			c.childLifetime.Observe(event.Timestamp.Sub(started).Seconds())
		}
	}
}

// Registry returns the registry holding all collector metrics
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the metrics in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Middleware counts HTTP requests by method and status code
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		c.httpRequests.WithLabelValues(r.Method, strconv.Itoa(rw.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses working through the wrapper
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
