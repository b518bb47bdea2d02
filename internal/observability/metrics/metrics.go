// Package metrics exposes Prometheus counters and histograms for the query
// pipeline and its HTTP surface. All collectors live in a private registry
// served from /metrics.
package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	queriesTotal        *prometheus.CounterVec
	stageDuration       *prometheus.HistogramVec
	retrievedChunks     prometheus.Histogram
	cacheLookupsTotal   *prometheus.CounterVec
	intentFallbackTotal prometheus.Counter
	indexChunks         prometheus.Gauge
}

func New(service string) *Metrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agri",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "agri",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "agri",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agri",
			Subsystem: "query",
			Name:      "total",
			Help:      "Total answered queries by response type and intent.",
		},
		[]string{"service", "response_type", "intent"},
	)
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "agri",
			Subsystem: "query",
			Name:      "stage_duration_seconds",
			Help:      "Measured duration of each pipeline stage.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "stage"},
	)
	retrievedChunks := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "agri",
			Subsystem: "query",
			Name:      "retrieved_chunks",
			Help:      "Distribution of retrieved chunks per query.",
			Buckets:   []float64{0, 1, 2, 3, 5},
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	cacheLookupsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agri",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Answer cache lookups by result.",
		},
		[]string{"service", "result"},
	)
	intentFallbackTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "agri",
			Subsystem: "query",
			Name:      "intent_fallback_total",
			Help:      "Queries classified by the model after keyword routing found nothing.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	indexChunks := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "agri",
			Subsystem: "index",
			Name:      "chunks",
			Help:      "Chunks in the loaded knowledge base snapshot.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		queriesTotal,
		stageDuration,
		retrievedChunks,
		cacheLookupsTotal,
		intentFallbackTotal,
		indexChunks,
	)

	return &Metrics{
		registry:            registry,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		queriesTotal:        queriesTotal,
		stageDuration:       stageDuration,
		retrievedChunks:     retrievedChunks,
		cacheLookupsTotal:   cacheLookupsTotal,
		intentFallbackTotal: intentFallbackTotal,
		indexChunks:         indexChunks,
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			r.URL.Path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

// RecordQuery observes one completed query with its measured stage timings.
func (m *Metrics) RecordQuery(service, responseType, intent string, retrieved int, classify, retrieve, generate, total time.Duration) {
	m.queriesTotal.WithLabelValues(service, responseType, intent).Inc()
	m.retrievedChunks.Observe(float64(retrieved))
	m.stageDuration.WithLabelValues(service, "classify").Observe(classify.Seconds())
	m.stageDuration.WithLabelValues(service, "retrieve").Observe(retrieve.Seconds())
	m.stageDuration.WithLabelValues(service, "generate").Observe(generate.Seconds())
	m.stageDuration.WithLabelValues(service, "total").Observe(total.Seconds())
}

func (m *Metrics) RecordCacheLookup(service string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookupsTotal.WithLabelValues(service, result).Inc()
}

func (m *Metrics) RecordIntentFallback() {
	m.intentFallbackTotal.Inc()
}

func (m *Metrics) SetIndexChunks(count int) {
	m.indexChunks.Set(float64(count))
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
