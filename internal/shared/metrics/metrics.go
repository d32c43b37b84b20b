package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "butterchat"

var (
	registry = prometheus.NewRegistry()

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
		},
	)

	jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "jobs_total",
			Help:      "Queue jobs handled by the worker, by subject and outcome.",
		},
		[]string{"subject", "outcome"},
	)
	jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "job_duration_seconds",
			Help:      "Worker job duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"subject"},
	)

	eventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "events_published_total",
			Help:      "Events published to the queue backend.",
		},
		[]string{"subject", "status"},
	)

	graphCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "meta",
			Name:      "graph_calls_total",
			Help:      "Meta Graph API calls by operation and status.",
		},
		[]string{"operation", "status"},
	)

	documentTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "documents",
			Name:      "status_transitions_total",
			Help:      "Document folder moves by target status.",
		},
		[]string{"status"},
	)
	documentsUploaded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "documents",
			Name:      "uploaded_total",
			Help:      "Documents accepted for upload.",
		},
	)

	mailsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mail",
			Name:      "sent_total",
			Help:      "Outbound mails by template and status.",
		},
		[]string{"template", "status"},
	)
)

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		httpRequestsTotal,
		httpRequestDuration,
		httpInFlight,
		jobsTotal,
		jobDuration,
		eventsPublished,
		graphCalls,
		documentTransitions,
		documentsUploaded,
		mailsSent,
	)
}

// Registry exposes the private registry, mainly for tests.
func Registry() *prometheus.Registry {
	return registry
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}

// Middleware records request counts and latency keyed by the matched route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// ObserveJob records a worker job outcome: completed, failed or discarded.
func ObserveJob(subject, outcome string, d time.Duration) {
	jobsTotal.WithLabelValues(subject, outcome).Inc()
	jobDuration.WithLabelValues(subject).Observe(d.Seconds())
}

// IncEventPublished counts a publish attempt.
func IncEventPublished(subject string, err error) {
	eventsPublished.WithLabelValues(subject, statusLabel(err)).Inc()
}

// IncGraphCall counts a Meta Graph request.
func IncGraphCall(operation string, err error) {
	graphCalls.WithLabelValues(operation, statusLabel(err)).Inc()
}

// IncDocumentTransition counts a document moved into the given status.
func IncDocumentTransition(status string) {
	documentTransitions.WithLabelValues(status).Inc()
}

// IncDocumentsUploaded counts accepted uploads.
func IncDocumentsUploaded(n int) {
	documentsUploaded.Add(float64(n))
}

// IncMailSent counts a mail delivery attempt.
func IncMailSent(template string, err error) {
	mailsSent.WithLabelValues(template, statusLabel(err)).Inc()
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
