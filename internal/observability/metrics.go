package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by the API and delivery flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal     *prometheus.CounterVec
	httpRequestDuration   *prometheus.HistogramVec
	deliveriesSentTotal   *prometheus.CounterVec
	deliveriesFailedTotal *prometheus.CounterVec
	deliveryDuration      *prometheus.HistogramVec
	retryScheduledTotal   prometheus.Counter
	retryExhaustedTotal   prometheus.Counter
	escalationsTotal      prometheus.Counter
	responsesTotal        *prometheus.CounterVec
	campaignsActive       prometheus.Gauge
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bloodalert",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "bloodalert",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		deliveriesSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bloodalert",
				Name:      "deliveries_sent_total",
				Help:      "Total number of notifications delivered successfully per channel.",
			},
			[]string{"channel"},
		),
		deliveriesFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bloodalert",
				Name:      "deliveries_failed_total",
				Help:      "Total number of failed channel delivery attempts per channel and reason.",
			},
			[]string{"channel", "reason"},
		),
		deliveryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "bloodalert",
				Name:      "delivery_duration_seconds",
				Help:      "Adapter send duration in seconds grouped by channel.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"channel"},
		),
		retryScheduledTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "bloodalert",
				Name:      "retry_scheduled_total",
				Help:      "Total number of recipient deliveries scheduled for retry.",
			},
		),
		retryExhaustedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "bloodalert",
				Name:      "retry_exhausted_total",
				Help:      "Total number of recipient deliveries that exhausted all retries.",
			},
		),
		escalationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "bloodalert",
				Name:      "escalations_total",
				Help:      "Total number of campaign escalations triggered.",
			},
		),
		responsesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bloodalert",
				Name:      "responses_total",
				Help:      "Total number of recipient responses recorded by decision.",
			},
			[]string{"decision"},
		),
		campaignsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "bloodalert",
				Name:      "campaigns_active",
				Help:      "Current number of campaigns in a non-terminal state.",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.deliveriesSentTotal,
		m.deliveriesFailedTotal,
		m.deliveryDuration,
		m.retryScheduledTotal,
		m.retryExhaustedTotal,
		m.escalationsTotal,
		m.responsesTotal,
		m.campaignsActive,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncDeliverySent(channel string) {
	if m == nil {
		return
	}
	m.deliveriesSentTotal.WithLabelValues(normalizeChannel(channel)).Inc()
}

func (m *Metrics) IncDeliveryFailed(channel string, reason string) {
	if m == nil {
		return
	}
	reasonLabel := strings.TrimSpace(strings.ToLower(reason))
	if reasonLabel == "" {
		reasonLabel = "unknown"
	}
	m.deliveriesFailedTotal.WithLabelValues(normalizeChannel(channel), reasonLabel).Inc()
}

func (m *Metrics) ObserveDeliveryDuration(channel string, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.deliveryDuration.WithLabelValues(normalizeChannel(channel)).Observe(seconds)
}

func (m *Metrics) IncRetryScheduled() {
	if m == nil {
		return
	}
	m.retryScheduledTotal.Inc()
}

func (m *Metrics) IncRetryExhausted() {
	if m == nil {
		return
	}
	m.retryExhaustedTotal.Inc()
}

func (m *Metrics) IncEscalation() {
	if m == nil {
		return
	}
	m.escalationsTotal.Inc()
}

func (m *Metrics) IncResponse(decision string) {
	if m == nil {
		return
	}
	decisionLabel := strings.TrimSpace(strings.ToLower(decision))
	if decisionLabel == "" {
		decisionLabel = "unknown"
	}
	m.responsesTotal.WithLabelValues(decisionLabel).Inc()
}

func (m *Metrics) IncCampaignsActive() {
	if m == nil {
		return
	}
	m.campaignsActive.Inc()
}

func (m *Metrics) DecCampaignsActive() {
	if m == nil {
		return
	}
	m.campaignsActive.Dec()
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeChannel(channel string) string {
	normalized := strings.ToLower(strings.TrimSpace(channel))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
