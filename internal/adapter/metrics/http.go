package metrics

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

// loginBuckets spans a cookie lookup up to a slow Redis round trip.
var loginBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// HTTPMetrics records requests per endpoint. Routes registered under several
// paths (e.g. /addlist and /add-servers) share one endpoint label.
type HTTPMetrics struct {
	RequestDuration *prometheus.HistogramVec
	RequestsTotal   *prometheus.CounterVec
	ResponseSize    *prometheus.HistogramVec
	InFlightGauge   prometheus.Gauge

	aliases map[string]string
}

// NewHTTPMetrics registers the HTTP collectors. aliases maps a route path to
// the endpoint label it is reported under; unlisted routes use their path.
func NewHTTPMetrics(reg prometheus.Registerer, aliases map[string]string) *HTTPMetrics {
	m := &HTTPMetrics{
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds, by endpoint.",
			Buckets:   loginBuckets,
		}, []string{"method", "endpoint", "status_class"}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests, by endpoint and status code.",
		}, []string{"method", "endpoint", "status_code"}),
		ResponseSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "response_size_bytes",
			Help:      "Size of HTTP response bodies before compression.",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 6),
		}, []string{"endpoint"}),
		InFlightGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of HTTP requests currently being processed.",
		}),
		aliases: aliases,
	}

	reg.MustRegister(m.RequestDuration, m.RequestsTotal, m.ResponseSize, m.InFlightGauge)
	return m
}

func (m *HTTPMetrics) endpoint(route string) string {
	if route == "" {
		return "unmatched"
	}
	if alias, ok := m.aliases[route]; ok {
		return alias
	}
	return route
}

func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}

// Middleware records every request except probes, /version and /metrics.
func (m *HTTPMetrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := c.Path()
			if route == "/metrics" || route == "/version" || strings.HasPrefix(route, "/health/") {
				return next(c)
			}
			endpoint := m.endpoint(route)

			m.InFlightGauge.Inc()
			defer m.InFlightGauge.Dec()

			timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
				method := c.Request().Method
				code := c.Response().Status
				m.RequestDuration.WithLabelValues(method, endpoint, statusClass(code)).Observe(v)
				m.RequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(code)).Inc()
				m.ResponseSize.WithLabelValues(endpoint).Observe(float64(c.Response().Size))
			}))

			err := next(c)
			timer.ObserveDuration()
			return err
		}
	}
}
