package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsOnce     sync.Once
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestsInPlay  *prometheus.GaugeVec
	responseBytes   *prometheus.HistogramVec
)

func registerRequestMetrics() {
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradepulse_http_requests_total",
			Help: "Requests served",
		},
		[]string{"route", "method", "status"},
	)
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tradepulse_http_request_duration_seconds",
			Help:    "Request latency",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"route", "method", "status"},
	)
	requestsInPlay = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tradepulse_http_in_flight_requests",
			Help: "Requests currently being handled",
		},
		[]string{"route", "method"},
	)
	responseBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tradepulse_http_response_size_bytes",
			Help:    "Response body size",
			Buckets: []float64{200, 500, 1_000, 5_000, 10_000, 50_000, 100_000, 500_000, 1_000_000},
		},
		[]string{"route", "method", "status"},
	)
}

// Metrics records per-route request metrics. The route label uses echo's
// registered path template, not the raw URL, to keep cardinality bounded.
func Metrics() echo.MiddlewareFunc {
	metricsOnce.Do(registerRequestMetrics)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := c.Path()
			if route == "" {
				route = c.Request().URL.Path
			}
			method := c.Request().Method

			requestsInPlay.WithLabelValues(route, method).Inc()
			start := time.Now()

			err := next(c)

			status := strconv.Itoa(c.Response().Status)
			requestsInPlay.WithLabelValues(route, method).Dec()
			requestsTotal.WithLabelValues(route, method, status).Inc()
			requestDuration.WithLabelValues(route, method, status).Observe(time.Since(start).Seconds())
			responseBytes.WithLabelValues(route, method, status).Observe(float64(c.Response().Size))

			return err
		}
	}
}
