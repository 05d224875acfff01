// Package metrics owns the Prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups HTTP and domain collectors. A nil *Metrics is a valid no-op.
type Metrics struct {
	reg *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	reservations       *prometheus.CounterVec
	scheduleRejections *prometheus.CounterVec
	priceRefreshRuns   *prometheus.CounterVec
	pricesRefreshed    prometheus.Counter
}

// New creates a registry with Go and process collectors plus the
// application collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		reservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cinema_reservations_total",
			Help: "Reservation outcomes by operation and result.",
		}, []string{"op", "result"}),
		scheduleRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cinema_schedule_rejections_total",
			Help: "Screening schedule rejections by reason.",
		}, []string{"reason"}),
		priceRefreshRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cinema_price_refresh_runs_total",
			Help: "Price refresh job runs by outcome.",
		}, []string{"outcome"}),
		pricesRefreshed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cinema_prices_refreshed_total",
			Help: "Screenings whose prices were refreshed.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration,
		m.reservations, m.scheduleRejections, m.priceRefreshRuns, m.pricesRefreshed,
	)
	return m
}

// Registry exposes the underlying registry for tests and exporters.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Middleware records one counter and one latency sample per request, keyed
// by the matched route pattern. Handler errors are rendered here so the
// recorded status is the one the client sees.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			m.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

// Reservation records a reservation operation outcome.
func (m *Metrics) Reservation(op, result string) {
	if m == nil {
		return
	}
	m.reservations.WithLabelValues(op, result).Inc()
}

// ScheduleRejected counts a screening rejected for reason.
func (m *Metrics) ScheduleRejected(reason string) {
	if m == nil {
		return
	}
	m.scheduleRejections.WithLabelValues(reason).Inc()
}

// PriceRefresh records one run of the refresh job.
func (m *Metrics) PriceRefresh(outcome string, updated int) {
	if m == nil {
		return
	}
	m.priceRefreshRuns.WithLabelValues(outcome).Inc()
	m.pricesRefreshed.Add(float64(updated))
}
