// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	Exports             *prometheus.CounterVec
	ShoppingListRows    prometheus.Histogram
	EventsPublished     *prometheus.CounterVec
}

// New registers all collectors on reg together with the Go and process collectors.
func New(reg *prometheus.Registry) *Metrics {
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kitchen_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kitchen_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Exports: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kitchen_shopping_list_exports_total",
				Help: "Total number of shopping list exports",
			},
			[]string{"format", "outcome"},
		),
		ShoppingListRows: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "kitchen_shopping_list_rows",
				Help:    "Number of consolidated rows per exported shopping list",
				Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
			},
		),
		EventsPublished: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kitchen_events_published_total",
				Help: "Total number of domain events handed to the broker",
			},
			[]string{"event", "outcome"},
		),
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveExport implements shopping.ExportRecorder.
func (m *Metrics) ObserveExport(format, outcome string, rows int) {
	m.Exports.WithLabelValues(format, outcome).Inc()
	if outcome == "ok" {
		m.ShoppingListRows.Observe(float64(rows))
	}
}

// ObservePublish implements events.PublishRecorder.
func (m *Metrics) ObservePublish(event, outcome string) {
	m.EventsPublished.WithLabelValues(event, outcome).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latency labelled by the chi route pattern,
// so path parameters do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		m.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
