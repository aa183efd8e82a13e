// Package metrics provides Prometheus collectors for pricing, billing and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricPrefix = "timbercalc_"

	// ResultSuccess labels a successful operation
	ResultSuccess = "success"

	// ResultError labels a failed operation
	ResultError = "error"
)

var (
	registerOnce sync.Once

	entriesCalculated *prometheus.CounterVec
	priceUnresolved   *prometheus.CounterVec
	billExports       *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
)

// Init registers all collectors with the default registry. Until Init runs
// every helper is a no-op.
func Init() {
	registerOnce.Do(func() {
		entriesCalculated = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "entries_calculated_total",
				Help: "Total bill entries calculated by whether a price was matched",
			},
			[]string{"matched"},
		)
		priceUnresolved = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "price_unresolved_total",
				Help: "Total price lookups that resolved to no configured price, by reason",
			},
			[]string{"reason"},
		)
		billExports = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "bill_exports_total",
				Help: "Total bill exports by format and result",
			},
			[]string{"format", "result"},
		)

		httpRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "Total HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		)
		httpLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		)

		prometheus.MustRegister(
			entriesCalculated,
			priceUnresolved,
			billExports,
			httpRequests,
			httpLatency,
		)
	})
}

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

// IncEntryCalculated counts a computed bill entry.
func IncEntryCalculated(matched bool) {
	if entriesCalculated != nil {
		entriesCalculated.WithLabelValues(strconv.FormatBool(matched)).Inc()
	}
}

// IncPriceUnresolved counts a lookup that found no configured price.
func IncPriceUnresolved(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	if priceUnresolved != nil {
		priceUnresolved.WithLabelValues(reason).Inc()
	}
}

// IncBillExport counts a bill export attempt.
func IncBillExport(format, result string) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = ResultSuccess
	}
	if billExports != nil {
		billExports.WithLabelValues(format, result).Inc()
	}
}

// ObserveHTTPRequest records one served request.
func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	if httpRequests != nil {
		httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	}
	if httpLatency != nil {
		httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
	}
}
