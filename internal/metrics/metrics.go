// Package metrics holds the Prometheus collectors shared by the service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the service registry. It is separate from the global default
// so tests can construct servers without duplicate registration panics.
var Registry = prometheus.NewRegistry()

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hive",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status code",
	}, []string{"route", "code"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hive",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})

	StoreRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hive",
		Name:      "store_requests_total",
		Help:      "Backend store calls by operation and outcome",
	}, []string{"op", "outcome"})

	GatewayRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hive",
		Name:      "ai_gateway_requests_total",
		Help:      "AI gateway calls by feature and outcome",
	}, []string{"feature", "outcome"})

	GatewayDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hive",
		Name:      "ai_gateway_duration_seconds",
		Help:      "AI gateway round trip latency by feature",
		Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
	}, []string{"feature"})

	ICSImports = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hive",
		Name:      "ics_imports_total",
		Help:      "ICS feed fetches by source and outcome",
	}, []string{"source", "outcome"})

	ImportedEvents = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "hive",
		Name:      "ics_imported_events",
		Help:      "Occurrences held by the ICS import snapshot",
	})

	BucketEvents = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "hive",
		Name:      "feed_bucket_events",
		Help:      "Events per bucket in the most recently served unfiltered feed",
	}, []string{"bucket"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		HTTPRequests, HTTPDuration,
		StoreRequests,
		GatewayRequests, GatewayDuration,
		ICSImports, ImportedEvents,
		BucketEvents,
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Outcome maps an error to the "outcome" label value.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Since observes the seconds elapsed from start on h.
func Since(h prometheus.Observer, start time.Time) {
	h.Observe(time.Since(start).Seconds())
}
