package obs

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	HTTPInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	permissionDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "permission_decisions_total",
			Help: "Permission checks by scope and outcome.",
		},
		[]string{"scope", "outcome"},
	)

	sessionsReaped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sessions_reaped_total",
		Help: "Expired sessions deleted by the reaper.",
	})

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Members API build information.",
		},
		[]string{"version", "commit"},
	)
)

// Init registers every collector with the default registry. Safe to call twice.
func Init(version, commit string) {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPInFlight, HTTPRequestsTotal, HTTPRequestDuration,
			permissionDecisions, sessionsReaped, buildInfo,
		)
	})
	buildInfo.WithLabelValues(version, commit).Set(1)
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePermission counts one permission decision.
func ObservePermission(scope, outcome string) {
	permissionDecisions.WithLabelValues(scope, outcome).Inc()
}

// ObserveReaped counts deleted sessions.
func ObserveReaped(n int64) {
	if n > 0 {
		sessionsReaped.Add(float64(n))
	}
}
