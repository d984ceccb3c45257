// Package telemetry provides application-level observability for the object registry.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and served by the
// side-channel HTTP server started by main.go:
//
//	GET http://<host>:<OBJREG_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090. The endpoint is not served by the Gin router.
//
// # Metric Groups
//
//   - HTTP request counters and latency histograms (labelled by route template, not raw URL)
//   - JSON object mutation and export counters
//   - Login attempt counter
//   - Database connection pool gauge (polled every 30 s)
//
// HTTP metrics use c.FullPath() (route template such as /object/view/:id) rather than
// the raw request URL so object ids never become label values.
package telemetry

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/object-registry/object-registry/internal/safego"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics, labelled by method, route template, and status code.
//
// Example PromQL queries:
//   - Request rate (req/s, 5 m window):  rate(http_requests_total[5m])
//   - p99 latency per route:             histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Object metrics, recorded by the object handlers.
//
// ObjectMutationsTotal has labels {action, outcome}: action is one of create, update,
// delete; outcome is one of success, invalid, conflict, error.
//
// Example PromQL queries:
//   - Failed commits:       sum by (action) (rate(json_object_mutations_total{outcome="error"}[1h]))
//   - Name collision rate:  rate(json_object_mutations_total{outcome="conflict"}[1h])
var (
	ObjectMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "json_object_mutations_total",
			Help: "Total number of JSON object mutation attempts, by action and outcome.",
		},
		[]string{"action", "outcome"},
	)

	ObjectExportsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "json_object_exports_total",
			Help: "Total number of JSON object downloads.",
		},
	)
)

// LoginAttemptsTotal has label {result}: success or failure.
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "login_attempts_total",
		Help: "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// DBOpenConnections tracks the number of open connections held by the sql.DB pool.
// It is sampled every 30 seconds by StartDBStatsCollector rather than per-request.
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector launches a background goroutine that samples sql.DB connection
// pool statistics every interval and updates the DBOpenConnections gauge. The goroutine
// exits when ctx is cancelled or the database becomes unreachable.
func StartDBStatsCollector(ctx context.Context, db *sql.DB, interval time.Duration) {
	safego.Go("db-stats-collector", func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := db.PingContext(ctx); err != nil {
					if ctx.Err() == nil {
						slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
					}
					return
				}
				DBOpenConnections.Set(float64(db.Stats().OpenConnections))
			}
		}
	})
}
