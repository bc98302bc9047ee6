// Package metrics holds the Prometheus collectors shared by the API and the
// thumbnail worker.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fm_http_requests_total",
			Help: "HTTP requests served, by route and status.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fm_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

var (
	// UploadsTotal counts stored records by kind.
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fm_uploads_total",
			Help: "Records created through the upload pipeline.",
		},
		[]string{"type"},
	)

	// EnqueueFailuresTotal counts thumbnail jobs that never reached the queue.
	EnqueueFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fm_thumbnail_enqueue_failures_total",
			Help: "Thumbnail jobs that could not be enqueued.",
		},
	)

	// JobsTotal counts worker outcomes: done, invalid, not_found, dead_letter.
	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fm_thumbnail_jobs_total",
			Help: "Thumbnail jobs processed, by result.",
		},
		[]string{"result"},
	)

	// DerivativesTotal counts per-width generation results.
	DerivativesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fm_thumbnail_derivatives_total",
			Help: "Thumbnail derivatives attempted, by width and result.",
		},
		[]string{"width", "result"},
	)
)

// Middleware records request count and latency per matched route. Requests
// that match no route are labelled "unmatched".
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
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
