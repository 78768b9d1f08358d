// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "attendvisor",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	EntriesSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendvisor",
		Name:      "attendance_entries_total",
		Help:      "Attendance entries submitted, split into stored and skipped duplicates.",
	}, []string{"result"})

	InsightRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendvisor",
		Name:      "insight_requests_total",
		Help:      "Insight generation attempts by outcome.",
	}, []string{"outcome"})

	ClassDayPresentRate = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "attendvisor",
		Name:      "class_day_present_rate",
		Help:      "Present rate (0-100) of the most recently recorded day per class.",
	}, []string{"class_id"})
)

// GinMiddleware observes request latency. Unmatched routes are grouped.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
