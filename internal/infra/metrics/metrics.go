package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "autoflex",
		Name:      "http_requests_total",
		Help:      "API requests by route and status.",
	}, []string{"method", "route", "status"})

	duration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "autoflex",
		Name:      "http_request_duration_seconds",
		Help:      "API request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	validationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "autoflex",
		Name:      "validation_failures_total",
		Help:      "Rejected writes by error kind.",
	}, []string{"kind"})

	lowStock = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "autoflex",
		Name:      "raw_materials_low_stock",
		Help:      "Raw materials at or below the low-stock threshold after the last write.",
	})
)

// Middleware считает запросы по шаблону маршрута, а не по сырому пути.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		duration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func ValidationFailed(kind string) {
	validationFailures.WithLabelValues(kind).Inc()
}

func SetLowStock(n int) {
	lowStock.Set(float64(n))
}
