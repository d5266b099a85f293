package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	initOnce sync.Once

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	uploadsFinalized    *prometheus.CounterVec
	rateLimitRejections prometheus.Counter
)

// InitMetrics registers the mdimg collectors. Safe to call more than once.
func InitMetrics() {
	initOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mdimg_http_requests_total",
			Help: "HTTP requests processed, by method, route and status.",
		}, []string{"method", "route", "status"})

		httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mdimg_http_request_duration_seconds",
			Help:    "HTTP request latency, by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"})

		uploadsFinalized = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mdimg_uploads_finalized_total",
			Help: "Image records committed, by format.",
		}, []string{"format"})

		rateLimitRejections = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mdimg_upload_rate_limited_total",
			Help: "Upload target requests rejected by the rate limit.",
		})

		prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, uploadsFinalized, rateLimitRejections)
	})
}

// Middleware records request counts and latency per route.
func Middleware() gin.HandlerFunc {
	InitMetrics()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// ObserveUploadFinalized counts a committed image record.
func ObserveUploadFinalized(format string) {
	InitMetrics()
	uploadsFinalized.WithLabelValues(format).Inc()
}

// ObserveRateLimited counts a rejected upload target request.
func ObserveRateLimited() {
	InitMetrics()
	rateLimitRejections.Inc()
}

// Register attaches the Prometheus metrics endpoint to the router.
func Register(router *gin.Engine, path string) {
	router.GET(path, gin.WrapH(promhttp.Handler()))
}
