package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusCollector holds the HTTP metrics, any extra collectors and the
// registry served on MetricsPath.
type PrometheusCollector struct {
	reqCount    *prometheus.CounterVec
	reqDurHist  *prometheus.HistogramVec
	inFlight    prometheus.Gauge
	registry    *prometheus.Registry
	MetricsPath string
}

// NewPrometheusCollector registers the standard HTTP metrics, Go runtime
// metrics and extra on a private registry.
func NewPrometheusCollector(metricsPath string, extra ...prometheus.Collector) *PrometheusCollector {
	reg := prometheus.NewRegistry()

	reqCount := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	reqDurHist := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of request durations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	inFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "Current number of in-flight requests",
	})

	reg.MustRegister(reqCount, reqDurHist, inFlight, collectors.NewGoCollector())
	for _, c := range extra {
		if c != nil {
			reg.MustRegister(c)
		}
	}

	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	return &PrometheusCollector{
		reqCount:    reqCount,
		reqDurHist:  reqDurHist,
		inFlight:    inFlight,
		registry:    reg,
		MetricsPath: metricsPath,
	}
}

// Registry exposes the underlying registry.
func (pc *PrometheusCollector) Registry() *prometheus.Registry { return pc.registry }

// PrometheusMiddleware returns a gin middleware that collects metrics.
// Unmatched routes are labelled "unmatched" to bound cardinality.
func (pc *PrometheusCollector) PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == pc.MetricsPath {
			c.Next()
			return
		}
		start := time.Now()
		pc.inFlight.Inc()
		c.Next()
		pc.inFlight.Dec()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		pc.reqCount.WithLabelValues(c.Request.Method, route, status).Inc()
		pc.reqDurHist.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// RegisterMetricsEndpoint mounts the registry handler on the engine.
func (pc *PrometheusCollector) RegisterMetricsEndpoint(engine *gin.Engine) {
	engine.GET(pc.MetricsPath, gin.WrapH(promhttp.HandlerFor(pc.registry, promhttp.HandlerOpts{})))
}
