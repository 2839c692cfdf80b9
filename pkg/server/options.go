package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/milan604/hr-console/pkg/config"
	"github.com/milan604/hr-console/pkg/logger"
	middleware "github.com/milan604/hr-console/pkg/server/middleware"
)

// StartOption configures Start behavior (functional options)
type StartOption func(*startOptions)

type startOptions struct {
	cfg    *config.Config
	logger logger.LogManager

	shutdownTimeout time.Duration
	// onShutdown runs after the HTTP server has drained.
	onShutdown []func()

	tlsCertFile string
	tlsKeyFile  string
	addr        string
}

// StartWithConfig passes config to the server startup
func StartWithConfig(c *config.Config) StartOption {
	return func(o *startOptions) { o.cfg = c }
}

// StartWithLogger passes a logger
func StartWithLogger(l logger.LogManager) StartOption {
	return func(o *startOptions) { o.logger = l }
}

// StartWithShutdownTimeout custom shutdown timeout
func StartWithShutdownTimeout(d time.Duration) StartOption {
	return func(o *startOptions) { o.shutdownTimeout = d }
}

// StartWithAddr override listen address (host:port)
func StartWithAddr(addr string) StartOption {
	return func(o *startOptions) { o.addr = addr }
}

// StartWithTLS enables TLS with cert/key files
func StartWithTLS(certFile, keyFile string) StartOption {
	return func(o *startOptions) {
		o.tlsCertFile = certFile
		o.tlsKeyFile = keyFile
	}
}

// StartWithShutdownHook registers fn to run once the server has stopped.
func StartWithShutdownHook(fn func()) StartOption {
	return func(o *startOptions) { o.onShutdown = append(o.onShutdown, fn) }
}

// EngineOption configures NewEngine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	logger          logger.LogManager
	recovery        bool
	corsConfig      middleware.CorsConfig
	prometheus      bool
	collectors      []prometheus.Collector
	tracingService  string
	rateLimitConfig *middleware.RateLimitConfig
	health          map[string]HealthCheck
	addMiddleware   []gin.HandlerFunc
	trustedProxies  []string
}

// WithRateLimit enables per-IP rate limiting.
func WithRateLimit(cfg *middleware.RateLimitConfig) EngineOption {
	return func(e *engineOptions) {
		e.rateLimitConfig = cfg
	}
}

func WithLogger(l logger.LogManager) EngineOption {
	return func(e *engineOptions) { e.logger = l }
}

func WithRecovery(enabled bool) EngineOption {
	return func(e *engineOptions) { e.recovery = enabled }
}

func WithCors(c middleware.CorsConfig) EngineOption {
	return func(e *engineOptions) { e.corsConfig = c }
}

// WithPrometheus serves /metrics. collectors are registered next to the
// HTTP metrics.
func WithPrometheus(enabled bool, collectors ...prometheus.Collector) EngineOption {
	return func(e *engineOptions) {
		e.prometheus = enabled
		e.collectors = append(e.collectors, collectors...)
	}
}

// WithTracing installs the otelgin middleware under serviceName.
func WithTracing(serviceName string) EngineOption {
	return func(e *engineOptions) { e.tracingService = serviceName }
}

// WithHealthCheck adds a named dependency probe to /healthz.
func WithHealthCheck(name string, check HealthCheck) EngineOption {
	return func(e *engineOptions) {
		if e.health == nil {
			e.health = map[string]HealthCheck{}
		}
		e.health[name] = check
	}
}

// WithTrustedProxies lists the proxy addresses or CIDRs whose forwarding
// headers decide the client IP. With none, the peer address is used.
func WithTrustedProxies(proxies []string) EngineOption {
	return func(e *engineOptions) { e.trustedProxies = append(e.trustedProxies, proxies...) }
}

func WithMiddleware(m ...gin.HandlerFunc) EngineOption {
	return func(e *engineOptions) { e.addMiddleware = append(e.addMiddleware, m...) }
}
