package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/milan604/hr-console/pkg/config"
	"github.com/milan604/hr-console/pkg/logger"
	"github.com/milan604/hr-console/pkg/observability"
	middleware "github.com/milan604/hr-console/pkg/server/middleware"
)

// NewEngine creates a Gin engine with the standard middleware order and
// mounts /healthz and /version.
func NewEngine(opts ...EngineOption) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	var opt engineOptions
	for _, o := range opts {
		o(&opt)
	}

	logMgr := opt.logger
	if logMgr == nil {
		logMgr = logger.MustNewDefaultLogger()
	}

	if err := engine.SetTrustedProxies(opt.trustedProxies); err != nil {
		logMgr.WarnF("invalid trusted proxies %v, trusting none: %v", opt.trustedProxies, err)
		_ = engine.SetTrustedProxies(nil)
	}

	// recovery goes first so it also covers panics raised in middleware
	if opt.recovery {
		engine.Use(middleware.RecoveryMiddleware(logMgr))
	}

	// 1. Request ID
	engine.Use(middleware.RequestIDMiddleware())

	// 2. Tracing (optional)
	if opt.tracingService != "" {
		engine.Use(observability.GinMiddleware(opt.tracingService))
	}

	// 3. Access and application loggers
	engine.Use(middleware.AccessLoggerMiddleware(logMgr))
	engine.Use(middleware.AppLoggerMiddleware(logMgr))

	// 4. CORS (optional)
	if opt.corsConfig.Enabled {
		engine.Use(middleware.CORSMiddleware(opt.corsConfig))
	}

	// 5. Rate Limiting (optional)
	if opt.rateLimitConfig != nil && opt.rateLimitConfig.Enabled {
		engine.Use(opt.rateLimitConfig.Middleware())
	}

	// 6. Prometheus (optional)
	if opt.prometheus {
		prom := middleware.NewPrometheusCollector("/metrics", opt.collectors...)
		engine.Use(prom.PrometheusMiddleware())
		prom.RegisterMetricsEndpoint(engine)
	}

	// 7. Error Handler
	engine.Use(middleware.ErrorHandlerMiddleware())

	// 8. User-provided middlewares
	for _, m := range opt.addMiddleware {
		engine.Use(m)
	}

	engine.GET("/healthz", healthHandler(opt.health))
	engine.GET("/version", versionHandler)

	return engine
}

func resolveAddress(so *startOptions) string {
	addr := so.addr
	if addr == "" && so.cfg != nil {
		host := so.cfg.GetStringD("service.endpoint", "0.0.0.0")
		port := so.cfg.GetStringD("service.port", "8080")
		addr = net.JoinHostPort(host, port)
	}
	if addr == "" {
		addr = ":8080"
	}
	return addr
}

func serviceBanner(addr string) string {
	svcInfo, err := config.LoadServiceConfig(".serviceconfig")
	if err != nil || svcInfo == nil {
		return fmt.Sprintf("\n==============================\n Service starting on %s\n==============================\n", addr)
	}
	return fmt.Sprintf(
		"\n==============================\n"+
			" Service: %s (%s)\n"+
			" Version: %s\n"+
			"------------------------------\n"+
			" Description: %s\n"+
			" Owner:       %s\n"+
			" Repository:  %s\n"+
			"------------------------------\n"+
			" Listening on: %s\n"+
			"==============================\n",
		svcInfo.ServiceName,
		svcInfo.ServiceCode,
		svcInfo.Version,
		svcInfo.Description,
		svcInfo.Owner,
		svcInfo.Repository,
		addr,
	)
}

func serve(srv *http.Server, ln net.Listener, so *startOptions) error {
	fmt.Print(serviceBanner(srv.Addr))
	if so.tlsCertFile != "" && so.tlsKeyFile != "" {
		for _, f := range []string{so.tlsCertFile, so.tlsKeyFile} {
			if _, err := os.Stat(f); err != nil {
				return fmt.Errorf("tls file: %w", err)
			}
		}
		so.logger.InfoF("server started (TLS) on %s", srv.Addr)
		return srv.ServeTLS(ln, so.tlsCertFile, so.tlsKeyFile)
	}
	so.logger.InfoF("server started on %s", srv.Addr)
	return srv.Serve(ln)
}

// Start runs the HTTP server until ctx is cancelled or the process gets
// SIGINT/SIGTERM, then shuts down gracefully and runs the shutdown hooks.
func Start(ctx context.Context, engine *gin.Engine, opts ...StartOption) error {
	so := &startOptions{shutdownTimeout: 15 * time.Second}
	for _, o := range opts {
		o(so)
	}
	if so.logger == nil {
		so.logger = logger.NewNop()
	}

	addr := resolveAddress(so)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		so.logger.ErrorF("cannot listen on %s: %v", addr, err)
		return err
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- serve(srv, ln, so)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			so.logger.ErrorF("server error: %v", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	so.logger.InfoF("shutdown initiated")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), so.shutdownTimeout)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)
	for _, fn := range so.onShutdown {
		fn()
	}
	if err != nil {
		so.logger.ErrorF("server shutdown error: %v", err)
		return err
	}
	so.logger.InfoF("server stopped gracefully")
	return nil
}
