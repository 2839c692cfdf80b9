package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"

	"github.com/milan604/hr-console/pkg/auth"
	"github.com/milan604/hr-console/pkg/config"
	"github.com/milan604/hr-console/pkg/directory"
	"github.com/milan604/hr-console/pkg/events"
	corehttp "github.com/milan604/hr-console/pkg/http"
	"github.com/milan604/hr-console/pkg/logger"
	"github.com/milan604/hr-console/pkg/observability"
	"github.com/milan604/hr-console/pkg/permissions"
	"github.com/milan604/hr-console/pkg/postgres"
	"github.com/milan604/hr-console/pkg/roles"
	"github.com/milan604/hr-console/pkg/server"
	middleware "github.com/milan604/hr-console/pkg/server/middleware"
	"github.com/milan604/hr-console/pkg/session"
	"github.com/milan604/hr-console/pkg/validator"
)

type app struct {
	cfg   *config.Config
	log   logger.LogManager
	obs   observability.ObservabilityIface
	db    *postgres.DB
	redis redis.UniversalClient
	perms *permissions.Store

	publisher events.Publisher
	consumer  *events.Consumer
	closers   []func() error

	rateLimit *middleware.RateLimitConfig
	authz     *auth.Authorizer
	handler   *directory.Handler
	breaker   *session.BreakerStore
}

func newApp(ctx context.Context, cfg *config.Config, log logger.LogManager) (_ *app, err error) {
	a := &app{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			if cerr := a.close(); cerr != nil {
				log.WarnF("cleanup after failed start: %v", cerr)
			}
		}
	}()

	obs, err := observability.New(log, cfg)
	if err != nil {
		return nil, fmt.Errorf("observability: %w", err)
	}
	a.obs = obs

	a.db, err = postgres.New(ctx, postgres.ConfigFrom(cfg), log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.db.Close)
	if err := a.db.RunMigrationsUp(cfg.GetString("database.migrations")); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}

	roleCatalog := roles.DefaultCatalog()
	roleRepo := roles.NewGormRepository(a.db.Client, obs)
	if err := roles.Bootstrap(ctx, roleRepo, roleCatalog, log); err != nil {
		return nil, err
	}

	store, err := a.sessionStore(ctx)
	if err != nil {
		return nil, err
	}
	manager := session.NewManager(store, roleRepo,
		session.WithTTL(cfg.GetDurationD("session.ttl", session.DefaultTTL)),
		session.WithLogger(log),
	)
	refresher := session.NewRefresher(manager, log)

	a.wireEvents(refresher)
	roleSvc := roles.NewService(roleRepo, roleCatalog, a.publisher, log)

	a.perms = permissions.NewStore(nil)
	if err := permissions.Bootstrap(ctx, directory.Permissions(), cfg, log, a.perms); err != nil {
		return nil, err
	}

	verifier, err := auth.NewVerifierFromConfig(cfg, corehttp.NewClient(corehttp.WithLogger(log)))
	if err != nil {
		return nil, fmt.Errorf("auth verifier: %w", err)
	}
	a.authz = auth.NewAuthorizer(verifier, manager, a.perms,
		auth.WithLogger(log),
		auth.WithKnownRoles(roleCatalog.Contains),
		auth.WithCookie(auth.CookieConfig{
			Name:     cfg.GetStringD("session.cookie", "hr_session"),
			Path:     "/",
			Domain:   cfg.GetString("session.cookie_domain"),
			Secure:   cfg.GetBoolD("session.cookie_secure", true),
			SameSite: http.SameSiteLaxMode,
		}),
	)
	a.handler = directory.NewHandler(
		directory.NewGormRepository(a.db.Client, obs),
		roleSvc, a.authz, validator.New(), log,
	)
	a.rateLimit = middleware.RateLimitConfigFrom(cfg)
	return a, nil
}

// sessionStore picks redis or memory from session.store and puts a circuit
// breaker in front of it.
func (a *app) sessionStore(ctx context.Context) (session.Store, error) {
	var store session.Store
	switch kind := a.cfg.GetStringD("session.store", "redis"); kind {
	case "memory":
		a.log.WarnF("using in-memory session store; sessions are lost on restart")
		store = session.NewMemoryStore()
	case "redis":
		a.redis = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    a.cfg.GetStringsD("redis.addr", []string{"localhost:6379"}),
			Password: a.cfg.GetString("redis.password"),
			DB:       a.cfg.GetInt("redis.db"),
		})
		a.closers = append(a.closers, a.redis.Close)
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis: ping: %w", err)
		}
		store = session.NewRedisStore(a.redis, a.cfg.GetString("redis.prefix"), a.cfg.GetDurationD("session.ttl", session.DefaultTTL))
	default:
		return nil, fmt.Errorf("unknown session.store %q", kind)
	}

	a.breaker = session.NewBreakerStore(store, session.BreakerConfig{
		ConsecutiveFailures: uint32(a.cfg.GetIntD("session.breaker.max_failures", 5)),
		Timeout:             a.cfg.GetDurationD("session.breaker.timeout", 0),
		OnStateChange: func(name string, from, to gobreaker.State) {
			a.log.WarnF("circuit breaker %s: %s -> %s", name, from, to)
		},
	})
	return a.breaker, nil
}

// wireEvents publishes role changes on Kafka when kafka.brokers is set and
// consumes them back into the session store. Without brokers the changes
// are applied in process.
func (a *app) wireEvents(refresher *session.Refresher) {
	brokers := a.cfg.GetStringsD("kafka.brokers", nil)
	if len(brokers) == 0 {
		a.log.InfoF("kafka.brokers not set, applying role changes in process")
		a.publisher = events.LocalPublisher{Handler: refresher.HandleRoleChange}
		return
	}
	kc := events.KafkaConfig{
		Brokers: brokers,
		Topic:   a.cfg.GetString("kafka.topic"),
		GroupID: a.cfg.GetString("kafka.group_id"),
	}
	pub := events.NewKafkaPublisher(events.NewKafkaWriter(kc), a.log)
	a.closers = append(a.closers, pub.Close)
	a.publisher = pub
	a.consumer = events.NewConsumer(events.NewKafkaReader(kc), refresher.HandleRoleChange, a.log,
		observability.NewMetrics(a.cfg.GetStringD("service.name", "hr-console")))
}

// reload re-applies settings that can change while running.
func (a *app) reload() {
	if err := a.log.SetLogLevel(a.cfg.GetString("log.level")); err != nil {
		a.log.WarnF("config reload: %v", err)
	}
	if _, err := a.perms.Load(context.Background()); err != nil {
		a.log.ErrorF("config reload: access rules: %v", err)
		return
	}
	a.log.InfoF("config reloaded: %d access rules", a.perms.Count())
}

func (a *app) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	engine := server.NewEngine(
		server.WithLogger(a.log),
		server.WithRecovery(true),
		server.WithTrustedProxies(a.cfg.GetStringsD("server.trusted_proxies", nil)),
		server.WithTracing(a.cfg.GetStringD("service.name", "hr-console")),
		server.WithCors(middleware.CorsConfigFrom(a.cfg)),
		server.WithRateLimit(a.rateLimit),
		server.WithPrometheus(a.cfg.GetBoolD("server.metrics", true), a.authz.Collector()),
		server.WithHealthCheck("postgres", a.db.Ping),
		server.WithHealthCheck("sessions", a.sessionsHealthy),
	)
	api := engine.Group("/api/v1")
	api.POST("/sessions", a.authz.Login())
	api.DELETE("/sessions", a.authz.Logout())
	api.GET("/me", a.authz.RequireSession(), a.authz.Me())
	api.GET("/admin/access-rules", a.authz.RequireSession(), a.authz.RequireRoles(roles.Admin), a.authz.AccessRules())
	a.handler.Register(api)

	var wg sync.WaitGroup
	if a.consumer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.consumer.Run(ctx); err != nil {
				a.log.ErrorF("role change consumer stopped: %v", err)
			}
		}()
	}

	err := server.Start(ctx, engine,
		server.StartWithConfig(a.cfg),
		server.StartWithLogger(a.log),
		server.StartWithTLS(a.cfg.GetString("service.tls_cert"), a.cfg.GetString("service.tls_key")),
		server.StartWithShutdownHook(cancel),
	)
	cancel()
	wg.Wait()
	a.rateLimit.Stop()
	return errors.Join(err, a.close())
}

func (a *app) sessionsHealthy(ctx context.Context) error {
	if a.breaker != nil && a.breaker.State() == gobreaker.StateOpen {
		return errors.New("session store circuit open")
	}
	if a.redis != nil {
		return a.redis.Ping(ctx).Err()
	}
	return nil
}

func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	if a.obs != nil {
		if err := a.obs.Shutdown(context.Background()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
