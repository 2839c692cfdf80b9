package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/milan604/hr-console/pkg/apperr"
	"github.com/milan604/hr-console/pkg/config"
	"github.com/milan604/hr-console/pkg/response"
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitConfig holds per-IP token bucket settings and the limiter state.
type RateLimitConfig struct {
	Enabled         bool
	RPS             float64
	Burst           int
	CleanupInterval time.Duration
	// IdleTTL is how long an idle client keeps its bucket.
	IdleTTL time.Duration

	mu      sync.Mutex
	clients map[string]*client
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

// NewRateLimitConfig creates a RateLimitConfig. A positive cleanupInterval
// starts a janitor goroutine that drops idle clients; call Stop to end it.
func NewRateLimitConfig(enabled bool, rps float64, burst int, cleanupInterval time.Duration) *RateLimitConfig {
	rl := &RateLimitConfig{
		Enabled:         enabled,
		RPS:             rps,
		Burst:           burst,
		CleanupInterval: cleanupInterval,
		IdleTTL:         3 * time.Minute,
		clients:         make(map[string]*client),
		now:             time.Now,
		stop:            make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go rl.cleanupLoop()
	}
	return rl
}

// RateLimitConfigFrom reads server.rate_limit.* keys.
func RateLimitConfigFrom(cfg *config.Config) *RateLimitConfig {
	return NewRateLimitConfig(
		cfg.GetBoolD("server.rate_limit.enabled", false),
		float64(cfg.GetIntD("server.rate_limit.rps", 20)),
		cfg.GetIntD("server.rate_limit.burst", 40),
		cfg.GetDurationD("server.rate_limit.cleanup_interval", time.Minute),
	)
}

func (rl *RateLimitConfig) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	c, ok := rl.clients[ip]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rate.Limit(rl.RPS), rl.Burst)}
		rl.clients[ip] = c
	}
	c.lastSeen = rl.now()
	return c.limiter
}

// prune drops clients idle for longer than IdleTTL and returns how many remain.
func (rl *RateLimitConfig) prune() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-rl.IdleTTL)
	for ip, c := range rl.clients {
		if c.lastSeen.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
	return len(rl.clients)
}

func (rl *RateLimitConfig) cleanupLoop() {
	t := time.NewTicker(rl.CleanupInterval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			rl.prune()
		case <-rl.stop:
			return
		}
	}
}

// Stop ends the janitor goroutine. Safe to call more than once.
func (rl *RateLimitConfig) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

// Middleware enforces the per-IP limit, answering 429 with the error envelope.
// Clients are keyed by gin's ClientIP, so forwarding headers count only when
// the engine trusts the immediate peer as a proxy.
func (rl *RateLimitConfig) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Enabled {
			c.Next()
			return
		}
		if !rl.getLimiter(c.ClientIP()).Allow() {
			response.Abort(c, apperr.New(apperr.ErrorCodeTooMany))
			return
		}
		c.Next()
	}
}
