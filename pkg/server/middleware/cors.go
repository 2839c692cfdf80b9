package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/milan604/hr-console/pkg/config"
)

// CorsConfig defines Cross-Origin Resource Sharing settings for the server.
type CorsConfig struct {
	Enabled          bool
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// DefaultCorsConfig allows the console front-end headers, including the
// session header, from any origin without credentials.
func DefaultCorsConfig() CorsConfig {
	return CorsConfig{
		Enabled:       true,
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Session-ID", HeaderRequestID},
		ExposeHeaders: []string{"X-Session-ID", HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}
}

// CorsConfigFrom reads server.cors.* on top of DefaultCorsConfig.
func CorsConfigFrom(cfg *config.Config) CorsConfig {
	c := DefaultCorsConfig()
	c.Enabled = cfg.GetBoolD("server.cors.enabled", false)
	c.AllowOrigins = cfg.GetStringsD("server.cors.allow_origins", c.AllowOrigins)
	c.AllowCredentials = cfg.GetBoolD("server.cors.allow_credentials", c.AllowCredentials)
	c.MaxAge = cfg.GetDurationD("server.cors.max_age", c.MaxAge)
	return c
}

func (cfg CorsConfig) allowOrigin(origin string) string {
	if slices.Contains(cfg.AllowOrigins, "*") {
		// a wildcard cannot be combined with credentials
		if cfg.AllowCredentials {
			return origin
		}
		return "*"
	}
	if slices.Contains(cfg.AllowOrigins, origin) {
		return origin
	}
	return ""
}

// CORSMiddleware returns a gin.HandlerFunc that applies CORS rules.
// Requests from origins outside AllowOrigins get no CORS headers.
func CORSMiddleware(cfg CorsConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	allowMethods := strings.Join(cfg.AllowMethods, ", ")
	allowHeaders := strings.Join(cfg.AllowHeaders, ", ")
	exposeHeaders := strings.Join(cfg.ExposeHeaders, ", ")
	maxAge := strconv.Itoa(int(cfg.MaxAge.Seconds()))

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowed := cfg.allowOrigin(origin)
		if origin == "" || allowed == "" {
			c.Next()
			return
		}

		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", allowed)
		if allowed != "*" {
			h.Add("Vary", "Origin")
		}
		h.Set("Access-Control-Allow-Methods", allowMethods)
		h.Set("Access-Control-Allow-Headers", allowHeaders)
		if exposeHeaders != "" {
			h.Set("Access-Control-Expose-Headers", exposeHeaders)
		}
		if cfg.AllowCredentials {
			h.Set("Access-Control-Allow-Credentials", "true")
		}
		h.Set("Access-Control-Max-Age", maxAge)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
