package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the environment prefix hr-console reads overrides from,
// e.g. HRCONSOLE_REDIS_ADDR overrides redis.addr.
const EnvPrefix = "HRCONSOLE"

// Config is the wrapper around viper with extra helpers.
type Config struct {
	*viper.Viper

	sensitiveKeys map[string]struct{}
	onChange      func()
	fileSet       bool
}

// Option is a functional option for New.
type Option func(*Config) error

// New creates a Config instance. Use options to customize behavior.
// Example:
//
//	cfg := config.New(
//	  config.WithDefaults(config.Defaults()),
//	  config.WithFile("config/hrconsole.yaml"),
//	  config.WithEnv(config.EnvPrefix),
//	  config.WithPFlags(pflag.CommandLine),
//	)
func New(opts ...Option) *Config {
	cfg := &Config{
		Viper:         viper.New(),
		sensitiveKeys: map[string]struct{}{},
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			log.Fatalf("config: applying option failed: %v", err)
		}
	}

	if cfg.fileSet {
		if err := cfg.ReadInConfig(); err != nil {
			// non-fatal; env, flags and defaults still apply
			log.Printf("config: read config warning: %v", err)
		}
	}

	return cfg
}

// Defaults returns the default settings of hr-console.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"service.name":                 "hr-console",
		"service.endpoint":             "0.0.0.0",
		"service.port":                 "8080",
		"log.level":                    "info",
		"log.encoding":                 "console",
		"database.host":                "localhost",
		"database.port":                "5432",
		"database.name":                "hrconsole",
		"database.sslmode":             "disable",
		"database.migrations":          "./migrations",
		"redis.addr":                   "localhost:6379",
		"redis.prefix":                 "hrconsole:",
		"kafka.topic":                  "hr.role-changes",
		"kafka.group_id":               "hr-console",
		"session.ttl":                  "8h",
		"session.cookie":               "hr_session",
		"session.store":                "redis",
		"session.breaker.max_failures": 5,
		"session.breaker.timeout":      "30s",
		"auth.jwks_ttl":                "10m",
		"observability.enabled":        false,
	}
}

/* ---------------------------
   Options
----------------------------*/

// WithDefaults sets default values (applied first)
func WithDefaults(defaults map[string]interface{}) Option {
	return func(c *Config) error {
		for k, v := range defaults {
			c.SetDefault(k, v)
		}
		return nil
	}
}

// WithFile sets an exact config file; the extension determines the format.
func WithFile(path string) Option {
	return func(c *Config) error {
		if path == "" {
			return nil
		}
		c.SetConfigFile(path)
		ext := strings.TrimPrefix(filepath.Ext(path), ".")
		if ext != "" {
			c.SetConfigType(ext)
		}
		c.fileSet = true
		return nil
	}
}

// WithConfigNamePaths sets config name (without ext) and search paths.
func WithConfigNamePaths(name string, paths ...string) Option {
	return func(c *Config) error {
		if name == "" {
			return nil
		}
		c.SetConfigName(name)
		if len(paths) == 0 {
			paths = []string{".", "./config", "/etc/hr-console"}
		}
		for _, p := range paths {
			c.AddConfigPath(p)
		}
		c.fileSet = true
		return nil
	}
}

// WithEnv enables environment variable overrides.
// prefix = "APP" means APP_FOO will override foo.
func WithEnv(prefix string) Option {
	return func(c *Config) error {
		if prefix != "" {
			c.SetEnvPrefix(prefix)
		}
		c.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
		c.AutomaticEnv()
		return nil
	}
}

// WithPFlags binds a pflag.FlagSet to viper. If flags are nil, we bind the default command line.
func WithPFlags(flags *pflag.FlagSet) Option {
	return func(c *Config) error {
		if flags == nil {
			flags = pflag.CommandLine
		}
		// flags are defined by the application; here we only bind them
		return c.BindPFlags(flags)
	}
}

// WithDotEnv reads key=val lines from a .env file (path) and merges into viper.
// If path is empty, attempts ".env" in working directory.
func WithDotEnv(path string) Option {
	return func(c *Config) error {
		if path == "" {
			path = ".env"
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil
		}
		envV := viper.New()
		envV.SetConfigFile(path)
		envV.SetConfigType("env")
		if err := envV.ReadInConfig(); err != nil {
			return err
		}
		for _, k := range envV.AllKeys() {
			c.Set(k, envV.Get(k))
		}
		return nil
	}
}

// WithWatch enables hot-reload. onChange will be called after a successful reload.
func WithWatch(onChange func()) Option {
	return func(c *Config) error {
		if !c.fileSet {
			return nil
		}
		c.onChange = onChange
		c.OnConfigChange(func(e fsnotify.Event) {
			log.Printf("config: file changed: %s", e.Name)
			if c.onChange != nil {
				c.onChange()
			}
		})
		c.WatchConfig()
		return nil
	}
}

// WithSensitiveKeys registers keys which should be redacted when logging.
func WithSensitiveKeys(keys ...string) Option {
	return func(c *Config) error {
		for _, k := range keys {
			c.sensitiveKeys[strings.ToLower(k)] = struct{}{}
		}
		return nil
	}
}

/* ---------------------------
   Typed getters with defaults
----------------------------*/

// GetStringD returns string or def
func (c *Config) GetStringD(key, def string) string {
	if val := c.GetString(key); val != "" {
		return val
	}
	return def
}

// GetIntD returns int or def
func (c *Config) GetIntD(key string, def int) int {
	if c.IsSet(key) {
		return c.GetInt(key)
	}
	return def
}

// GetBoolD returns bool or def
func (c *Config) GetBoolD(key string, def bool) bool {
	if c.IsSet(key) {
		return c.GetBool(key)
	}
	return def
}

// GetDurationD returns time.Duration or def
func (c *Config) GetDurationD(key string, def time.Duration) time.Duration {
	if c.IsSet(key) {
		if d := c.GetDuration(key); d > 0 {
			return d
		}
	}
	return def
}

// GetStringsD returns a string slice or def. Comma separated strings
// (as they arrive from env vars) are split and trimmed.
func (c *Config) GetStringsD(key string, def []string) []string {
	if !c.IsSet(key) {
		return def
	}
	raw := c.GetStringSlice(key)
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

/* ---------------------------
   Validation & Utilities
----------------------------*/

// ValidateRequired ensures keys exist and are non-empty.
func (c *Config) ValidateRequired(keys ...string) error {
	var missing []string
	for _, k := range keys {
		if !c.IsSet(k) || c.GetString(k) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required keys: %v", strings.Join(missing, ", "))
	}
	return nil
}

// MaskedSettings returns every effective key with sensitive values redacted.
// Keys are flattened (database.password, not database -> password).
func (c *Config) MaskedSettings() map[string]interface{} {
	redacted := map[string]interface{}{}
	for _, k := range c.AllKeys() {
		if _, ok := c.sensitiveKeys[k]; ok {
			redacted[k] = "***REDACTED***"
			continue
		}
		redacted[k] = c.Get(k)
	}
	return redacted
}
