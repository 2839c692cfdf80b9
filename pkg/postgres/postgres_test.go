package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/milan604/hr-console/pkg/config"
)

func TestConfigDSN(t *testing.T) {
	c := Config{Host: "db", Port: "5432", Name: "hr", Username: "svc", Password: "p@ss word"}
	assert.Equal(t, "postgres://svc:p%40ss%20word@db:5432/hr?sslmode=disable", c.DSN())
}

func TestMaskDSN(t *testing.T) {
	c := Config{Host: "db", Port: "5432", Name: "hr", Username: "svc", Password: "secret", SSLMode: "require"}
	masked := maskDSN(c.DSN())
	assert.NotContains(t, masked, "secret")
	assert.Contains(t, masked, "svc:xxxxx@db:5432/hr")
	assert.Equal(t, "not a url %", maskDSN("not a url %"))
}

func TestConfigFrom(t *testing.T) {
	cfg := config.New(config.WithDefaults(config.Defaults()))
	cfg.Set("database.username", "hr")
	c := ConfigFrom(cfg)
	assert.Equal(t, "localhost", c.Host)
	assert.Equal(t, "5432", c.Port)
	assert.Equal(t, "hr", c.Username)
	assert.Equal(t, 20, c.MaxOpenConns)
}
