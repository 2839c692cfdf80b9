package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/milan604/hr-console/pkg/config"
	"github.com/milan604/hr-console/pkg/logger"
)

type Config struct {
	Host     string
	Port     string
	Name     string
	Username string
	Password string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// ConfigFrom reads the database.* keys.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Host:            cfg.GetStringD("database.host", "localhost"),
		Port:            cfg.GetStringD("database.port", "5432"),
		Name:            cfg.GetStringD("database.name", "hrconsole"),
		Username:        cfg.GetString("database.username"),
		Password:        cfg.GetString("database.password"),
		SSLMode:         cfg.GetStringD("database.sslmode", "disable"),
		MaxOpenConns:    cfg.GetIntD("database.max_open_conns", 20),
		MaxIdleConns:    cfg.GetIntD("database.max_idle_conns", 5),
		ConnMaxLifetime: cfg.GetDurationD("database.conn_max_lifetime", 30*time.Minute),
	}
}

// DSN returns the URL form used by golang-migrate.
func (c Config) DSN() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Username, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.Name,
		RawQuery: "sslmode=" + url.QueryEscape(sslmode),
	}
	return u.String()
}

type DB struct {
	Client *gorm.DB
	SQL    *sql.DB
	DSN    string
	log    logger.LogManager
}

// New opens a pooled connection and pings it.
func New(ctx context.Context, cfg Config, log logger.LogManager) (*DB, error) {
	if log == nil {
		log = logger.NewNop()
	}
	dsn := cfg.DSN()
	client, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	sqlDB, err := client.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres: pool: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	log.InfoF("Postgres connected host=%s port=%s db=%s user=%s", cfg.Host, cfg.Port, cfg.Name, cfg.Username)
	return &DB{Client: client, SQL: sqlDB, DSN: dsn, log: log}, nil
}

// Ping checks the connection, used by the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	return db.SQL.PingContext(ctx)
}

func (db *DB) Close() error {
	return db.SQL.Close()
}

// maskDSN hides the password component of a URL DSN.
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
