package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"coinm/pkg/errors"
)

type Config struct {
	App           AppConfig
	Binance       BinanceConfig
	RateLimit     RateLimitConfig
	Retry         RetryConfig
	Redis         RedisConfig
	Postgres      PostgresConfig
	Kafka         KafkaConfig
	ErrorTracking ErrorTrackingConfig
	Metrics       MetricsConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"coinm"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Version  string `envconfig:"APP_VERSION" default:"dev"`
}

type BinanceConfig struct {
	APIKey    string `envconfig:"BINANCE_API_KEY"`
	SecretKey string `envconfig:"BINANCE_SECRET_KEY"`
	Testnet   bool   `envconfig:"BINANCE_TESTNET" default:"false"`

	// BaseURL overrides the category default, mainly for proxies and tests
	BaseURL string `envconfig:"BINANCE_BASE_URL"`

	RecvWindow       time.Duration `envconfig:"BINANCE_RECV_WINDOW" default:"5s"`
	HTTPTimeout      time.Duration `envconfig:"BINANCE_HTTP_TIMEOUT" default:"10s"`
	TimeSyncInterval time.Duration `envconfig:"BINANCE_TIME_SYNC_INTERVAL" default:"1h"` // 0 disables background sync
	ExchangeInfoTTL  time.Duration `envconfig:"BINANCE_EXCHANGE_INFO_TTL" default:"5m"`
}

// HasCredentials reports whether signed endpoints can be used
func (c BinanceConfig) HasCredentials() bool {
	return c.APIKey != "" && c.SecretKey != ""
}

// Category returns the routing category used for base urls and order id prefixes
func (c BinanceConfig) Category() string {
	if c.Testnet {
		return "coinmtest"
	}
	return "coinm"
}

type RateLimitConfig struct {
	Enabled         bool    `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	WeightPerMinute int     `envconfig:"RATE_LIMIT_WEIGHT_PER_MINUTE" default:"2400"`
	OrdersPerMinute int     `envconfig:"RATE_LIMIT_ORDERS_PER_MINUTE" default:"1200"`
	WeightWarnRatio float64 `envconfig:"RATE_LIMIT_WEIGHT_WARN_RATIO" default:"0.8"`
}

type RetryConfig struct {
	MaxRetries   int           `envconfig:"RETRY_MAX_RETRIES" default:"3"`
	InitialDelay time.Duration `envconfig:"RETRY_INITIAL_DELAY" default:"100ms"`
	MaxDelay     time.Duration `envconfig:"RETRY_MAX_DELAY" default:"5s"`
	Strategy     string        `envconfig:"RETRY_STRATEGY" default:"exponential"`
}

type RedisConfig struct {
	Enabled  bool   `envconfig:"REDIS_ENABLED" default:"false"`
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type PostgresConfig struct {
	Enabled  bool   `envconfig:"POSTGRES_ENABLED" default:"false"`
	Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:"coinm"`
	Password string `envconfig:"POSTGRES_PASSWORD"`
	Database string `envconfig:"POSTGRES_DB" default:"coinm"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"10"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type KafkaConfig struct {
	Enabled bool     `envconfig:"KAFKA_ENABLED" default:"false"`
	Brokers []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"false"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

type MetricsConfig struct {
	Enabled bool   `envconfig:"METRICS_ENABLED" default:"false"`
	Addr    string `envconfig:"METRICS_ADDR" default:":9102"`
}

// Load reads configuration from environment variables.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	b := c.Binance
	if (b.APIKey == "") != (b.SecretKey == "") {
		return errors.NewValidationError("BINANCE_API_KEY", "api key and secret key must be set together", "")
	}
	if b.RecvWindow <= 0 || b.RecvWindow > time.Minute {
		return errors.NewValidationError("BINANCE_RECV_WINDOW", "must be within (0, 60s]", b.RecvWindow)
	}
	if c.ErrorTracking.Enabled && c.ErrorTracking.SentryDSN == "" {
		return errors.NewValidationError("SENTRY_DSN", "required when error tracking is enabled", "")
	}
	return nil
}
