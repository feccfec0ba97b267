package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Gateway       GatewayConfig       `mapstructure:"gateway"`
	Checkout      CheckoutConfig      `mapstructure:"checkout"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port" validate:"min=1,max=65535"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Source          string        `mapstructure:"source" validate:"required"`
}

// RedisConfig is optional; when URL is empty the rate limiter and the
// idempotency cache stay process-local.
type RedisConfig struct {
	URL       string `mapstructure:"url"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// GatewayConfig tunes the outbound call pipeline. Credentials are not part
// of it: they are read from the gateway_settings table.
type GatewayConfig struct {
	GatewayID          int64         `mapstructure:"gateway_id" validate:"min=1"`
	SandboxURL         string        `mapstructure:"sandbox_url" validate:"omitempty,url"`
	ProductionURL      string        `mapstructure:"production_url" validate:"omitempty,url"`
	SettingsTTL        time.Duration `mapstructure:"settings_ttl"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	MaxAttempts        int           `mapstructure:"max_attempts" validate:"min=0,max=10"`
	BackoffBase        time.Duration `mapstructure:"backoff_base"`
	RateLimitMax       int           `mapstructure:"rate_limit_max" validate:"min=0"`
	RateLimitWindow    time.Duration `mapstructure:"rate_limit_window"`
	IdempotencyTTL     time.Duration `mapstructure:"idempotency_ttl"`
	BreakerMaxFailures uint32        `mapstructure:"breaker_max_failures"`
	BreakerOpenTimeout time.Duration `mapstructure:"breaker_open_timeout"`
}

type CheckoutConfig struct {
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	SweepBatch    int           `mapstructure:"sweep_batch"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required_if=Enabled true"`
}

type LoggingConfig struct {
	Env    string `mapstructure:"env"`
	Level  string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=json text"`
}

// ----------------- ENV LOADING -----------------

func LoadConfigFromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              getEnvAsInt("HTTP_PORT", 8080),
			BaseURL:           getEnv("HTTP_BASE_URL", ""),
			AllowedOrigins:    getEnv("HTTP_ALLOWED_ORIGINS", "*"),
			ReadHeaderTimeout: getEnvAsDuration("HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("HTTP_WRITE_TIMEOUT", 90*time.Second),
		},
		Database: DatabaseConfig{
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			Source:          getEnv("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			URL:       getEnv("REDIS_URL", ""),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "gymstore"),
		},
		Gateway: GatewayConfig{
			GatewayID:          int64(getEnvAsInt("GATEWAY_ID", 1)),
			SandboxURL:         getEnv("GATEWAY_SANDBOX_URL", ""),
			ProductionURL:      getEnv("GATEWAY_PRODUCTION_URL", ""),
			SettingsTTL:        getEnvAsDuration("GATEWAY_SETTINGS_TTL", time.Hour),
			RequestTimeout:     getEnvAsDuration("GATEWAY_REQUEST_TIMEOUT", 30*time.Second),
			MaxAttempts:        getEnvAsInt("GATEWAY_MAX_ATTEMPTS", 3),
			BackoffBase:        getEnvAsDuration("GATEWAY_BACKOFF_BASE", time.Second),
			RateLimitMax:       getEnvAsInt("GATEWAY_RATE_LIMIT_MAX", 100),
			RateLimitWindow:    getEnvAsDuration("GATEWAY_RATE_LIMIT_WINDOW", time.Minute),
			IdempotencyTTL:     getEnvAsDuration("GATEWAY_IDEMPOTENCY_TTL", 5*time.Minute),
			BreakerMaxFailures: uint32(getEnvAsInt("GATEWAY_BREAKER_MAX_FAILURES", 5)),
			BreakerOpenTimeout: getEnvAsDuration("GATEWAY_BREAKER_OPEN_TIMEOUT", 30*time.Second),
		},
		Checkout: CheckoutConfig{
			SessionTTL:    getEnvAsDuration("CHECKOUT_SESSION_TTL", time.Hour),
			SweepInterval: getEnvAsDuration("CHECKOUT_SWEEP_INTERVAL", 5*time.Minute),
			SweepBatch:    getEnvAsInt("CHECKOUT_SWEEP_BATCH", 200),
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: getEnv("METRICS_ENABLED", "true") == "true",
				Path:    getEnv("METRICS_PATH", "/metrics"),
			},
			Logging: LoggingConfig{
				Env:    getEnv("APP_ENV", "production"),
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
	}
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

var configValidator = validator.New()

func (c *Config) Validate() error {
	var errs []string

	if err := configValidator.Struct(c); err != nil {
		errs = append(errs, fmt.Sprintf("config tags: %v", err))
	}

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Gateway.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("gateway config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *GatewayConfig) Validate() error {
	if c.RateLimitMax > 0 && c.RateLimitWindow <= 0 {
		return errors.New("rate_limit_window must be set when rate_limit_max is set")
	}
	if c.BackoffBase < 0 {
		return errors.New("backoff_base cannot be negative")
	}
	return nil
}
