package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the typed view over the environment.
type Config struct {
	AppPort  string
	AppEnv   string
	LogLevel string

	DBDriver string
	DBDSN    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret    string
	ExtensionKey string

	MinContentLength  int
	RetryDelay        time.Duration
	SweepCron         string
	SweepStaleAfter   time.Duration
	SweepBatchSize    int
	DeliveryBatchSize int
	SyncRateLimit     float64

	SlackWebhookURL string
	AnthropicAPIKey string
	AnthropicModel  string
	SentryDSN       string
}

var Cfg *Config

// Init loads .env (when present) and reads configuration through viper.
// It does not log: the logger itself is configured from the result.
func Init() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_DRIVER", "mysql")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("MIN_CONTENT_LENGTH", 10)
	v.SetDefault("RETRY_DELAY", time.Minute)
	v.SetDefault("SWEEP_CRON", "*/5 * * * *")
	v.SetDefault("SWEEP_STALE_AFTER", time.Hour)
	v.SetDefault("SWEEP_BATCH_SIZE", 500)
	v.SetDefault("DELIVERY_BATCH_SIZE", 100)
	v.SetDefault("SYNC_RATE_LIMIT", 20.0)
	v.SetDefault("ANTHROPIC_MODEL", "claude-3-5-haiku-latest")

	cfg := &Config{
		AppPort:           v.GetString("APP_PORT"),
		AppEnv:            v.GetString("APP_ENV"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		DBDriver:          strings.ToLower(v.GetString("DB_DRIVER")),
		DBDSN:             v.GetString("DB_DSN"),
		RedisAddr:         v.GetString("REDIS_ADDR"),
		RedisPassword:     v.GetString("REDIS_PASSWORD"),
		RedisDB:           v.GetInt("REDIS_DB"),
		JWTSecret:         v.GetString("JWT_SECRET"),
		ExtensionKey:      v.GetString("EXTENSION_KEY"),
		MinContentLength:  v.GetInt("MIN_CONTENT_LENGTH"),
		RetryDelay:        v.GetDuration("RETRY_DELAY"),
		SweepCron:         v.GetString("SWEEP_CRON"),
		SweepStaleAfter:   v.GetDuration("SWEEP_STALE_AFTER"),
		SweepBatchSize:    v.GetInt("SWEEP_BATCH_SIZE"),
		DeliveryBatchSize: v.GetInt("DELIVERY_BATCH_SIZE"),
		SyncRateLimit:     v.GetFloat64("SYNC_RATE_LIMIT"),
		SlackWebhookURL:   v.GetString("SLACK_WEBHOOK_URL"),
		AnthropicAPIKey:   v.GetString("ANTHROPIC_API_KEY"),
		AnthropicModel:    v.GetString("ANTHROPIC_MODEL"),
		SentryDSN:         v.GetString("SENTRY_DSN"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	Cfg = cfg
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DBDSN == "" {
		return errors.New("DB_DSN is not set")
	}
	switch c.DBDriver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	if c.MinContentLength < 1 {
		return errors.New("MIN_CONTENT_LENGTH must be positive")
	}
	if c.SweepStaleAfter <= 0 {
		return errors.New("SWEEP_STALE_AFTER must be positive")
	}
	return nil
}
