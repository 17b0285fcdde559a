package config

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

var RedisClient *redis.Client

// InitRedis connects when REDIS_ADDR is set. Redis only backs the change
// feed, so a missing address leaves RedisClient nil.
func InitRedis(cfg *Config) error {
	if cfg.RedisAddr == "" {
		Logger.Info("REDIS_ADDR not set, change feed disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := client.Ping(ctx).Result()
	if err != nil {
		_ = client.Close()
		return fmt.Errorf("connect redis: %w", err)
	}
	RedisClient = client
	Logger.Info("✅ Connected to Redis", zap.String("addr", cfg.RedisAddr), zap.String("ping", s))
	return nil
}

func CloseRedis() error {
	if RedisClient == nil {
		return nil
	}
	return RedisClient.Close()
}
