package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	dbadapter "postsync/internal/adapters/database"
	redisadapter "postsync/internal/adapters/redis"
	"postsync/internal/config"
	feedPort "postsync/internal/ports/feed"
	"postsync/internal/workers"
)

// sweepCmd runs one reconciliation sweep, for an external scheduler.
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one reconciliation sweep and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Cfg
		if err := config.InitRedis(cfg); err != nil {
			config.Logger.Warn("⚠️ Redis unavailable, change events are not published", zap.Error(err))
		}
		var feed feedPort.Publisher = feedPort.Nop{}
		if config.RedisClient != nil {
			feed = redisadapter.NewFeedRepositoryRedis(config.RedisClient, config.Logger)
		}

		sweeper := workers.NewSweeper(
			dbadapter.NewPostRepositoryDatabase(config.DB),
			feed,
			cfg.SweepStaleAfter,
			cfg.SweepBatchSize,
			config.Logger,
		)
		report := sweeper.SweepOnce(cmd.Context())
		config.Logger.Info("✅ Sweep finished",
			zap.Int("posted", report.Posted),
			zap.Int("failed", report.Failed),
			zap.Int("errors", report.Errors))
		return nil
	},
}
