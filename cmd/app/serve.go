package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	anthropicadapter "postsync/internal/adapters/anthropic"
	dbadapter "postsync/internal/adapters/database"
	"postsync/internal/adapters/httpapi"
	redisadapter "postsync/internal/adapters/redis"
	slackadapter "postsync/internal/adapters/slack"
	"postsync/internal/bridge"
	"postsync/internal/config"
	accountapp "postsync/internal/core/account/service"
	notificationapp "postsync/internal/core/notification/service"
	outcomeapp "postsync/internal/core/outcome/service"
	postapp "postsync/internal/core/post/service"
	contentPort "postsync/internal/ports/content"
	feedPort "postsync/internal/ports/feed"
	notificationPort "postsync/internal/ports/notification"
	"postsync/internal/workers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API with the sweeper and delivery workers",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.Cfg
	logger := config.Logger

	if err := dbadapter.AutoMigrate(config.DB); err != nil {
		return err
	}
	logger.Info("✅ Database migrations completed")

	if err := config.InitRedis(cfg); err != nil {
		return err
	}

	postRepo := dbadapter.NewPostRepositoryDatabase(config.DB)
	accountRepo := dbadapter.NewAccountRepositoryDatabase(config.DB)
	notificationRepo := dbadapter.NewNotificationRepositoryDatabase(config.DB)

	var (
		publisher  feedPort.Publisher = feedPort.Nop{}
		subscriber feedPort.Subscriber
		history    feedPort.History
	)
	if config.RedisClient != nil {
		feedRepo := redisadapter.NewFeedRepositoryRedis(config.RedisClient, logger)
		publisher, subscriber, history = feedRepo, feedRepo, feedRepo
	}

	var generator contentPort.Generator = anthropicadapter.Stub{}
	if cfg.AnthropicAPIKey != "" {
		generator = anthropicadapter.NewGenerator(cfg.AnthropicAPIKey, cfg.AnthropicModel, logger)
	}

	var notifier notificationPort.Notifier = slackadapter.LogNotifier{Logger: logger}
	if cfg.SlackWebhookURL != "" {
		notifier = slackadapter.NewNotifier(cfg.SlackWebhookURL, logger)
	}

	accountSvc := accountapp.NewAccountService(accountRepo, postRepo, logger, []byte(cfg.JWTSecret))
	postSvc := postapp.NewPostService(postRepo, publisher, generator, logger, postapp.Options{
		MinContentLength: cfg.MinContentLength,
		RetryDelay:       cfg.RetryDelay,
	})
	outcomeSvc := outcomeapp.NewOutcomeService(postRepo, publisher, logger, nil)
	notificationSvc := notificationapp.NewNotificationService(notificationRepo)
	hub := bridge.NewHub(logger)
	defer hub.Close()

	health := map[string]httpapi.HealthCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := config.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if config.RedisClient != nil {
		health["redis"] = func(ctx context.Context) error { return config.RedisClient.Ping(ctx).Err() }
	}

	r, err := httpapi.SetupRoutes(httpapi.Deps{
		Accounts:      accountSvc,
		Posts:         postSvc,
		Outcomes:      outcomeSvc,
		Notifications: notificationSvc,
		Bridge:        hub,
		Feed:          subscriber,
		FeedHistory:   history,
		Health:        health,
		ExtensionKey:  cfg.ExtensionKey,
		SyncRateLimit: cfg.SyncRateLimit,
		EnableSentry:  cfg.SentryDSN != "",
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sweeper := workers.NewSweeper(postRepo, publisher, cfg.SweepStaleAfter, cfg.SweepBatchSize, logger)
	go func() {
		if err := sweeper.Run(workerCtx, cfg.SweepCron); err != nil {
			logger.Error("❌ Sweeper stopped", zap.Error(err))
		}
	}()

	deliveryWorker := workers.NewDeliveryWorker(notificationRepo, notifier, cfg.DeliveryBatchSize, logger)
	go deliveryWorker.Run(workerCtx)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("App is running...", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("🛑 Shutting down")
	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	return srv.Shutdown(shutdownCtx)
}
