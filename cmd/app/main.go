package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"postsync/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "app",
	Short: "postsync schedules LinkedIn posts and tracks their publication",
	Long: `postsync stores scheduled LinkedIn posts, accepts outcome reports from
the publishing browser extension and reconciles posts whose report never
arrived.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Init()
		if err != nil {
			return err
		}
		config.InitLogger(cfg.AppEnv, cfg.LogLevel)
		initSentry(cfg)
		return config.InitDB(cfg)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeResources(config.Logger)
	},
}

func main() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(serveCmd, sweepCmd, migrateCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func initSentry(cfg *config.Config) {
	if cfg.SentryDSN == "" {
		return
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.SentryDSN,
		Environment: cfg.AppEnv,
	}); err != nil {
		config.Logger.Warn("⚠️ Sentry disabled", zap.Error(err))
	}
}

// closeResources flushes the error reporter and closes Redis and the database.
func closeResources(logger *zap.Logger) {
	sentry.Flush(2 * time.Second)

	if err := config.CloseRedis(); err != nil {
		logger.Error("Error closing Redis connection", zap.Error(err))
	}
	if err := config.CloseDB(); err != nil {
		logger.Error("Error closing database connection", zap.Error(err))
	}
	config.SyncLogger()
}
