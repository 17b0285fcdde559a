package config

import (
	"log"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Logger *zap.Logger

// InitLogger builds the process-wide zap logger. APP_ENV=production switches
// to the JSON encoder; everything else gets the development console encoder.
func InitLogger(env, level string) {
	var zcfg zap.Config
	if strings.EqualFold(env, "production") {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err == nil && level != "" {
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	var err error
	Logger, err = zcfg.Build()
	if err != nil {
		log.Fatalf("Failed to initialize zap logger: %v", err)
	}

	Logger.Info("✅ Zap logger initialized", zap.String("env", env))
}

// SyncLogger flushes buffered entries; call it on shutdown.
func SyncLogger() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}
