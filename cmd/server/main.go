// Command server runs the brand HTTP API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/utafrali/brand-service/internal/app"
	"github.com/utafrali/brand-service/internal/config"
	"github.com/utafrali/brand-service/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		slog.Error("brand service exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, logFile := logger.NewWithFile("brand-service", cfg.LogLevel, logger.FileConfig{
		Path:       cfg.LogFile,
		MaxSizeMB:  100,
		MaxBackups: 5,
		MaxAgeDays: 30,
	})
	defer logFile.Close()
	slog.SetDefault(log)

	log.Info("starting brand service",
		slog.String("environment", cfg.Environment),
		slog.Int("http_port", cfg.HTTPPort),
		slog.Bool("redis_enabled", cfg.RedisEnabled),
		slog.Bool("kafka_enabled", cfg.KafkaEnabled),
		slog.Bool("otel_enabled", cfg.OTELEnabled),
	)

	application, err := app.NewApp(cfg, log)
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		return err
	}

	log.Info("brand service stopped")
	return nil
}
