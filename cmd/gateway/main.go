package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shareit/internal/config"
	"shareit/internal/gateway"
	"shareit/internal/logging"
	"shareit/internal/repository"

	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	client := gateway.NewServerClient(cfg.Gateway.ServerURL, time.Duration(cfg.Gateway.TimeoutSec)*time.Second)

	if cfg.Redis.Address != "" {
		redisClient := repository.NewRedisClient(cfg.Redis)
		if err := repository.Ping(context.Background(), redisClient); err != nil {
			logger.Warn().Err(err).Msg("redis connection failed, continuing without cache")
			_ = redisClient.Close()
		} else {
			defer redisClient.Close()
			client.UseRedisCache(redisClient, time.Duration(cfg.Gateway.CacheTTL)*time.Second)
			logger.Info().Str("addr", cfg.Redis.Address).Msg("redis cache connected")
		}
	}

	gw := gateway.NewGateway(cfg.Gateway, client, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := gw.Start(); err != nil {
			logger.Error().Err(err).Msg("gateway stopped")
		}
	}()

	logger.Info().Int("port", cfg.Gateway.Port).Str("server_url", cfg.Gateway.ServerURL).Msg("gateway started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := gw.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("gateway shutdown")
	}

	logger.Info().Msg("gateway stopped")
	return nil
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "gateway-main").Logger()

	return cfg, logger, closer, nil
}
