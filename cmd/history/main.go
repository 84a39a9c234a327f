package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"fundarb/internal/application/usecase/history"
	"fundarb/internal/infrastructure/config"
	"fundarb/internal/infrastructure/logger"
	"fundarb/internal/infrastructure/svc"
)

func main() {
	logger.Setup()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("load .env failed")
	}

	cfg, err := config.LoadOrDefault(config.DefaultPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", config.DefaultPath).Msg("load config failed")
	}
	logger.Configure(logger.Options{Level: cfg.App.LogLevel, File: cfg.App.LogFile})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sc := svc.New(ctx, cfg)
	defer sc.Close()

	if _, err := history.NewService(sc.BuildHistoryServiceDeps()).Run(ctx); err != nil {
		// 缺少扫描结果不算失败，退出码保持 0
		if errors.Is(err, history.ErrInputNotFound) {
			_ = sc.Sink.WriteLine("[history] ERROR: " + err.Error())
			return
		}
		log.Error().Err(err).Msg("history update failed")
	}
}
