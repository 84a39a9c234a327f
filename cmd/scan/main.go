package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"fundarb/internal/application/usecase/scan"
	"fundarb/internal/infrastructure/config"
	"fundarb/internal/infrastructure/logger"
	"fundarb/internal/infrastructure/svc"
)

func main() {
	logger.Setup()

	// .env 可选
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

	deps, err := sc.BuildScanServiceDeps()
	if err != nil {
		log.Fatal().Err(err).Msg("build scan dependencies failed")
	}

	log.Info().
		Strs("exchanges", cfg.GetEnabledExchanges()).
		Float64("spread_threshold", cfg.Scan.SpreadThreshold).
		Ints("target_hours", cfg.Scan.TargetHours).
		Msg("fundarb scan started")

	run, err := scan.NewService(deps).Run(ctx)
	if err != nil {
		log.Error().Err(err).Str("run", run.ID).Msg("scan failed")
		return
	}
	log.Info().
		Str("run", run.ID).
		Int("quotes", run.Quotes).
		Int("candidates", run.Candidates).
		Int("opportunities", run.Opportunities).
		Dur("elapsed", run.FinishedAt.Sub(run.StartedAt)).
		Msg("scan finished")
}
