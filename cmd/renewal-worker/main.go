package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lumenai/lumen-api/internal/config"
	"github.com/lumenai/lumen-api/internal/domain/ledger"
	"github.com/lumenai/lumen-api/internal/domain/plan"
	"github.com/lumenai/lumen-api/internal/domain/subscription"
	"github.com/lumenai/lumen-api/internal/pkg/database"
)

const renewalBatchSize = 200

func main() {
	cfg := config.Load()
	setupLogger(cfg)

	log.Info().Msg("Starting renewal-worker")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	ledgerService := ledger.NewService(ledger.NewRepository(db))
	planService := plan.NewService(plan.NewRepository(db), ledgerService)

	// The renewal pass never initiates checkouts, so no payment service is
	// wired in.
	subscriptionService := subscription.NewService(subscription.NewRepository(db), planService, nil, ledgerService)

	runPass := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		start := time.Now()
		renewed, expired, err := subscriptionService.RenewDue(ctx, renewalBatchSize)
		if err != nil {
			log.Error().Err(err).Msg("Renewal pass failed")
			return
		}
		log.Info().
			Int("renewed", renewed).
			Int("expired", expired).
			Dur("took", time.Since(start)).
			Msg("Renewal pass finished")
	}

	c := cron.New()
	if _, err := c.AddFunc("@hourly", runPass); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule renewal pass")
	}
	c.Start()

	// One pass right away so a restart never delays due renewals by an hour
	runPass()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down renewal-worker")
	<-c.Stop().Done()
}

func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		})
	}
}
