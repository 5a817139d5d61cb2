package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/moleary1107/etownz-grants-sub006/internal/engine/webhooks"
	"github.com/moleary1107/etownz-grants-sub006/internal/pkg/logger"
	"github.com/moleary1107/etownz-grants-sub006/internal/platform/config"
	"github.com/moleary1107/etownz-grants-sub006/internal/platform/database"
	"github.com/moleary1107/etownz-grants-sub006/internal/platform/repositories"
	"github.com/moleary1107/etownz-grants-sub006/internal/workers"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logger.Init(cfg.Logging)

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	configRepo := repositories.NewWebhookConfigRepository(db)
	deliveryRepo := repositories.NewDeliveryRepository(db)

	dispatcher := webhooks.NewDispatcher(configRepo, deliveryRepo, cfg.Webhooks)
	scheduler := webhooks.NewScheduler(deliveryRepo, dispatcher, cfg.Webhooks)

	stop := make(chan struct{})

	go workers.RunRetrySweep(scheduler, cfg.Webhooks.SweepInterval, stop)
	go workers.RunRetentionPurge(deliveryRepo, cfg.Webhooks.RetentionDays, stop)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	close(stop)
	log.Info().Msg("worker shutting down")
}
