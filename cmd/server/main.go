package main

import (
	"flag"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/moleary1107/etownz-grants-sub006/internal/api"
	"github.com/moleary1107/etownz-grants-sub006/internal/api/handlers"
	"github.com/moleary1107/etownz-grants-sub006/internal/api/middleware"
	"github.com/moleary1107/etownz-grants-sub006/internal/engine/webhooks"
	"github.com/moleary1107/etownz-grants-sub006/internal/pkg/logger"
	"github.com/moleary1107/etownz-grants-sub006/internal/platform/auth"
	"github.com/moleary1107/etownz-grants-sub006/internal/platform/config"
	"github.com/moleary1107/etownz-grants-sub006/internal/platform/database"
	"github.com/moleary1107/etownz-grants-sub006/internal/platform/repositories"
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

	// Repositories
	configRepo := repositories.NewWebhookConfigRepository(db)
	deliveryRepo := repositories.NewDeliveryRepository(db)
	apiKeyRepo := repositories.NewAPIKeyRepository(db)

	// Engine
	dispatcher := webhooks.NewDispatcher(configRepo, deliveryRepo, cfg.Webhooks)
	eventRouter := webhooks.NewEventRouter(configRepo, deliveryRepo, dispatcher, cfg.Webhooks)
	service := webhooks.NewService(configRepo, deliveryRepo)
	stats := webhooks.NewStatsAggregator(deliveryRepo)

	// Auth
	tokenSvc := auth.NewTokenService(cfg.JWT)

	// Handlers
	deps := &api.Dependencies{
		WebhookHandler: handlers.NewWebhookHandler(service, eventRouter, stats),
		EventHandler:   handlers.NewEventHandler(eventRouter),
		APIKeyHandler:  handlers.NewAPIKeyHandler(apiKeyRepo),
		HealthHandler:  handlers.NewHealthHandler(db),
		AuthMiddleware: middleware.NewAuthMiddleware(tokenSvc),
	}
	router := api.NewRouter(deps)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	log.Info().Str("addr", addr).Msg("server starting")
	if err := server.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}
