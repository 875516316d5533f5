// ShopRec - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shoprec

// Package main is the entry point for the ShopRec server.
//
// ShopRec serves product recommendations to a storefront in three
// contexts: frequently-bought-together and similar products for a
// product page, cross-sell for a cart, and personalized-by-history
// browsing with a featured cold-start fallback.
//
// Startup order:
//
//  1. Configuration (koanf: defaults, optional YAML file, environment)
//  2. Logging (zerolog)
//  3. DuckDB catalog and order storage
//  4. Badger index snapshot store
//  5. Recommendation engine behind a catalog circuit breaker
//  6. Order-completion event pipeline (watermill; inproc or NATS)
//  7. Supervision tree (suture): maintenance, event router, HTTP server
//
// The server shuts down gracefully on SIGINT and SIGTERM.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/shoprec/internal/api"
	"github.com/tomtom215/shoprec/internal/config"
	"github.com/tomtom215/shoprec/internal/database"
	"github.com/tomtom215/shoprec/internal/events"
	"github.com/tomtom215/shoprec/internal/logging"
	"github.com/tomtom215/shoprec/internal/recommend/cooccur"
	"github.com/tomtom215/shoprec/internal/recommend/engine"
	"github.com/tomtom215/shoprec/internal/supervisor"
	"github.com/tomtom215/shoprec/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("events_transport", cfg.Events.Transport).
		Bool("events_enabled", cfg.Events.Enabled).
		Msg("Starting ShopRec")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	snapshots, err := cooccur.OpenStore(cfg.Database.SnapshotPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open index snapshot store")
	}
	defer func() {
		if err := snapshots.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing snapshot store")
		}
	}()

	// All catalog and order-history reads go through the circuit
	// breaker; an open breaker degrades recommendations to empty
	// results instead of failing requests.
	breaker := database.NewBreakerCatalog(db, db)

	eng, err := engine.New(cfg.Recommend, breaker, breaker, nil, logging.Logger())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create recommendation engine")
	}
	eng.SetSnapshotStore(snapshots)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	tree.AddDataService(services.NewMaintenanceService(eng, cfg.Recommend.Maintenance, logging.Logger()))

	// Non-nil only when events are enabled; a nil publisher turns the
	// order intake endpoint into a 503.
	var orderPublisher api.OrderPublisher

	if cfg.Events.Enabled {
		pubsub, err := events.NewPubSub(&cfg.Events, events.NewWatermillLogger())
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to create event transport")
		}
		defer func() {
			if err := pubsub.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing event transport")
			}
		}()

		router, err := events.NewRouter(&cfg.Events, events.NewWatermillLogger())
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to create event router")
		}

		consumer := events.NewConsumer(eng, db)
		consumer.Register(router, cfg.Events.Topic, pubsub.Subscriber)
		orderPublisher = events.NewPublisher(pubsub.Publisher, cfg.Events.Topic)

		tree.AddMessagingService(services.NewRouterService(router, logging.Logger()))
		logging.Info().
			Str("topic", cfg.Events.Topic).
			Str("transport", cfg.Events.Transport).
			Msg("Order event consumer registered")
	} else {
		logging.Info().Msg("Order events disabled; index updates via rebuilds only")
	}

	handlers := api.NewHandlers(eng, db, orderPublisher, cfg.API.MaxBodyBytes)
	server := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      api.NewRouter(cfg, handlers),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain until the supervisor has fully stopped.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Server stopped gracefully")
}
