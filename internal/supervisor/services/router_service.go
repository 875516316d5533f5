// ShopRec - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shoprec

package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// EventRouter matches the watermill router lifecycle the wrapper needs.
type EventRouter interface {
	Run(ctx context.Context) error
}

// RouterService runs the order-completion event router under
// supervision. The router blocks in Run until the context is canceled.
type RouterService struct {
	router EventRouter
	logger zerolog.Logger
}

// NewRouterService wraps the given event router.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewRouterService(router EventRouter, logger zerolog.Logger) *RouterService {
	return &RouterService{
		router: router,
		logger: logger.With().Str("service", "event-router").Logger(),
	}
}

// Serve implements suture.Service.
func (s *RouterService) Serve(ctx context.Context) error {
	s.logger.Info().Msg("event router starting")

	err := s.router.Run(ctx)
	if ctx.Err() != nil {
		s.logger.Info().Msg("event router shutting down")
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("event router failed: %w", err)
	}
	return nil
}

// String implements fmt.Stringer for suture log messages.
func (s *RouterService) String() string {
	return "event-router"
}
