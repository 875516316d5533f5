// ShopRec - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shoprec

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/shoprec/internal/recommend"
)

// rebuildTimeout bounds one maintenance rebuild cycle.
const rebuildTimeout = 10 * time.Minute

// IndexMaintainer is the engine surface the maintenance loop drives.
type IndexMaintainer interface {
	// RestoreFromSnapshot loads a persisted index snapshot, reporting
	// whether one was found.
	RestoreFromSnapshot() (bool, error)

	// RebuildIndex rebuilds the index from full order history.
	RebuildIndex(ctx context.Context) error
}

// MaintenanceService owns the index lifecycle off the request path: a
// snapshot restore on startup, an initial rebuild when configured or
// when no snapshot exists, and periodic consistency rebuilds.
type MaintenanceService struct {
	engine IndexMaintainer
	config recommend.MaintenanceConfig
	logger zerolog.Logger
}

// NewMaintenanceService creates the maintenance loop.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewMaintenanceService(engine IndexMaintainer, cfg recommend.MaintenanceConfig, logger zerolog.Logger) *MaintenanceService {
	return &MaintenanceService{
		engine: engine,
		config: cfg,
		logger: logger.With().Str("service", "index-maintenance").Logger(),
	}
}

// Serve implements suture.Service.
func (s *MaintenanceService) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("rebuild_on_startup", s.config.RebuildOnStartup).
		Dur("rebuild_interval", s.config.RebuildInterval).
		Msg("index maintenance starting")

	restored, err := s.engine.RestoreFromSnapshot()
	if err != nil {
		s.logger.Warn().Err(err).Msg("snapshot restore failed, falling back to rebuild")
	}
	if restored {
		s.logger.Info().Msg("index restored from snapshot")
	}

	if !restored || s.config.RebuildOnStartup {
		if err := s.rebuild(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("startup rebuild failed (will retry on schedule)")
		}
	}

	if s.config.RebuildInterval <= 0 {
		s.logger.Info().Msg("periodic rebuilds disabled")
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.config.RebuildInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("index maintenance shutting down")
			return ctx.Err()

		case <-ticker.C:
			if err := s.rebuild(ctx); err != nil {
				s.logger.Warn().Err(err).Msg("scheduled rebuild failed")
			}
		}
	}
}

func (s *MaintenanceService) rebuild(ctx context.Context) error {
	rebuildCtx, cancel := context.WithTimeout(ctx, rebuildTimeout)
	defer cancel()

	start := time.Now()
	if err := s.engine.RebuildIndex(rebuildCtx); err != nil {
		return err
	}

	s.logger.Info().
		Dur("duration", time.Since(start)).
		Msg("index rebuild complete")
	return nil
}

// String implements fmt.Stringer for suture log messages.
func (s *MaintenanceService) String() string {
	return "index-maintenance"
}
