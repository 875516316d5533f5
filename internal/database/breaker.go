// ShopRec - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shoprec

package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/shoprec/internal/logging"
	"github.com/tomtom215/shoprec/internal/metrics"
	"github.com/tomtom215/shoprec/internal/recommend"
)

// BreakerCatalog wraps a catalog and order history source with a circuit
// breaker so a struggling database cannot drag every recommendation
// request into its timeout. An open circuit surfaces as
// recommend.ErrUpstreamUnavailable, which the engine degrades to empty
// results.
//
// The breaker uses real time for its interval and timeout calculations;
// tests exercise the wrapped source directly.
type BreakerCatalog struct {
	catalog recommend.CatalogView
	history recommend.OrderHistoryView
	cb      *gobreaker.CircuitBreaker[any]
	name    string
}

const (
	breakerInterval = time.Minute
	breakerTimeout  = 30 * time.Second
)

// NewBreakerCatalog creates a circuit-breaker wrapper around the given
// catalog and order history views.
//
// Circuit breaker configuration:
//   - Max 3 concurrent requests in half-open state
//   - 1 minute measurement window
//   - 30 second timeout before attempting recovery
//   - Opens after 60% failure rate with minimum 10 requests
func NewBreakerCatalog(catalog recommend.CatalogView, history recommend.OrderHistoryView) *BreakerCatalog {
	const cbName = "catalog-db"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    breakerInterval,
		Timeout:     breakerTimeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("Opening catalog circuit breaker")
			}
			return shouldTrip
		},

		// Unknown ids and bad input are caller errors, not upstream
		// failures; they must not trip the circuit.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, recommend.ErrNotFound) ||
				errors.Is(err, recommend.ErrInvalidInput)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := breakerStateString(from)
			toStr := breakerStateString(to)
			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("Catalog circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &BreakerCatalog{catalog: catalog, history: history, cb: cb, name: cbName}
}

// GetProduct implements recommend.CatalogView.
func (b *BreakerCatalog) GetProduct(ctx context.Context, id int) (*recommend.Product, error) {
	result, err := b.execute(func() (any, error) {
		return b.catalog.GetProduct(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return result.(*recommend.Product), nil
}

// ListEligibleProducts implements recommend.CatalogView.
func (b *BreakerCatalog) ListEligibleProducts(ctx context.Context) ([]recommend.Product, error) {
	result, err := b.execute(func() (any, error) {
		return b.catalog.ListEligibleProducts(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.([]recommend.Product), nil
}

// GetProducts implements recommend.CatalogView.
func (b *BreakerCatalog) GetProducts(ctx context.Context, ids []int) ([]recommend.Product, error) {
	result, err := b.execute(func() (any, error) {
		return b.catalog.GetProducts(ctx, ids)
	})
	if err != nil {
		return nil, err
	}
	return result.([]recommend.Product), nil
}

// ListCompletedOrders implements recommend.OrderHistoryView.
func (b *BreakerCatalog) ListCompletedOrders(ctx context.Context) ([]recommend.Order, error) {
	result, err := b.execute(func() (any, error) {
		return b.history.ListCompletedOrders(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.([]recommend.Order), nil
}

func (b *BreakerCatalog) execute(fn func() (any, error)) (any, error) {
	result, err := b.cb.Execute(fn)
	if err == nil {
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
		return result, nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
		return nil, fmt.Errorf("catalog circuit open: %w", recommend.ErrUpstreamUnavailable)
	}

	// ErrNotFound and ErrInvalidInput pass through unchanged so the API
	// can map them to 404/400.
	if errors.Is(err, recommend.ErrNotFound) || errors.Is(err, recommend.ErrInvalidInput) {
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
	return nil, err
}

func breakerStateString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func breakerStateFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
