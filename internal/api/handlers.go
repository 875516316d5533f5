// ShopRec - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shoprec

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/shoprec/internal/events"
	"github.com/tomtom215/shoprec/internal/logging"
	"github.com/tomtom215/shoprec/internal/recommend"
	"github.com/tomtom215/shoprec/internal/recommend/engine"
)

// rebuildTimeout bounds a background rebuild triggered over HTTP.
const rebuildTimeout = 10 * time.Minute

const defaultMaxBodyBytes = 1 << 20

// HealthChecker reports storage connectivity for the readiness probe.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// OrderPublisher publishes a completed order onto the event pipeline.
type OrderPublisher interface {
	Publish(event *events.OrderCompletedEvent) error
}

// Handlers holds the HTTP handlers for the recommendation API.
type Handlers struct {
	engine       *engine.Engine
	health       HealthChecker
	publisher    OrderPublisher
	maxBodyBytes int64
}

// NewHandlers creates the handler set. health may be nil when no
// storage-backed readiness check is wanted; publisher may be nil when
// event intake is disabled, which turns the order endpoint into a 503.
func NewHandlers(eng *engine.Engine, health HealthChecker, publisher OrderPublisher, maxBodyBytes int64) *Handlers {
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	return &Handlers{
		engine:       eng,
		health:       health,
		publisher:    publisher,
		maxBodyBytes: maxBodyBytes,
	}
}

// ProductRecommendations handles GET /recommendations/products/{productID}.
// Returns frequently-bought-together and similar-product lists for the
// anchor product.
func (h *Handlers) ProductRecommendations(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	productID, err := strconv.Atoi(chi.URLParam(r, "productID"))
	if err != nil {
		rw.BadRequest("product id must be an integer")
		return
	}

	recs, err := h.engine.ForProduct(r.Context(), productID)
	if err != nil {
		h.writeEngineError(rw, productID, err)
		return
	}

	rw.Success(recs)
}

// CartRecommendations handles POST /recommendations/cart. Returns
// cross-sell candidates for the basket as a whole.
func (h *Handlers) CartRecommendations(w http.ResponseWriter, r *http.Request) {
	var req CartRecommendationsRequest
	if !h.decodeJSON(w, r, &req) || !validateRequest(w, r, &req) {
		return
	}

	rw := NewResponseWriter(w, r)
	recs, err := h.engine.ForCart(r.Context(), req.ProductIDs, req.Limit)
	if err != nil {
		h.writeEngineError(rw, 0, err)
		return
	}

	rw.Success(recs)
}

// PersonalizedRecommendations handles POST /recommendations/personalized.
// Returns recommendations derived from the shopper's recently viewed
// products, or the featured cold-start list when none are given.
func (h *Handlers) PersonalizedRecommendations(w http.ResponseWriter, r *http.Request) {
	var req PersonalizedRecommendationsRequest
	if !h.decodeJSON(w, r, &req) || !validateRequest(w, r, &req) {
		return
	}

	rw := NewResponseWriter(w, r)
	recs, err := h.engine.ForPersonalized(r.Context(), req.ViewedProductIDs, req.Limit)
	if err != nil {
		h.writeEngineError(rw, 0, err)
		return
	}

	rw.Success(recs)
}

// OrderCompleted handles POST /orders/completed. The storefront calls
// it when an order completes; the handler publishes the event and the
// consumer folds it into the index asynchronously, so acceptance does
// not wait for the index update.
func (h *Handlers) OrderCompleted(w http.ResponseWriter, r *http.Request) {
	var req OrderCompletedRequest
	if !h.decodeJSON(w, r, &req) || !validateRequest(w, r, &req) {
		return
	}

	rw := NewResponseWriter(w, r)
	if h.publisher == nil {
		rw.ServiceUnavailable("order intake disabled")
		return
	}

	event := events.NewOrderCompletedEvent(req.OrderID, req.ProductIDs)
	if err := h.publisher.Publish(event); err != nil {
		logging.Error().Err(err).Int("order_id", req.OrderID).Msg("Failed to publish order event")
		rw.InternalError("failed to accept order")
		return
	}

	rw.Accepted(map[string]string{
		"event_id": event.EventID,
	})
}

// RebuildIndex handles POST /admin/recommendations/rebuild. The rebuild
// runs in the background; a rebuild already in flight yields 409.
func (h *Handlers) RebuildIndex(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if h.engine.IsRebuilding() {
		rw.Conflict("index rebuild already in progress")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), rebuildTimeout)
		defer cancel()

		if err := h.engine.RebuildIndex(ctx); err != nil {
			if errors.Is(err, engine.ErrRebuildInProgress) {
				return
			}
			logging.Error().Err(err).Msg("index rebuild failed")
			return
		}
		logging.Info().Msg("index rebuild completed")
	}()

	rw.Accepted(map[string]string{
		"message": "index rebuild started",
	})
}

// RecommendationStatus handles GET /admin/recommendations/status.
func (h *Handlers) RecommendationStatus(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(h.engine.Status())
}

// HealthLive handles GET /healthz/live. Always 200 while the process
// can serve requests.
func (h *Handlers) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{
		"status": "alive",
	})
}

// HealthReady handles GET /healthz/ready. Ready means storage is
// reachable and the index has been built or restored at least once.
func (h *Handlers) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := h.health.Ping(ctx); err != nil {
			logging.Warn().Err(err).Msg("readiness check: storage unreachable")
			rw.ServiceUnavailable("storage unreachable")
			return
		}
	}

	status := h.engine.Status()
	if status.Index.Version == 0 {
		rw.ServiceUnavailable("index not built yet")
		return
	}

	rw.Success(map[string]interface{}{
		"status": "ready",
		"index":  status.Index,
	})
}

// writeEngineError maps engine errors onto the HTTP error taxonomy.
// Upstream failures never reach here; the engine degrades those to
// empty results.
func (h *Handlers) writeEngineError(rw *ResponseWriter, productID int, err error) {
	switch {
	case errors.Is(err, recommend.ErrNotFound):
		rw.NotFound(fmt.Sprintf("product %d not found", productID))
	case errors.Is(err, recommend.ErrInvalidInput):
		rw.BadRequest(err.Error())
	default:
		logging.Error().Err(err).Msg("recommendation request failed")
		rw.InternalError("failed to compute recommendations")
	}
}
