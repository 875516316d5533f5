// ShopRec - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shoprec

// Package engine orchestrates the recommendation components into the
// three public operations: per-product, cart cross-sell, and
// personalized-by-history.
//
// Every operation follows the same three-step pipeline: filter
// candidates to eligible products, score and rank them, then truncate to
// the limit. Eligibility is always applied before truncation so a result
// list is short only when there genuinely are fewer qualifying
// candidates.
//
// Catalog and order-history failures degrade to empty results instead of
// failing the request; recommendations are an enhancement, not a
// critical path. The one exception is an unknown anchor product, which
// is a caller error and surfaces as ErrNotFound.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/shoprec/internal/metrics"
	"github.com/tomtom215/shoprec/internal/recommend"
	"github.com/tomtom215/shoprec/internal/recommend/cooccur"
	"github.com/tomtom215/shoprec/internal/recommend/personalize"
	"github.com/tomtom215/shoprec/internal/recommend/similarity"
)

// ErrRebuildInProgress is returned when a rebuild is requested while
// another one is still running.
var ErrRebuildInProgress = errors.New("index rebuild already in progress")

// Engine serves the public recommendation operations.
type Engine struct {
	cfg     recommend.Config
	catalog recommend.CatalogView
	history recommend.OrderHistoryView
	index   *cooccur.Index
	logger  zerolog.Logger

	// cache is nil when disabled by configuration.
	cache *responseCache

	// snapshots is optional; nil disables persistence.
	snapshots *cooccur.SnapshotStore

	rebuilding atomic.Bool
}

// Status describes the engine for the admin status endpoint.
type Status struct {
	Index        cooccur.Stats `json:"index"`
	Rebuilding   bool          `json:"rebuilding"`
	CacheEnabled bool          `json:"cache_enabled"`
	CacheEntries int           `json:"cache_entries"`
}

// New creates an engine over the given index and data providers.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func New(cfg recommend.Config, catalog recommend.CatalogView, history recommend.OrderHistoryView, index *cooccur.Index, logger zerolog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if catalog == nil {
		return nil, errors.New("catalog view is required")
	}
	if history == nil {
		return nil, errors.New("order history view is required")
	}
	if index == nil {
		index = cooccur.New()
	}

	e := &Engine{
		cfg:     cfg,
		catalog: catalog,
		history: history,
		index:   index,
		logger:  logger.With().Str("component", "engine").Logger(),
	}
	if cfg.Cache.Enabled {
		e.cache = newResponseCache(cfg.Cache.TTL, cfg.Cache.MaxEntries)
	}
	return e, nil
}

// SetSnapshotStore enables index persistence. Must be called before the
// engine starts serving.
func (e *Engine) SetSnapshotStore(store *cooccur.SnapshotStore) {
	e.snapshots = store
}

// ForProduct returns the per-product recommendations: products
// frequently bought together with the anchor, and products similar to it
// by category/tag overlap. An unknown anchor id returns ErrNotFound.
func (e *Engine) ForProduct(ctx context.Context, productID int) (*recommend.ProductRecommendations, error) {
	start := time.Now()
	resp, err := e.forProduct(ctx, productID)
	items := 0
	if resp != nil {
		items = len(resp.FrequentlyBoughtTogether) + len(resp.SimilarProducts)
	}
	metrics.RecordRecommendation("product", time.Since(start), items, err)
	return resp, err
}

func (e *Engine) forProduct(ctx context.Context, productID int) (*recommend.ProductRecommendations, error) {
	if productID <= 0 {
		return nil, fmt.Errorf("product id %d: %w", productID, recommend.ErrInvalidInput)
	}

	key := cacheKey("product", []int{productID}, 0)
	if cached, ok := e.cacheGet(key); ok {
		return cached.(*recommend.ProductRecommendations), nil
	}

	anchor, err := e.catalog.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, recommend.ErrNotFound) {
			return nil, fmt.Errorf("product %d: %w", productID, recommend.ErrNotFound)
		}
		e.logger.Warn().Err(err).Int("product_id", productID).
			Msg("Catalog unavailable, degrading to empty recommendations")
		return emptyProductRecommendations(), nil
	}

	eligible := e.eligibleCandidates(ctx)
	exclude := recommend.NewIDSet(productID)

	// Rank the full co-purchase neighborhood first, then keep eligible
	// products until the limit is reached.
	ranked := e.index.TopCoPurchased(productID, exclude, 0)
	fbt := resolveEligible(ranked, eligible, e.cfg.Limits.CoPurchased)

	similar := similarity.RankSimilar(anchor, eligible, exclude, e.cfg.Limits.Similar)
	if similar == nil {
		similar = []recommend.ScoredProduct{}
	}

	resp := &recommend.ProductRecommendations{
		FrequentlyBoughtTogether: fbt,
		SimilarProducts:          similar,
	}
	e.cacheSet(key, resp)
	return resp, nil
}

// ForCart returns cross-sell candidates for the whole basket, ranked by
// the sum of co-purchase counts across all cart items. An empty cart
// yields an empty result, not an error.
func (e *Engine) ForCart(ctx context.Context, cartIDs []int, limit int) ([]recommend.ScoredProduct, error) {
	start := time.Now()
	res, err := e.forCart(ctx, cartIDs, limit)
	metrics.RecordRecommendation("cart", time.Since(start), len(res), err)
	return res, err
}

func (e *Engine) forCart(ctx context.Context, cartIDs []int, limit int) ([]recommend.ScoredProduct, error) {
	if err := validateIDs(cartIDs); err != nil {
		return nil, err
	}
	limit = e.cfg.ClampLimit(limit, e.cfg.Limits.Cart)

	if len(cartIDs) == 0 {
		return []recommend.ScoredProduct{}, nil
	}

	key := cacheKey("cart", cartIDs, limit)
	if cached, ok := e.cacheGet(key); ok {
		return cached.([]recommend.ScoredProduct), nil
	}

	eligible := e.eligibleCandidates(ctx)

	ranked := e.index.TopForBasket(cartIDs, recommend.NewIDSet(cartIDs...), 0)
	res := resolveEligible(ranked, eligible, limit)

	e.cacheSet(key, res)
	return res, nil
}

// ForPersonalized returns recommendations derived from the shopper's
// recently viewed products. With no view history it falls back to
// featured products, newest first.
func (e *Engine) ForPersonalized(ctx context.Context, viewedIDs []int, limit int) ([]recommend.ScoredProduct, error) {
	start := time.Now()
	res, err := e.forPersonalized(ctx, viewedIDs, limit)
	metrics.RecordRecommendation("personalized", time.Since(start), len(res), err)
	return res, err
}

func (e *Engine) forPersonalized(ctx context.Context, viewedIDs []int, limit int) ([]recommend.ScoredProduct, error) {
	if err := validateIDs(viewedIDs); err != nil {
		return nil, err
	}
	limit = e.cfg.ClampLimit(limit, e.cfg.Limits.Personalized)

	key := cacheKey("personalized", viewedIDs, limit)
	if cached, ok := e.cacheGet(key); ok {
		return cached.([]recommend.ScoredProduct), nil
	}

	eligible := e.eligibleCandidates(ctx)

	var res []recommend.ScoredProduct
	if len(viewedIDs) == 0 {
		res = featuredFallback(eligible, limit)
	} else {
		viewed, err := e.catalog.GetProducts(ctx, viewedIDs)
		if err != nil {
			e.logger.Warn().Err(err).Msg("Catalog unavailable, degrading to empty personalized result")
			return []recommend.ScoredProduct{}, nil
		}
		interest := personalize.DeriveInterestSet(viewed)
		res = personalize.RankPersonalized(interest, eligible, recommend.NewIDSet(viewedIDs...), limit)
	}
	if res == nil {
		res = []recommend.ScoredProduct{}
	}

	e.cacheSet(key, res)
	return res, nil
}

// ApplyOrder folds a completed order into the index incrementally.
// Returns false when the order was already applied.
func (e *Engine) ApplyOrder(order recommend.Order) bool {
	applied := e.index.ApplyOrder(order)
	metrics.RecordOrderApplied(applied, e.index.Stats().Pairs)
	if applied {
		e.logger.Debug().Int("order_id", order.ID).Int("items", len(order.Items)).
			Msg("Order applied to index")
	}
	return applied
}

// RebuildIndex replaces the index with a fresh build from the full order
// history. Only one rebuild runs at a time; a failed history fetch
// leaves the previous index intact. On success the response cache is
// invalidated and, when persistence is enabled, a snapshot is saved.
func (e *Engine) RebuildIndex(ctx context.Context) error {
	if !e.rebuilding.CompareAndSwap(false, true) {
		return ErrRebuildInProgress
	}
	defer e.rebuilding.Store(false)

	start := time.Now()
	orders, err := e.history.ListCompletedOrders(ctx)
	if err != nil {
		return fmt.Errorf("list completed orders: %w", err)
	}

	e.index.Rebuild(orders)
	stats := e.index.Stats()
	metrics.RecordRebuild(time.Since(start), stats.Pairs)

	if e.cache != nil {
		e.cache.invalidate()
	}

	if e.snapshots != nil {
		saveErr := e.snapshots.Save(e.index.Snapshot())
		metrics.RecordSnapshot("save", saveErr)
		if saveErr != nil {
			e.logger.Warn().Err(saveErr).Msg("Failed to persist index snapshot")
		}
	}

	e.logger.Info().
		Int("orders", stats.Orders).
		Int("pairs", stats.Pairs).
		Dur("duration", time.Since(start)).
		Msg("Index rebuild complete")
	return nil
}

// RestoreFromSnapshot loads the persisted index snapshot, if any.
// Returns true when a snapshot was restored.
func (e *Engine) RestoreFromSnapshot() (bool, error) {
	if e.snapshots == nil {
		return false, nil
	}

	snap, ok, err := e.snapshots.Load()
	metrics.RecordSnapshot("load", err)
	if err != nil {
		return false, fmt.Errorf("load index snapshot: %w", err)
	}
	if !ok {
		return false, nil
	}

	e.index.Restore(snap)
	stats := e.index.Stats()
	e.logger.Info().
		Int("orders", stats.Orders).
		Int("pairs", stats.Pairs).
		Msg("Index restored from snapshot")
	return true, nil
}

// IsRebuilding reports whether a rebuild is currently running.
func (e *Engine) IsRebuilding() bool {
	return e.rebuilding.Load()
}

// Status returns a snapshot of engine state for the admin API.
func (e *Engine) Status() Status {
	s := Status{
		Index:        e.index.Stats(),
		Rebuilding:   e.rebuilding.Load(),
		CacheEnabled: e.cache != nil,
	}
	if e.cache != nil {
		s.CacheEntries = e.cache.size()
	}
	return s
}

// eligibleCandidates fetches the active, in-stock catalog. Upstream
// failures degrade to an empty candidate set.
func (e *Engine) eligibleCandidates(ctx context.Context) []recommend.Product {
	eligible, err := e.catalog.ListEligibleProducts(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Failed to list eligible products, degrading to empty candidate set")
		return nil
	}
	return eligible
}

func (e *Engine) cacheGet(key string) (any, bool) {
	if e.cache == nil {
		return nil, false
	}
	return e.cache.get(key)
}

func (e *Engine) cacheSet(key string, value any) {
	if e.cache != nil {
		e.cache.set(key, value)
	}
}

// resolveEligible walks a ranked id list in order, keeps the ids that
// resolve to an eligible product, and stops once limit entries are
// collected. The ranked list must be unbounded (or ranked beyond limit)
// so that ineligible entries do not shorten the final list.
func resolveEligible(ranked []recommend.RankedID, eligible []recommend.Product, limit int) []recommend.ScoredProduct {
	byID := make(map[int]*recommend.Product, len(eligible))
	for i := range eligible {
		byID[eligible[i].ID] = &eligible[i]
	}

	out := make([]recommend.ScoredProduct, 0, limit)
	for _, r := range ranked {
		p, ok := byID[r.ID]
		if !ok {
			continue
		}
		out = append(out, recommend.ScoredProduct{
			ID:    p.ID,
			Name:  p.Name,
			Score: r.Count,
		})
		if len(out) == limit {
			break
		}
	}
	return out
}

// featuredFallback is the cold-start policy: featured eligible products,
// newest first, ties broken by descending id.
func featuredFallback(eligible []recommend.Product, limit int) []recommend.ScoredProduct {
	featured := make([]recommend.Product, 0, len(eligible))
	for i := range eligible {
		if eligible[i].Featured {
			featured = append(featured, eligible[i])
		}
	}

	sort.Slice(featured, func(i, j int) bool {
		if !featured[i].CreatedAt.Equal(featured[j].CreatedAt) {
			return featured[i].CreatedAt.After(featured[j].CreatedAt)
		}
		return featured[i].ID > featured[j].ID
	})

	if limit > 0 && len(featured) > limit {
		featured = featured[:limit]
	}

	out := make([]recommend.ScoredProduct, 0, len(featured))
	for i := range featured {
		out = append(out, recommend.ScoredProduct{
			ID:   featured[i].ID,
			Name: featured[i].Name,
		})
	}
	return out
}

// validateIDs rejects non-positive product ids.
func validateIDs(ids []int) error {
	for _, id := range ids {
		if id <= 0 {
			return fmt.Errorf("product id %d: %w", id, recommend.ErrInvalidInput)
		}
	}
	return nil
}

func emptyProductRecommendations() *recommend.ProductRecommendations {
	return &recommend.ProductRecommendations{
		FrequentlyBoughtTogether: []recommend.ScoredProduct{},
		SimilarProducts:          []recommend.ScoredProduct{},
	}
}
