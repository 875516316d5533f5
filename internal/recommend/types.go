// ShopRec - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shoprec

package recommend

import (
	"context"
	"time"
)

// Product is a read-only snapshot of a catalog product, immutable for the
// duration of a recommendation computation. The catalog owns the canonical
// record; this type carries only the attributes recommendations need.
type Product struct {
	// ID is the catalog product identifier.
	ID int `json:"id"`

	// Name is the display name of the product.
	Name string `json:"name"`

	// Active indicates whether the product is currently published.
	Active bool `json:"active"`

	// Inventory is the current stock level. Never negative.
	Inventory int `json:"inventory"`

	// Featured marks products surfaced by the cold-start fallback.
	Featured bool `json:"featured"`

	// CreatedAt orders featured products (newest first) in the
	// cold-start fallback.
	CreatedAt time.Time `json:"created_at"`

	// Categories is the set of category ids assigned to the product.
	// Stored as a slice; set semantics are enforced by the scorers.
	Categories []int `json:"categories"`

	// Tags is the set of tag ids assigned to the product.
	Tags []int `json:"tags"`
}

// Eligible reports whether the product may appear in recommendation
// results: published and in stock.
func (p *Product) Eligible() bool {
	return p.Active && p.Inventory > 0
}

// Order is the set of distinct products purchased together in one
// completed order. Quantity is irrelevant to co-occurrence; duplicates in
// Items are tolerated and de-duplicated by the index.
type Order struct {
	// ID is the order identifier, used as the applied-order marker for
	// idempotent incremental updates.
	ID int `json:"id"`

	// Items are the distinct product ids in the order.
	Items []int `json:"items"`
}

// RankedID is a product id with its ranking score, produced by the
// co-purchase index before ids are resolved to products.
type RankedID struct {
	// ID is the candidate product id.
	ID int

	// Count is the co-purchase count (or aggregate sum for baskets).
	Count int
}

// ScoredProduct is a recommendation result entry: a product summary with
// the score that ranked it.
type ScoredProduct struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// ProductRecommendations is the result of the per-product operation.
type ProductRecommendations struct {
	FrequentlyBoughtTogether []ScoredProduct `json:"frequently_bought_together"`
	SimilarProducts          []ScoredProduct `json:"similar_products"`
}

// InterestSet is the union of categories and tags across a shopper's
// recently viewed products.
type InterestSet struct {
	Categories IDSet
	Tags       IDSet
}

// Empty reports whether the interest set matches nothing.
func (s InterestSet) Empty() bool {
	return len(s.Categories) == 0 && len(s.Tags) == 0
}

// IDSet is a set of product, category, or tag ids.
type IDSet map[int]struct{}

// NewIDSet builds a set from the given ids.
func NewIDSet(ids ...int) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Contains reports whether id is in the set.
func (s IDSet) Contains(id int) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id into the set.
func (s IDSet) Add(id int) {
	s[id] = struct{}{}
}

// IntersectCount returns the number of ids that are both in the set and
// in the given slice. Duplicate ids in the slice are counted once.
func (s IDSet) IntersectCount(ids []int) int {
	if len(s) == 0 || len(ids) == 0 {
		return 0
	}
	n := 0
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := s[id]; ok {
			n++
		}
	}
	return n
}

// CatalogView provides read-only access to product attributes. The
// database layer implements this; tests use in-memory fakes.
type CatalogView interface {
	// GetProduct returns a single product or ErrNotFound.
	GetProduct(ctx context.Context, id int) (*Product, error)

	// ListEligibleProducts returns all active, in-stock products.
	ListEligibleProducts(ctx context.Context) ([]Product, error)

	// GetProducts resolves the given ids, silently skipping ids with no
	// catalog record. The result order is unspecified.
	GetProducts(ctx context.Context, ids []int) ([]Product, error)
}

// OrderHistoryView yields completed orders for index rebuilds.
type OrderHistoryView interface {
	ListCompletedOrders(ctx context.Context) ([]Order, error)
}
