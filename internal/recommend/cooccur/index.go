// ShopRec - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shoprec

// Package cooccur maintains the co-purchase index: for every unordered
// pair of products ever purchased together, the number of completed
// orders containing both.
//
// The index stores the symmetric adjacency of the pair graph:
//
//	pairs[a][b] == pairs[b][a] == count of orders containing both a and b
//
// Counts only grow. Orders are immutable once completed; cancellations
// and refunds do not retract their contribution.
package cooccur

import (
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/shoprec/internal/recommend"
)

// Index is the in-memory co-purchase index. Safe for concurrent use: many
// readers may rank candidates while new orders are applied. A full
// Rebuild constructs fresh state off to the side and swaps it in under
// the write lock, so readers never observe a partially rebuilt index.
type Index struct {
	mu sync.RWMutex

	// pairs is the symmetric adjacency: product id -> neighbor -> count.
	pairs map[int]map[int]int

	// applied marks order ids already folded into the index, making
	// ApplyOrder idempotent under redelivery.
	applied map[int]struct{}

	// pairCount is the number of distinct unordered pairs.
	pairCount int

	version     uint64
	lastRebuilt time.Time
}

// Stats describes the current state of the index.
type Stats struct {
	// Pairs is the number of distinct unordered product pairs.
	Pairs int `json:"pairs"`

	// Orders is the number of orders folded into the index.
	Orders int `json:"orders"`

	// Version increments on every rebuild or restore.
	Version uint64 `json:"version"`

	// LastRebuilt is the time of the last rebuild or restore; zero if
	// the index has only been updated incrementally.
	LastRebuilt time.Time `json:"last_rebuilt"`
}

// PairCount is one canonical pair entry (A < B) for snapshots.
type PairCount struct {
	A     int
	B     int
	Count int
}

// Snapshot is a point-in-time copy of the index state, used for
// persistence across restarts.
type Snapshot struct {
	Pairs         []PairCount
	AppliedOrders []int
	RebuiltAt     time.Time
}

// New creates an empty index.
func New() *Index {
	return &Index{
		pairs:   make(map[int]map[int]int),
		applied: make(map[int]struct{}),
	}
}

// ApplyOrder folds a single completed order into the index. It returns
// false without modifying the index when the order was already applied.
// Orders with fewer than 2 distinct items contribute no pairs but are
// still marked applied so redelivery stays cheap.
func (x *Index) ApplyOrder(order recommend.Order) bool {
	items := distinctItems(order.Items)

	x.mu.Lock()
	defer x.mu.Unlock()

	if _, done := x.applied[order.ID]; done {
		return false
	}
	x.applied[order.ID] = struct{}{}

	x.addPairsLocked(items)
	return true
}

// Rebuild clears the index and recounts every pair from the given
// orders. The fresh state is built aside and swapped in atomically, so
// concurrent readers see either the old index or the new one, never a
// mix.
func (x *Index) Rebuild(orders []recommend.Order) {
	fresh := New()
	for _, order := range orders {
		items := distinctItems(order.Items)
		if _, done := fresh.applied[order.ID]; done {
			continue
		}
		fresh.applied[order.ID] = struct{}{}
		fresh.addPairsLocked(items)
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.pairs = fresh.pairs
	x.applied = fresh.applied
	x.pairCount = fresh.pairCount
	x.version++
	x.lastRebuilt = time.Now()
}

// TopCoPurchased returns the product ids most often purchased together
// with productID, highest count first, ties broken by ascending id.
// Products with zero recorded co-purchases are never returned. A
// non-positive limit means no truncation, letting the caller apply
// eligibility filtering before cutting the list.
func (x *Index) TopCoPurchased(productID int, exclude recommend.IDSet, limit int) []recommend.RankedID {
	x.mu.RLock()
	defer x.mu.RUnlock()

	neighbors := x.pairs[productID]
	if len(neighbors) == 0 {
		return nil
	}

	ranked := make([]recommend.RankedID, 0, len(neighbors))
	for id, count := range neighbors {
		if id == productID || exclude.Contains(id) {
			continue
		}
		ranked = append(ranked, recommend.RankedID{ID: id, Count: count})
	}

	return rankAndTruncate(ranked, limit)
}

// TopForBasket ranks candidates by their aggregate co-purchase count
// with the whole basket: for each candidate p not in the basket, the sum
// of count(c, p) over all basket items c. A candidate linked to several
// basket items outranks one linked to a single item.
func (x *Index) TopForBasket(basket []int, exclude recommend.IDSet, limit int) []recommend.RankedID {
	if len(basket) == 0 {
		return nil
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	inBasket := recommend.NewIDSet(basket...)
	agg := make(map[int]int)
	for c := range inBasket {
		for id, count := range x.pairs[c] {
			if inBasket.Contains(id) || exclude.Contains(id) {
				continue
			}
			agg[id] += count
		}
	}
	if len(agg) == 0 {
		return nil
	}

	ranked := make([]recommend.RankedID, 0, len(agg))
	for id, sum := range agg {
		ranked = append(ranked, recommend.RankedID{ID: id, Count: sum})
	}

	return rankAndTruncate(ranked, limit)
}

// Count returns the co-purchase count for the given pair. Symmetric:
// Count(a, b) == Count(b, a).
func (x *Index) Count(a, b int) int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.pairs[a][b]
}

// Stats returns a consistent view of the index counters.
func (x *Index) Stats() Stats {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return Stats{
		Pairs:       x.pairCount,
		Orders:      len(x.applied),
		Version:     x.version,
		LastRebuilt: x.lastRebuilt,
	}
}

// Snapshot copies the index state for persistence. Pairs are emitted in
// canonical form (A < B) so each unordered pair appears once.
func (x *Index) Snapshot() Snapshot {
	x.mu.RLock()
	defer x.mu.RUnlock()

	snap := Snapshot{
		Pairs:         make([]PairCount, 0, x.pairCount),
		AppliedOrders: make([]int, 0, len(x.applied)),
		RebuiltAt:     x.lastRebuilt,
	}
	for a, neighbors := range x.pairs {
		for b, count := range neighbors {
			if a < b {
				snap.Pairs = append(snap.Pairs, PairCount{A: a, B: b, Count: count})
			}
		}
	}
	for id := range x.applied {
		snap.AppliedOrders = append(snap.AppliedOrders, id)
	}
	return snap
}

// Restore replaces the index state with the given snapshot. Entries with
// a non-canonical key or a non-positive count are skipped.
func (x *Index) Restore(snap Snapshot) {
	pairs := make(map[int]map[int]int)
	count := 0
	for _, p := range snap.Pairs {
		if p.A >= p.B || p.Count <= 0 {
			continue
		}
		setPair(pairs, p.A, p.B, p.Count)
		count++
	}

	applied := make(map[int]struct{}, len(snap.AppliedOrders))
	for _, id := range snap.AppliedOrders {
		applied[id] = struct{}{}
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.pairs = pairs
	x.applied = applied
	x.pairCount = count
	x.version++
	x.lastRebuilt = snap.RebuiltAt
}

// addPairsLocked increments the count of every unordered pair of
// distinct items. Caller must hold the write lock (or own the index
// exclusively, as Rebuild does while constructing fresh state).
func (x *Index) addPairsLocked(items []int) {
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			a, b := items[i], items[j]

			// Canonical ordering for symmetric pairs
			if a > b {
				a, b = b, a
			}

			if x.pairs[a][b] == 0 {
				x.pairCount++
			}
			setPair(x.pairs, a, b, x.pairs[a][b]+1)
		}
	}
}

// setPair stores a count symmetrically in the adjacency.
func setPair(pairs map[int]map[int]int, a, b, count int) {
	if pairs[a] == nil {
		pairs[a] = make(map[int]int)
	}
	if pairs[b] == nil {
		pairs[b] = make(map[int]int)
	}
	pairs[a][b] = count
	pairs[b][a] = count
}

// distinctItems de-duplicates an order's item list and drops
// non-positive ids.
func distinctItems(items []int) []int {
	seen := make(map[int]struct{}, len(items))
	out := make([]int, 0, len(items))
	for _, id := range items {
		if id <= 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// rankAndTruncate sorts by count descending, ties by ascending id, and
// truncates to limit when limit is positive.
func rankAndTruncate(ranked []recommend.RankedID, limit int) []recommend.RankedID {
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].ID < ranked[j].ID
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
