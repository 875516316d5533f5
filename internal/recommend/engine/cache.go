// ShopRec - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shoprec

package engine

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/shoprec/internal/metrics"
)

const cacheType = "response"

// responseCache is a TTL cache over computed recommendation responses.
// Entries expire after the configured TTL and the whole cache is
// invalidated on every index rebuild, so staleness is bounded by
// min(TTL, rebuild interval) plus whatever incremental updates arrived
// in between. Recommendations are advisory, so that window is fine.
type responseCache struct {
	mu         sync.RWMutex
	entries    map[string]cacheEntry
	ttl        time.Duration
	maxEntries int
}

type cacheEntry struct {
	value     any
	expiresAt time.Time
}

func newResponseCache(ttl time.Duration, maxEntries int) *responseCache {
	return &responseCache{
		entries:    make(map[string]cacheEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
	}
}

func (c *responseCache) get(key string) (any, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		metrics.RecordCacheMiss(cacheType)
		return nil, false
	}
	metrics.RecordCacheHit(cacheType)
	return entry.value, true
}

func (c *responseCache) set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxEntries {
		c.evictExpiredLocked()
		if len(c.entries) >= c.maxEntries {
			// Still full; skip caching rather than evict live entries.
			return
		}
	}

	c.entries[key] = cacheEntry{
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	}
	metrics.CacheSize.WithLabelValues(cacheType).Set(float64(len(c.entries)))
}

func (c *responseCache) evictExpiredLocked() {
	now := time.Now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
			metrics.CacheEvictions.WithLabelValues(cacheType).Inc()
		}
	}
}

// invalidate drops every entry. Called after index rebuilds.
func (c *responseCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.entries)
	c.entries = make(map[string]cacheEntry)
	metrics.CacheEvictions.WithLabelValues(cacheType).Add(float64(n))
	metrics.CacheSize.WithLabelValues(cacheType).Set(0)
}

func (c *responseCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// cacheKey builds a deterministic key for an operation and its id
// arguments. Ids are sorted because every operation is insensitive to
// input order, so permutations of the same ids share an entry.
func cacheKey(op string, ids []int, limit int) string {
	sorted := make([]int, len(ids))
	copy(sorted, ids)
	sort.Ints(sorted)

	var b strings.Builder
	b.WriteString(op)
	for _, id := range sorted {
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(id))
	}
	b.WriteByte('#')
	b.WriteString(strconv.Itoa(limit))
	return b.String()
}
