// ShopRec - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shoprec

package engine

import (
	"testing"
	"time"
)

func TestCacheKey(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		same bool
	}{
		{
			name: "order insensitive",
			a:    cacheKey("cart", []int{3, 1, 2}, 8),
			b:    cacheKey("cart", []int{1, 2, 3}, 8),
			same: true,
		},
		{
			name: "limit differentiates",
			a:    cacheKey("cart", []int{1, 2}, 8),
			b:    cacheKey("cart", []int{1, 2}, 4),
			same: false,
		},
		{
			name: "operation differentiates",
			a:    cacheKey("cart", []int{1, 2}, 8),
			b:    cacheKey("personalized", []int{1, 2}, 8),
			same: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if (tt.a == tt.b) != tt.same {
				t.Errorf("keys %q and %q, same = %v, want %v", tt.a, tt.b, tt.a == tt.b, tt.same)
			}
		})
	}
}

func TestCacheKeyDoesNotMutateInput(t *testing.T) {
	in := []int{3, 1, 2}
	cacheKey("cart", in, 8)
	if in[0] != 3 || in[1] != 1 || in[2] != 2 {
		t.Errorf("input slice mutated: %v", in)
	}
}

func TestResponseCache(t *testing.T) {
	t.Run("hit and miss", func(t *testing.T) {
		c := newResponseCache(time.Minute, 10)
		if _, ok := c.get("k"); ok {
			t.Error("empty cache returned a hit")
		}
		c.set("k", 42)
		v, ok := c.get("k")
		if !ok || v.(int) != 42 {
			t.Errorf("get = %v, %v, want 42, true", v, ok)
		}
	})

	t.Run("expiry", func(t *testing.T) {
		c := newResponseCache(time.Nanosecond, 10)
		c.set("k", 1)
		time.Sleep(time.Millisecond)
		if _, ok := c.get("k"); ok {
			t.Error("expired entry returned as hit")
		}
	})

	t.Run("invalidate drops everything", func(t *testing.T) {
		c := newResponseCache(time.Minute, 10)
		c.set("a", 1)
		c.set("b", 2)
		c.invalidate()
		if c.size() != 0 {
			t.Errorf("size = %d after invalidate, want 0", c.size())
		}
	})

	t.Run("full cache skips new entries", func(t *testing.T) {
		c := newResponseCache(time.Minute, 2)
		c.set("a", 1)
		c.set("b", 2)
		c.set("c", 3)
		if _, ok := c.get("c"); ok {
			t.Error("entry cached past capacity")
		}
		if _, ok := c.get("a"); !ok {
			t.Error("live entry evicted by overflow")
		}
	})
}
