// ShopRec - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shoprec

package recommend

import "testing"

func TestProductEligible(t *testing.T) {
	tests := []struct {
		name    string
		product Product
		want    bool
	}{
		{"active and in stock", Product{Active: true, Inventory: 5}, true},
		{"active but out of stock", Product{Active: true, Inventory: 0}, false},
		{"inactive with stock", Product{Active: false, Inventory: 5}, false},
		{"inactive and out of stock", Product{Active: false, Inventory: 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.product.Eligible(); got != tt.want {
				t.Errorf("Eligible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIDSetIntersectCount(t *testing.T) {
	tests := []struct {
		name string
		set  IDSet
		ids  []int
		want int
	}{
		{"disjoint", NewIDSet(1, 2), []int{3, 4}, 0},
		{"partial overlap", NewIDSet(1, 2, 3), []int{2, 3, 4}, 2},
		{"full overlap", NewIDSet(1, 2), []int{1, 2}, 2},
		{"duplicates counted once", NewIDSet(1), []int{1, 1, 1}, 1},
		{"empty set", IDSet{}, []int{1, 2}, 0},
		{"empty slice", NewIDSet(1, 2), nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.set.IntersectCount(tt.ids); got != tt.want {
				t.Errorf("IntersectCount(%v) = %d, want %d", tt.ids, got, tt.want)
			}
		})
	}
}

func TestIDSetContains(t *testing.T) {
	s := NewIDSet(7, 9)
	if !s.Contains(7) {
		t.Error("expected set to contain 7")
	}
	if s.Contains(8) {
		t.Error("expected set not to contain 8")
	}

	s.Add(8)
	if !s.Contains(8) {
		t.Error("expected set to contain 8 after Add")
	}
}

func TestInterestSetEmpty(t *testing.T) {
	if !(InterestSet{}).Empty() {
		t.Error("zero interest set should be empty")
	}
	withCategory := InterestSet{Categories: NewIDSet(1)}
	if withCategory.Empty() {
		t.Error("interest set with a category should not be empty")
	}
	withTag := InterestSet{Tags: NewIDSet(1)}
	if withTag.Empty() {
		t.Error("interest set with a tag should not be empty")
	}
}
