// ShopRec - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shoprec

// Package personalize derives a shopper interest profile from recently
// viewed products and ranks catalog candidates against it.
//
// The interest set is a plain union of viewed categories and tags. View
// order does not change the result and recency weighting is deliberately
// not applied.
package personalize

import (
	"sort"

	"github.com/tomtom215/shoprec/internal/recommend"
)

// DeriveInterestSet unions the categories and tags of the viewed
// products. An empty view history yields an empty set; callers handle
// cold start before invoking this package.
func DeriveInterestSet(viewed []recommend.Product) recommend.InterestSet {
	set := recommend.InterestSet{
		Categories: make(recommend.IDSet),
		Tags:       make(recommend.IDSet),
	}
	for i := range viewed {
		for _, c := range viewed[i].Categories {
			set.Categories.Add(c)
		}
		for _, tag := range viewed[i].Tags {
			set.Tags.Add(tag)
		}
	}
	return set
}

// RankPersonalized ranks candidates by overlap with the interest set. A
// candidate matches if it shares at least one category or one tag; the
// score is the total number of shared categories plus shared tags, the
// same counting rule the similarity scorer uses. Excluded ids are
// filtered, results are sorted by score descending with ties broken by
// ascending product id, then truncated to limit (non-positive limit
// means no truncation).
func RankPersonalized(interest recommend.InterestSet, candidates []recommend.Product, exclude recommend.IDSet, limit int) []recommend.ScoredProduct {
	if interest.Empty() {
		return nil
	}

	scored := make([]recommend.ScoredProduct, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		if exclude.Contains(c.ID) {
			continue
		}
		score := interest.Categories.IntersectCount(c.Categories) +
			interest.Tags.IntersectCount(c.Tags)
		if score == 0 {
			continue
		}
		scored = append(scored, recommend.ScoredProduct{
			ID:    c.ID,
			Name:  c.Name,
			Score: score,
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ID < scored[j].ID
	})

	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}
