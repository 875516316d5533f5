// ShopRec - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shoprec

// Package similarity scores catalog products by category and tag
// overlap with an anchor product. Scoring is stateless; the package has
// no configuration and no locks.
package similarity

import (
	"sort"

	"github.com/tomtom215/shoprec/internal/recommend"
)

// Score returns the overlap score between anchor and candidate:
// the number of shared categories plus the number of shared tags.
// A score of 0 means the candidate is not a similarity match at all and
// must be excluded by the caller, not ranked low.
func Score(anchor, candidate *recommend.Product) int {
	cats := recommend.NewIDSet(anchor.Categories...)
	tags := recommend.NewIDSet(anchor.Tags...)
	return cats.IntersectCount(candidate.Categories) + tags.IntersectCount(candidate.Tags)
}

// RankSimilar ranks candidates by Score against the anchor. The anchor
// itself and any id in exclude are filtered out, candidates with score 0
// are discarded, and the remainder is sorted by score descending with
// ties broken by ascending product id, then truncated to limit. A
// non-positive limit means no truncation.
//
// Eligibility is the caller's concern: candidates are expected to be
// pre-filtered so truncation never has to compensate for ineligible
// entries.
func RankSimilar(anchor *recommend.Product, candidates []recommend.Product, exclude recommend.IDSet, limit int) []recommend.ScoredProduct {
	anchorCats := recommend.NewIDSet(anchor.Categories...)
	anchorTags := recommend.NewIDSet(anchor.Tags...)

	scored := make([]recommend.ScoredProduct, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		if c.ID == anchor.ID || exclude.Contains(c.ID) {
			continue
		}
		score := anchorCats.IntersectCount(c.Categories) + anchorTags.IntersectCount(c.Tags)
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
