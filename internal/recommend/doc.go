// ShopRec - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shoprec

// Package recommend defines the shared types, configuration, and error
// taxonomy of the recommendation engine.
//
// The package is deliberately free of dependencies on other internal
// packages so that the concrete components can import it without cycles:
//
//   - recommend/cooccur: co-purchase index over completed orders
//   - recommend/similarity: category/tag overlap scoring
//   - recommend/personalize: view-history interest aggregation
//   - recommend/engine: orchestration of the three public operations
//
// Data providers (catalog and order history) are consumed through the
// CatalogView and OrderHistoryView interfaces declared here and
// implemented by the database layer.
package recommend
