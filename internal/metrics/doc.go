// ShopRec - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shoprec

// Package metrics provides Prometheus instrumentation for ShopRec.
//
// All metrics are registered with the default Prometheus registry via
// promauto and exposed through the /metrics endpoint. Helper functions
// wrap the common recording patterns so callers do not interact with
// label values directly.
package metrics
