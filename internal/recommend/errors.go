// ShopRec - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shoprec

package recommend

import "errors"

// Error taxonomy of the recommendation engine. Callers classify failures
// with errors.Is; the API layer maps each sentinel to an HTTP status.
var (
	// ErrNotFound indicates an unknown anchor product id. Surfaced to
	// the caller as 404.
	ErrNotFound = errors.New("product not found")

	// ErrInvalidInput indicates a malformed request, e.g. a non-positive
	// product id. Surfaced as 400.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUpstreamUnavailable indicates a catalog or order-history
	// failure. Operations degrade to an empty result set rather than
	// failing the request; the sentinel is used internally and for
	// rebuilds, where the previous index is left intact.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)
