// ShopRec - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shoprec

// Package api implements the HTTP surface of the recommendation engine:
// the three storefront recommendation endpoints, the admin rebuild and
// status endpoints, and the health probes. Routing uses chi; every
// response is wrapped in the standardized APIResponse envelope.
package api
