// ShopRec - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shoprec

package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/shoprec/internal/validation"
)

// CartRecommendationsRequest is the body of POST /recommendations/cart.
// An empty cart is valid and yields an empty recommendation list, so
// product_ids itself is not required.
type CartRecommendationsRequest struct {
	ProductIDs []int `json:"product_ids" validate:"max=100,dive,gt=0"`
	Limit      int   `json:"limit" validate:"min=0,max=50"`
}

// PersonalizedRecommendationsRequest is the body of
// POST /recommendations/personalized. An empty viewed list triggers the
// cold-start featured fallback.
type PersonalizedRecommendationsRequest struct {
	ViewedProductIDs []int `json:"viewed_product_ids" validate:"max=200,dive,gt=0"`
	Limit            int   `json:"limit" validate:"min=0,max=50"`
}

// OrderCompletedRequest is the body of POST /orders/completed, the
// storefront's order-completion callback.
type OrderCompletedRequest struct {
	OrderID    int   `json:"order_id" validate:"required,gt=0"`
	ProductIDs []int `json:"product_ids" validate:"required,min=1,max=500,dive,gt=0"`
}

// decodeJSON reads and decodes a JSON request body into dst, enforcing
// the configured body size cap. On failure it writes a 400 response and
// returns false.
func (h *Handlers) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		NewResponseWriter(w, r).BadRequest("invalid JSON body")
		return false
	}
	return true
}

// validateRequest validates dst against its validate tags. On failure it
// writes a 400 response with field-level details and returns false.
func validateRequest(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := validation.ValidateStruct(dst); err != nil {
		NewResponseWriter(w, r).ValidationError(err.Error(), err.Fields())
		return false
	}
	return true
}
