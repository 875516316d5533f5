// ShopRec - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shoprec

// Package events carries completed-order events from the storefront into
// the recommendation index. It supports two transports behind the same
// Watermill router: an in-process channel for single-binary deployments
// and NATS JetStream for deployments where the storefront publishes
// events over a broker.
package events

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/shoprec/internal/recommend"
)

// SchemaVersion is the current event schema version. Increment when
// making breaking changes to OrderCompletedEvent.
const SchemaVersion = 1

// OrderCompletedEvent is the wire format for a completed storefront
// order. ProductIDs lists the distinct products in the order; quantity
// does not matter for co-purchase counting.
type OrderCompletedEvent struct {
	SchemaVersion int       `json:"schema_version,omitempty"`
	EventID       string    `json:"event_id"`
	OrderID       int       `json:"order_id"`
	ProductIDs    []int     `json:"product_ids"`
	CompletedAt   time.Time `json:"completed_at"`
}

// NewOrderCompletedEvent creates an event with a unique ID, timestamp,
// and schema version.
func NewOrderCompletedEvent(orderID int, productIDs []int) *OrderCompletedEvent {
	return &OrderCompletedEvent{
		SchemaVersion: SchemaVersion,
		EventID:       uuid.New().String(),
		OrderID:       orderID,
		ProductIDs:    productIDs,
		CompletedAt:   time.Now().UTC(),
	}
}

// Validate checks required fields.
func (e *OrderCompletedEvent) Validate() error {
	if e.EventID == "" {
		return fmt.Errorf("event_id is required")
	}
	if e.OrderID <= 0 {
		return fmt.Errorf("order_id must be positive, got %d", e.OrderID)
	}
	if len(e.ProductIDs) == 0 {
		return fmt.Errorf("product_ids must not be empty")
	}
	for _, id := range e.ProductIDs {
		if id <= 0 {
			return fmt.Errorf("product id %d must be positive", id)
		}
	}
	return nil
}

// Order converts the event into the index-facing order value.
func (e *OrderCompletedEvent) Order() recommend.Order {
	return recommend.Order{ID: e.OrderID, Items: e.ProductIDs}
}

// Marshal serializes the event for publishing.
func (e *OrderCompletedEvent) Marshal() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal order event: %w", err)
	}
	return data, nil
}

// ParseOrderCompletedEvent deserializes and validates an event payload.
func ParseOrderCompletedEvent(payload []byte) (*OrderCompletedEvent, error) {
	var e OrderCompletedEvent
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, fmt.Errorf("unmarshal order event: %w", err)
	}
	if e.SchemaVersion == 0 {
		e.SchemaVersion = 1 // Legacy events without explicit version
	}
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("invalid order event: %w", err)
	}
	return &e, nil
}
