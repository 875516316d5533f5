// ShopRec - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shoprec

package events

import (
	"strings"
	"testing"
	"time"
)

func TestNewOrderCompletedEvent(t *testing.T) {
	e := NewOrderCompletedEvent(42, []int{1, 2, 3})
	if err := e.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if e.EventID == "" || e.SchemaVersion != SchemaVersion {
		t.Errorf("event = %+v", e)
	}
	if e.CompletedAt.IsZero() {
		t.Error("CompletedAt not set")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*OrderCompletedEvent)
		wantErr string
	}{
		{"valid", func(*OrderCompletedEvent) {}, ""},
		{"missing event id", func(e *OrderCompletedEvent) { e.EventID = "" }, "event_id"},
		{"zero order id", func(e *OrderCompletedEvent) { e.OrderID = 0 }, "order_id"},
		{"no products", func(e *OrderCompletedEvent) { e.ProductIDs = nil }, "product_ids"},
		{"negative product id", func(e *OrderCompletedEvent) { e.ProductIDs = []int{1, -2} }, "product id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewOrderCompletedEvent(1, []int{1, 2})
			tt.mutate(e)
			err := e.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseOrderCompletedEvent(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		e := NewOrderCompletedEvent(7, []int{10, 20})
		payload, err := e.Marshal()
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}

		parsed, err := ParseOrderCompletedEvent(payload)
		if err != nil {
			t.Fatalf("ParseOrderCompletedEvent() error = %v", err)
		}
		if parsed.OrderID != 7 || len(parsed.ProductIDs) != 2 {
			t.Errorf("parsed = %+v", parsed)
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		if _, err := ParseOrderCompletedEvent([]byte("{not json")); err == nil {
			t.Error("error = nil, want parse failure")
		}
	})

	t.Run("invalid content", func(t *testing.T) {
		if _, err := ParseOrderCompletedEvent([]byte(`{"event_id":"x","order_id":0}`)); err == nil {
			t.Error("error = nil, want validation failure")
		}
	})

	t.Run("legacy schema version defaults to 1", func(t *testing.T) {
		payload := []byte(`{"event_id":"x","order_id":3,"product_ids":[1,2],"completed_at":"2026-08-01T00:00:00Z"}`)
		parsed, err := ParseOrderCompletedEvent(payload)
		if err != nil {
			t.Fatalf("ParseOrderCompletedEvent() error = %v", err)
		}
		if parsed.SchemaVersion != 1 {
			t.Errorf("schema version = %d, want 1", parsed.SchemaVersion)
		}
		if !parsed.CompletedAt.Equal(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("completed at = %s", parsed.CompletedAt)
		}
	})
}
