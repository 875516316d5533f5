// ShopRec - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shoprec

package events

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/shoprec/internal/logging"
	"github.com/tomtom215/shoprec/internal/metrics"
	"github.com/tomtom215/shoprec/internal/recommend"
)

// OrderApplier folds a completed order into the live index. Returns
// false when the order was already applied.
type OrderApplier interface {
	ApplyOrder(order recommend.Order) bool
}

// OrderRecorder persists a completed order to the history store. Nil is
// allowed when the storefront owns the order database.
type OrderRecorder interface {
	InsertCompletedOrder(ctx context.Context, order recommend.Order, completedAt time.Time) error
}

// Consumer processes order-completed events: it records the order in the
// history store and applies it to the co-purchase index incrementally.
type Consumer struct {
	applier  OrderApplier
	recorder OrderRecorder
}

// NewConsumer creates a consumer. recorder may be nil when order
// persistence happens upstream.
func NewConsumer(applier OrderApplier, recorder OrderRecorder) *Consumer {
	return &Consumer{applier: applier, recorder: recorder}
}

// Register attaches the consumer to the router on the given topic.
func (c *Consumer) Register(router *Router, topic string, subscriber message.Subscriber) {
	router.AddConsumerHandler("order-completed-consumer", topic, subscriber, c.Handle)
}

// Handle processes a single message. A malformed payload is logged and
// acked; retrying cannot fix it and nacking would poison the stream. A
// storage failure returns an error so the router retries.
func (c *Consumer) Handle(msg *message.Message) error {
	start := time.Now()

	event, err := ParseOrderCompletedEvent(msg.Payload)
	if err != nil {
		metrics.EventsParseFailed.Inc()
		logging.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("Dropping malformed order event")
		return nil
	}

	order := event.Order()

	if c.recorder != nil {
		if err := c.recorder.InsertCompletedOrder(msg.Context(), order, event.CompletedAt); err != nil {
			logging.Error().Err(err).Int("order_id", order.ID).Msg("Failed to persist order")
			return err
		}
	}

	applied := c.applier.ApplyOrder(order)
	metrics.EventsConsumed.Inc()
	metrics.EventProcessingDuration.Observe(time.Since(start).Seconds())

	logging.Debug().
		Int("order_id", order.ID).
		Int("items", len(order.Items)).
		Bool("applied", applied).
		Str("event_id", event.EventID).
		Msg("Order event processed")
	return nil
}
