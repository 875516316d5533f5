// ShopRec - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shoprec

package events

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/shoprec/internal/metrics"
)

// Publisher publishes order-completed events to the configured topic.
// The HTTP order intake endpoint publishes through it; on NATS
// deployments the storefront may also publish to the stream directly.
type Publisher struct {
	publisher message.Publisher
	topic     string
}

// NewPublisher creates a publisher bound to one topic.
func NewPublisher(publisher message.Publisher, topic string) *Publisher {
	return &Publisher{publisher: publisher, topic: topic}
}

// Publish validates, serializes, and publishes the event. The event ID
// becomes the message UUID so broker-side deduplication works.
func (p *Publisher) Publish(event *OrderCompletedEvent) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid order event: %w", err)
	}

	payload, err := event.Marshal()
	if err != nil {
		return err
	}

	msg := message.NewMessage(event.EventID, payload)
	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("publish order event: %w", err)
	}

	metrics.EventsPublished.Inc()
	return nil
}
