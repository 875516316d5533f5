// ShopRec - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shoprec

package events

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/shoprec/internal/config"
)

// PubSub bundles the publisher and subscriber for one transport.
type PubSub struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber

	// shared is true when both sides are the same object (inproc).
	shared bool
}

// NewPubSub creates the transport selected by cfg.Transport.
//
// "inproc" runs everything over an in-memory channel: the HTTP order
// intake endpoint publishes and the consumer handler subscribes inside
// the same process. "nats" connects both sides to NATS JetStream, where
// the storefront usually publishes directly.
func NewPubSub(cfg *config.EventsConfig, logger watermill.LoggerAdapter) (*PubSub, error) {
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}

	switch cfg.Transport {
	case "inproc":
		ch := gochannel.NewGoChannel(gochannel.Config{
			// Buffer so HTTP intake is not back-pressured by a slow
			// consumer restart
			OutputChannelBuffer: 256,
		}, logger)
		return &PubSub{Publisher: ch, Subscriber: ch, shared: true}, nil

	case "nats":
		pub, err := newNATSPublisher(cfg, logger)
		if err != nil {
			return nil, err
		}
		sub, err := newNATSSubscriber(cfg, logger)
		if err != nil {
			closePublisherQuietly(pub, logger)
			return nil, err
		}
		return &PubSub{Publisher: pub, Subscriber: sub}, nil

	default:
		return nil, fmt.Errorf("unknown events transport %q", cfg.Transport)
	}
}

// Close shuts down both sides of the transport.
func (ps *PubSub) Close() error {
	var firstErr error
	if err := ps.Publisher.Close(); err != nil {
		firstErr = fmt.Errorf("close publisher: %w", err)
	}
	if !ps.shared {
		if err := ps.Subscriber.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close subscriber: %w", err)
		}
	}
	return firstErr
}

func newNATSPublisher(cfg *config.EventsConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	wmConfig := wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOptions(cfg, logger),
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: cfg.StreamName == "",
			TrackMsgId:    true, // Broker-side deduplication on Nats-Msg-Id
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}

	pub, err := wmNats.NewPublisher(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create nats publisher: %w", err)
	}
	return pub, nil
}

func newNATSSubscriber(cfg *config.EventsConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	subOpts := []natsgo.SubOpt{
		natsgo.MaxDeliver(5),
		natsgo.MaxAckPending(1000),
		natsgo.AckWait(cfg.AckWait),
		natsgo.DeliverNew(),
	}

	// When a stream name is configured, bind to the existing stream the
	// storefront provisions. AutoProvision would otherwise try to create
	// a stream named after the topic.
	autoProvision := true
	if cfg.StreamName != "" {
		subOpts = append(subOpts, natsgo.BindStream(cfg.StreamName))
		autoProvision = false
	}

	wmConfig := wmNats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: 4,
		AckWaitTimeout:   cfg.AckWait,
		CloseTimeout:     cfg.CloseTimeout,
		NatsOptions:      natsOptions(cfg, logger),
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:         false,
			AutoProvision:    autoProvision,
			AckAsync:         false, // Synchronous for exactly-once
			SubscribeOptions: subOpts,
			DurablePrefix:    cfg.DurableName,
		},
	}

	sub, err := wmNats.NewSubscriber(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create nats subscriber: %w", err)
	}
	return sub, nil
}

func natsOptions(cfg *config.EventsConfig, logger watermill.LoggerAdapter) []natsgo.Option {
	return []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}
}

func closePublisherQuietly(pub message.Publisher, logger watermill.LoggerAdapter) {
	if err := pub.Close(); err != nil {
		logger.Error("Failed to close publisher", err, nil)
	}
}
