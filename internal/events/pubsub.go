// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

package events

import (
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/tunegraph/internal/config"
	"github.com/tomtom215/tunegraph/internal/logging"
)

// queueGroup load-balances triggers across instances on NATS.
const queueGroup = "tunegraph-batch"

// PubSub is the transport pair used by the trigger queue. Subscriber survives
// router shutdown so a restarted consumer can subscribe again; only
// PubSub.Close closes the underlying transport.
type PubSub struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
	Transport  string

	closers []func() error
}

// NewLogger returns a watermill logger backed by the process logger.
func NewLogger() watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logging.NewSlogLogger())
}

// NewPubSub creates the transport selected by cfg.Transport. url overrides
// cfg.NATSURL when non-empty (used with the embedded server).
func NewPubSub(cfg *config.EventsConfig, url string, logger watermill.LoggerAdapter) (*PubSub, error) {
	if logger == nil {
		logger = NewLogger()
	}

	switch cfg.Transport {
	case config.TransportGoChannel, "":
		ch := gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 64,
		}, logger)
		return &PubSub{
			Publisher:  ch,
			Subscriber: sharedSubscriber{ch},
			Transport:  config.TransportGoChannel,
			closers:    []func() error{ch.Close},
		}, nil

	case config.TransportNATS:
		if url == "" {
			url = cfg.NATSURL
		}
		return newNATSPubSub(cfg, url, logger)

	default:
		return nil, fmt.Errorf("unknown events transport %q", cfg.Transport)
	}
}

func newNATSPubSub(cfg *config.EventsConfig, url string, logger watermill.LoggerAdapter) (*PubSub, error) {
	natsOpts := []natsgo.Option{
		natsgo.Name("tunegraph"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	// Core NATS: triggers are best-effort and repaired by the scheduled full batch.
	jsDisabled := wmNats.JetStreamConfig{Disabled: true}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   jsDisabled,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create NATS publisher: %w", err)
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              url,
		QueueGroupPrefix: queueGroup,
		SubscribersCount: 1,
		CloseTimeout:     cfg.CloseTimeout,
		AckWaitTimeout:   30 * time.Second,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream:        jsDisabled,
	}, logger)
	if err != nil {
		if closeErr := pub.Close(); closeErr != nil {
			logger.Error("Failed to close NATS publisher", closeErr, nil)
		}
		return nil, fmt.Errorf("create NATS subscriber: %w", err)
	}

	return &PubSub{
		Publisher:  pub,
		Subscriber: sharedSubscriber{sub},
		Transport:  config.TransportNATS,
		closers:    []func() error{sub.Close, pub.Close},
	}, nil
}

// Close closes the subscriber and publisher.
func (p *PubSub) Close() error {
	var errs []error
	for _, c := range p.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// sharedSubscriber ignores Close. A watermill router closes its handlers'
// subscribers when it stops, and on gochannel that would also close the
// publisher the API triggers through.
type sharedSubscriber struct {
	message.Subscriber
}

func (sharedSubscriber) Close() error { return nil }
