package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// WatermillPublisher publishes events through any watermill publisher.
// Topic names are prefix + event type.
type WatermillPublisher struct {
	publisher   message.Publisher
	subscriber  message.Subscriber
	topicPrefix string
	logger      *slog.Logger
}

// ErrNoSubscriber is returned by Subscribe when the transport is publish-only
var ErrNoSubscriber = errors.New("event transport does not support subscribing")

// Config selects the transport: Kafka when brokers are set, an in-process
// go channel otherwise. The go channel keeps no history: events published
// while nothing is subscribed through Subscribe are dropped.
type Config struct {
	Brokers     []string
	TopicPrefix string
}

func NewPublisher(cfg Config, logger *slog.Logger) (*WatermillPublisher, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	if len(cfg.Brokers) == 0 {
		pubSub := gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
		logger.Info("In-process event publisher created", "topic_prefix", cfg.TopicPrefix)
		return NewWatermillPublisher(pubSub, cfg.TopicPrefix, logger), nil
	}

	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   cfg.Brokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	logger.Info("Kafka event publisher created", "brokers", cfg.Brokers, "topic_prefix", cfg.TopicPrefix)
	return NewWatermillPublisher(publisher, cfg.TopicPrefix, logger), nil
}

// NewWatermillPublisher wraps publisher. If it can also subscribe, as the go
// channel can, Subscribe delivers the published events.
func NewWatermillPublisher(publisher message.Publisher, topicPrefix string, logger *slog.Logger) *WatermillPublisher {
	p := &WatermillPublisher{
		publisher:   publisher,
		topicPrefix: topicPrefix,
		logger:      logger,
	}
	if sub, ok := publisher.(message.Subscriber); ok {
		p.subscriber = sub
	}
	return p
}

// Subscribe streams events of one type published after the call. Messages
// must be acked.
func (p *WatermillPublisher) Subscribe(ctx context.Context, eventType string) (<-chan *message.Message, error) {
	if p.subscriber == nil {
		return nil, ErrNoSubscriber
	}
	return p.subscriber.Subscribe(ctx, p.Topic(eventType))
}

// Topic returns the topic an event type is published to
func (p *WatermillPublisher) Topic(eventType string) string {
	return p.topicPrefix + eventType
}

func (p *WatermillPublisher) Publish(ctx context.Context, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("type", event.Type)
	msg.Metadata.Set("source", event.Source)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(p.Topic(event.Type), msg); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.Type, err)
	}

	p.logger.Debug("Event published", "event_id", event.ID, "type", event.Type)
	return nil
}

func (p *WatermillPublisher) Close() error {
	return p.publisher.Close()
}
