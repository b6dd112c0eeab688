// Package events publishes portal domain events over watermill.
// The in-process gochannel driver is the default; the kafka driver lets
// other services follow submissions and review decisions.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"

	"github.com/prn-tf/jmrh-portal/internal/config"
	"github.com/prn-tf/jmrh-portal/internal/metrics"
)

// Topic suffixes. The configured prefix is prepended on the wire.
const (
	TopicUserRegistered     = "user.registered"
	TopicUserBanned         = "user.banned"
	TopicUserUnbanned       = "user.unbanned"
	TopicProfessorCreated   = "professor.created"
	TopicPaperSubmitted     = "paper.submitted"
	TopicPaperAssigned      = "paper.assigned"
	TopicPaperStatusChanged = "paper.status_changed"
)

// Topics lists every topic the portal publishes.
var Topics = []string{
	TopicUserRegistered,
	TopicUserBanned,
	TopicUserUnbanned,
	TopicProfessorCreated,
	TopicPaperSubmitted,
	TopicPaperAssigned,
	TopicPaperStatusChanged,
}

// ErrUnknownDriver is returned for an unsupported events driver.
var ErrUnknownDriver = errors.New("unknown events driver")

// Event is the JSON payload of every published message.
type Event struct {
	Topic      string    `json:"topic"`
	OccurredAt time.Time `json:"occurredAt"`
	ActorID    string    `json:"actorId,omitempty"`

	UserID    string `json:"userId,omitempty"`
	UserEmail string `json:"userEmail,omitempty"`
	UserRole  string `json:"userRole,omitempty"`

	PaperID     string `json:"paperId,omitempty"`
	PaperTitle  string `json:"paperTitle,omitempty"`
	AuthorID    string `json:"authorId,omitempty"`
	ProfessorID string `json:"professorId,omitempty"`
	FromStatus  string `json:"fromStatus,omitempty"`
	ToStatus    string `json:"toStatus,omitempty"`
	Comments    string `json:"comments,omitempty"`

	// Flagged marks a status change applied outside the review lifecycle.
	Flagged bool `json:"flagged,omitempty"`
}

// PubSub is a watermill endpoint that both publishes and subscribes.
type PubSub interface {
	message.Publisher
	message.Subscriber
}

// Bus publishes events and hands out subscribers for the same driver.
type Bus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	prefix     string
	shared     bool
	logger     zerolog.Logger
	wmLogger   watermill.LoggerAdapter
	metrics    *metrics.Metrics
}

// NewBus creates a Bus for cfg.Driver.
func NewBus(cfg config.EventsConfig, logger zerolog.Logger, m *metrics.Metrics) (*Bus, error) {
	wmLogger := NewLoggerAdapter(logger)
	b := &Bus{
		prefix:   cfg.TopicPrefix,
		logger:   logger.With().Str("component", "events").Logger(),
		wmLogger: wmLogger,
		metrics:  m,
	}

	switch cfg.Driver {
	case "", "memory":
		ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, wmLogger)
		b.publisher = ch
		b.subscriber = ch
		b.shared = true

	case "kafka":
		pub, err := kafka.NewPublisher(kafka.PublisherConfig{
			Brokers:   cfg.Brokers,
			Marshaler: kafka.DefaultMarshaler{},
		}, wmLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
		}
		sub, err := kafka.NewSubscriber(kafka.SubscriberConfig{
			Brokers:       cfg.Brokers,
			Unmarshaler:   kafka.DefaultMarshaler{},
			ConsumerGroup: "jmrh-portal",
		}, wmLogger)
		if err != nil {
			_ = pub.Close()
			return nil, fmt.Errorf("failed to create kafka subscriber: %w", err)
		}
		b.publisher = pub
		b.subscriber = sub

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}

	return b, nil
}

// NewBusWith creates a Bus over an existing pub/sub that owns both sides,
// such as a gochannel.GoChannel.
func NewBusWith(ps PubSub, prefix string, logger zerolog.Logger, m *metrics.Metrics) *Bus {
	return &Bus{
		publisher:  ps,
		subscriber: ps,
		shared:     true,
		prefix:     prefix,
		logger:     logger.With().Str("component", "events").Logger(),
		wmLogger:   NewLoggerAdapter(logger),
		metrics:    m,
	}
}

// Topic returns the wire name of a topic suffix.
func (b *Bus) Topic(name string) string {
	return b.prefix + name
}

// Publish sends e on its topic.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		b.metrics.RecordEvent(e.Topic, err)
		return fmt.Errorf("failed to encode event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("topic", e.Topic)
	msg.SetContext(ctx)

	err = b.publisher.Publish(b.Topic(e.Topic), msg)
	b.metrics.RecordEvent(e.Topic, err)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", e.Topic, err)
	}
	return nil
}

// Subscriber returns the subscriber side of the bus.
func (b *Bus) Subscriber() message.Subscriber {
	return b.subscriber
}

// Close closes the publisher and subscriber.
func (b *Bus) Close() error {
	var errs []error
	if err := b.publisher.Close(); err != nil {
		errs = append(errs, err)
	}
	if b.subscriber != nil && !b.shared {
		if err := b.subscriber.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Decode parses an Event payload.
func Decode(msg *message.Message) (Event, error) {
	var e Event
	if err := json.Unmarshal(msg.Payload, &e); err != nil {
		return Event{}, fmt.Errorf("failed to decode event: %w", err)
	}
	return e, nil
}
