package kafkapublisher

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/contacorrente/ledger/app/shared/core"
	"github.com/contacorrente/ledger/app/shared/shell"
)

const (
	// HeaderEventType carries the domain event type of a message.
	HeaderEventType = "event-type"

	defaultPublishTimeout = 2 * time.Second
)

var (
	// ErrNoBrokers is returned when a Publisher is built without broker addresses.
	ErrNoBrokers = errors.New("at least one kafka broker must be configured")

	// ErrEmptyTopic is returned when a Publisher is built without a topic.
	ErrEmptyTopic = errors.New("kafka topic must not be empty")

	// ErrNilMessageWriter is returned when a nil writer is injected.
	ErrNilMessageWriter = errors.New("kafka message writer must not be nil")

	// ErrInvalidPublishTimeout is returned for a non-positive publish timeout.
	ErrInvalidPublishTimeout = errors.New("publish timeout must be positive")

	// ErrPublishingFailed is joined with the writer error when a message could not be written.
	ErrPublishingFailed = errors.New("publishing event message failed")
)

// MessageWriter is the part of *kafka.Writer the Publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes domain events to Kafka.
type Publisher struct {
	writer  MessageWriter
	timeout time.Duration
}

// Option defines a functional option for configuring the Publisher.
type Option func(*Publisher) error

// WithMessageWriter replaces the default *kafka.Writer.
func WithMessageWriter(writer MessageWriter) Option {
	return func(p *Publisher) error {
		if writer == nil {
			return ErrNilMessageWriter
		}

		p.writer = writer

		return nil
	}
}

// WithPublishTimeout bounds the time a single Publish call may block. The default is 2 seconds.
func WithPublishTimeout(timeout time.Duration) Option {
	return func(p *Publisher) error {
		if timeout <= 0 {
			return ErrInvalidPublishTimeout
		}

		p.timeout = timeout

		return nil
	}
}

// NewPublisher creates a Publisher for the given brokers and topic.
func NewPublisher(brokers []string, topic string, opts ...Option) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}

	if topic == "" {
		return nil, ErrEmptyTopic
	}

	p := &Publisher{timeout: defaultPublishTimeout}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	if p.writer == nil {
		p.writer = &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		}
	}

	return p, nil
}

// Publish writes the event and waits for the broker acknowledgement.
// The caller's cancellation is not inherited, only the publish timeout bounds the call.
func (p *Publisher) Publish(ctx context.Context, event core.MovementPosted) error {
	message, err := shell.EventMessageFrom(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	if writeErr := p.writer.WriteMessages(ctx, toKafkaMessage(message)); writeErr != nil {
		return errors.Join(ErrPublishingFailed, writeErr)
	}

	return nil
}

// Close flushes pending messages and releases the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

func toKafkaMessage(message shell.EventMessage) kafka.Message {
	return kafka.Message{
		Key:   []byte(message.Key),
		Value: message.Payload,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(message.EventType)},
		},
	}
}

// FromKafkaMessage converts a consumed Kafka message back into an EventMessage.
func FromKafkaMessage(message kafka.Message) shell.EventMessage {
	eventMessage := shell.EventMessage{
		Key:     string(message.Key),
		Payload: message.Value,
	}

	for _, header := range message.Headers {
		if header.Key == HeaderEventType {
			eventMessage.EventType = string(header.Value)
		}
	}

	return eventMessage
}
