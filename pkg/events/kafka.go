package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/milan604/hr-console/pkg/logger"
	"github.com/milan604/hr-console/pkg/observability"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
)

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// MessageReader is the subset of *kafka.Reader the consumer needs.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaConfig configures the Kafka publisher and consumer.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

func (c KafkaConfig) topic() string {
	if c.Topic == "" {
		return DefaultTopic
	}
	return c.Topic
}

// KafkaPublisher writes role changes keyed by subject, so all changes of one
// subject land on the same partition in order.
type KafkaPublisher struct {
	writer MessageWriter
	log    logger.LogManager
}

// NewKafkaWriter builds the writer used by NewKafkaPublisher.
func NewKafkaWriter(cfg KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.topic(),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
}

func NewKafkaPublisher(w MessageWriter, log logger.LogManager) *KafkaPublisher {
	return &KafkaPublisher{writer: w, log: log}
}

func (p *KafkaPublisher) PublishRoleChange(ctx context.Context, e RoleChange) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	payload, err := Encode(e)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(e.Subject),
		Value: payload,
		Time:  e.OccurredAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.ErrorFCtx(ctx, "publish role change for %s failed: %v", e.Subject, err)
		return fmt.Errorf("events: publish role change: %w", err)
	}
	p.log.DebugFCtx(ctx, "published role change %s/%s for %s", e.Action, e.Role, e.Subject)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Consumer reads role changes and dispatches them to a Handler.
type Consumer struct {
	reader  MessageReader
	handler Handler
	log     logger.LogManager
	metrics observability.MetricsIface
}

// NewKafkaReader builds a consumer-group reader for cfg.
func NewKafkaReader(cfg KafkaConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.topic(),
		MinBytes: 1,
		MaxBytes: 1 << 20,
	})
}

// NewConsumer wires reader to handler. metrics may be nil.
func NewConsumer(reader MessageReader, handler Handler, log logger.LogManager, metrics observability.MetricsIface) *Consumer {
	return &Consumer{reader: reader, handler: handler, log: log, metrics: metrics}
}

// Run blocks until ctx is cancelled or the reader fails. Malformed messages
// and handler errors are logged and skipped.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("events: read message: %w", err)
		}
		c.dispatch(ctx, msg)
	}
}

func (c *Consumer) dispatch(ctx context.Context, msg kafka.Message) {
	e, err := Decode(msg.Value)
	if err != nil {
		c.log.WarnFCtx(ctx, "skipping malformed role change at offset %d: %v", msg.Offset, err)
		c.count(ctx, "malformed")
		return
	}
	if err := c.handler(ctx, e); err != nil {
		c.log.ErrorFCtx(ctx, "role change for %s not applied: %v", e.Subject, err)
		c.count(ctx, "failed")
		return
	}
	c.count(ctx, "applied")
}

func (c *Consumer) count(ctx context.Context, result string) {
	if c.metrics == nil {
		return
	}
	c.metrics.IncrementCounter(ctx, "hrconsole.role_changes.consumed", attribute.String("result", result))
}
