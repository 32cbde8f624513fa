package queue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Header keys carried on every Kafka record.
const (
	headerID      = "replicon-id"
	headerAttempt = "replicon-attempt"
)

// KafkaConfig configures the Kafka backend.
type KafkaConfig struct {
	Brokers      []string
	GroupID      string
	BatchTimeout time.Duration
}

// KafkaPublisher writes messages with a hash balancer on the message key.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

var _ Publisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher creates a publisher. Topics are taken from each message.
func NewKafkaPublisher(cfg KafkaConfig, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	batchTimeout := cfg.BatchTimeout
	if batchTimeout == 0 {
		batchTimeout = 10 * time.Millisecond
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Balancer:     &kafka.Hash{},
			BatchTimeout: batchTimeout,
			RequiredAcks: kafka.RequireAll,
		},
		logger: logger,
	}
}

// Publish writes messages synchronously.
func (p *KafkaPublisher) Publish(ctx context.Context, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}
	records := make([]kafka.Message, len(msgs))
	for i, m := range msgs {
		records[i] = toKafka(m)
	}
	if err := p.writer.WriteMessages(ctx, records...); err != nil {
		if errors.Is(err, io.ErrClosedPipe) {
			return ErrClosed
		}
		p.logger.Error("failed to publish messages",
			zap.String("topic", msgs[0].Topic),
			zap.Int("count", len(msgs)),
			zap.Error(err))
		return fmt.Errorf("publish %d messages: %w", len(msgs), err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error { return p.writer.Close() }

// KafkaConsumer reads one topic in a consumer group. Offsets are committed
// on Ack; Nack republishes the message with Attempt incremented and then
// commits the original, so the retry goes to the back of the partition.
type KafkaConsumer struct {
	reader    *kafka.Reader
	publisher *KafkaPublisher
	logger    *zap.Logger
}

var _ Consumer = (*KafkaConsumer)(nil)

// NewKafkaConsumer creates a consumer for topic. Redeliveries are written
// through publisher.
func NewKafkaConsumer(cfg KafkaConfig, topic string, publisher *KafkaPublisher, logger *zap.Logger) *KafkaConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     cfg.GroupID,
		StartOffset: kafka.FirstOffset,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
			logger.Error(fmt.Sprintf(msg, args...), zap.String("topic", topic))
		}),
	})
	return &KafkaConsumer{reader: reader, publisher: publisher, logger: logger}
}

func (c *KafkaConsumer) Receive(ctx context.Context) (Message, error) {
	km, err := c.reader.FetchMessage(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Message{}, ErrClosed
		}
		return Message{}, err
	}
	return fromKafka(km), nil
}

func (c *KafkaConsumer) Ack(ctx context.Context, m Message) error {
	km, ok := m.handle.(kafka.Message)
	if !ok {
		return fmt.Errorf("ack %s: message was not received from kafka", m.ID)
	}
	if err := c.reader.CommitMessages(ctx, km); err != nil {
		return fmt.Errorf("ack %s: %w", m.ID, err)
	}
	return nil
}

func (c *KafkaConsumer) Nack(ctx context.Context, m Message) error {
	retry := m
	retry.Attempt++
	retry.handle = nil
	if err := c.publisher.Publish(ctx, retry); err != nil {
		return fmt.Errorf("nack %s: %w", m.ID, err)
	}
	return c.Ack(ctx, m)
}

func (c *KafkaConsumer) Close() error { return c.reader.Close() }

func toKafka(m Message) kafka.Message {
	return kafka.Message{
		Topic: m.Topic,
		Key:   []byte(m.Key),
		Value: m.Body,
		Headers: []kafka.Header{
			{Key: headerID, Value: []byte(m.ID)},
			{Key: headerAttempt, Value: []byte(strconv.Itoa(m.Attempt))},
		},
	}
}

func fromKafka(km kafka.Message) Message {
	m := Message{
		Topic:   km.Topic,
		Key:     string(km.Key),
		Body:    km.Value,
		Attempt: 1,
		handle:  km,
	}
	for _, h := range km.Headers {
		switch h.Key {
		case headerID:
			m.ID = string(h.Value)
		case headerAttempt:
			if n, err := strconv.Atoi(string(h.Value)); err == nil && n > 0 {
				m.Attempt = n
			}
		}
	}
	return m
}
