package event

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

const batchTimeout = 10 * time.Millisecond

// messageWriter is the subset of *kafka.Writer the transport uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaTransport sends records through one shared kafka.Writer, which is
// safe for concurrent use.
type KafkaTransport struct {
	w messageWriter
}

// NewKafkaTransport builds a writer for brokers. Records choose their topic;
// messages with the same key land on the same partition. Each Send carries a
// single message, so batches flush at once instead of waiting to fill.
func NewKafkaTransport(brokers []string, writeTimeout time.Duration) *KafkaTransport {
	return &KafkaTransport{w: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchSize:              1,
		BatchTimeout:           batchTimeout,
		WriteTimeout:           writeTimeout,
		AllowAutoTopicCreation: true,
	}}
}

func (t *KafkaTransport) Send(ctx context.Context, rec Record) error {
	msg := kafka.Message{
		Topic: rec.Topic,
		Key:   rec.Key,
		Value: rec.Value,
	}
	for k, v := range rec.Headers {
		msg.Headers = append(msg.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	if err := t.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write to %s: %w", rec.Topic, err)
	}
	return nil
}

func (t *KafkaTransport) Close() error {
	return t.w.Close()
}
