package event

import (
	"context"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Sink stores one consumed event body.
type Sink interface {
	Store(ctx context.Context, body string) error
}

// messageReader is the subset of *kafka.Reader the consumer uses.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// ConsumerConfig names the topic and consumer group to read.
type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Consumer reads product events back from Kafka and writes each body to a Sink.
type Consumer struct {
	r      messageReader
	sink   Sink
	logger *zap.SugaredLogger
}

// NewConsumer joins cfg.GroupID starting from the oldest retained offset.
func NewConsumer(cfg ConsumerConfig, sink Sink, logger *zap.SugaredLogger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	return &Consumer{r: r, sink: sink, logger: logger}
}

// Run consumes until ctx is cancelled. A failure to store one message is
// logged and skipped; a read failure other than cancellation is returned.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("read message: %w", err)
		}
		if err := c.sink.Store(ctx, string(msg.Value)); err != nil {
			c.logger.Errorw("store consumed event failed",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"key", string(msg.Key),
				"err", err,
			)
			continue
		}
		c.logger.Debugw("event consumed",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
		)
	}
}

func (c *Consumer) Close() error {
	return c.r.Close()
}
