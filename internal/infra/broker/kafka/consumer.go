package kafka

import (
	"context"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
)

type MessageHandler interface {
	Handle(ctx context.Context, msg *sarama.ConsumerMessage) error
}

// Consumer runs a consumer group. A message whose handler fails is retried
// with Backoff, then logged and skipped.
type Consumer struct {
	group   sarama.ConsumerGroup
	handler MessageHandler
	Backoff []time.Duration
	Logger  *slog.Logger
}

func NewConsumer(brokers []string, groupID string, cfg *sarama.Config, handler MessageHandler) (*Consumer, error) {
	if cfg == nil {
		cfg = sarama.NewConfig()
	}
	cfg.Version = sarama.V2_5_0_0
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	g, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, err
	}
	return &Consumer{group: g, handler: handler}, nil
}

func (c *Consumer) Run(ctx context.Context, topics []string) error {
	h := consumerGroupHandler{handler: c.handler, backoff: c.Backoff, logger: c.logger()}
	for {
		if err := c.group.Consume(ctx, topics, h); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

func (c *Consumer) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

type consumerGroupHandler struct {
	handler MessageHandler
	backoff []time.Duration
	logger  *slog.Logger
}

func (h consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h consumerGroupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		if err := deliver(sess.Context(), h.handler, message, h.backoff); err != nil {
			if sess.Context().Err() != nil {
				return nil
			}
			h.logger.Error("kafka message skipped",
				"topic", message.Topic,
				"partition", message.Partition,
				"offset", message.Offset,
				"error", err,
			)
		}
		sess.MarkMessage(message, "")
	}
	return nil
}

// deliver calls handler once plus one retry per backoff step.
func deliver(ctx context.Context, handler MessageHandler, msg *sarama.ConsumerMessage, backoff []time.Duration) error {
	err := handler.Handle(ctx, msg)
	for _, wait := range backoff {
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		err = handler.Handle(ctx, msg)
	}
	return err
}
