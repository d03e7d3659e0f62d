package wishlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"marketplace-catalog/internal/catalog"

	amqp "github.com/rabbitmq/amqp091-go"
)

const consumerTag = "catalog-wishlist-invalidator"

var errMalformedEvent = errors.New("malformed wishlist event")

type Invalidator interface {
	Invalidate(ctx context.Context, userID string) error
}

// Consumer turns wishlist mutation events published elsewhere into count
// invalidations.
type Consumer struct {
	channel     *amqp.Channel
	queue       string
	invalidator Invalidator
	logger      *slog.Logger
}

func NewConsumer(conn *amqp.Connection, queue string, invalidator Invalidator, logger *slog.Logger) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		queue,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare queue %q: %w", queue, err)
	}

	return &Consumer{
		channel:     ch,
		queue:       queue,
		invalidator: invalidator,
		logger:      logger,
	}, nil
}

func (c *Consumer) Listen(ctx context.Context) error {
	msgs, err := c.channel.Consume(
		c.queue,
		consumerTag,
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume queue %q: %w", c.queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}

			if err := c.handleMessage(ctx, &msg); err != nil {
				c.logger.Error("handle wishlist event failed", "error", err)
				// requeueing a message we cannot decode would loop forever
				_ = msg.Nack(false, !errors.Is(err, errMalformedEvent))
				continue
			}

			_ = msg.Ack(false)
		}
	}
}

func (c *Consumer) handleMessage(ctx context.Context, msg *amqp.Delivery) error {
	var event catalog.WishlistEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		return fmt.Errorf("%w: %w", errMalformedEvent, err)
	}
	if event.UserID == "" {
		return fmt.Errorf("%w: missing user_id", errMalformedEvent)
	}

	if err := c.invalidator.Invalidate(ctx, event.UserID); err != nil {
		return err
	}

	c.logger.Info("wishlist count invalidated",
		"event_type", event.EventType,
		"user_id", event.UserID,
		"wishlist_id", event.WishlistID,
	)
	return nil
}

func (c *Consumer) Close() error {
	return c.channel.Close()
}
