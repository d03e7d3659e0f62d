package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"marketplace-catalog/internal/catalog"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	contentTypeJSON = "application/json"
	appID           = "catalog"
	headerUserID    = "user_id"

	// the auth collaborator only acts on recent invalidations
	invalidationTTL = 10 * time.Minute
)

// SessionPublisher tells the auth collaborator that a viewer's token stopped
// working so it can ask the viewer to sign in again.
type SessionPublisher struct {
	channel *amqp.Channel
	queue   string
	now     func() time.Time
}

func NewSessionPublisher(conn *amqp.Connection, queue string) (*SessionPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare queue %q: %w", queue, err)
	}

	return &SessionPublisher{channel: ch, queue: queue, now: time.Now}, nil
}

// Invalidated publishes a session_invalidated event. userID is empty when the
// token could not be tied to a user.
func (p *SessionPublisher) Invalidated(ctx context.Context, userID, reason string) error {
	msg, err := invalidationMessage(userID, reason, p.now().UTC())
	if err != nil {
		return err
	}

	if err := p.channel.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		return fmt.Errorf("publish session invalidation for %q: %w", userID, err)
	}
	return nil
}

func (p *SessionPublisher) Close() error {
	return p.channel.Close()
}

func invalidationMessage(userID, reason string, at time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(catalog.SessionEvent{
		EventType: catalog.EventSessionInvalidated,
		UserID:    userID,
		Reason:    reason,
		Timestamp: at,
	})
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal session event: %w", err)
	}

	return amqp.Publishing{
		ContentType:  contentTypeJSON,
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		AppId:        appID,
		Type:         catalog.EventSessionInvalidated,
		Timestamp:    at,
		Expiration:   strconv.FormatInt(invalidationTTL.Milliseconds(), 10),
		Headers:      amqp.Table{headerUserID: userID},
		Body:         body,
	}, nil
}
