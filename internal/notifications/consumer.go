package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox/registry"
)

const notificationConsumer = "notification-worker"

// errMalformed marks messages that can never succeed and should be acked.
var errMalformed = errors.New("malformed notification event")

type notificationWriter interface {
	CreateIfAbsent(ctx context.Context, notification *models.Notification) (bool, error)
}

type processedGuard interface {
	Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Release(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Materializer turns notification_requested envelopes into notification rows.
// Redeliveries are absorbed twice: by the redis processed marker and by the
// unique event_id column.
type Materializer struct {
	repo     notificationWriter
	guard    processedGuard
	decoders *registry.DecoderRegistry
	logg     *logger.Logger
}

// NewMaterializer builds a Materializer. guard may be nil, in which case only
// the database constraint deduplicates.
func NewMaterializer(repo notificationWriter, guard processedGuard, logg *logger.Logger) (*Materializer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Materializer{
		repo:     repo,
		guard:    guard,
		decoders: registry.NewConsumerDecoders(),
		logg:     logg,
	}, nil
}

// Handle processes one message body. A nil error or an error wrapping
// errMalformed means the message should be acked.
func (m *Materializer) Handle(ctx context.Context, eventType string, data []byte) error {
	if eventType != string(enums.EventNotificationRequested) {
		return nil
	}

	envelope, eventID, err := outbox.ParseEnvelope(data)
	if err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	decoded, err := m.decoders.Decode(enums.EventNotificationRequested, envelope.Version, envelope.Data)
	if err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	event, ok := decoded.(*payloads.NotificationRequestedEvent)
	if !ok || event.RecipientID == uuid.Nil || !event.Type.IsValid() {
		return fmt.Errorf("%w: incomplete payload", errMalformed)
	}

	if m.guard != nil {
		claimed, err := m.guard.Claim(ctx, notificationConsumer, eventID)
		if err != nil {
			return fmt.Errorf("idempotency check: %w", err)
		}
		if !claimed {
			m.logg.Debug(ctx, "notification event already processed")
			return nil
		}
	}

	payload := event.Payload
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	notification := &models.Notification{
		EventID: eventID,
		UserID:  event.RecipientID,
		Type:    event.Type,
		Payload: datatypes.JSON(payload),
	}
	created, err := m.repo.CreateIfAbsent(ctx, notification)
	if err != nil {
		if m.guard != nil {
			_ = m.guard.Release(ctx, notificationConsumer, eventID)
		}
		return fmt.Errorf("create notification: %w", err)
	}

	logCtx := m.logg.WithFields(ctx, map[string]any{
		"event_id":     eventID.String(),
		"recipient_id": event.RecipientID.String(),
		"type":         event.Type.String(),
	})
	if created {
		m.logg.Info(logCtx, "notification materialized")
	} else {
		m.logg.Debug(logCtx, "notification already materialized")
	}
	return nil
}

// Consumer feeds a Pub/Sub subscription into a Materializer.
type Consumer struct {
	materializer *Materializer
	subscription *pubsub.Subscriber
	logg         *logger.Logger
}

// NewConsumer builds a notification consumer.
func NewConsumer(materializer *Materializer, subscription *pubsub.Subscriber, logg *logger.Logger) (*Consumer, error) {
	if materializer == nil {
		return nil, fmt.Errorf("materializer required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("notification subscription required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{materializer: materializer, subscription: subscription, logg: logg}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		eventType := msg.Attributes["event_type"]
		logCtx := c.logg.WithFields(ctx, map[string]any{
			"message_id": msg.ID,
			"event_type": eventType,
		})

		err := c.materializer.Handle(logCtx, eventType, msg.Data)
		switch {
		case err == nil:
			msg.Ack()
		case errors.Is(err, errMalformed):
			c.logg.Error(logCtx, "dropping malformed notification event", err)
			msg.Ack()
		default:
			c.logg.Error(logCtx, "notification handling failed", err)
			msg.Nack()
		}
	})
}
