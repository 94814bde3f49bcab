package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox/payloads"
)

const emitSavepoint = "notification_emit"

// Request describes one notification for one recipient.
type Request struct {
	RecipientID   uuid.UUID
	Type          enums.NotificationType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *outbox.ActorRef
	Payload       any
}

// Emitter records notification requests alongside the caller's transaction.
// Emit never fails the caller: a failed write is rolled back to a savepoint
// and logged.
type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, req Request)
}

type outboxWriter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) (uuid.UUID, error)
}

type outboxEmitter struct {
	outbox outboxWriter
	logg   *logger.Logger
}

// NewEmitter returns an Emitter that appends notification_requested events to
// the outbox.
func NewEmitter(writer outboxWriter, logg *logger.Logger) (Emitter, error) {
	if writer == nil {
		return nil, fmt.Errorf("outbox writer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &outboxEmitter{outbox: writer, logg: logg}, nil
}

func (e *outboxEmitter) Emit(ctx context.Context, tx *gorm.DB, req Request) {
	logCtx := e.logg.WithFields(ctx, map[string]any{
		"recipient_id":      req.RecipientID.String(),
		"notification_type": req.Type.String(),
		"aggregate_id":      req.AggregateID.String(),
	})

	err := db.WithSavepoint(tx, emitSavepoint, func(tx *gorm.DB) error {
		if tx == nil {
			return fmt.Errorf("transaction required")
		}
		if !req.Type.IsValid() {
			return fmt.Errorf("unknown notification type %q", req.Type)
		}
		body, err := json.Marshal(req.Payload)
		if err != nil {
			return fmt.Errorf("encode notification payload: %w", err)
		}
		_, err = e.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventNotificationRequested,
			AggregateType: req.AggregateType,
			AggregateID:   req.AggregateID,
			Actor:         req.Actor,
			Version:       1,
			Data: payloads.NotificationRequestedEvent{
				RecipientID: req.RecipientID,
				Type:        req.Type,
				Payload:     body,
			},
		})
		return err
	})
	if err != nil {
		e.logg.Warn(e.logg.WithField(logCtx, "error", err.Error()), "notification emit failed")
		return
	}
	e.logg.Debug(logCtx, "notification queued")
}
