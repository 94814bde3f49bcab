package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox/payloads"
)

// ErrPermanent marks failures that retrying cannot fix. The publisher
// dead-letters such rows immediately.
var ErrPermanent = errors.New("permanent outbox failure")

// Permanent formats an error that matches ErrPermanent. %w verbs in format
// are preserved.
func Permanent(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrPermanent}, args...)...)
}

func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}

// Route says where an event type is published, which aggregates may emit it
// and what its data decodes into.
type Route struct {
	Event      enums.OutboxEventType
	Aggregates []enums.OutboxAggregateType
	Topic      string
	NewPayload func() any
}

// Resolved is an outbox row that passed validation and is ready to publish.
type Resolved struct {
	Route    Route
	Envelope outbox.PayloadEnvelope
	Payload  any
}

// EventRegistry holds one Route per publishable event type.
type EventRegistry struct {
	routes map[enums.OutboxEventType]Route
}

func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.NotificationTopic == "" {
		return nil, errors.New("notification topic is required")
	}
	return &EventRegistry{routes: map[enums.OutboxEventType]Route{
		enums.EventNotificationRequested: {
			Event:      enums.EventNotificationRequested,
			Aggregates: []enums.OutboxAggregateType{enums.AggregateOrder, enums.AggregateReview},
			Topic:      cfg.NotificationTopic,
			NewPayload: func() any { return &payloads.NotificationRequestedEvent{} },
		},
	}}, nil
}

// Resolve checks the row against its route and decodes the payload. A row's
// content never changes, so every failure here is permanent.
func (r *EventRegistry) Resolve(row models.OutboxEvent) (*Resolved, error) {
	route, ok := r.routes[row.EventType]
	switch {
	case !ok:
		return nil, Permanent("no route for event type %q", row.EventType)
	case !slices.Contains(route.Aggregates, row.AggregateType):
		return nil, Permanent("aggregate %q may not emit %q", row.AggregateType, row.EventType)
	case row.AggregateID == uuid.Nil:
		return nil, Permanent("row %s has no aggregate id", row.ID)
	}

	env, _, err := outbox.ParseEnvelope(row.Payload)
	if err != nil {
		return nil, Permanent("%s: %w", row.EventType, err)
	}

	payload := route.NewPayload()
	if err := json.Unmarshal(env.Data, payload); err != nil {
		return nil, Permanent("%s data: %w", row.EventType, err)
	}
	return &Resolved{Route: route, Envelope: env, Payload: payload}, nil
}
