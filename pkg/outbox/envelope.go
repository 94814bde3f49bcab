package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrBadEnvelope marks a body that can never be decoded, however often it is
// retried.
var ErrBadEnvelope = errors.New("outbox: bad envelope")

// ActorRef identifies the user whose action produced the event.
type ActorRef struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role,omitempty"`
}

// PayloadEnvelope is stored in outbox_events.payload and published unchanged
// as the Pub/Sub message body. Data holds the event-specific document.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"event_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

func (e PayloadEnvelope) ParsedEventID() (uuid.UUID, error) {
	return uuid.Parse(e.EventID)
}

// ParseEnvelope decodes body and checks the parts every consumer relies on:
// a non-nil event id and a data document. A missing version reads as 1.
// Failures wrap ErrBadEnvelope.
func ParseEnvelope(body []byte) (PayloadEnvelope, uuid.UUID, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return env, uuid.Nil, fmt.Errorf("%w: %v", ErrBadEnvelope, err)
	}
	id, err := env.ParsedEventID()
	if err != nil || id == uuid.Nil {
		return env, uuid.Nil, fmt.Errorf("%w: event id %q", ErrBadEnvelope, env.EventID)
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return env, uuid.Nil, fmt.Errorf("%w: no data", ErrBadEnvelope)
	}
	if env.Version <= 0 {
		env.Version = envelopeVersion
	}
	env.Data = data
	return env, id, nil
}
