// Package idempotency records which outbox events a consumer has already
// handled so Pub/Sub redeliveries become no-ops.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/redis"
)

// DefaultTTL covers the Pub/Sub retention window with room to spare.
const DefaultTTL = 7 * 24 * time.Hour

var (
	errNoConsumer = errors.New("idempotency: consumer name is required")
	errNoEventID  = errors.New("idempotency: event id is required")
)

// Tracker claims (consumer, event) pairs in Redis. A claim lives for ttl;
// the database unique constraint on event_id remains the final backstop.
type Tracker struct {
	kv  redis.KV
	ttl time.Duration
}

// NewTracker returns a Tracker. A zero ttl selects DefaultTTL.
func NewTracker(kv redis.KV, ttl time.Duration) (*Tracker, error) {
	if kv == nil {
		return nil, errors.New("idempotency: redis store is required")
	}
	switch {
	case ttl < 0:
		return nil, errors.New("idempotency: ttl must not be negative")
	case ttl == 0:
		ttl = DefaultTTL
	}
	return &Tracker{kv: kv, ttl: ttl}, nil
}

// Claim reports true when this call is the first to see eventID for
// consumer. A false result means another delivery already handled it.
func (t *Tracker) Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key, err := claimKey(consumer, eventID)
	if err != nil {
		return false, err
	}
	return t.kv.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), t.ttl)
}

// Release drops a claim so a failed delivery can be retried.
func (t *Tracker) Release(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := claimKey(consumer, eventID)
	if err != nil {
		return err
	}
	return t.kv.Del(ctx, key)
}

func claimKey(consumer string, eventID uuid.UUID) (string, error) {
	if consumer == "" {
		return "", errNoConsumer
	}
	if eventID == uuid.Nil {
		return "", errNoEventID
	}
	return redis.Key(redis.SpaceProcessed, consumer, eventID.String()), nil
}
