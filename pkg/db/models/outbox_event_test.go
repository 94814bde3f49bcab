package models

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

func TestDeadLetterCopiesEvent(t *testing.T) {
	event := OutboxEvent{
		ID:            NewID(),
		EventType:     enums.EventNotificationRequested,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       datatypes.JSON(`{"a":1}`),
		AttemptCount:  4,
	}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))

	entry := event.DeadLetter(enums.OutboxDLQReasonMaxAttempts, errors.New("topic gone"), at)

	require.Equal(t, event.ID, entry.EventID)
	require.Equal(t, event.AggregateID, entry.AggregateID)
	require.Equal(t, 4, entry.AttemptCount)
	require.Equal(t, time.UTC, entry.FailedAt.Location())
	require.NotNil(t, entry.ErrorMessage)
	require.Equal(t, "topic gone", *entry.ErrorMessage)
	require.Equal(t, uuid.Nil, entry.ID)

	require.Nil(t, event.DeadLetter(enums.OutboxDLQReasonNonRetryable, nil, at).ErrorMessage)
}

func TestEnsureIDKeepsExisting(t *testing.T) {
	id := uuid.New()
	ensureID(&id)
	var fresh uuid.UUID
	ensureID(&fresh)
	require.NotEqual(t, uuid.Nil, fresh)
	require.Equal(t, byte(7), byte(fresh.Version()))

	event := OutboxEvent{ID: id}
	require.Equal(t, id.String(), event.LogFields()["outbox_id"])
}
