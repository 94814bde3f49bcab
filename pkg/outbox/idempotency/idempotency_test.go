package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type recordingKV struct {
	claimed map[string]time.Duration
	err     error
	deleted []string
}

func newRecordingKV() *recordingKV {
	return &recordingKV{claimed: map[string]time.Duration{}}
}

func (r *recordingKV) Get(context.Context, string) (string, error) { return "", nil }

func (r *recordingKV) Set(context.Context, string, any, time.Duration) error { return nil }

func (r *recordingKV) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	if _, ok := r.claimed[key]; ok {
		return false, nil
	}
	r.claimed[key] = ttl
	return true, nil
}

func (r *recordingKV) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(r.claimed, key)
		r.deleted = append(r.deleted, key)
	}
	return nil
}

func TestClaimIsFirstWriterWins(t *testing.T) {
	kv := newRecordingKV()
	tracker, err := NewTracker(kv, 24*time.Hour)
	require.NoError(t, err)

	eventID := uuid.New()
	first, err := tracker.Claim(context.Background(), "notifications", eventID)
	require.NoError(t, err)
	require.True(t, first)

	again, err := tracker.Claim(context.Background(), "notifications", eventID)
	require.NoError(t, err)
	require.False(t, again)

	key := "bazaar:processed:notifications:" + eventID.String()
	require.Equal(t, 24*time.Hour, kv.claimed[key])
}

func TestClaimsAreScopedPerConsumer(t *testing.T) {
	tracker, err := NewTracker(newRecordingKV(), time.Hour)
	require.NoError(t, err)

	eventID := uuid.New()
	a, err := tracker.Claim(context.Background(), "notifications", eventID)
	require.NoError(t, err)
	b, err := tracker.Claim(context.Background(), "audit", eventID)
	require.NoError(t, err)
	require.True(t, a)
	require.True(t, b)
}

func TestReleaseAllowsReclaim(t *testing.T) {
	kv := newRecordingKV()
	tracker, err := NewTracker(kv, time.Hour)
	require.NoError(t, err)

	eventID := uuid.New()
	_, err = tracker.Claim(context.Background(), "notifications", eventID)
	require.NoError(t, err)
	require.NoError(t, tracker.Release(context.Background(), "notifications", eventID))
	require.Len(t, kv.deleted, 1)

	claimed, err := tracker.Claim(context.Background(), "notifications", eventID)
	require.NoError(t, err)
	require.True(t, claimed)
}

func TestClaimPropagatesStoreErrors(t *testing.T) {
	kv := newRecordingKV()
	kv.err = errors.New("connection refused")
	tracker, err := NewTracker(kv, time.Hour)
	require.NoError(t, err)

	_, err = tracker.Claim(context.Background(), "notifications", uuid.New())
	require.Error(t, err)
}

func TestClaimRejectsMissingIdentifiers(t *testing.T) {
	tracker, err := NewTracker(newRecordingKV(), 0)
	require.NoError(t, err)
	require.Equal(t, DefaultTTL, tracker.ttl)

	_, err = tracker.Claim(context.Background(), "", uuid.New())
	require.ErrorIs(t, err, errNoConsumer)
	_, err = tracker.Claim(context.Background(), "notifications", uuid.Nil)
	require.ErrorIs(t, err, errNoEventID)

	_, err = NewTracker(newRecordingKV(), -time.Second)
	require.Error(t, err)
	_, err = NewTracker(nil, time.Hour)
	require.Error(t, err)
}
