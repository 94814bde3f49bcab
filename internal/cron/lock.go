package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	pkgredis "github.com/angelmondragon/bazaar-backend/pkg/redis"
)

// A lease outlives the daily interval so a slow cycle is never joined by a
// second replica.
const defaultLockTTL = 25 * time.Hour

// Lock guards a cron cycle so only one replica runs it.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// LockKey is the cron lease for one deployment environment.
func LockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return pkgredis.Key(pkgredis.SpaceCron, "lock", env)
}

// RedisLock is a SETNX lease stamped with a per-acquire owner id. The TTL
// caps how long a crashed holder blocks everyone else.
type RedisLock struct {
	store lockStore
	key   string
	ttl   time.Duration
	owner string
}

func NewRedisLock(store lockStore, key string, ttl time.Duration) (*RedisLock, error) {
	switch {
	case store == nil:
		return nil, errors.New("cron lock: store is required")
	case key == "":
		return nil, errors.New("cron lock: key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{store: store, key: key, ttl: ttl}, nil
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	owner := uuid.NewString()
	won, err := l.store.SetNX(ctx, l.key, owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("cron lock %s: %w", l.key, err)
	}
	if won {
		l.owner = owner
	}
	return won, nil
}

// Release gives the lease back only if this instance still holds it. A lease
// that expired and went to another replica is left in place.
func (l *RedisLock) Release(ctx context.Context) error {
	owner := l.owner
	if owner == "" {
		return nil
	}
	l.owner = ""

	holder, err := l.store.Get(ctx, l.key)
	if pkgredis.IsMiss(err) || (err == nil && holder != owner) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cron lock owner: %w", err)
	}
	return l.store.Del(ctx, l.key)
}
