package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
)

type memoryCommands struct {
	values    map[string]string
	counters  map[string]int64
	expiries  map[string]time.Duration
	expireErr error
}

func newMemoryCommands() *memoryCommands {
	return &memoryCommands{
		values:   map[string]string{},
		counters: map[string]int64{},
		expiries: map[string]time.Duration{},
	}
}

func (m *memoryCommands) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *memoryCommands) Get(_ context.Context, key string) *redis.StringCmd {
	if v, ok := m.values[key]; ok {
		return redis.NewStringResult(v, nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

func (m *memoryCommands) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	m.values[key] = fmt.Sprint(value)
	m.expiries[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (m *memoryCommands) SetNX(_ context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd {
	if _, ok := m.values[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	m.values[key] = fmt.Sprint(value)
	m.expiries[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (m *memoryCommands) Incr(_ context.Context, key string) *redis.IntCmd {
	m.counters[key]++
	return redis.NewIntResult(m.counters[key], nil)
}

func (m *memoryCommands) Expire(_ context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	if m.expireErr != nil {
		return redis.NewBoolResult(false, m.expireErr)
	}
	m.expiries[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (m *memoryCommands) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.values, key)
		delete(m.counters, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestKeySkipsBlankParts(t *testing.T) {
	require.Equal(t, "bazaar", Key())
	require.Equal(t, "bazaar:req:buyer-1:abc", Key(SpaceRequest, "buyer-1", "abc"))
	require.Equal(t, "bazaar:rl:ip", Key(SpaceRateLimit, " ", "ip "))
}

func TestCountInWindowSetsExpiryOnFirstHitOnly(t *testing.T) {
	ctx := context.Background()
	cmds := newMemoryCommands()
	client := &Client{cmd: cmds}

	for want := int64(1); want <= 3; want++ {
		n, err := client.CountInWindow(ctx, "hits", time.Minute)
		require.NoError(t, err)
		require.Equal(t, want, n)
	}
	require.Equal(t, time.Minute, cmds.expiries["hits"])

	cmds.expiries["hits"] = 0
	_, err := client.CountInWindow(ctx, "hits", time.Minute)
	require.NoError(t, err)
	require.Zero(t, cmds.expiries["hits"])
}

func TestCountInWindowDropsCounterWhenExpireFails(t *testing.T) {
	cmds := newMemoryCommands()
	cmds.expireErr = errors.New("readonly replica")
	client := &Client{cmd: cmds}

	_, err := client.CountInWindow(context.Background(), "hits", time.Minute)
	require.Error(t, err)
	_, present := cmds.counters["hits"]
	require.False(t, present)
}

func TestSetNXGetDel(t *testing.T) {
	ctx := context.Background()
	client := &Client{cmd: newMemoryCommands()}

	ok, err := client.SetNX(ctx, "k", "v", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = client.SetNX(ctx, "k", "other", time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	got, err := client.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v", got)

	require.NoError(t, client.Set(ctx, "k", "v2", time.Minute))
	got, err = client.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v2", got)

	require.NoError(t, client.Del(ctx, "k"))
	_, err = client.Get(ctx, "k")
	require.True(t, IsMiss(err))
}

func TestDisconnectedClient(t *testing.T) {
	client := &Client{}
	require.ErrorIs(t, client.Ping(context.Background()), errNotConnected)
	_, err := client.CountInWindow(context.Background(), "k", time.Second)
	require.ErrorIs(t, err, errNotConnected)
	require.NoError(t, client.Close())
}

func TestDialOptions(t *testing.T) {
	_, err := dialOptions(config.RedisConfig{})
	require.Error(t, err)

	opts, err := dialOptions(config.RedisConfig{
		URL:         "redis://:secret@cache:6380/2",
		DB:          5,
		PoolSize:    20,
		DialTimeout: 3 * time.Second,
	})
	require.NoError(t, err)
	require.Equal(t, "cache:6380", opts.Addr)
	require.Equal(t, 2, opts.DB)
	require.Equal(t, 20, opts.PoolSize)
	require.Equal(t, 3*time.Second, opts.DialTimeout)

	opts, err = dialOptions(config.RedisConfig{Address: "localhost:6379", DB: 4})
	require.NoError(t, err)
	require.Equal(t, 4, opts.DB)
}
