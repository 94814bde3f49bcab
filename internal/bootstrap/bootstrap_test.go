package bootstrap

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestCloseReleasesInReverseOrder(t *testing.T) {
	var out bytes.Buffer
	proc := &Process{Kind: "test", Log: logger.New(logger.Options{ServiceName: "test", Output: &out})}

	var order []string
	track := func(name string, err error) {
		proc.Track(name, closerFunc(func() error {
			order = append(order, name)
			return err
		}))
	}
	track("database", nil)
	track("redis", errors.New("conn reset"))
	track("pubsub", nil)

	err := proc.Close()
	require.ErrorContains(t, err, "close redis: conn reset")
	require.Equal(t, []string{"pubsub", "redis", "database"}, order)
	require.Contains(t, out.String(), `"resource":"redis"`)

	require.NoError(t, proc.Close())
}

func TestStartLoadsConfigForKind(t *testing.T) {
	for k, v := range map[string]string{
		config.EnvAppEnv:                "staging",
		config.EnvPort:                  "8080",
		config.EnvDBDSN:                 "postgres://u@localhost:5432/bazaar",
		config.EnvRedisURL:              "redis://localhost:6379/0",
		config.EnvJWTSecret:             "s",
		config.EnvJWTIssuer:             "i",
		config.EnvGCPProjectID:          "p",
		config.EnvPubSubNotificationSub: "sub",
	} {
		t.Setenv(k, v)
	}

	proc, err := Start("cron-worker")
	require.NoError(t, err)
	require.Equal(t, "cron-worker", proc.Config.Service.Kind)
	require.NotNil(t, proc.Log)
}
