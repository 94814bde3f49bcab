// Package bootstrap holds the startup and teardown every binary shares:
// loading the environment, building the logger, dialing backing services and
// closing them in reverse order on the way out.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/pubsub"
	"github.com/angelmondragon/bazaar-backend/pkg/redis"
)

type resource struct {
	name   string
	closer io.Closer
}

// Process is a running binary. Resources opened through it are released by
// Close, last opened first.
type Process struct {
	Kind   string
	Config *config.Config
	Log    *logger.Logger

	opened []resource
}

// Start reads .env when present, loads configuration and returns a process
// logging at the configured level.
func Start(kind string) (*Process, error) {
	early := logger.New(logger.Options{ServiceName: kind})
	if err := godotenv.Load(); err != nil {
		early.Debug(context.Background(), "no .env file, using process environment")
	}
	cfg, err := config.Load()
	if err != nil {
		early.Error(context.Background(), "load config", err)
		return nil, err
	}
	cfg.Service.Kind = kind
	return &Process{
		Kind:   kind,
		Config: cfg,
		Log: logger.New(logger.Options{
			ServiceName: kind,
			Level:       cfg.App.LogLevel,
			WarnStack:   cfg.App.LogWarnStack,
			Console:     cfg.App.LogFormat == "console",
		}),
	}, nil
}

// Track registers c to be closed by Close.
func (p *Process) Track(name string, c io.Closer) {
	p.opened = append(p.opened, resource{name: name, closer: c})
}

// Close releases tracked resources in reverse order and reports every
// failure.
func (p *Process) Close() error {
	var errs error
	for _, r := range slices.Backward(p.opened) {
		if err := r.closer.Close(); err != nil {
			p.Log.Error(p.Log.WithField(context.Background(), "resource", r.name), "close failed", err)
			errs = multierr.Append(errs, fmt.Errorf("close %s: %w", r.name, err))
		}
	}
	p.opened = nil
	return errs
}

func (p *Process) Database(ctx context.Context) (*db.Client, error) {
	client, err := db.New(ctx, p.Config.DB, p.Log)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	p.Track("database", client)
	return client, nil
}

func (p *Process) Redis(ctx context.Context) (*redis.Client, error) {
	client, err := redis.New(ctx, p.Config.Redis, p.Log)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	p.Track("redis", client)
	return client, nil
}

func (p *Process) PubSub(ctx context.Context) (*pubsub.Client, error) {
	client, err := pubsub.Dial(ctx, p.Config.GCP, p.Log)
	if err != nil {
		return nil, fmt.Errorf("pubsub: %w", err)
	}
	p.Track("pubsub", client)
	return client, nil
}

// SignalContext is cancelled on SIGINT or SIGTERM and carries the process
// identity as log fields.
func (p *Process) SignalContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return p.Log.WithFields(ctx, map[string]any{
		"env":          p.Config.App.Env,
		"service_kind": p.Kind,
	}), stop
}

// Exit logs err, closes resources and terminates with a non-zero status when
// err is a real failure. Cancellation counts as a clean shutdown.
func (p *Process) Exit(ctx context.Context, err error) {
	failed := err != nil && !errors.Is(err, context.Canceled)
	if failed {
		p.Log.Error(ctx, p.Kind+" stopped", err)
	} else {
		p.Log.Info(ctx, p.Kind+" stopped")
	}
	if closeErr := p.Close(); closeErr != nil {
		failed = true
	}
	if failed {
		os.Exit(1)
	}
}
