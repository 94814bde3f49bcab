package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/bazaar-backend/internal/bootstrap"
	"github.com/angelmondragon/bazaar-backend/internal/cron"
	"github.com/angelmondragon/bazaar-backend/internal/notifications"
	"github.com/angelmondragon/bazaar-backend/pkg/metrics"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox"
)

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit")
	flag.Parse()

	proc, err := bootstrap.Start("cron-worker")
	if err != nil {
		os.Exit(1)
	}
	ctx, stop := proc.SignalContext()
	defer stop()
	proc.Exit(ctx, run(ctx, proc, *once))
}

func run(ctx context.Context, proc *bootstrap.Process, once bool) error {
	cfg, logg := proc.Config, proc.Log

	dbClient, err := proc.Database(ctx)
	if err != nil {
		return err
	}
	redisClient, err := proc.Redis(ctx)
	if err != nil {
		return err
	}

	outboxJob, err := cron.NewOutboxRetentionJob(logg, dbClient, outbox.NewRepository(dbClient.DB()),
		cfg.Cron.OutboxRetentionDays, cfg.Outbox.MaxAttempts)
	if err != nil {
		return fmt.Errorf("outbox retention job: %w", err)
	}
	notificationJob, err := cron.NewNotificationRetentionJob(logg, dbClient, notifications.NewRepository(dbClient.DB()),
		cfg.Cron.NotificationRetentionDays)
	if err != nil {
		return fmt.Errorf("notification retention job: %w", err)
	}
	lock, err := cron.NewRedisLock(redisClient, cron.LockKey(cfg.App.Env), 0)
	if err != nil {
		return fmt.Errorf("cron lock: %w", err)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(outboxJob, notificationJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		return err
	}

	if once {
		return service.RunOnce(ctx)
	}
	logg.Info(logg.WithField(ctx, "interval", cfg.Cron.Interval.String()), "cron worker running")
	return service.Run(ctx)
}
