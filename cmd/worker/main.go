package main

import (
	"context"
	"fmt"
	"os"

	"github.com/angelmondragon/bazaar-backend/internal/bootstrap"
	"github.com/angelmondragon/bazaar-backend/internal/notifications"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/bazaar-backend/pkg/pubsub"
)

func main() {
	proc, err := bootstrap.Start("worker")
	if err != nil {
		os.Exit(1)
	}
	ctx, stop := proc.SignalContext()
	defer stop()
	proc.Exit(ctx, run(ctx, proc))
}

func run(ctx context.Context, proc *bootstrap.Process) error {
	cfg, logg := proc.Config, proc.Log
	subscription := cfg.PubSub.NotificationSubscription
	ctx = logg.WithField(ctx, "subscription", subscription)

	dbClient, err := proc.Database(ctx)
	if err != nil {
		return err
	}
	redisClient, err := proc.Redis(ctx)
	if err != nil {
		return err
	}
	broker, err := proc.PubSub(ctx)
	if err != nil {
		return err
	}
	if err := broker.Require(ctx, pubsub.Subscription, subscription); err != nil {
		return err
	}

	tracker, err := idempotency.NewTracker(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		return fmt.Errorf("delivery tracker: %w", err)
	}
	materializer, err := notifications.NewMaterializer(notifications.NewRepository(dbClient.DB()), tracker, logg)
	if err != nil {
		return err
	}
	consumer, err := notifications.NewConsumer(materializer, broker.Subscriber(subscription), logg)
	if err != nil {
		return err
	}

	service, err := NewService(ServiceParams{
		Logger:   logg,
		DB:       dbClient,
		Redis:    redisClient,
		PubSub:   broker,
		Consumer: consumer,
	})
	if err != nil {
		return err
	}
	logg.Info(ctx, "worker running")
	return service.Run(ctx)
}
