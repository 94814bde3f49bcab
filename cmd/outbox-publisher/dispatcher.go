package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/metrics"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollMs         = 500
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type txRunner interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pinger interface {
	Ping(context.Context) error
}

type outboxStore interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type deadLetterStore interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type eventResolver interface {
	Resolve(models.OutboxEvent) (*registry.Resolved, error)
}

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// DispatcherParams wires the outbox dispatcher. PublisherFor maps a topic to
// its publisher and returns nil for unknown topics.
type DispatcherParams struct {
	Outbox       config.OutboxConfig
	Logger       *logger.Logger
	DB           txRunner
	Broker       pinger
	Store        outboxStore
	DeadLetters  deadLetterStore
	Registry     eventResolver
	PublisherFor func(topic string) publisher
	Metrics      *metrics.OutboxMetrics
}

// Dispatcher relays committed outbox rows to Pub/Sub. Rows are claimed with
// SKIP LOCKED so several replicas can run side by side.
type Dispatcher struct {
	logg         *logger.Logger
	db           txRunner
	broker       pinger
	store        outboxStore
	deadLetters  deadLetterStore
	registry     eventResolver
	publisherFor func(topic string) publisher
	metrics      *metrics.OutboxMetrics
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.Broker == nil:
		return nil, errors.New("pubsub client is required")
	case params.Store == nil:
		return nil, errors.New("outbox repository is required")
	case params.DeadLetters == nil:
		return nil, errors.New("dlq repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	case params.PublisherFor == nil:
		return nil, errors.New("publisher lookup is required")
	}

	d := &Dispatcher{
		logg:         params.Logger,
		db:           params.DB,
		broker:       params.Broker,
		store:        params.Store,
		deadLetters:  params.DeadLetters,
		registry:     params.Registry,
		publisherFor: params.PublisherFor,
		metrics:      params.Metrics,
		batchSize:    params.Outbox.BatchSize,
		maxAttempts:  params.Outbox.MaxAttempts,
		pollInterval: time.Duration(params.Outbox.PollIntervalMS) * time.Millisecond,
	}
	if d.batchSize <= 0 {
		d.batchSize = defaultBatchSize
	}
	if d.maxAttempts <= 0 {
		d.maxAttempts = defaultMaxAttempts
	}
	if d.pollInterval <= 0 {
		d.pollInterval = defaultPollMs * time.Millisecond
	}
	return d, nil
}

// Run polls until ctx is canceled. A full batch is followed immediately by
// the next one; an empty poll sleeps one interval; a failed batch backs off
// exponentially up to maxBackoff.
func (d *Dispatcher) Run(ctx context.Context) error {
	for name, dep := range map[string]pinger{"database": d.db, "pubsub": d.broker} {
		if err := dep.Ping(ctx); err != nil {
			d.logg.Error(d.logg.WithField(ctx, "dependency", name), "dependency ping failed", err)
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}

	backoff := d.pollInterval
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		claimed, err := d.drainOnce(ctx)
		if err != nil {
			d.logg.Error(ctx, "outbox batch failed", err)
			backoff = nextBackoff(backoff, d.pollInterval, maxBackoff)
			if err := sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}
		backoff = d.pollInterval

		if claimed > 0 {
			continue
		}
		if err := sleep(ctx, withJitter(d.pollInterval)); err != nil {
			return err
		}
	}
}

// drainOnce claims one batch and settles every row in it within a single
// transaction. It returns the number of rows claimed.
func (d *Dispatcher) drainOnce(ctx context.Context) (int, error) {
	claimed := 0
	err := d.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := d.store.FetchUnpublishedForPublish(tx, d.batchSize, d.maxAttempts)
		if err != nil {
			return fmt.Errorf("claim outbox rows: %w", err)
		}
		claimed = len(events)
		d.metrics.ObserveBatch(claimed)

		for _, event := range events {
			outcome, err := d.dispatch(ctx, tx, event)
			if err != nil {
				return err
			}
			d.metrics.ObserveDispatch(string(event.EventType), outcome)
		}
		return nil
	})
	return claimed, err
}

// dispatch publishes a single row and records its new state. The returned
// error is reserved for bookkeeping failures that must abort the batch.
func (d *Dispatcher) dispatch(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) (string, error) {
	fields := event.LogFields()

	resolved, err := d.registry.Resolve(event)
	if err != nil {
		return metrics.OutboxDeadLettered, d.deadLetter(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, err, fields)
	}
	fields["event_id"] = resolved.Envelope.EventID
	fields["topic"] = resolved.Route.Topic

	err = d.publish(ctx, event, resolved)
	if err == nil {
		if err := d.store.MarkPublishedTx(tx, event.ID); err != nil {
			return "", fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		d.logg.Debug(d.logg.WithFields(ctx, fields), "outbox event published")
		return metrics.OutboxPublished, nil
	}

	if registry.IsPermanent(err) {
		return metrics.OutboxDeadLettered, d.deadLetter(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, err, fields)
	}

	attempt := event.AttemptCount + 1
	fields["attempt_count"] = attempt
	if attempt >= d.maxAttempts {
		terminal := fmt.Errorf("max publish attempts reached: %w", err)
		return metrics.OutboxDeadLettered, d.deadLetter(ctx, tx, event, enums.OutboxDLQReasonMaxAttempts, terminal, fields)
	}

	logCtx := d.logg.WithField(d.logg.WithFields(ctx, fields), "error", err.Error())
	d.logg.Warn(logCtx, "outbox publish failed, will retry")
	if err := d.store.MarkFailedTx(tx, event.ID, err); err != nil {
		return "", fmt.Errorf("mark failure %s: %w", event.ID, err)
	}
	return metrics.OutboxRetried, nil
}

func (d *Dispatcher) deadLetter(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, fields map[string]any) error {
	logCtx := d.logg.WithFields(ctx, fields)
	logCtx = d.logg.WithFields(logCtx, map[string]any{"error_reason": reason, "error": cause.Error()})
	d.logg.Warn(logCtx, "outbox event dead-lettered")

	entry := event.DeadLetter(reason, cause, time.Now())
	if err := d.deadLetters.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, err)
	}
	if err := d.store.MarkTerminalTx(tx, event.ID, cause, d.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	return nil
}

func (d *Dispatcher) publish(ctx context.Context, event models.OutboxEvent, resolved *registry.Resolved) error {
	topic := resolved.Route.Topic
	pub := d.publisherFor(topic)
	if pub == nil {
		return registry.Permanent("no publisher for topic %s", topic)
	}

	msg := &gcppubsub.Message{
		Data: event.Payload,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.Format(time.RFC3339Nano),
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := pub.Publish(publishCtx, msg)
	if result == nil {
		return registry.Permanent("publisher for topic %s returned no result", topic)
	}
	_, err := result.Get(publishCtx)
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	if next := current * 2; next < max {
		return next
	}
	return max
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + time.Duration(jitterSource.Int63n(int64(jitterWindow)))
}

// gcpPublisher adapts *gcppubsub.Publisher to the publisher interface.
type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return p.Publisher.Publish(ctx, msg)
}
