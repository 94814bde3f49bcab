package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

const (
	OutboxRetentionJobName       = "outbox-retention"
	NotificationRetentionJobName = "notification-retention"

	defaultOutboxRetentionDays       = 30
	defaultNotificationRetentionDays = 90
	defaultOutboxMinAttempts         = 5
)

// purgeFunc deletes rows older than cutoff inside tx and reports how many went.
type purgeFunc func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)

// RetentionJob purges rows that fell out of a fixed retention window.
type RetentionJob struct {
	name   string
	logg   *logger.Logger
	db     txRunner
	window time.Duration
	purge  purgeFunc
	fields map[string]any
	now    func() time.Time
}

type outboxPurger interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

type notificationPurger interface {
	DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// NewOutboxRetentionJob removes published outbox rows (and dead letters that
// reached minAttempts) once they are older than retentionDays.
func NewOutboxRetentionJob(logg *logger.Logger, db txRunner, repo outboxPurger, retentionDays, minAttempts int) (*RetentionJob, error) {
	if repo == nil {
		return nil, errors.New("outbox repository required")
	}
	if retentionDays <= 0 {
		retentionDays = defaultOutboxRetentionDays
	}
	if minAttempts <= 0 {
		minAttempts = defaultOutboxMinAttempts
	}
	purge := func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
		return repo.DeletePublishedBefore(ctx, tx, cutoff, minAttempts)
	}
	return newRetentionJob(OutboxRetentionJobName, logg, db, retentionDays, purge, map[string]any{
		"min_attempts": minAttempts,
	})
}

// NewNotificationRetentionJob removes read notifications older than retentionDays.
func NewNotificationRetentionJob(logg *logger.Logger, db txRunner, repo notificationPurger, retentionDays int) (*RetentionJob, error) {
	if repo == nil {
		return nil, errors.New("notifications repository required")
	}
	if retentionDays <= 0 {
		retentionDays = defaultNotificationRetentionDays
	}
	return newRetentionJob(NotificationRetentionJobName, logg, db, retentionDays, repo.DeleteOlderThan, nil)
}

func newRetentionJob(name string, logg *logger.Logger, db txRunner, days int, purge purgeFunc, fields map[string]any) (*RetentionJob, error) {
	if logg == nil {
		return nil, errors.New("logger required")
	}
	if db == nil {
		return nil, errors.New("db runner required")
	}
	merged := map[string]any{"retention_days": days}
	for k, v := range fields {
		merged[k] = v
	}
	return &RetentionJob{
		name:   name,
		logg:   logg,
		db:     db,
		window: time.Duration(days) * 24 * time.Hour,
		purge:  purge,
		fields: merged,
		now:    time.Now,
	}, nil
}

func (j *RetentionJob) Name() string { return j.name }

// Cutoff is the oldest creation time that survives a run started at now.
func (j *RetentionJob) Cutoff(now time.Time) time.Time {
	return now.UTC().Add(-j.window)
}

func (j *RetentionJob) Run(ctx context.Context) error {
	cutoff := j.Cutoff(j.now())
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := j.purge(ctx, tx, cutoff)
		deleted = n
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	logCtx := j.logg.WithFields(ctx, j.fields)
	logCtx = j.logg.WithFields(logCtx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "retention sweep complete")
	return nil
}
