package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeOutboxPurger struct {
	cutoff      time.Time
	minAttempts int
	err         error
}

func (f *fakeOutboxPurger) DeletePublishedBefore(_ context.Context, _ *gorm.DB, cutoff time.Time, minAttempts int) (int64, error) {
	f.cutoff = cutoff
	f.minAttempts = minAttempts
	return 3, f.err
}

type fakeNotificationPurger struct {
	cutoff time.Time
	calls  int
}

func (f *fakeNotificationPurger) DeleteOlderThan(_ context.Context, _ *gorm.DB, cutoff time.Time) (int64, error) {
	f.calls++
	f.cutoff = cutoff
	return 1, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test"})
}

func TestOutboxRetentionJobUsesConfiguredWindow(t *testing.T) {
	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	repo := &fakeOutboxPurger{}
	job, err := NewOutboxRetentionJob(testLogger(), passthroughTx{}, repo, 7, 0)
	require.NoError(t, err)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, OutboxRetentionJobName, job.Name())
	require.Equal(t, now.Add(-7*24*time.Hour), repo.cutoff)
	require.Equal(t, defaultOutboxMinAttempts, repo.minAttempts)
}

func TestOutboxRetentionJobWrapsRepositoryError(t *testing.T) {
	repo := &fakeOutboxPurger{err: errors.New("boom")}
	job, err := NewOutboxRetentionJob(testLogger(), passthroughTx{}, repo, 0, 2)
	require.NoError(t, err)

	err = job.Run(context.Background())
	require.ErrorContains(t, err, OutboxRetentionJobName)
	require.Equal(t, 2, repo.minAttempts)
}

func TestNotificationRetentionJobDefaultsWindow(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	repo := &fakeNotificationPurger{}
	job, err := NewNotificationRetentionJob(testLogger(), passthroughTx{}, repo, 0)
	require.NoError(t, err)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, 1, repo.calls)
	require.Equal(t, now.Add(-defaultNotificationRetentionDays*24*time.Hour), repo.cutoff)
}

func TestRetentionJobsRequireDependencies(t *testing.T) {
	_, err := NewNotificationRetentionJob(nil, passthroughTx{}, &fakeNotificationPurger{}, 1)
	require.Error(t, err)
	_, err = NewNotificationRetentionJob(testLogger(), nil, &fakeNotificationPurger{}, 1)
	require.Error(t, err)
	_, err = NewOutboxRetentionJob(testLogger(), passthroughTx{}, nil, 1, 1)
	require.Error(t, err)
}
