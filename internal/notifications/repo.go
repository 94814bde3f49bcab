package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/bazaar-backend/internal/repo"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

// Repository persists notification rows. Every read and write is scoped to
// the owning user.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateIfAbsent(ctx context.Context, notification *models.Notification) (bool, error)
	List(ctx context.Context, params listNotificationsParams) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)
	DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type listNotificationsParams struct {
	UserID     uuid.UUID
	Limit      int
	Cursor     *pagination.Cursor
	UnreadOnly bool
}

// notificationMarkResult separates "already read" (Found only) from "not
// yours or missing" (neither).
type notificationMarkResult struct {
	Updated bool
	Found   bool
}

type repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func ownedBy(userID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB { return q.Where("user_id = ?", userID) }
}

func unread(q *gorm.DB) *gorm.DB { return q.Where("read_at IS NULL") }

// after continues a newest-first listing past cursor.
func after(cursor *pagination.Cursor) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if cursor == nil {
			return q
		}
		return q.Where("created_at < ? OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
}

func (r *repository) notifications(ctx context.Context) *gorm.DB {
	return r.DB(ctx).Model(&models.Notification{})
}

// CreateIfAbsent is keyed on event_id so a redelivered event never produces
// a second row. It reports whether a row was written.
func (r *repository) CreateIfAbsent(ctx context.Context, notification *models.Notification) (bool, error) {
	res := r.DB(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_id"}}, DoNothing: true}).
		Create(notification)
	return res.RowsAffected > 0, res.Error
}

func (r *repository) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, error) {
	q := r.notifications(ctx).Scopes(ownedBy(params.UserID), after(params.Cursor))
	if params.UnreadOnly {
		q = q.Scopes(unread)
	}
	var out []models.Notification
	err := q.Order("created_at DESC").Order("id DESC").Limit(params.Limit).Find(&out).Error
	return out, err
}

func (r *repository) MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
	res := r.notifications(ctx).
		Scopes(ownedBy(userID), unread).
		Where("id = ?", notificationID).
		UpdateColumn("read_at", now)
	switch {
	case res.Error != nil:
		return notificationMarkResult{}, res.Error
	case res.RowsAffected > 0:
		return notificationMarkResult{Updated: true, Found: true}, nil
	}

	var n int64
	err := r.notifications(ctx).Scopes(ownedBy(userID)).Where("id = ?", notificationID).Count(&n).Error
	return notificationMarkResult{Found: n > 0}, err
}

func (r *repository) MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	res := r.notifications(ctx).Scopes(ownedBy(userID), unread).UpdateColumn("read_at", now)
	return res.RowsAffected, res.Error
}

// DeleteOlderThan drops read notifications created before cutoff. Unread rows
// stay no matter how old they are.
func (r *repository) DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	q := r.DB(ctx)
	if tx != nil {
		q = tx.WithContext(ctx)
	}
	res := q.Where("read_at IS NOT NULL AND created_at < ?", cutoff).Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
