package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/repo"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

type repository struct {
	repo.Base
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

// Create inserts the order together with its lines.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.DB(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return repo.First[models.Order](r.DB(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("id = ?", orderID))
}

// LockByID reads the order row with FOR UPDATE. Lines are not loaded.
func (r *repository) LockByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return repo.First[models.Order](r.ForUpdate(ctx).Where("id = ?", orderID))
}

// CompareAndSetStatus moves the order to `to` only while it is still `from`.
// It reports whether the row was updated.
func (r *repository) CompareAndSetStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (bool, error) {
	result := r.DB(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) List(ctx context.Context, query ListQuery) ([]models.Order, error) {
	q := r.DB(ctx).Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") })
	switch query.Role {
	case enums.ActorRoleSeller:
		q = q.Where("seller_id = ?", query.ActorID)
	default:
		q = q.Where("buyer_id = ?", query.ActorID)
	}
	if query.Cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			query.Cursor.CreatedAt, query.Cursor.CreatedAt, query.Cursor.ID)
	}
	if query.Limit > 0 {
		q = q.Limit(query.Limit)
	}

	var orders []models.Order
	if err := q.Order("created_at DESC").Order("id DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// Delete removes the order and its lines. Lines go first so the result does
// not depend on the foreign key cascading. Callers that need both deletes to
// commit together pass a transaction through WithTx.
func (r *repository) Delete(ctx context.Context, orderID uuid.UUID) error {
	conn := r.DB(ctx)
	if err := conn.Where("order_id = ?", orderID).Delete(&models.OrderLine{}).Error; err != nil {
		return err
	}
	return conn.Where("id = ?", orderID).Delete(&models.Order{}).Error
}
