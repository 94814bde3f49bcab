package checkout

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/repo"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
)

// Repository exposes read helpers for the orders created by one checkout.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindBatch(ctx context.Context, buyerID, batchID uuid.UUID) ([]models.Order, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds a checkout repository backed by the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

// FindBatch returns the buyer's orders for batchID with lines preloaded,
// ordered by seller id.
func (r *repository) FindBatch(ctx context.Context, buyerID, batchID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := r.DB(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("checkout_batch_id = ? AND buyer_id = ?", batchID, buyerID).
		Order("seller_id").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}
