package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/bazaar-backend/internal/repo"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
)

type repository struct {
	repo.Base
}

// NewRepository builds a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) FindByBuyer(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error) {
	return r.findByBuyer(r.DB(ctx), buyerID)
}

// LockByBuyer reads the cart row with FOR UPDATE so concurrent drains of the
// same cart serialize. Must run inside a transaction.
func (r *repository) LockByBuyer(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error) {
	return r.findByBuyer(r.ForUpdate(ctx), buyerID)
}

func (r *repository) findByBuyer(q *gorm.DB, buyerID uuid.UUID) (*models.Cart, error) {
	return repo.First[models.Cart](q.Where("buyer_id = ?", buyerID))
}

// CreateIfMissing inserts the buyer's cart, tolerating a concurrent insert.
func (r *repository) CreateIfMissing(ctx context.Context, buyerID uuid.UUID) error {
	cart := models.Cart{BuyerID: buyerID}
	return r.DB(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "buyer_id"}}, DoNothing: true}).
		Create(&cart).Error
}

func (r *repository) ListLines(ctx context.Context, cartID uuid.UUID) ([]models.CartLine, error) {
	var lines []models.CartLine
	err := r.DB(ctx).
		Where("cart_id = ?", cartID).
		Order("created_at ASC, id ASC").
		Find(&lines).Error
	return lines, err
}

func (r *repository) FindLine(ctx context.Context, cartID, lineID uuid.UUID) (*models.CartLine, error) {
	return repo.First[models.CartLine](r.DB(ctx).Where("id = ? AND cart_id = ?", lineID, cartID))
}

// UpsertLine sets the quantity for (cart, product), inserting the line when
// absent. Repeating the call with the same qty leaves the row unchanged.
func (r *repository) UpsertLine(ctx context.Context, cartID, productID uuid.UUID, qty int) (*models.CartLine, error) {
	now := time.Now().UTC()
	line := models.CartLine{CartID: cartID, ProductID: productID, Qty: qty, CreatedAt: now, UpdatedAt: now}
	err := r.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]any{"qty": qty, "updated_at": now}),
		}).
		Create(&line).Error
	if err != nil {
		return nil, err
	}

	var stored models.CartLine
	if err := r.DB(ctx).Where("cart_id = ? AND product_id = ?", cartID, productID).First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *repository) UpdateLineQty(ctx context.Context, cartID, lineID uuid.UUID, qty int) (bool, error) {
	result := r.DB(ctx).
		Model(&models.CartLine{}).
		Where("id = ? AND cart_id = ?", lineID, cartID).
		Updates(map[string]any{"qty": qty, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) DeleteLine(ctx context.Context, cartID, lineID uuid.UUID) (bool, error) {
	result := r.DB(ctx).
		Where("id = ? AND cart_id = ?", lineID, cartID).
		Delete(&models.CartLine{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) DeleteLines(ctx context.Context, cartID uuid.UUID, lineIDs []uuid.UUID) (int64, error) {
	if len(lineIDs) == 0 {
		return 0, nil
	}
	result := r.DB(ctx).
		Where("cart_id = ? AND id IN ?", cartID, lineIDs).
		Delete(&models.CartLine{})
	return result.RowsAffected, result.Error
}
