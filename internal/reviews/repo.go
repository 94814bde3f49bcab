package reviews

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

var reviewableStatuses = []enums.OrderStatus{enums.OrderStatusAccepted, enums.OrderStatusCompleted}

// Repository encapsulates review persistence and the purchase lookup that
// gates it.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a review repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindLatestReviewableLine returns the buyer's most recent accepted or
// completed order line for productID, or nil when there is none. Order ids
// are time-ordered, so the highest id is the newest order.
func (r *Repository) FindLatestReviewableLine(ctx context.Context, buyerID, productID uuid.UUID) (*ReviewableLine, error) {
	var rows []ReviewableLine
	err := r.db.WithContext(ctx).Raw(`
SELECT ol.id AS order_line_id, o.id AS order_id, o.seller_id AS seller_id
FROM order_lines ol
JOIN orders o ON o.id = ol.order_id
WHERE o.buyer_id = ? AND ol.product_id = ? AND o.status IN ?
ORDER BY o.id DESC, ol.id DESC
LIMIT 1`, buyerID, productID, reviewableStatuses).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// ExistsForLine reports whether orderLineID already carries a review.
func (r *Repository) ExistsForLine(ctx context.Context, orderLineID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("order_line_id = ?", orderLineID).
		Count(&count).Error
	return count > 0, err
}

// Create inserts review.
func (r *Repository) Create(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

// ListForProduct returns visible reviews newest first. limit should already
// include the pagination buffer.
func (r *Repository) ListForProduct(ctx context.Context, productID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Review, error) {
	query := r.db.WithContext(ctx).
		Where("product_id = ? AND is_hidden = ?", productID, false)
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var reviews []models.Review
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&reviews).Error; err != nil {
		return nil, err
	}
	return reviews, nil
}
