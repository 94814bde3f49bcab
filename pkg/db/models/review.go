package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReviewOrderLineConstraint enforces one review per purchased line.
const ReviewOrderLineConstraint = "ux_reviews_order_line_id"

type Review struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	BuyerID     uuid.UUID `gorm:"column:buyer_id;type:uuid;not null"`
	ProductID   uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	OrderLineID uuid.UUID `gorm:"column:order_line_id;type:uuid;not null;uniqueIndex:ux_reviews_order_line_id"`
	Rating      int       `gorm:"column:rating;not null"`
	Text        string    `gorm:"column:text;not null"`
	IsHidden    bool      `gorm:"column:is_hidden;not null;default:false"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (r *Review) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
