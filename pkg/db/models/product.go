package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// Product is the catalog listing as seen by checkout. The catalog service owns
// writes; this core only reads it.
type Product struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	SellerID  uuid.UUID           `gorm:"column:seller_id;type:uuid;not null"`
	Title     string              `gorm:"column:title;not null"`
	Price     decimal.Decimal     `gorm:"column:price;type:numeric(12,2);not null"`
	Status    enums.ProductStatus `gorm:"column:status;type:product_status;not null"`
	DeletedAt *time.Time          `gorm:"column:deleted_at"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// IsPurchasable reports whether the listing can be ordered right now.
func (p Product) IsPurchasable() bool {
	return p.DeletedAt == nil && p.Status.IsPurchasable()
}
