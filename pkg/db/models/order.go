package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// Order is a seller-scoped purchase created by one checkout batch. Only Status
// and UpdatedAt change after creation.
type Order struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	CheckoutBatchID uuid.UUID         `gorm:"column:checkout_batch_id;type:uuid;not null"`
	BuyerID         uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null"`
	SellerID        uuid.UUID         `gorm:"column:seller_id;type:uuid;not null"`
	Status          enums.OrderStatus `gorm:"column:status;type:order_status;not null"`
	FullName        string            `gorm:"column:full_name;not null"`
	Phone           string            `gorm:"column:phone;not null"`
	Address         string            `gorm:"column:address;not null"`
	Comment         *string           `gorm:"column:comment"`
	TotalAmount     decimal.Decimal   `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Lines           []OrderLine       `gorm:"foreignKey:OrderID"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderLine is the immutable purchase snapshot of one product.
type OrderLine struct {
	ID                   uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID              uuid.UUID       `gorm:"column:order_id;type:uuid;not null"`
	ProductID            *uuid.UUID      `gorm:"column:product_id;type:uuid"`
	ProductTitleSnapshot string          `gorm:"column:product_title_snapshot;not null"`
	ProductPriceSnapshot decimal.Decimal `gorm:"column:product_price_snapshot;type:numeric(12,2);not null"`
	Qty                  int             `gorm:"column:qty;not null"`
	Subtotal             decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	CreatedAt            time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (l *OrderLine) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}
