package reviews

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
)

const (
	MinRating = 1
	MaxRating = 5

	DefaultTextMin = 3
	DefaultTextMax = 2000
)

// CreateInput carries a buyer's review of a product.
type CreateInput struct {
	BuyerID   uuid.UUID
	ProductID uuid.UUID
	Rating    int
	Text      string
}

// ReviewPage is one cursor-paginated slice of a product's visible reviews.
type ReviewPage struct {
	Items  []models.Review
	Cursor string
}

// ReviewableLine is the order line a new review attaches to.
type ReviewableLine struct {
	OrderLineID uuid.UUID `gorm:"column:order_line_id"`
	OrderID     uuid.UUID `gorm:"column:order_id"`
	SellerID    uuid.UUID `gorm:"column:seller_id"`
}
