package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
)

// Repository defines the persistence surface required by the cart service.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByBuyer(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error)
	LockByBuyer(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error)
	CreateIfMissing(ctx context.Context, buyerID uuid.UUID) error
	ListLines(ctx context.Context, cartID uuid.UUID) ([]models.CartLine, error)
	FindLine(ctx context.Context, cartID, lineID uuid.UUID) (*models.CartLine, error)
	UpsertLine(ctx context.Context, cartID, productID uuid.UUID, qty int) (*models.CartLine, error)
	UpdateLineQty(ctx context.Context, cartID, lineID uuid.UUID, qty int) (bool, error)
	DeleteLine(ctx context.Context, cartID, lineID uuid.UUID) (bool, error)
	DeleteLines(ctx context.Context, cartID uuid.UUID, lineIDs []uuid.UUID) (int64, error)
}
