package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	LockByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	CompareAndSetStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (bool, error)
	List(ctx context.Context, query ListQuery) ([]models.Order, error)
	Delete(ctx context.Context, orderID uuid.UUID) error
}

// ListQuery selects one party's orders, newest first.
type ListQuery struct {
	ActorID uuid.UUID
	Role    enums.ActorRole
	Cursor  *pagination.Cursor
	Limit   int
}
