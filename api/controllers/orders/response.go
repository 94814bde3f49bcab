package orders

import (
	"time"

	"github.com/google/uuid"

	internalorders "github.com/angelmondragon/bazaar-backend/internal/orders"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/money"
)

// OrderLine is the wire form of an order line snapshot.
type OrderLine struct {
	ID           uuid.UUID  `json:"id"`
	ProductID    *uuid.UUID `json:"product_id"`
	ProductTitle string     `json:"product_title"`
	ProductPrice string     `json:"product_price"`
	Qty          int        `json:"qty"`
	Subtotal     string     `json:"subtotal"`
}

// Order is the wire form of an order as seen by one of its parties.
type Order struct {
	ID              uuid.UUID           `json:"id"`
	CheckoutBatchID uuid.UUID           `json:"checkout_batch_id"`
	BuyerID         uuid.UUID           `json:"buyer_id"`
	SellerID        uuid.UUID           `json:"seller_id"`
	Status          enums.OrderStatus   `json:"status"`
	FullName        string              `json:"full_name"`
	Phone           string              `json:"phone"`
	Address         string              `json:"address"`
	Comment         *string             `json:"comment"`
	TotalAmount     string              `json:"total_amount"`
	Lines           []OrderLine         `json:"lines"`
	AllowedStatuses []enums.OrderStatus `json:"allowed_statuses"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// NewOrder maps a stored order into its response, computing the statuses the
// viewing party may move it to.
func NewOrder(order models.Order, actorID uuid.UUID, role enums.ActorRole) Order {
	lines := make([]OrderLine, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, OrderLine{
			ID:           line.ID,
			ProductID:    line.ProductID,
			ProductTitle: line.ProductTitleSnapshot,
			ProductPrice: money.Format(line.ProductPriceSnapshot),
			Qty:          line.Qty,
			Subtotal:     money.Format(line.Subtotal),
		})
	}

	allowed := internalorders.AllowedTargets(actorID, role, &order)
	if allowed == nil {
		allowed = []enums.OrderStatus{}
	}

	return Order{
		ID:              order.ID,
		CheckoutBatchID: order.CheckoutBatchID,
		BuyerID:         order.BuyerID,
		SellerID:        order.SellerID,
		Status:          order.Status,
		FullName:        order.FullName,
		Phone:           order.Phone,
		Address:         order.Address,
		Comment:         order.Comment,
		TotalAmount:     money.Format(order.TotalAmount),
		Lines:           lines,
		AllowedStatuses: allowed,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
}

// NewOrders maps a slice of orders.
func NewOrders(orders []models.Order, actorID uuid.UUID, role enums.ActorRole) []Order {
	out := make([]Order, 0, len(orders))
	for _, order := range orders {
		out = append(out, NewOrder(order, actorID, role))
	}
	return out
}

type orderListResponse struct {
	Orders []Order `json:"orders"`
	Cursor string  `json:"cursor,omitempty"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=REQUESTED ACCEPTED REJECTED CANCELED COMPLETED"`
}
