package cart

import (
	"time"

	"github.com/google/uuid"

	cartsvc "github.com/angelmondragon/bazaar-backend/internal/cart"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/money"
)

type cartLineView struct {
	ID          uuid.UUID  `json:"id"`
	ProductID   uuid.UUID  `json:"product_id"`
	Qty         int        `json:"qty"`
	Title       string     `json:"title,omitempty"`
	UnitPrice   string     `json:"unit_price,omitempty"`
	SellerID    *uuid.UUID `json:"seller_id,omitempty"`
	Purchasable bool       `json:"purchasable"`
	Subtotal    string     `json:"subtotal"`
}

type cartView struct {
	ID    uuid.UUID      `json:"id"`
	Lines []cartLineView `json:"lines"`
	Total string         `json:"total"`
}

type cartLine struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	Qty       int       `json:"qty"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newCartView(view *cartsvc.View) cartView {
	lines := make([]cartLineView, 0, len(view.Lines))
	for _, line := range view.Lines {
		out := cartLineView{
			ID:          line.LineID,
			ProductID:   line.ProductID,
			Qty:         line.Qty,
			Title:       line.Title,
			Purchasable: line.Purchasable,
			Subtotal:    money.Format(line.Subtotal),
		}
		if line.SellerID != uuid.Nil {
			sellerID := line.SellerID
			out.SellerID = &sellerID
			out.UnitPrice = money.Format(line.UnitPrice)
		}
		lines = append(lines, out)
	}
	return cartView{ID: view.CartID, Lines: lines, Total: money.Format(view.Total)}
}

func newCartLine(line *models.CartLine) cartLine {
	return cartLine{
		ID:        line.ID,
		ProductID: line.ProductID,
		Qty:       line.Qty,
		UpdatedAt: line.UpdatedAt,
	}
}
