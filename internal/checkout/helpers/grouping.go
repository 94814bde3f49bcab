package helpers

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/internal/catalog"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/money"
)

// PricedLine is a drained cart line re-validated against the catalog.
type PricedLine struct {
	ProductID uuid.UUID
	SellerID  uuid.UUID
	Title     string
	UnitPrice decimal.Decimal
	Qty       int
	Subtotal  decimal.Decimal
}

// SellerGroup holds the priced lines destined for a single seller's order.
type SellerGroup struct {
	SellerID uuid.UUID
	Lines    []PricedLine
	Total    decimal.Decimal
}

// PriceLines joins drained lines with the products resolved at checkout time.
// Lines whose product is missing or not purchasable are returned as dropped.
func PriceLines(lines []models.CartLine, products map[uuid.UUID]catalog.ProductInfo) ([]PricedLine, []uuid.UUID) {
	priced := make([]PricedLine, 0, len(lines))
	dropped := make([]uuid.UUID, 0)
	for _, line := range lines {
		product, ok := products[line.ProductID]
		if !ok || !product.Purchasable {
			dropped = append(dropped, line.ProductID)
			continue
		}
		priced = append(priced, PricedLine{
			ProductID: line.ProductID,
			SellerID:  product.SellerID,
			Title:     product.Title,
			UnitPrice: product.UnitPrice,
			Qty:       line.Qty,
			Subtotal:  money.Subtotal(product.UnitPrice, line.Qty),
		})
	}
	return priced, dropped
}

// GroupLinesBySeller partitions priced lines by seller, keeping the order in
// which each seller first appears.
func GroupLinesBySeller(lines []PricedLine) []SellerGroup {
	index := make(map[uuid.UUID]int)
	groups := make([]SellerGroup, 0)
	for _, line := range lines {
		i, ok := index[line.SellerID]
		if !ok {
			i = len(groups)
			index[line.SellerID] = i
			groups = append(groups, SellerGroup{SellerID: line.SellerID, Total: decimal.Zero})
		}
		groups[i].Lines = append(groups[i].Lines, line)
		groups[i].Total = groups[i].Total.Add(line.Subtotal)
	}
	return groups
}
