package helpers

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/internal/catalog"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

func TestPriceLinesDropsUnavailableProducts(t *testing.T) {
	t.Parallel()
	seller := uuid.New()
	live := uuid.New()
	archived := uuid.New()
	missing := uuid.New()

	lines := []models.CartLine{
		{ProductID: live, Qty: 3},
		{ProductID: archived, Qty: 1},
		{ProductID: missing, Qty: 2},
	}
	products := map[uuid.UUID]catalog.ProductInfo{
		live:     {ProductID: live, SellerID: seller, Title: "Tea", UnitPrice: decimal.RequireFromString("3.335"), Purchasable: true},
		archived: {ProductID: archived, SellerID: seller, Title: "Old", UnitPrice: decimal.RequireFromString("1.00")},
	}

	priced, dropped := PriceLines(lines, products)
	if len(priced) != 1 {
		t.Fatalf("expected 1 priced line, got %d", len(priced))
	}
	if got := priced[0].Subtotal.StringFixed(2); got != "10.01" {
		t.Fatalf("expected subtotal 10.01, got %s", got)
	}
	if len(dropped) != 2 || dropped[0] != archived || dropped[1] != missing {
		t.Fatalf("unexpected dropped ids %v", dropped)
	}
}

func TestGroupLinesBySeller(t *testing.T) {
	t.Parallel()
	sellerA := uuid.New()
	sellerB := uuid.New()
	lines := []PricedLine{
		{SellerID: sellerA, Subtotal: decimal.RequireFromString("50.00")},
		{SellerID: sellerB, Subtotal: decimal.RequireFromString("40.00")},
		{SellerID: sellerA, Subtotal: decimal.RequireFromString("2.50")},
	}

	groups := GroupLinesBySeller(lines)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].SellerID != sellerA || groups[1].SellerID != sellerB {
		t.Fatalf("expected first-seen seller order")
	}
	if len(groups[0].Lines) != 2 {
		t.Fatalf("expected 2 lines for seller A, got %d", len(groups[0].Lines))
	}
	if got := groups[0].Total.StringFixed(2); got != "52.50" {
		t.Fatalf("expected total 52.50, got %s", got)
	}
	if got := groups[1].Total.StringFixed(2); got != "40.00" {
		t.Fatalf("expected total 40.00, got %s", got)
	}
}

func TestValidateDelivery(t *testing.T) {
	t.Parallel()
	comment := strings.Repeat("x", 1001)
	cases := []struct {
		name  string
		input DeliveryInfo
		field string
	}{
		{name: "valid", input: DeliveryInfo{FullName: "Ana", Phone: "555-0101", Address: "1 Main St"}},
		{name: "short name", input: DeliveryInfo{FullName: "A", Phone: "555-0101", Address: "1 Main St"}, field: "full_name"},
		{name: "short phone", input: DeliveryInfo{FullName: "Ana", Phone: "555", Address: "1 Main St"}, field: "phone"},
		{name: "short address", input: DeliveryInfo{FullName: "Ana", Phone: "555-0101", Address: "Main"}, field: "address"},
		{name: "long comment", input: DeliveryInfo{FullName: "Ana", Phone: "555-0101", Address: "1 Main St", Comment: &comment}, field: "comment"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateDelivery(tc.input.Normalize())
			if tc.field == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			details, ok := typed.Details().(map[string]string)
			if !ok {
				t.Fatalf("expected field details, got %T", typed.Details())
			}
			if _, ok := details[tc.field]; !ok {
				t.Fatalf("expected %s in details, got %v", tc.field, details)
			}
		})
	}
}

func TestNormalizeDropsBlankComment(t *testing.T) {
	t.Parallel()
	blank := "   "
	out := DeliveryInfo{FullName: " Ana ", Phone: "5550101", Address: "1 Main St", Comment: &blank}.Normalize()
	if out.FullName != "Ana" {
		t.Fatalf("expected trimmed name, got %q", out.FullName)
	}
	if out.Comment != nil {
		t.Fatalf("expected nil comment")
	}
}
