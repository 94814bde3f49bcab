package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/catalog"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/money"
)

const (
	MinLineQty = 1
	MaxLineQty = 99
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Drainer atomically empties a buyer's cart inside a caller-owned transaction.
type Drainer interface {
	DrainTx(ctx context.Context, tx *gorm.DB, buyerID uuid.UUID) ([]models.CartLine, error)
}

// Service exposes cart persistence operations.
type Service interface {
	Drainer
	GetOrCreate(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error)
	View(ctx context.Context, buyerID uuid.UUID) (*View, error)
	UpsertLine(ctx context.Context, buyerID, productID uuid.UUID, qty int) (*models.CartLine, error)
	SetLineQty(ctx context.Context, buyerID, lineID uuid.UUID, qty int) (*models.CartLine, error)
	RemoveLine(ctx context.Context, buyerID, lineID uuid.UUID) error
}

type service struct {
	repo    Repository
	catalog catalog.Reader
	tx      txRunner
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo Repository, reader catalog.Reader, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if reader == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, catalog: reader, tx: tx}, nil
}

func (s *service) GetOrCreate(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}
	return s.getOrCreate(ctx, s.repo, buyerID)
}

func (s *service) getOrCreate(ctx context.Context, repo Repository, buyerID uuid.UUID) (*models.Cart, error) {
	cart, err := repo.FindByBuyer(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	if cart != nil {
		return cart, nil
	}
	if err := repo.CreateIfMissing(ctx, buyerID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart")
	}
	cart, err = repo.FindByBuyer(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	if cart == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart missing after create")
	}
	return cart, nil
}

func (s *service) UpsertLine(ctx context.Context, buyerID, productID uuid.UUID, qty int) (*models.CartLine, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if err := validateQty(qty); err != nil {
		return nil, err
	}

	product, err := s.catalog.ResolveProduct(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve product")
	}
	if product == nil || !product.Purchasable {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not available").
			WithDetails(map[string]any{"product_id": productID.String()})
	}

	var line *models.CartLine
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := s.getOrCreate(ctx, repo, buyerID)
		if err != nil {
			return err
		}
		line, err = repo.UpsertLine(ctx, cart.ID, productID, qty)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "upsert cart line")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

func (s *service) SetLineQty(ctx context.Context, buyerID, lineID uuid.UUID, qty int) (*models.CartLine, error) {
	if err := validateQty(qty); err != nil {
		return nil, err
	}
	cart, err := s.ownedCart(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	updated, err := s.repo.UpdateLineQty(ctx, cart.ID, lineID, qty)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart line")
	}
	if !updated {
		return nil, lineNotFound(lineID)
	}
	line, err := s.repo.FindLine(ctx, cart.ID, lineID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart line")
	}
	if line == nil {
		return nil, lineNotFound(lineID)
	}
	return line, nil
}

func (s *service) RemoveLine(ctx context.Context, buyerID, lineID uuid.UUID) error {
	cart, err := s.ownedCart(ctx, buyerID)
	if err != nil {
		return err
	}
	deleted, err := s.repo.DeleteLine(ctx, cart.ID, lineID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete cart line")
	}
	if !deleted {
		return lineNotFound(lineID)
	}
	return nil
}

// DrainTx locks the buyer's cart row, reads every line and deletes exactly
// those lines. A concurrent drain blocks on the lock and then observes an
// empty cart.
func (s *service) DrainTx(ctx context.Context, tx *gorm.DB, buyerID uuid.UUID) ([]models.CartLine, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}
	repo := s.repo.WithTx(tx)
	cart, err := repo.LockByBuyer(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock cart")
	}
	if cart == nil {
		return []models.CartLine{}, nil
	}

	lines, err := repo.ListLines(ctx, cart.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cart lines")
	}
	if len(lines) == 0 {
		return []models.CartLine{}, nil
	}

	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ID)
	}
	if _, err := repo.DeleteLines(ctx, cart.ID, ids); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "drain cart lines")
	}
	return lines, nil
}

// View is the buyer-facing cart with live catalog data per line.
type View struct {
	CartID uuid.UUID
	Lines  []LineView
	Total  decimal.Decimal
}

// LineView joins a cart line with the product as it currently stands.
type LineView struct {
	LineID      uuid.UUID
	ProductID   uuid.UUID
	Qty         int
	Title       string
	UnitPrice   decimal.Decimal
	SellerID    uuid.UUID
	Purchasable bool
	Subtotal    decimal.Decimal
}

func (s *service) View(ctx context.Context, buyerID uuid.UUID) (*View, error) {
	cart, err := s.GetOrCreate(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	lines, err := s.repo.ListLines(ctx, cart.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cart lines")
	}

	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	products, err := s.catalog.ResolveProducts(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve products")
	}

	view := &View{CartID: cart.ID, Lines: make([]LineView, 0, len(lines)), Total: decimal.Zero}
	subtotals := make([]decimal.Decimal, 0, len(lines))
	for _, line := range lines {
		lv := LineView{LineID: line.ID, ProductID: line.ProductID, Qty: line.Qty, Subtotal: decimal.Zero}
		if product, ok := products[line.ProductID]; ok {
			lv.Title = product.Title
			lv.UnitPrice = product.UnitPrice
			lv.SellerID = product.SellerID
			lv.Purchasable = product.Purchasable
			if product.Purchasable {
				lv.Subtotal = money.Subtotal(product.UnitPrice, line.Qty)
				subtotals = append(subtotals, lv.Subtotal)
			}
		}
		view.Lines = append(view.Lines, lv)
	}
	view.Total = money.Sum(subtotals...)
	return view, nil
}

func (s *service) ownedCart(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}
	cart, err := s.repo.FindByBuyer(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	if cart == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
	}
	return cart, nil
}

func validateQty(qty int) error {
	if qty < MinLineQty || qty > MaxLineQty {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("qty must be between %d and %d", MinLineQty, MaxLineQty))
	}
	return nil
}

func lineNotFound(lineID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found").
		WithDetails(map[string]any{"line_id": lineID.String()})
}
