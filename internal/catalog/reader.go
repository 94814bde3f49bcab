package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/repo"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
)

// ProductInfo is the catalog's answer for a single product at call time.
type ProductInfo struct {
	ProductID   uuid.UUID
	SellerID    uuid.UUID
	Title       string
	UnitPrice   decimal.Decimal
	Purchasable bool
}

// Reader resolves products against the live catalog. A nil result with a
// nil error means the product does not exist.
type Reader interface {
	WithTx(tx *gorm.DB) Reader
	ResolveProduct(ctx context.Context, productID uuid.UUID) (*ProductInfo, error)
	ResolveProducts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]ProductInfo, error)
}

type gormReader struct {
	repo.Base
}

// NewReader returns a Reader over the replicated products table.
func NewReader(db *gorm.DB) Reader {
	return &gormReader{Base: repo.NewBase(db)}
}

func (r *gormReader) WithTx(tx *gorm.DB) Reader {
	if tx == nil {
		return r
	}
	return &gormReader{Base: repo.NewBase(tx)}
}

func (r *gormReader) ResolveProduct(ctx context.Context, productID uuid.UUID) (*ProductInfo, error) {
	product, err := repo.First[models.Product](r.DB(ctx).Where("id = ?", productID))
	if err != nil || product == nil {
		return nil, err
	}
	info := toInfo(*product)
	return &info, nil
}

func (r *gormReader) ResolveProducts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]ProductInfo, error) {
	out := make(map[uuid.UUID]ProductInfo, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}
	var products []models.Product
	if err := r.DB(ctx).Where("id IN ?", productIDs).Find(&products).Error; err != nil {
		return nil, err
	}
	for _, product := range products {
		out[product.ID] = toInfo(product)
	}
	return out, nil
}

func toInfo(product models.Product) ProductInfo {
	return ProductInfo{
		ProductID:   product.ID,
		SellerID:    product.SellerID,
		Title:       product.Title,
		UnitPrice:   product.Price,
		Purchasable: product.IsPurchasable(),
	}
}
