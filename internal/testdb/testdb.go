// Package testdb opens isolated in-memory sqlite databases carrying the
// service schema, for repository and service tests.
package testdb

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

var schema = []string{
	`CREATE TABLE products (
  id TEXT PRIMARY KEY,
  seller_id TEXT NOT NULL,
  title TEXT NOT NULL,
  price TEXT NOT NULL,
  status TEXT NOT NULL,
  deleted_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE carts (
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE UNIQUE INDEX ux_carts_buyer_id ON carts (buyer_id)`,
	`CREATE TABLE cart_lines (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL REFERENCES carts(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL,
  qty INTEGER NOT NULL CHECK (qty BETWEEN 1 AND 99),
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE UNIQUE INDEX ux_cart_lines_cart_product ON cart_lines (cart_id, product_id)`,
	`CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  checkout_batch_id TEXT NOT NULL,
  buyer_id TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  status TEXT NOT NULL,
  full_name TEXT NOT NULL,
  phone TEXT NOT NULL,
  address TEXT NOT NULL,
  comment TEXT,
  total_amount TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE order_lines (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  product_id TEXT,
  product_title_snapshot TEXT NOT NULL,
  product_price_snapshot TEXT NOT NULL,
  qty INTEGER NOT NULL,
  subtotal TEXT NOT NULL,
  created_at DATETIME
)`,
	`CREATE TABLE reviews (
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  order_line_id TEXT NOT NULL,
  rating INTEGER NOT NULL,
  text TEXT NOT NULL,
  is_hidden INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME
)`,
	`CREATE UNIQUE INDEX ux_reviews_order_line_id ON reviews (order_line_id)`,
	`CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
)`,
	`CREATE TABLE outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json TEXT NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME,
  created_at DATETIME
)`,
	`CREATE TABLE notifications (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  type TEXT NOT NULL,
  payload TEXT NOT NULL,
  read_at DATETIME,
  created_at DATETIME
)`,
	`CREATE UNIQUE INDEX ux_notifications_event_id ON notifications (event_id)`,
}

// Open returns a fresh database with the full schema applied. Each call gets
// its own named in-memory database, so tests may run in parallel.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=1"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

// SeedProduct inserts a catalog row and returns it.
func SeedProduct(t *testing.T, db *gorm.DB, sellerID uuid.UUID, title, price string, status enums.ProductStatus) models.Product {
	t.Helper()
	product := models.Product{
		ID:        models.NewID(),
		SellerID:  sellerID,
		Title:     title,
		Price:     decimal.RequireFromString(price),
		Status:    status,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, db.Create(&product).Error)
	return product
}

// SeedOrder inserts an order in the given status with one line for product.
func SeedOrder(t *testing.T, db *gorm.DB, buyerID, sellerID uuid.UUID, status enums.OrderStatus, product models.Product, qty int) models.Order {
	t.Helper()
	productID := product.ID
	subtotal := product.Price.Mul(decimal.NewFromInt(int64(qty))).Round(2)
	order := models.Order{
		ID:              models.NewID(),
		CheckoutBatchID: uuid.New(),
		BuyerID:         buyerID,
		SellerID:        sellerID,
		Status:          status,
		FullName:        "Test Buyer",
		Phone:           "555-0100",
		Address:         "1 Test Street",
		TotalAmount:     subtotal,
		Lines: []models.OrderLine{{
			ID:                   models.NewID(),
			ProductID:            &productID,
			ProductTitleSnapshot: product.Title,
			ProductPriceSnapshot: product.Price,
			Qty:                  qty,
			Subtotal:             subtotal,
		}},
	}
	require.NoError(t, db.Create(&order).Error)
	return order
}
