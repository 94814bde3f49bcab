package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bazaar-backend/internal/testdb"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

func TestResolveProduct(t *testing.T) {
	t.Parallel()
	db := testdb.Open(t)
	seller := uuid.New()
	active := testdb.SeedProduct(t, db, seller, "Walnut bowl", "50.00", enums.ProductStatusActive)
	archived := testdb.SeedProduct(t, db, seller, "Old mug", "12.50", enums.ProductStatusArchived)
	deleted := testdb.SeedProduct(t, db, seller, "Gone", "9.99", enums.ProductStatusActive)
	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", deleted.ID).Update("deleted_at", time.Now()).Error)

	reader := NewReader(db)
	ctx := context.Background()

	info, err := reader.ResolveProduct(ctx, active.ID)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.True(t, info.Purchasable)
	assert.Equal(t, seller, info.SellerID)
	assert.Equal(t, "50.00", info.UnitPrice.StringFixed(2))

	info, err = reader.ResolveProduct(ctx, archived.ID)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.False(t, info.Purchasable)

	info, err = reader.ResolveProduct(ctx, deleted.ID)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.False(t, info.Purchasable)

	info, err = reader.ResolveProduct(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestResolveProductsSkipsMissing(t *testing.T) {
	t.Parallel()
	db := testdb.Open(t)
	product := testdb.SeedProduct(t, db, uuid.New(), "Scarf", "20.00", enums.ProductStatusActive)

	got, err := NewReader(db).ResolveProducts(context.Background(), []uuid.UUID{product.ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, "Scarf", got[product.ID].Title)
}
