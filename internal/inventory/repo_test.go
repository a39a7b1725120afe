package inventory

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/threadline-store/threadline-backend/pkg/db/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&models.Product{}))
	return gdb
}

func seedProduct(t *testing.T, gdb *gorm.DB, stock int) models.Product {
	t.Helper()
	product := models.Product{
		Name:  "graphic tee",
		Price: decimal.NewFromInt(499),
		Stock: stock,
	}
	require.NoError(t, gdb.Create(&product).Error)
	return product
}

func TestDecrementReducesStock(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	product := seedProduct(t, gdb, 5)

	applied, err := repo.Decrement(ctx, product.ID, 3)
	require.NoError(t, err)
	require.True(t, applied)

	got, err := repo.FindProduct(ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, 2, got.Stock)
}

func TestDecrementRefusesInsufficientStock(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	product := seedProduct(t, gdb, 2)

	applied, err := repo.Decrement(ctx, product.ID, 3)
	require.NoError(t, err)
	require.False(t, applied)

	got, err := repo.FindProduct(ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, 2, got.Stock, "stock must be untouched on refusal")
}

func TestDecrementExactStockDrainsToZero(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	product := seedProduct(t, gdb, 3)

	applied, err := repo.Decrement(ctx, product.ID, 3)
	require.NoError(t, err)
	require.True(t, applied)

	got, err := repo.FindProduct(ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, 0, got.Stock)
}

func TestRestoreAddsStockBack(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	product := seedProduct(t, gdb, 1)

	require.NoError(t, repo.Restore(ctx, product.ID, 4))

	got, err := repo.FindProduct(ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, 5, got.Stock)
}

func TestDecrementZeroQtyIsNoOp(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	product := seedProduct(t, gdb, 2)

	applied, err := repo.Decrement(ctx, product.ID, 0)
	require.NoError(t, err)
	require.True(t, applied)

	got, err := repo.FindProduct(ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, 2, got.Stock)
}

func TestFindProductsFiltersByIDs(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	first := seedProduct(t, gdb, 1)
	seedProduct(t, gdb, 2)

	products, err := repo.FindProducts(ctx, []uuid.UUID{first.ID})
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.Equal(t, first.ID, products[0].ID)

	products, err = repo.FindProducts(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, products)
}
