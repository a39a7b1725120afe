package cart

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
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
	require.NoError(t, gdb.AutoMigrate(&models.CartItem{}))
	return gdb
}

func TestAddListClear(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()
	userID := uuid.New()

	productID := uuid.New()
	_, err := repo.Add(ctx, &models.CartItem{UserID: userID, ProductID: &productID, Name: "linen shirt", Qty: 2})
	require.NoError(t, err)
	_, err = repo.Add(ctx, &models.CartItem{UserID: userID, Name: "ad-hoc item", Qty: 1})
	require.NoError(t, err)
	_, err = repo.Add(ctx, &models.CartItem{UserID: uuid.New(), Name: "someone else", Qty: 1})
	require.NoError(t, err)

	items, err := repo.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, items, 2)

	require.NoError(t, repo.Clear(ctx, userID))

	items, err = repo.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Empty(t, items)

	// Clearing an already-empty cart is fine.
	require.NoError(t, repo.Clear(ctx, userID))
}

func TestRemoveScopedToUser(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()
	owner := uuid.New()

	item, err := repo.Add(ctx, &models.CartItem{UserID: owner, Name: "tote bag", Qty: 1})
	require.NoError(t, err)

	// A different user cannot remove the row.
	require.NoError(t, repo.Remove(ctx, uuid.New(), item.ID))
	items, err := repo.ListByUser(ctx, owner)
	require.NoError(t, err)
	require.Len(t, items, 1)

	require.NoError(t, repo.Remove(ctx, owner, item.ID))
	items, err = repo.ListByUser(ctx, owner)
	require.NoError(t, err)
	require.Empty(t, items)
}
