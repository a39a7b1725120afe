package address

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/threadline-store/threadline-backend/pkg/db/models"
	"github.com/threadline-store/threadline-backend/pkg/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&models.SavedAddress{}))
	return gdb
}

func sampleAddress() types.Address {
	return types.Address{
		Name:       "A. Rivera",
		Line1:      "14 Mill Road",
		City:       "Pune",
		State:      "MH",
		PostalCode: "411001",
		Country:    "IN",
		Phone:      "9999999999",
	}
}

func TestSaveIfAbsentDedupes(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()
	userID := uuid.New()

	saved, err := repo.SaveIfAbsent(ctx, userID, sampleAddress())
	require.NoError(t, err)
	require.True(t, saved)

	saved, err = repo.SaveIfAbsent(ctx, userID, sampleAddress())
	require.NoError(t, err)
	require.False(t, saved, "identical address must not be stored twice")

	rows, err := repo.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestSaveIfAbsentDifferentUsersKeepOwnCopies(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	first, err := repo.SaveIfAbsent(ctx, uuid.New(), sampleAddress())
	require.NoError(t, err)
	require.True(t, first)

	second, err := repo.SaveIfAbsent(ctx, uuid.New(), sampleAddress())
	require.NoError(t, err)
	require.True(t, second)
}

func TestSaveIfAbsentSkipsZeroAddress(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewRepository(gdb)

	saved, err := repo.SaveIfAbsent(context.Background(), uuid.New(), types.Address{})
	require.NoError(t, err)
	require.False(t, saved)
}
