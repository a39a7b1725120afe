package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/threadline-store/threadline-backend/pkg/db/models"
)

// TxRepository adapts the repository for consumers that pass the open
// transaction explicitly instead of rebinding the repository themselves.
type TxRepository struct {
	repo Repository
}

// NewTxRepository wraps the provided repository.
func NewTxRepository(repo Repository) *TxRepository {
	return &TxRepository{repo: repo}
}

func (a *TxRepository) Decrement(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) (bool, error) {
	return a.repo.WithTx(tx).Decrement(ctx, productID, qty)
}

func (a *TxRepository) Restore(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	return a.repo.WithTx(tx).Restore(ctx, productID, qty)
}

func (a *TxRepository) FindProducts(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]models.Product, error) {
	return a.repo.WithTx(tx).FindProducts(ctx, ids)
}
