package address

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/threadline-store/threadline-backend/pkg/db"
	"github.com/threadline-store/threadline-backend/pkg/db/models"
	"github.com/threadline-store/threadline-backend/pkg/types"
)

// Repository manages the user's saved-address list.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	SaveIfAbsent(ctx context.Context, userID uuid.UUID, addr types.Address) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.SavedAddress, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an address repository bound to the provided DB.
func NewRepository(gdb *gorm.DB) Repository {
	return &repository{db: gdb}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// SaveIfAbsent stores the address unless the user already saved an identical
// one. The fingerprint index makes repeats a no-op, so settlement retries
// never duplicate the list.
func (r *repository) SaveIfAbsent(ctx context.Context, userID uuid.UUID, addr types.Address) (bool, error) {
	if addr.IsZero() {
		return false, nil
	}
	row := models.SavedAddress{
		UserID:      userID,
		Fingerprint: addr.Fingerprint(),
		Address:     addr,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if db.IsUniqueViolation(err, "ux_saved_addresses_user_fingerprint") ||
			db.IsUniqueViolation(err, "") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.SavedAddress, error) {
	var rows []models.SavedAddress
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}
