package settings

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/threadline-store/threadline-backend/pkg/db/models"
)

// Well-known setting keys.
const (
	KeyPaymentDestination = "payment_destination"
)

// Repository manages versioned configuration values. Writes insert a new
// version; reads resolve the highest version for a key, so updates are
// visible without a process restart and history is never lost.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Latest(ctx context.Context, key string) (*models.Setting, error)
	Set(ctx context.Context, key, value string) (*models.Setting, error)
	History(ctx context.Context, key string) ([]models.Setting, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a settings repository bound to the provided DB.
func NewRepository(gdb *gorm.DB) Repository {
	return &repository{db: gdb}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Latest(ctx context.Context, key string) (*models.Setting, error) {
	var row models.Setting
	err := r.db.WithContext(ctx).
		Where("key = ?", key).
		Order("version DESC").
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) Set(ctx context.Context, key, value string) (*models.Setting, error) {
	version := 1
	latest, err := r.Latest(ctx, key)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if latest != nil {
		version = latest.Version + 1
	}
	row := models.Setting{Key: key, Version: version, Value: value}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) History(ctx context.Context, key string) ([]models.Setting, error) {
	var rows []models.Setting
	err := r.db.WithContext(ctx).
		Where("key = ?", key).
		Order("version DESC").
		Find(&rows).Error
	return rows, err
}
