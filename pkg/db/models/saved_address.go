package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/threadline-store/threadline-backend/pkg/types"
)

// SavedAddress is one entry in a user's saved-address list. Fingerprint
// dedupes the list so repeated settlements never store the same address
// twice.
type SavedAddress struct {
	ID          uuid.UUID     `gorm:"column:id;type:uuid;primaryKey"`
	UserID      uuid.UUID     `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_saved_addresses_user_fingerprint,priority:1"`
	Fingerprint string        `gorm:"column:fingerprint;not null;uniqueIndex:ux_saved_addresses_user_fingerprint,priority:2"`
	Address     types.Address `gorm:"column:address;type:jsonb;serializer:json"`
	CreatedAt   time.Time     `gorm:"column:created_at;autoCreateTime"`
}

func (s *SavedAddress) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
