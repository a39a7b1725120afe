package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Setting is one version of a mutable configuration value. Updates insert a
// new version; readers take the highest version for a key. The settlement
// service reads the payment-destination identifier through this table rather
// than a process-wide variable.
type Setting struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Key       string    `gorm:"column:key;not null;uniqueIndex:ux_settings_key_version,priority:1"`
	Version   int       `gorm:"column:version;not null;uniqueIndex:ux_settings_key_version,priority:2"`
	Value     string    `gorm:"column:value;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (s *Setting) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
