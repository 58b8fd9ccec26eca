package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/localnerve/jam-build-crm/internal/types"
)

// Base carries the identity, the optimistic concurrency version and timestamps of every document.
type Base struct {
	ID        types.ObjectID `gorm:"primaryKey;type:varchar(24)" json:"_id"`
	Version   uint64         `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// BeforeCreate assigns a new ObjectID when none was set
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID.IsZero() {
		b.ID = types.NewObjectID()
	}
	if b.Version == 0 {
		b.Version = 1
	}
	return nil
}

// All returns every persisted model, in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Service{},
		&Lead{},
		&Client{},
		&Blog{},
		&Announcement{},
		&FAQ{},
	}
}
