package curriculum

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Main is the root of the content hierarchy.
type Main struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string    `gorm:"not null;column:title" json:"title"`
	Description string    `gorm:"column:description" json:"description,omitempty"`
	Order       int       `gorm:"not null;default:0;column:sort_order;index" json:"order"`
	CreatedBy   uuid.UUID `gorm:"type:uuid;not null;column:created_by" json:"created_by"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (Main) TableName() string { return "main" }

func (m *Main) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
