package curriculum

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Class is the optional grouping level between a Main and its lessons.
type Class struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MainID      uuid.UUID `gorm:"type:uuid;not null;index;column:main_id" json:"main_id"`
	Main        *Main     `gorm:"foreignKey:MainID;references:ID" json:"-"`
	Title       string    `gorm:"not null;column:title" json:"title"`
	Description string    `gorm:"column:description" json:"description,omitempty"`
	Order       int       `gorm:"not null;default:0;column:sort_order" json:"order"`
	CreatedBy   uuid.UUID `gorm:"type:uuid;not null;column:created_by" json:"created_by"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (Class) TableName() string { return "class" }

func (c *Class) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
