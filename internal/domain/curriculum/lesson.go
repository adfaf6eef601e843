package curriculum

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

type Lesson struct {
	ID             uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	MainID         uuid.UUID                   `gorm:"type:uuid;not null;index;column:main_id" json:"main_id" binding:"required"`
	Main           *Main                       `gorm:"foreignKey:MainID;references:ID" json:"-"`
	ClassID        *uuid.UUID                  `gorm:"type:uuid;index;column:class_id" json:"class_id,omitempty"`
	Class          *Class                      `gorm:"foreignKey:ClassID;references:ID" json:"-"`
	Title          string                      `gorm:"not null;column:title" json:"title" binding:"notblank"`
	BibleReference string                      `gorm:"column:bible_reference" json:"bible_reference,omitempty"`
	Content        string                      `gorm:"type:text;column:content" json:"content"`
	Images         datatypes.JSONSlice[string] `gorm:"column:images" json:"images" binding:"dive,http_url"`
	Category       string                      `gorm:"index;column:category" json:"category,omitempty"`
	Difficulty     string                      `gorm:"index;column:difficulty" json:"difficulty,omitempty" binding:"omitempty,oneof=beginner intermediate advanced"`
	Status         string                      `gorm:"not null;default:draft;index;column:status" json:"status" binding:"required,oneof=draft published archived"`
	Order          int                         `gorm:"not null;default:0;column:sort_order" json:"order"`
	Views          int64                       `gorm:"not null;default:0;column:views" json:"views"`
	CreatedBy      uuid.UUID                   `gorm:"type:uuid;not null;index;column:created_by" json:"created_by"`
	CreatedAt      time.Time                   `gorm:"not null;index" json:"created_at"`
	UpdatedAt      time.Time                   `gorm:"not null;index" json:"updated_at"`
}

func (Lesson) TableName() string { return "lesson" }

func (l *Lesson) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.Status == "" {
		l.Status = StatusDraft
	}
	if l.Images == nil {
		l.Images = datatypes.JSONSlice[string]{}
	}
	return nil
}

func (l *Lesson) IsPublished() bool { return l != nil && l.Status == StatusPublished }

// LessonFilter is the equality filter shared by list and search.
type LessonFilter struct {
	Status     string     `json:"status,omitempty"`
	MainID     *uuid.UUID `json:"main_id,omitempty"`
	ClassID    *uuid.UUID `json:"class_id,omitempty"`
	Category   string     `json:"category,omitempty"`
	Difficulty string     `json:"difficulty,omitempty"`
	Author     *uuid.UUID `json:"author,omitempty"`
}
