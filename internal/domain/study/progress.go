package study

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/scripture-study-backend/internal/domain/curriculum"
	"github.com/yungbote/scripture-study-backend/internal/domain/user"
)

// UserProgress is unique per (user, lesson).
type UserProgress struct {
	ID                 uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	UserID             uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:idx_user_progress_user_lesson,priority:1;column:user_id" json:"user_id"`
	User               *user.User         `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	LessonID           uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:idx_user_progress_user_lesson,priority:2;index;column:lesson_id" json:"lesson_id"`
	Lesson             *curriculum.Lesson `gorm:"constraint:OnDelete:CASCADE;foreignKey:LessonID;references:ID" json:"-"`
	Completed          bool               `gorm:"not null;default:false;column:completed" json:"completed"`
	CompletedAt        *time.Time         `gorm:"column:completed_at" json:"completed_at,omitempty"`
	ProgressPercentage int                `gorm:"not null;default:0;column:progress_percentage" json:"progress_percentage"`
	TimeSpent          int64              `gorm:"not null;default:0;column:time_spent" json:"time_spent"`
	Notes              string             `gorm:"type:text;column:notes" json:"notes,omitempty"`
	CreatedAt          time.Time          `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time          `gorm:"not null;index" json:"updated_at"`
}

func (UserProgress) TableName() string { return "user_progress" }

func (p *UserProgress) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// ProgressPatch carries the fields a caller wants merged; nil means untouched.
// TimeSpentDelta is added to the running total rather than replacing it.
type ProgressPatch struct {
	Completed          *bool   `json:"completed,omitempty"`
	ProgressPercentage *int    `json:"progress_percentage,omitempty" binding:"omitnil,min=0,max=100"`
	TimeSpentDelta     int64   `json:"time_spent_delta,omitempty" binding:"min=0"`
	Notes              *string `json:"notes,omitempty"`
}
