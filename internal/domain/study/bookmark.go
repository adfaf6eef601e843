package study

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/scripture-study-backend/internal/domain/curriculum"
	"github.com/yungbote/scripture-study-backend/internal/domain/user"
)

type Bookmark struct {
	ID        uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:idx_bookmark_user_lesson,priority:1;column:user_id" json:"user_id"`
	User      *user.User         `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	LessonID  uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:idx_bookmark_user_lesson,priority:2;index;column:lesson_id" json:"lesson_id"`
	Lesson    *curriculum.Lesson `gorm:"constraint:OnDelete:CASCADE;foreignKey:LessonID;references:ID" json:"-"`
	Notes     string             `gorm:"type:text;column:notes" json:"notes"`
	CreatedAt time.Time          `gorm:"not null;index" json:"created_at"`
}

func (Bookmark) TableName() string { return "bookmark" }

func (b *Bookmark) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
