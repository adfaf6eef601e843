package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/scripture-study-backend/internal/domain"
)

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrTime(v time.Time) *time.Time { return &v }

func SeedUser(tb testing.TB, tx *gorm.DB, email, role string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:          uuid.New(),
		Email:       email,
		DisplayName: "Test User",
		Role:        role,
	}
	if err := tx.Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedMain(tb testing.TB, tx *gorm.DB, title string, order int, createdBy uuid.UUID) *types.Main {
	tb.Helper()
	m := &types.Main{
		ID:        uuid.New(),
		Title:     title,
		Order:     order,
		CreatedBy: createdBy,
	}
	if err := tx.Create(m).Error; err != nil {
		tb.Fatalf("seed main: %v", err)
	}
	return m
}

func SeedClass(tb testing.TB, tx *gorm.DB, mainID uuid.UUID, title string, order int, createdBy uuid.UUID) *types.Class {
	tb.Helper()
	c := &types.Class{
		ID:        uuid.New(),
		MainID:    mainID,
		Title:     title,
		Order:     order,
		CreatedBy: createdBy,
	}
	if err := tx.Create(c).Error; err != nil {
		tb.Fatalf("seed class: %v", err)
	}
	return c
}

// LessonOpt tweaks a lesson before SeedLesson inserts it.
type LessonOpt func(*types.Lesson)

func WithClass(id uuid.UUID) LessonOpt { return func(l *types.Lesson) { l.ClassID = &id } }
func WithStatus(s string) LessonOpt { return func(l *types.Lesson) { l.Status = s } }
func WithContent(s string) LessonOpt { return func(l *types.Lesson) { l.Content = s } }
func WithReference(s string) LessonOpt { return func(l *types.Lesson) { l.BibleReference = s } }
func WithCategory(s string) LessonOpt { return func(l *types.Lesson) { l.Category = s } }
func WithOrder(n int) LessonOpt { return func(l *types.Lesson) { l.Order = n } }
func WithDifficulty(s string) LessonOpt { return func(l *types.Lesson) { l.Difficulty = s } }
func WithUpdatedAt(t time.Time) LessonOpt { return func(l *types.Lesson) { l.UpdatedAt = t; l.CreatedAt = t } }

func SeedLesson(tb testing.TB, tx *gorm.DB, mainID uuid.UUID, title string, createdBy uuid.UUID, opts ...LessonOpt) *types.Lesson {
	tb.Helper()
	l := &types.Lesson{
		ID:        uuid.New(),
		MainID:    mainID,
		Title:     title,
		Status:    types.LessonStatusPublished,
		CreatedBy: createdBy,
	}
	for _, opt := range opts {
		opt(l)
	}
	if err := tx.Create(l).Error; err != nil {
		tb.Fatalf("seed lesson: %v", err)
	}
	return l
}
