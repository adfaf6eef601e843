package study

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/scripture-study-backend/internal/domain"
	"github.com/yungbote/scripture-study-backend/internal/platform/dbctx"
	"github.com/yungbote/scripture-study-backend/internal/platform/logger"
)

type ProgressRepo interface {
	// Upsert creates the (user, lesson) row when missing and merges patch into it.
	Upsert(dbc dbctx.Context, userID, lessonID uuid.UUID, patch types.ProgressPatch) (*types.UserProgress, error)
	Get(dbc dbctx.Context, userID, lessonID uuid.UUID) (*types.UserProgress, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.UserProgress, error)
	DeleteByLessonIDs(dbc dbctx.Context, lessonIDs []uuid.UUID) error
}

type progressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProgressRepo(db *gorm.DB, baseLog *logger.Logger) ProgressRepo {
	return &progressRepo{db: db, log: baseLog.With("repo", "ProgressRepo")}
}

func (r *progressRepo) Upsert(dbc dbctx.Context, userID, lessonID uuid.UUID, patch types.ProgressPatch) (*types.UserProgress, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now().UTC()

	err := transaction.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		seed := &types.UserProgress{
			UserID:    userID,
			LessonID:  lessonID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}},
			DoNothing: true,
		}).Create(seed).Error; err != nil {
			return err
		}

		updates := map[string]any{"updated_at": now}
		if patch.Completed != nil {
			updates["completed"] = *patch.Completed
			if *patch.Completed {
				updates["completed_at"] = gorm.Expr("COALESCE(completed_at, ?)", now)
			} else {
				updates["completed_at"] = nil
			}
		}
		if patch.ProgressPercentage != nil {
			updates["progress_percentage"] = *patch.ProgressPercentage
		}
		if patch.TimeSpentDelta != 0 {
			updates["time_spent"] = gorm.Expr("time_spent + ?", patch.TimeSpentDelta)
		}
		if patch.Notes != nil {
			updates["notes"] = *patch.Notes
		}
		return tx.Model(&types.UserProgress{}).
			Where("user_id = ? AND lesson_id = ?", userID, lessonID).
			Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return r.Get(dbc, userID, lessonID)
}

// Get returns nil, nil when the user has no progress on the lesson.
func (r *progressRepo) Get(dbc dbctx.Context, userID, lessonID uuid.UUID) (*types.UserProgress, error) {
	var rows []*types.UserProgress
	if err := dbc.DB(r.db).
		Where("user_id = ? AND lesson_id = ?", userID, lessonID).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *progressRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.UserProgress, error) {
	var rows []*types.UserProgress
	if err := dbc.DB(r.db).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *progressRepo) DeleteByLessonIDs(dbc dbctx.Context, lessonIDs []uuid.UUID) error {
	if len(lessonIDs) == 0 {
		return nil
	}
	return dbc.DB(r.db).Where("lesson_id IN ?", lessonIDs).Delete(&types.UserProgress{}).Error
}
