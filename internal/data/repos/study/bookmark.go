package study

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/scripture-study-backend/internal/domain"
	"github.com/yungbote/scripture-study-backend/internal/platform/dbctx"
	"github.com/yungbote/scripture-study-backend/internal/platform/logger"
)

type BookmarkRepo interface {
	Create(dbc dbctx.Context, bookmarks []*types.Bookmark) ([]*types.Bookmark, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*types.Bookmark, error)
	GetByUserAndLesson(dbc dbctx.Context, userID, lessonID uuid.UUID) (*types.Bookmark, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Bookmark, error)
	CountByUser(dbc dbctx.Context, userID uuid.UUID) (int64, error)
	UpdateNotes(dbc dbctx.Context, id uuid.UUID, notes string) error
	DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
	DeleteByLessonIDs(dbc dbctx.Context, lessonIDs []uuid.UUID) error
}

type bookmarkRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBookmarkRepo(db *gorm.DB, baseLog *logger.Logger) BookmarkRepo {
	return &bookmarkRepo{db: db, log: baseLog.With("repo", "BookmarkRepo")}
}

func (r *bookmarkRepo) Create(dbc dbctx.Context, bookmarks []*types.Bookmark) ([]*types.Bookmark, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(bookmarks) == 0 {
		return []*types.Bookmark{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&bookmarks).Error; err != nil {
		return nil, err
	}
	return bookmarks, nil
}

func (r *bookmarkRepo) Get(dbc dbctx.Context, id uuid.UUID) (*types.Bookmark, error) {
	var rows []*types.Bookmark
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *bookmarkRepo) GetByUserAndLesson(dbc dbctx.Context, userID, lessonID uuid.UUID) (*types.Bookmark, error) {
	var rows []*types.Bookmark
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

func (r *bookmarkRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Bookmark, error) {
	var rows []*types.Bookmark
	if err := dbc.DB(r.db).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *bookmarkRepo) CountByUser(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := dbc.DB(r.db).Model(&types.Bookmark{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

func (r *bookmarkRepo) UpdateNotes(dbc dbctx.Context, id uuid.UUID, notes string) error {
	res := dbc.DB(r.db).Model(&types.Bookmark{}).Where("id = ?", id).Update("notes", notes)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *bookmarkRepo) DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return dbc.DB(r.db).Where("id IN ?", ids).Delete(&types.Bookmark{}).Error
}

func (r *bookmarkRepo) DeleteByLessonIDs(dbc dbctx.Context, lessonIDs []uuid.UUID) error {
	if len(lessonIDs) == 0 {
		return nil
	}
	return dbc.DB(r.db).Where("lesson_id IN ?", lessonIDs).Delete(&types.Bookmark{}).Error
}
