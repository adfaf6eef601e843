package curriculum

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/scripture-study-backend/internal/domain"
	"github.com/yungbote/scripture-study-backend/internal/platform/dbctx"
	"github.com/yungbote/scripture-study-backend/internal/platform/logger"
)

type LessonRepo interface {
	Create(dbc dbctx.Context, lessons []*types.Lesson) ([]*types.Lesson, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Lesson, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*types.Lesson, error)
	GetByTitle(dbc dbctx.Context, mainID uuid.UUID, classID *uuid.UUID, title string) (*types.Lesson, error)
	// List applies filter and orders by updated_at desc. limit <= 0 means no limit.
	List(dbc dbctx.Context, filter types.LessonFilter, limit int) ([]*types.Lesson, error)
	ListPublished(dbc dbctx.Context, mainID, classID *uuid.UUID) ([]*types.Lesson, error)
	ListRecent(dbc dbctx.Context, status string, byCreated bool, limit int) ([]*types.Lesson, error)
	Count(dbc dbctx.Context, filter types.LessonFilter) (int64, error)
	IDsByMain(dbc dbctx.Context, mainID uuid.UUID) ([]uuid.UUID, error)
	IDsByClass(dbc dbctx.Context, classID uuid.UUID) ([]uuid.UUID, error)
	Update(dbc dbctx.Context, id uuid.UUID, fields map[string]any) error
	IncrementViews(dbc dbctx.Context, id uuid.UUID) error
	DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
}

type lessonRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonRepo(db *gorm.DB, baseLog *logger.Logger) LessonRepo {
	repoLog := baseLog.With("repo", "LessonRepo")
	return &lessonRepo{db: db, log: repoLog}
}

func (r *lessonRepo) Create(dbc dbctx.Context, lessons []*types.Lesson) ([]*types.Lesson, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(lessons) == 0 {
		return []*types.Lesson{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&lessons).Error; err != nil {
		return nil, err
	}
	return lessons, nil
}

func (r *lessonRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Lesson, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Lesson
	if len(ids) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// Get returns nil, nil when the lesson does not exist.
func (r *lessonRepo) Get(dbc dbctx.Context, id uuid.UUID) (*types.Lesson, error) {
	rows, err := r.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (r *lessonRepo) GetByTitle(dbc dbctx.Context, mainID uuid.UUID, classID *uuid.UUID, title string) (*types.Lesson, error) {
	q := dbc.DB(r.db).Where("main_id = ? AND title = ?", mainID, title)
	if classID != nil {
		q = q.Where("class_id = ?", *classID)
	} else {
		q = q.Where("class_id IS NULL")
	}
	var results []*types.Lesson
	if err := q.Order("created_at ASC").Limit(1).Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func applyFilter(q *gorm.DB, f types.LessonFilter) *gorm.DB {
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.MainID != nil {
		q = q.Where("main_id = ?", *f.MainID)
	}
	if f.ClassID != nil {
		q = q.Where("class_id = ?", *f.ClassID)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Difficulty != "" {
		q = q.Where("difficulty = ?", f.Difficulty)
	}
	if f.Author != nil {
		q = q.Where("created_by = ?", *f.Author)
	}
	return q
}

func (r *lessonRepo) List(dbc dbctx.Context, filter types.LessonFilter, limit int) ([]*types.Lesson, error) {
	q := applyFilter(dbc.DB(r.db).Model(&types.Lesson{}), filter).
		Order("updated_at DESC").
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var results []*types.Lesson
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *lessonRepo) ListPublished(dbc dbctx.Context, mainID, classID *uuid.UUID) ([]*types.Lesson, error) {
	q := applyFilter(dbc.DB(r.db).Model(&types.Lesson{}), types.LessonFilter{
		Status:  types.LessonStatusPublished,
		MainID:  mainID,
		ClassID: classID,
	})
	var results []*types.Lesson
	if err := q.Order("sort_order ASC").Order("created_at ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ListRecent returns the newest lessons, by created_at when byCreated is set and
// by updated_at otherwise. An empty status matches every status.
func (r *lessonRepo) ListRecent(dbc dbctx.Context, status string, byCreated bool, limit int) ([]*types.Lesson, error) {
	q := applyFilter(dbc.DB(r.db).Model(&types.Lesson{}), types.LessonFilter{Status: status})
	if byCreated {
		q = q.Order("created_at DESC")
	} else {
		q = q.Order("updated_at DESC")
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var results []*types.Lesson
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *lessonRepo) Count(dbc dbctx.Context, filter types.LessonFilter) (int64, error) {
	var n int64
	err := applyFilter(dbc.DB(r.db).Model(&types.Lesson{}), filter).Count(&n).Error
	return n, err
}

func (r *lessonRepo) IDsByMain(dbc dbctx.Context, mainID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := dbc.DB(r.db).Model(&types.Lesson{}).Where("main_id = ?", mainID).Pluck("id", &ids).Error
	return ids, err
}

func (r *lessonRepo) IDsByClass(dbc dbctx.Context, classID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := dbc.DB(r.db).Model(&types.Lesson{}).Where("class_id = ?", classID).Pluck("id", &ids).Error
	return ids, err
}

func (r *lessonRepo) Update(dbc dbctx.Context, id uuid.UUID, fields map[string]any) error {
	return updateByID(dbc.DB(r.db), &types.Lesson{}, id, fields)
}

// IncrementViews is a single atomic UPDATE so concurrent readers never lose a count.
// updated_at is left alone; a view is not an edit.
func (r *lessonRepo) IncrementViews(dbc dbctx.Context, id uuid.UUID) error {
	res := dbc.DB(r.db).
		Model(&types.Lesson{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *lessonRepo) DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return dbc.DB(r.db).Where("id IN ?", ids).Delete(&types.Lesson{}).Error
}
