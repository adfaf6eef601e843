package curriculum

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/scripture-study-backend/internal/domain"
	"github.com/yungbote/scripture-study-backend/internal/platform/dbctx"
	"github.com/yungbote/scripture-study-backend/internal/platform/logger"
)

type ClassRepo interface {
	Create(dbc dbctx.Context, classes []*types.Class) ([]*types.Class, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Class, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*types.Class, error)
	GetByTitle(dbc dbctx.Context, mainID uuid.UUID, title string) (*types.Class, error)
	ListByMain(dbc dbctx.Context, mainID uuid.UUID) ([]*types.Class, error)
	CountByMain(dbc dbctx.Context, mainID uuid.UUID) (int64, error)
	Update(dbc dbctx.Context, id uuid.UUID, fields map[string]any) error
	DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
	DeleteByMainIDs(dbc dbctx.Context, mainIDs []uuid.UUID) error
}

type classRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewClassRepo(db *gorm.DB, baseLog *logger.Logger) ClassRepo {
	return &classRepo{db: db, log: baseLog.With("repo", "ClassRepo")}
}

func (r *classRepo) Create(dbc dbctx.Context, classes []*types.Class) ([]*types.Class, error) {
	if len(classes) == 0 {
		return []*types.Class{}, nil
	}
	if err := dbc.DB(r.db).Create(&classes).Error; err != nil {
		return nil, err
	}
	return classes, nil
}

func (r *classRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Class, error) {
	var results []*types.Class
	if len(ids) == 0 {
		return results, nil
	}
	if err := dbc.DB(r.db).Where("id IN ?", ids).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *classRepo) Get(dbc dbctx.Context, id uuid.UUID) (*types.Class, error) {
	rows, err := r.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (r *classRepo) GetByTitle(dbc dbctx.Context, mainID uuid.UUID, title string) (*types.Class, error) {
	var results []*types.Class
	if err := dbc.DB(r.db).
		Where("main_id = ? AND title = ?", mainID, title).
		Order("created_at ASC").
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (r *classRepo) ListByMain(dbc dbctx.Context, mainID uuid.UUID) ([]*types.Class, error) {
	var results []*types.Class
	if err := dbc.DB(r.db).
		Where("main_id = ?", mainID).
		Order("sort_order ASC").
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *classRepo) CountByMain(dbc dbctx.Context, mainID uuid.UUID) (int64, error) {
	var n int64
	err := dbc.DB(r.db).Model(&types.Class{}).Where("main_id = ?", mainID).Count(&n).Error
	return n, err
}

func (r *classRepo) Update(dbc dbctx.Context, id uuid.UUID, fields map[string]any) error {
	return updateByID(dbc.DB(r.db), &types.Class{}, id, fields)
}

func (r *classRepo) DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return dbc.DB(r.db).Where("id IN ?", ids).Delete(&types.Class{}).Error
}

func (r *classRepo) DeleteByMainIDs(dbc dbctx.Context, mainIDs []uuid.UUID) error {
	if len(mainIDs) == 0 {
		return nil
	}
	return dbc.DB(r.db).Where("main_id IN ?", mainIDs).Delete(&types.Class{}).Error
}
