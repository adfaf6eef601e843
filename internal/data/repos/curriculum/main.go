package curriculum

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/scripture-study-backend/internal/domain"
	"github.com/yungbote/scripture-study-backend/internal/platform/dbctx"
	"github.com/yungbote/scripture-study-backend/internal/platform/logger"
)

type MainRepo interface {
	Create(dbc dbctx.Context, mains []*types.Main) ([]*types.Main, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Main, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*types.Main, error)
	GetByTitle(dbc dbctx.Context, title string) (*types.Main, error)
	List(dbc dbctx.Context) ([]*types.Main, error)
	Count(dbc dbctx.Context) (int64, error)
	Update(dbc dbctx.Context, id uuid.UUID, fields map[string]any) error
	DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
}

type mainRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMainRepo(db *gorm.DB, baseLog *logger.Logger) MainRepo {
	return &mainRepo{db: db, log: baseLog.With("repo", "MainRepo")}
}

func (r *mainRepo) Create(dbc dbctx.Context, mains []*types.Main) ([]*types.Main, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(mains) == 0 {
		return []*types.Main{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&mains).Error; err != nil {
		return nil, err
	}
	return mains, nil
}

func (r *mainRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Main, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Main
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

// Get returns nil, nil when the main does not exist.
func (r *mainRepo) Get(dbc dbctx.Context, id uuid.UUID) (*types.Main, error) {
	rows, err := r.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (r *mainRepo) GetByTitle(dbc dbctx.Context, title string) (*types.Main, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Main
	if err := transaction.WithContext(dbc.Ctx).
		Where("title = ?", title).
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

func (r *mainRepo) List(dbc dbctx.Context) ([]*types.Main, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Main
	if err := transaction.WithContext(dbc.Ctx).
		Order("sort_order ASC").
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *mainRepo) Count(dbc dbctx.Context) (int64, error) {
	var n int64
	err := dbc.DB(r.db).Model(&types.Main{}).Count(&n).Error
	return n, err
}

// Update merges fields and returns gorm.ErrRecordNotFound for an unknown id.
func (r *mainRepo) Update(dbc dbctx.Context, id uuid.UUID, fields map[string]any) error {
	return updateByID(dbc.DB(r.db), &types.Main{}, id, fields)
}

func (r *mainRepo) DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return dbc.DB(r.db).Where("id IN ?", ids).Delete(&types.Main{}).Error
}

func updateByID(tx *gorm.DB, model any, id uuid.UUID, fields map[string]any) error {
	updates := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["updated_at"] = time.Now().UTC()
	res := tx.Model(model).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
