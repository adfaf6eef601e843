package system

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/scripture-study-backend/internal/domain"
	"github.com/yungbote/scripture-study-backend/internal/platform/dbctx"
	"github.com/yungbote/scripture-study-backend/internal/platform/logger"
)

type SystemFlagRepo interface {
	// Claim inserts key if absent and reports whether this call created it.
	Claim(dbc dbctx.Context, key, value string) (bool, error)
	Get(dbc dbctx.Context, key string) (*types.SystemFlag, error)
}

type systemFlagRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSystemFlagRepo(db *gorm.DB, baseLog *logger.Logger) SystemFlagRepo {
	return &systemFlagRepo{db: db, log: baseLog.With("repo", "SystemFlagRepo")}
}

func (r *systemFlagRepo) Claim(dbc dbctx.Context, key, value string) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	row := &types.SystemFlag{Key: key, Value: value, CreatedAt: time.Now().UTC()}
	res := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "key"}}, DoNothing: true}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *systemFlagRepo) Get(dbc dbctx.Context, key string) (*types.SystemFlag, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []*types.SystemFlag
	if err := transaction.WithContext(dbc.Ctx).Where(clause.Eq{Column: clause.Column{Name: "key"}, Value: key}).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}
