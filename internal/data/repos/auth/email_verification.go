package auth

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/scripture-study-backend/internal/domain"
	"github.com/yungbote/scripture-study-backend/internal/platform/dbctx"
	"github.com/yungbote/scripture-study-backend/internal/platform/logger"
)

var ErrVerificationConsumed = errors.New("verification already consumed")

type EmailVerificationRepo interface {
	Create(dbc dbctx.Context, rows []*types.EmailVerification) ([]*types.EmailVerification, error)
	GetByToken(dbc dbctx.Context, token string) (*types.EmailVerification, error)
	MarkConsumed(dbc dbctx.Context, id uuid.UUID, at time.Time) error
}

type emailVerificationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEmailVerificationRepo(db *gorm.DB, baseLog *logger.Logger) EmailVerificationRepo {
	return &emailVerificationRepo{db: db, log: baseLog.With("repo", "EmailVerificationRepo")}
}

func (r *emailVerificationRepo) Create(dbc dbctx.Context, rows []*types.EmailVerification) ([]*types.EmailVerification, error) {
	if len(rows) == 0 {
		return []*types.EmailVerification{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *emailVerificationRepo) GetByToken(dbc dbctx.Context, token string) (*types.EmailVerification, error) {
	var rows []*types.EmailVerification
	if err := dbc.DB(r.db).Where("token = ?", token).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *emailVerificationRepo) MarkConsumed(dbc dbctx.Context, id uuid.UUID, at time.Time) error {
	res := dbc.DB(r.db).
		Model(&types.EmailVerification{}).
		Where("id = ? AND consumed_at IS NULL", id).
		Update("consumed_at", at.UTC())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVerificationConsumed
	}
	return nil
}
