package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/scripture-study-backend/internal/data/repos/auth"
	"github.com/yungbote/scripture-study-backend/internal/data/repos/curriculum"
	"github.com/yungbote/scripture-study-backend/internal/data/repos/study"
	"github.com/yungbote/scripture-study-backend/internal/data/repos/system"
	"github.com/yungbote/scripture-study-backend/internal/data/repos/user"
	"github.com/yungbote/scripture-study-backend/internal/platform/logger"
)

type UserRepo = user.UserRepo
type UserTokenRepo = auth.UserTokenRepo
type UserIdentityRepo = auth.UserIdentityRepo
type OAuthNonceRepo = auth.OAuthNonceRepo
type EmailVerificationRepo = auth.EmailVerificationRepo
type SystemFlagRepo = system.SystemFlagRepo

type MainRepo = curriculum.MainRepo
type ClassRepo = curriculum.ClassRepo
type LessonRepo = curriculum.LessonRepo

type ProgressRepo = study.ProgressRepo
type BookmarkRepo = study.BookmarkRepo

var (
	ErrNonceUnavailable     = auth.ErrNonceUnavailable
	ErrVerificationConsumed = auth.ErrVerificationConsumed
	ErrTokenConsumed        = auth.ErrTokenConsumed
)

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }
func NewUserTokenRepo(db *gorm.DB, baseLog *logger.Logger) UserTokenRepo {
	return auth.NewUserTokenRepo(db, baseLog)
}
func NewUserIdentityRepo(db *gorm.DB, baseLog *logger.Logger) UserIdentityRepo {
	return auth.NewUserIdentityRepo(db, baseLog)
}
func NewOAuthNonceRepo(db *gorm.DB, baseLog *logger.Logger) OAuthNonceRepo {
	return auth.NewOAuthNonceRepo(db, baseLog)
}
func NewEmailVerificationRepo(db *gorm.DB, baseLog *logger.Logger) EmailVerificationRepo {
	return auth.NewEmailVerificationRepo(db, baseLog)
}
func NewSystemFlagRepo(db *gorm.DB, baseLog *logger.Logger) SystemFlagRepo {
	return system.NewSystemFlagRepo(db, baseLog)
}

func NewMainRepo(db *gorm.DB, baseLog *logger.Logger) MainRepo {
	return curriculum.NewMainRepo(db, baseLog)
}
func NewClassRepo(db *gorm.DB, baseLog *logger.Logger) ClassRepo {
	return curriculum.NewClassRepo(db, baseLog)
}
func NewLessonRepo(db *gorm.DB, baseLog *logger.Logger) LessonRepo {
	return curriculum.NewLessonRepo(db, baseLog)
}

func NewProgressRepo(db *gorm.DB, baseLog *logger.Logger) ProgressRepo {
	return study.NewProgressRepo(db, baseLog)
}
func NewBookmarkRepo(db *gorm.DB, baseLog *logger.Logger) BookmarkRepo {
	return study.NewBookmarkRepo(db, baseLog)
}
