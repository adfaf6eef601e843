package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/scripture-study-backend/internal/data/repos"
	"github.com/yungbote/scripture-study-backend/internal/platform/logger"
)

type Repos struct {
	User              repos.UserRepo
	UserToken         repos.UserTokenRepo
	UserIdentity      repos.UserIdentityRepo
	OAuthNonce        repos.OAuthNonceRepo
	EmailVerification repos.EmailVerificationRepo
	SystemFlag        repos.SystemFlagRepo
	Main              repos.MainRepo
	Class             repos.ClassRepo
	Lesson            repos.LessonRepo
	Progress          repos.ProgressRepo
	Bookmark          repos.BookmarkRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:              repos.NewUserRepo(db, log),
		UserToken:         repos.NewUserTokenRepo(db, log),
		UserIdentity:      repos.NewUserIdentityRepo(db, log),
		OAuthNonce:        repos.NewOAuthNonceRepo(db, log),
		EmailVerification: repos.NewEmailVerificationRepo(db, log),
		SystemFlag:        repos.NewSystemFlagRepo(db, log),
		Main:              repos.NewMainRepo(db, log),
		Class:             repos.NewClassRepo(db, log),
		Lesson:            repos.NewLessonRepo(db, log),
		Progress:          repos.NewProgressRepo(db, log),
		Bookmark:          repos.NewBookmarkRepo(db, log),
	}
}
