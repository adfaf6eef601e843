package domain

import (
	"github.com/yungbote/scripture-study-backend/internal/domain/auth"
	"github.com/yungbote/scripture-study-backend/internal/domain/curriculum"
	"github.com/yungbote/scripture-study-backend/internal/domain/study"
	"github.com/yungbote/scripture-study-backend/internal/domain/system"
	"github.com/yungbote/scripture-study-backend/internal/domain/user"
)

const (
	RoleAdmin = user.RoleAdmin
	RoleUser  = user.RoleUser

	LessonStatusDraft     = curriculum.StatusDraft
	LessonStatusPublished = curriculum.StatusPublished
	LessonStatusArchived  = curriculum.StatusArchived

	FlagAdminExists = system.FlagAdminExists
)

type (
	User              = user.User
	UserToken         = auth.UserToken
	UserIdentity      = auth.UserIdentity
	OAuthNonce        = auth.OAuthNonce
	EmailVerification = auth.EmailVerification
	SystemFlag        = system.SystemFlag

	Main         = curriculum.Main
	Class        = curriculum.Class
	Lesson       = curriculum.Lesson
	LessonFilter = curriculum.LessonFilter

	UserProgress  = study.UserProgress
	ProgressPatch = study.ProgressPatch
	Bookmark      = study.Bookmark
)

// Models lists every persisted type in migration order.
func Models() []any {
	return []any{
		&user.User{},
		&auth.UserToken{},
		&auth.UserIdentity{},
		&auth.OAuthNonce{},
		&auth.EmailVerification{},
		&system.SystemFlag{},
		&curriculum.Main{},
		&curriculum.Class{},
		&curriculum.Lesson{},
		&study.UserProgress{},
		&study.Bookmark{},
	}
}
