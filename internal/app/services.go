package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/scripture-study-backend/internal/platform/logger"
	"github.com/yungbote/scripture-study-backend/internal/platform/querycache"
	"github.com/yungbote/scripture-study-backend/internal/services"
)

type Services struct {
	Auth       services.AuthService
	User       services.UserService
	Avatar     services.AvatarService
	Curriculum services.CurriculumService
	Lesson     services.LessonService
	Progress   services.ProgressService
	Bookmark   services.BookmarkService
	Upload     services.UploadService
	Dashboard  services.DashboardService
	Seed       services.SeedService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, clients Clients, cache querycache.Cache, notify services.Notifier) (Services, error) {
	log.Info("Wiring services...")

	avatars, err := services.NewAvatarService(log, r.User, clients.Bucket, services.AvatarConfig{
		FontPath:   cfg.AvatarFontPath,
		ColorsPath: cfg.AvatarColorsPath,
	})
	if err != nil {
		return Services{}, fmt.Errorf("init avatar service: %w", err)
	}

	auth := services.NewAuthService(
		db, log,
		r.User, r.UserToken, r.UserIdentity, r.OAuthNonce, r.EmailVerification, r.SystemFlag,
		avatars,
		clients.Mailer,
		clients.Google,
		services.AuthConfig{
			JWTSecret:  cfg.JWTSecretKey,
			AccessTTL:  cfg.AccessTTL(),
			RefreshTTL: cfg.RefreshTTL(),
			AppName:    cfg.AppName,
			AppBaseURL: cfg.AppBaseURL,
		},
	)

	return Services{
		Auth:   auth,
		User:   services.NewUserService(db, log, r.User, notify),
		Avatar: avatars,
		Curriculum: services.NewCurriculumService(
			db, log, r.User, r.Main, r.Class, r.Lesson, r.Progress, r.Bookmark,
			cache, cfg.CacheDuration(), notify,
		),
		Lesson: services.NewLessonService(
			db, log, r.User, r.Main, r.Class, r.Lesson, r.Progress, r.Bookmark,
			cache, cfg.CacheDuration(), notify, cfg.SearchCorpusCeiling,
		),
		Progress:  services.NewProgressService(db, log, r.Progress, r.Lesson, r.Main, r.Class, notify),
		Bookmark:  services.NewBookmarkService(db, log, r.Bookmark, r.Lesson, r.Main, r.Class, notify),
		Upload:    services.NewUploadService(log, r.User, clients.Bucket, cfg.UploadMaxBytes),
		Dashboard: services.NewDashboardService(log, r.User, r.Main, r.Lesson, r.Progress, r.Bookmark),
		Seed:      services.NewSeedService(db, log, r.User, r.Main, r.Class, r.Lesson, cache),
	}, nil
}
