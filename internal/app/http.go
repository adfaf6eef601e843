package app

import (
	"gorm.io/gorm"

	apphttp "github.com/yungbote/scripture-study-backend/internal/http"
	httpH "github.com/yungbote/scripture-study-backend/internal/http/handlers"
	httpMW "github.com/yungbote/scripture-study-backend/internal/http/middleware"
	"github.com/yungbote/scripture-study-backend/internal/observability"
	"github.com/yungbote/scripture-study-backend/internal/platform/logger"
	"github.com/yungbote/scripture-study-backend/internal/realtime"
)

func wireServer(db *gorm.DB, log *logger.Logger, cfg Config, svc Services, clients Clients, hub *realtime.SSEHub, metrics *observability.Metrics, tracing bool) *apphttp.Server {
	log.Info("Wiring HTTP server...")

	var counter httpMW.WindowCounter
	if clients.Redis != nil {
		counter = httpMW.NewRedisCounter(clients.Redis)
	}

	return apphttp.NewServer(apphttp.RouterConfig{
		Log:            log,
		ServiceName:    cfg.OtelServiceName,
		TracingEnabled: tracing,
		CORSOrigins:    cfg.Origins(),
		Metrics:        metrics,

		AuthMiddleware: httpMW.NewAuthMiddleware(log, svc.Auth),
		RateLimiter:    httpMW.NewRateLimiter(log, counter),
		AuthRateLimit:  cfg.RateLimitAuth,

		AuthHandler:       httpH.NewAuthHandler(svc.Auth, metrics),
		UserHandler:       httpH.NewUserHandler(svc.User),
		CurriculumHandler: httpH.NewCurriculumHandler(svc.Curriculum),
		LessonHandler:     httpH.NewLessonHandler(svc.Lesson, metrics),
		ProgressHandler:   httpH.NewProgressHandler(svc.Progress),
		BookmarkHandler:   httpH.NewBookmarkHandler(svc.Bookmark),
		UploadHandler:     httpH.NewUploadHandler(svc.Upload, metrics),
		EditorHandler:     httpH.NewEditorHandler(),
		DashboardHandler:  httpH.NewDashboardHandler(svc.Dashboard),
		RealtimeHandler:   httpH.NewRealtimeHandler(log, hub),
		HealthHandler:     httpH.NewHealthHandler(db),
	})
}
