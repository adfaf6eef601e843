package http

import (
	nethttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/scripture-study-backend/internal/http/handlers"
	httpMW "github.com/yungbote/scripture-study-backend/internal/http/middleware"
	"github.com/yungbote/scripture-study-backend/internal/http/response"
	"github.com/yungbote/scripture-study-backend/internal/observability"
	"github.com/yungbote/scripture-study-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	TracingEnabled bool
	CORSOrigins    []string
	Metrics        *observability.Metrics

	AuthMiddleware *httpMW.AuthMiddleware
	RateLimiter    *httpMW.RateLimiter
	AuthRateLimit  int

	AuthHandler       *httpH.AuthHandler
	UserHandler       *httpH.UserHandler
	CurriculumHandler *httpH.CurriculumHandler
	LessonHandler     *httpH.LessonHandler
	ProgressHandler   *httpH.ProgressHandler
	BookmarkHandler   *httpH.BookmarkHandler
	UploadHandler     *httpH.UploadHandler
	EditorHandler     *httpH.EditorHandler
	DashboardHandler  *httpH.DashboardHandler
	RealtimeHandler   *httpH.RealtimeHandler
	HealthHandler     *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.TracingEnabled {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	authLimit := cfg.RateLimiter.Limit("auth", cfg.AuthRateLimit, time.Minute)
	am := cfg.AuthMiddleware

	api := r.Group("/api")
	{
		// Auth (public)
		api.POST("/register", authLimit, cfg.AuthHandler.Register)
		api.POST("/login", authLimit, cfg.AuthHandler.Login)
		api.POST("/auth/nonce", authLimit, cfg.AuthHandler.Nonce)
		api.POST("/auth/google", authLimit, cfg.AuthHandler.Google)
		api.POST("/refresh", authLimit, cfg.AuthHandler.Refresh)
		api.GET("/verify-email", cfg.AuthHandler.VerifyEmail)
		api.GET("/session", am.OptionalAuth(), cfg.UserHandler.Session)
	}

	protected := api.Group("/")
	protected.Use(am.RequireAuth())
	{
		protected.POST("/logout", cfg.AuthHandler.Logout)
		protected.GET("/me", cfg.UserHandler.GetMe)

		// Curriculum
		protected.GET("/mains", cfg.CurriculumHandler.ListMains)
		protected.GET("/mains/:id", cfg.CurriculumHandler.GetMain)
		protected.GET("/mains/:id/classes", cfg.CurriculumHandler.ListClasses)
		protected.GET("/mains/:id/lessons", cfg.LessonHandler.ListForMain)
		protected.GET("/classes/:id", cfg.CurriculumHandler.GetClass)

		// Lessons
		protected.GET("/lessons", cfg.LessonHandler.List)
		protected.GET("/lessons/:id", cfg.LessonHandler.Get)
		protected.POST("/lessons/:id/view", cfg.LessonHandler.RecordView)

		// Progress
		protected.GET("/progress", cfg.ProgressHandler.List)
		protected.GET("/progress/stats", cfg.ProgressHandler.Stats)
		protected.GET("/progress/:lessonId", cfg.ProgressHandler.Get)
		protected.PUT("/progress/:lessonId", cfg.ProgressHandler.Save)

		// Bookmarks
		protected.GET("/bookmarks", cfg.BookmarkHandler.List)
		protected.POST("/bookmarks", cfg.BookmarkHandler.Create)
		protected.GET("/bookmarks/lesson/:lessonId", cfg.BookmarkHandler.GetForLesson)
		protected.PATCH("/bookmarks/:id", cfg.BookmarkHandler.UpdateNotes)
		protected.DELETE("/bookmarks/:id", cfg.BookmarkHandler.Delete)

		protected.GET("/dashboard", cfg.DashboardHandler.Student)

		// Realtime (SSE)
		protected.GET("/events/stream", cfg.RealtimeHandler.Stream)
	}

	admin := protected.Group("/admin")
	admin.Use(am.RequireAdmin())
	{
		admin.POST("/mains", cfg.CurriculumHandler.CreateMain)
		admin.PATCH("/mains/:id", cfg.CurriculumHandler.UpdateMain)
		admin.DELETE("/mains/:id", cfg.CurriculumHandler.DeleteMain)
		admin.POST("/classes", cfg.CurriculumHandler.CreateClass)
		admin.PATCH("/classes/:id", cfg.CurriculumHandler.UpdateClass)
		admin.DELETE("/classes/:id", cfg.CurriculumHandler.DeleteClass)

		admin.GET("/lessons", cfg.LessonHandler.ListAll)
		admin.POST("/lessons", cfg.LessonHandler.Create)
		admin.PATCH("/lessons/:id", cfg.LessonHandler.Update)
		admin.DELETE("/lessons/:id", cfg.LessonHandler.Delete)

		admin.POST("/uploads", cfg.UploadHandler.UploadLessonImages)
		admin.POST("/editor/apply", cfg.EditorHandler.Apply)

		admin.GET("/users", cfg.UserHandler.ListUsers)
		admin.PATCH("/users/:id/role", cfg.UserHandler.UpdateRole)

		admin.GET("/dashboard", cfg.DashboardHandler.Admin)
	}

	r.NoRoute(func(c *gin.Context) {
		response.RespondError(c, nethttp.StatusNotFound, "not_found", nil)
	})

	return r
}
