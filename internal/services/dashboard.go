package services

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/scripture-study-backend/internal/data/repos"
	types "github.com/yungbote/scripture-study-backend/internal/domain"
	"github.com/yungbote/scripture-study-backend/internal/platform/dbctx"
	"github.com/yungbote/scripture-study-backend/internal/platform/logger"
)

const (
	studentRecentLessons = 6
	adminRecentLessons   = 5
)

type StudentDashboard struct {
	LessonsStarted   int             `json:"lessons_started"`
	LessonsCompleted int             `json:"lessons_completed"`
	StudyMinutes     int64           `json:"study_minutes"`
	BookmarksCount   int64           `json:"bookmarks_count"`
	RecentLessons    []*types.Lesson `json:"recent_lessons"`
}

type AdminDashboard struct {
	TotalLessons     int64           `json:"total_lessons"`
	PublishedLessons int64           `json:"published_lessons"`
	TotalUsers       int64           `json:"total_users"`
	TotalMains       int64           `json:"total_mains"`
	RecentLessons    []*types.Lesson `json:"recent_lessons"`
}

type DashboardService interface {
	Student(ctx context.Context) (*StudentDashboard, error)
	Admin(ctx context.Context) (*AdminDashboard, error)
}

type dashboardService struct {
	log          *logger.Logger
	userRepo     repos.UserRepo
	mainRepo     repos.MainRepo
	lessonRepo   repos.LessonRepo
	progressRepo repos.ProgressRepo
	bookmarkRepo repos.BookmarkRepo
}

func NewDashboardService(
	log *logger.Logger,
	userRepo repos.UserRepo,
	mainRepo repos.MainRepo,
	lessonRepo repos.LessonRepo,
	progressRepo repos.ProgressRepo,
	bookmarkRepo repos.BookmarkRepo,
) DashboardService {
	return &dashboardService{
		log:          log.With("service", "DashboardService"),
		userRepo:     userRepo,
		mainRepo:     mainRepo,
		lessonRepo:   lessonRepo,
		progressRepo: progressRepo,
		bookmarkRepo: bookmarkRepo,
	}
}

func (s *dashboardService) Student(ctx context.Context) (*StudentDashboard, error) {
	a, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	out := &StudentDashboard{}
	var progress []*types.UserProgress

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		progress, err = s.progressRepo.ListByUser(dbctx.Context{Ctx: gctx}, a.ID)
		return err
	})
	g.Go(func() error {
		var err error
		out.BookmarksCount, err = s.bookmarkRepo.CountByUser(dbctx.Context{Ctx: gctx}, a.ID)
		return err
	})
	g.Go(func() error {
		var err error
		out.RecentLessons, err = s.lessonRepo.ListRecent(dbctx.Context{Ctx: gctx}, types.LessonStatusPublished, true, studentRecentLessons)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, storeErr("student dashboard", err)
	}

	for _, p := range progress {
		if p.ProgressPercentage > 0 {
			out.LessonsStarted++
		}
		if p.Completed {
			out.LessonsCompleted++
		}
	}
	out.StudyMinutes = summarizeProgress(progress).TotalStudyMinutes
	return out, nil
}

func (s *dashboardService) Admin(ctx context.Context) (*AdminDashboard, error) {
	if _, err := requireAdmin(ctx, s.userRepo); err != nil {
		return nil, err
	}
	out := &AdminDashboard{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out.TotalLessons, err = s.lessonRepo.Count(dbctx.Context{Ctx: gctx}, types.LessonFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		out.PublishedLessons, err = s.lessonRepo.Count(dbctx.Context{Ctx: gctx}, types.LessonFilter{Status: types.LessonStatusPublished})
		return err
	})
	g.Go(func() error {
		var err error
		out.TotalUsers, err = s.userRepo.Count(dbctx.Context{Ctx: gctx})
		return err
	})
	g.Go(func() error {
		var err error
		out.TotalMains, err = s.mainRepo.Count(dbctx.Context{Ctx: gctx})
		return err
	})
	g.Go(func() error {
		var err error
		out.RecentLessons, err = s.lessonRepo.ListRecent(dbctx.Context{Ctx: gctx}, "", false, adminRecentLessons)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, storeErr("admin dashboard", err)
	}
	return out, nil
}
