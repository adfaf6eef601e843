package services

import (
	"context"
	"math"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/scripture-study-backend/internal/data/repos"
	types "github.com/yungbote/scripture-study-backend/internal/domain"
	"github.com/yungbote/scripture-study-backend/internal/platform/apierr"
	"github.com/yungbote/scripture-study-backend/internal/platform/dbctx"
	"github.com/yungbote/scripture-study-backend/internal/platform/logger"
	"github.com/yungbote/scripture-study-backend/internal/platform/validate"
)

const (
	ProgressStatusAll        = "all"
	ProgressStatusCompleted  = "completed"
	ProgressStatusInProgress = "in-progress"
)

type ProgressFilter struct {
	Status string
	MainID *uuid.UUID
	Q      string
}

type ProgressEntry struct {
	Progress *types.UserProgress `json:"progress"`
	LessonContext
}

type ProgressStats struct {
	TotalLessons      int   `json:"total_lessons"`
	CompletedLessons  int   `json:"completed_lessons"`
	TotalStudyMinutes int64 `json:"total_study_minutes"`
	AverageProgress   int   `json:"average_progress"`
}

type ProgressService interface {
	Get(ctx context.Context, lessonID uuid.UUID) (*types.UserProgress, error)
	Save(ctx context.Context, lessonID uuid.UUID, patch types.ProgressPatch) (*types.UserProgress, error)
	ListForUser(ctx context.Context, filter ProgressFilter) ([]*ProgressEntry, error)
	Stats(ctx context.Context) (*ProgressStats, error)
}

type progressService struct {
	db           *gorm.DB
	log          *logger.Logger
	progressRepo repos.ProgressRepo
	lessonRepo   repos.LessonRepo
	resolver     lessonResolver
	notify       Notifier
}

func NewProgressService(
	db *gorm.DB,
	log *logger.Logger,
	progressRepo repos.ProgressRepo,
	lessonRepo repos.LessonRepo,
	mainRepo repos.MainRepo,
	classRepo repos.ClassRepo,
	notify Notifier,
) ProgressService {
	return &progressService{
		db:           db,
		log:          log.With("service", "ProgressService"),
		progressRepo: progressRepo,
		lessonRepo:   lessonRepo,
		resolver:     lessonResolver{lessons: lessonRepo, mains: mainRepo, classes: classRepo},
		notify:       notify,
	}
}

// Get returns the caller's progress on a lesson, or nil when there is none yet.
func (s *progressService) Get(ctx context.Context, lessonID uuid.UUID) (*types.UserProgress, error) {
	a, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.progressRepo.Get(dbctx.Context{Ctx: ctx}, a.ID, lessonID)
	if err != nil {
		return nil, storeErr("get progress", err)
	}
	return p, nil
}

// Save creates or merges the caller's progress row for the lesson.
func (s *progressService) Save(ctx context.Context, lessonID uuid.UUID, patch types.ProgressPatch) (*types.UserProgress, error) {
	a, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(patch); err != nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	l, err := s.lessonRepo.Get(dbc, lessonID)
	if err != nil {
		return nil, storeErr("save progress", err)
	}
	if l == nil || (!a.isAdmin() && !l.IsPublished()) {
		return nil, apierr.NotFound("lesson_not_found", "lesson %s", lessonID)
	}
	p, err := s.progressRepo.Upsert(dbc, a.ID, lessonID, patch)
	if err != nil {
		return nil, storeErr("save progress", err)
	}
	s.notify.ProgressChanged(ctx, a.ID, lessonID)
	return p, nil
}

func (s *progressService) ListForUser(ctx context.Context, filter ProgressFilter) ([]*ProgressEntry, error) {
	a, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	status := strings.TrimSpace(filter.Status)
	if err := validate.Field("status", status, "omitempty,oneof=all completed in-progress"); err != nil {
		return nil, err
	}

	rows, err := s.progressRepo.ListByUser(dbctx.Context{Ctx: ctx}, a.ID)
	if err != nil {
		return nil, storeErr("list progress", err)
	}
	ids := make([]uuid.UUID, len(rows))
	for i, p := range rows {
		ids[i] = p.LessonID
	}
	resolved, err := s.resolver.resolve(ctx, ids, a.isAdmin())
	if err != nil {
		return nil, storeErr("list progress", err)
	}

	q := strings.ToLower(strings.TrimSpace(filter.Q))
	out := make([]*ProgressEntry, 0, len(rows))
	for i, p := range rows {
		lc := resolved[i]
		if lc == nil {
			continue
		}
		switch status {
		case ProgressStatusCompleted:
			if !p.Completed {
				continue
			}
		case ProgressStatusInProgress:
			if p.Completed {
				continue
			}
		}
		if filter.MainID != nil && lc.Lesson.MainID != *filter.MainID {
			continue
		}
		if q != "" && !progressMatches(lc, q) {
			continue
		}
		out = append(out, &ProgressEntry{Progress: p, LessonContext: *lc})
	}
	return out, nil
}

func progressMatches(lc *LessonContext, q string) bool {
	fields := []string{lc.Lesson.Title, lc.Lesson.BibleReference}
	if lc.Main != nil {
		fields = append(fields, lc.Main.Title)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

func (s *progressService) Stats(ctx context.Context) (*ProgressStats, error) {
	a, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.progressRepo.ListByUser(dbctx.Context{Ctx: ctx}, a.ID)
	if err != nil {
		return nil, storeErr("progress stats", err)
	}
	return summarizeProgress(rows), nil
}

func summarizeProgress(rows []*types.UserProgress) *ProgressStats {
	st := &ProgressStats{TotalLessons: len(rows)}
	if len(rows) == 0 {
		return st
	}
	var seconds int64
	pctSum := 0
	for _, p := range rows {
		if p.Completed {
			st.CompletedLessons++
		}
		seconds += p.TimeSpent
		pctSum += p.ProgressPercentage
	}
	st.TotalStudyMinutes = int64(math.Round(float64(seconds) / 60))
	st.AverageProgress = int(math.Round(float64(pctSum) / float64(len(rows))))
	return st
}
