package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/scripture-study-backend/internal/data/repos"
	types "github.com/yungbote/scripture-study-backend/internal/domain"
	"github.com/yungbote/scripture-study-backend/internal/platform/apierr"
	"github.com/yungbote/scripture-study-backend/internal/platform/dbctx"
	"github.com/yungbote/scripture-study-backend/internal/platform/logger"
	"github.com/yungbote/scripture-study-backend/internal/platform/querycache"
	"github.com/yungbote/scripture-study-backend/internal/platform/validate"
)

const (
	nsCurriculum = "curriculum"
	nsLessons    = "lessons"
)

type MainInput struct {
	Title       string `json:"title" binding:"notblank"`
	Description string `json:"description"`
	Order       int    `json:"order"`
}

type MainPatch struct {
	Title       *string `json:"title" binding:"omitnil,notblank"`
	Description *string `json:"description"`
	Order       *int    `json:"order"`
}

type ClassInput struct {
	MainID      uuid.UUID `json:"main_id" binding:"required"`
	Title       string    `json:"title" binding:"notblank"`
	Description string    `json:"description"`
	Order       int       `json:"order"`
}

type ClassPatch struct {
	MainID      *uuid.UUID `json:"main_id"`
	Title       *string    `json:"title" binding:"omitnil,notblank"`
	Description *string    `json:"description"`
	Order       *int       `json:"order"`
}

// DeleteSummary reports what a delete removed.
type DeleteSummary struct {
	Mains   int `json:"mains"`
	Classes int `json:"classes"`
	Lessons int `json:"lessons"`
}

type CurriculumService interface {
	ListMains(ctx context.Context) ([]*types.Main, error)
	GetMain(ctx context.Context, id uuid.UUID) (*types.Main, error)
	CreateMain(ctx context.Context, in MainInput) (*types.Main, error)
	UpdateMain(ctx context.Context, id uuid.UUID, patch MainPatch) (*types.Main, error)
	DeleteMain(ctx context.Context, id uuid.UUID, cascade bool) (*DeleteSummary, error)

	ListClasses(ctx context.Context, mainID uuid.UUID) ([]*types.Class, error)
	GetClass(ctx context.Context, id uuid.UUID) (*types.Class, error)
	CreateClass(ctx context.Context, in ClassInput) (*types.Class, error)
	UpdateClass(ctx context.Context, id uuid.UUID, patch ClassPatch) (*types.Class, error)
	DeleteClass(ctx context.Context, id uuid.UUID, cascade bool) (*DeleteSummary, error)
}

type curriculumService struct {
	db           *gorm.DB
	log          *logger.Logger
	userRepo     repos.UserRepo
	mainRepo     repos.MainRepo
	classRepo    repos.ClassRepo
	lessonRepo   repos.LessonRepo
	progressRepo repos.ProgressRepo
	bookmarkRepo repos.BookmarkRepo
	cache        querycache.Cache
	cacheTTL     time.Duration
	notify       Notifier
}

func NewCurriculumService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	mainRepo repos.MainRepo,
	classRepo repos.ClassRepo,
	lessonRepo repos.LessonRepo,
	progressRepo repos.ProgressRepo,
	bookmarkRepo repos.BookmarkRepo,
	cache querycache.Cache,
	cacheTTL time.Duration,
	notify Notifier,
) CurriculumService {
	return &curriculumService{
		db:           db,
		log:          log.With("service", "CurriculumService"),
		userRepo:     userRepo,
		mainRepo:     mainRepo,
		classRepo:    classRepo,
		lessonRepo:   lessonRepo,
		progressRepo: progressRepo,
		bookmarkRepo: bookmarkRepo,
		cache:        cache,
		cacheTTL:     cacheTTL,
		notify:       notify,
	}
}

func (s *curriculumService) ListMains(ctx context.Context) ([]*types.Main, error) {
	var out []*types.Main
	err := s.cache.GetOrLoad(ctx, nsCurriculum, "mains", s.cacheTTL, &out, func(ctx context.Context) (any, error) {
		return s.mainRepo.List(dbctx.Context{Ctx: ctx})
	})
	if err != nil {
		return nil, storeErr("list mains", err)
	}
	return out, nil
}

func (s *curriculumService) GetMain(ctx context.Context, id uuid.UUID) (*types.Main, error) {
	m, err := s.mainRepo.Get(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, storeErr("get main", err)
	}
	if m == nil {
		return nil, apierr.NotFound("main_not_found", "main %s", id)
	}
	return m, nil
}

func (s *curriculumService) CreateMain(ctx context.Context, in MainInput) (*types.Main, error) {
	admin, err := requireAdmin(ctx, s.userRepo)
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	m := &types.Main{
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Order:       in.Order,
		CreatedBy:   admin.ID,
	}
	if _, err := s.mainRepo.Create(dbctx.Context{Ctx: ctx}, []*types.Main{m}); err != nil {
		return nil, storeErr("create main", err)
	}
	s.changed(ctx, "main", m.ID, nsCurriculum)
	return m, nil
}

func (s *curriculumService) UpdateMain(ctx context.Context, id uuid.UUID, patch MainPatch) (*types.Main, error) {
	if _, err := requireAdmin(ctx, s.userRepo); err != nil {
		return nil, err
	}
	if err := validate.Struct(patch); err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if patch.Title != nil {
		fields["title"] = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		fields["description"] = strings.TrimSpace(*patch.Description)
	}
	if patch.Order != nil {
		fields["sort_order"] = *patch.Order
	}
	dbc := dbctx.Context{Ctx: ctx}
	if err := s.mainRepo.Update(dbc, id, fields); err != nil {
		if isMissing(err) {
			return nil, apierr.NotFound("main_not_found", "main %s", id)
		}
		return nil, storeErr("update main", err)
	}
	s.changed(ctx, "main", id, nsCurriculum)
	return s.GetMain(ctx, id)
}

// DeleteMain refuses to orphan children. With cascade it removes the main's
// lessons (and their progress and bookmarks), then its classes, then the main.
func (s *curriculumService) DeleteMain(ctx context.Context, id uuid.UUID, cascade bool) (*DeleteSummary, error) {
	if _, err := requireAdmin(ctx, s.userRepo); err != nil {
		return nil, err
	}
	summary := &DeleteSummary{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		m, err := s.mainRepo.Get(dbc, id)
		if err != nil {
			return err
		}
		if m == nil {
			return apierr.NotFound("main_not_found", "main %s", id)
		}
		lessonIDs, err := s.lessonRepo.IDsByMain(dbc, id)
		if err != nil {
			return err
		}
		classCount, err := s.classRepo.CountByMain(dbc, id)
		if err != nil {
			return err
		}
		if !cascade && (classCount > 0 || len(lessonIDs) > 0) {
			return apierr.Conflict("main_has_children", "main has %d classes and %d lessons", classCount, len(lessonIDs))
		}
		if err := purgeLessons(dbc, s.lessonRepo, s.progressRepo, s.bookmarkRepo, lessonIDs); err != nil {
			return err
		}
		if err := s.classRepo.DeleteByMainIDs(dbc, []uuid.UUID{id}); err != nil {
			return err
		}
		if err := s.mainRepo.DeleteByIDs(dbc, []uuid.UUID{id}); err != nil {
			return err
		}
		summary.Mains, summary.Classes, summary.Lessons = 1, int(classCount), len(lessonIDs)
		return nil
	})
	if err != nil {
		return nil, storeErr("delete main", err)
	}
	s.log.Info("Main deleted", "main_id", id, "classes", summary.Classes, "lessons", summary.Lessons)
	s.changed(ctx, "main", id, nsCurriculum, nsLessons)
	return summary, nil
}

func (s *curriculumService) ListClasses(ctx context.Context, mainID uuid.UUID) ([]*types.Class, error) {
	if _, err := s.GetMain(ctx, mainID); err != nil {
		return nil, err
	}
	var out []*types.Class
	err := s.cache.GetOrLoad(ctx, nsCurriculum, "classes:"+mainID.String(), s.cacheTTL, &out, func(ctx context.Context) (any, error) {
		return s.classRepo.ListByMain(dbctx.Context{Ctx: ctx}, mainID)
	})
	if err != nil {
		return nil, storeErr("list classes", err)
	}
	return out, nil
}

func (s *curriculumService) GetClass(ctx context.Context, id uuid.UUID) (*types.Class, error) {
	c, err := s.classRepo.Get(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, storeErr("get class", err)
	}
	if c == nil {
		return nil, apierr.NotFound("class_not_found", "class %s", id)
	}
	return c, nil
}

func (s *curriculumService) CreateClass(ctx context.Context, in ClassInput) (*types.Class, error) {
	admin, err := requireAdmin(ctx, s.userRepo)
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	c := &types.Class{
		MainID:      in.MainID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Order:       in.Order,
		CreatedBy:   admin.ID,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		m, err := s.mainRepo.Get(dbc, in.MainID)
		if err != nil {
			return err
		}
		if m == nil {
			return apierr.Invalid("main_not_found", "main %s does not exist", in.MainID)
		}
		_, err = s.classRepo.Create(dbc, []*types.Class{c})
		return err
	})
	if err != nil {
		return nil, storeErr("create class", err)
	}
	s.changed(ctx, "class", c.ID, nsCurriculum)
	return c, nil
}

// UpdateClass may move the class under another main; its lessons move with it.
func (s *curriculumService) UpdateClass(ctx context.Context, id uuid.UUID, patch ClassPatch) (*types.Class, error) {
	if _, err := requireAdmin(ctx, s.userRepo); err != nil {
		return nil, err
	}
	if err := validate.Struct(patch); err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if patch.Title != nil {
		fields["title"] = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		fields["description"] = strings.TrimSpace(*patch.Description)
	}
	if patch.Order != nil {
		fields["sort_order"] = *patch.Order
	}
	moved := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		c, err := s.classRepo.Get(dbc, id)
		if err != nil {
			return err
		}
		if c == nil {
			return apierr.NotFound("class_not_found", "class %s", id)
		}
		if patch.MainID != nil && *patch.MainID != c.MainID {
			m, err := s.mainRepo.Get(dbc, *patch.MainID)
			if err != nil {
				return err
			}
			if m == nil {
				return apierr.Invalid("main_not_found", "main %s does not exist", *patch.MainID)
			}
			fields["main_id"] = *patch.MainID
			lessonIDs, err := s.lessonRepo.IDsByClass(dbc, id)
			if err != nil {
				return err
			}
			for _, lid := range lessonIDs {
				if err := s.lessonRepo.Update(dbc, lid, map[string]any{"main_id": *patch.MainID}); err != nil {
					return err
				}
			}
			moved = true
		}
		return s.classRepo.Update(dbc, id, fields)
	})
	if err != nil {
		return nil, storeErr("update class", err)
	}
	if moved {
		s.changed(ctx, "class", id, nsCurriculum, nsLessons)
	} else {
		s.changed(ctx, "class", id, nsCurriculum)
	}
	return s.GetClass(ctx, id)
}

func (s *curriculumService) DeleteClass(ctx context.Context, id uuid.UUID, cascade bool) (*DeleteSummary, error) {
	if _, err := requireAdmin(ctx, s.userRepo); err != nil {
		return nil, err
	}
	summary := &DeleteSummary{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		c, err := s.classRepo.Get(dbc, id)
		if err != nil {
			return err
		}
		if c == nil {
			return apierr.NotFound("class_not_found", "class %s", id)
		}
		lessonIDs, err := s.lessonRepo.IDsByClass(dbc, id)
		if err != nil {
			return err
		}
		if !cascade && len(lessonIDs) > 0 {
			return apierr.Conflict("class_has_children", "class has %d lessons", len(lessonIDs))
		}
		if err := purgeLessons(dbc, s.lessonRepo, s.progressRepo, s.bookmarkRepo, lessonIDs); err != nil {
			return err
		}
		if err := s.classRepo.DeleteByIDs(dbc, []uuid.UUID{id}); err != nil {
			return err
		}
		summary.Classes, summary.Lessons = 1, len(lessonIDs)
		return nil
	})
	if err != nil {
		return nil, storeErr("delete class", err)
	}
	s.changed(ctx, "class", id, nsCurriculum, nsLessons)
	return summary, nil
}

func (s *curriculumService) changed(ctx context.Context, entity string, id uuid.UUID, namespaces ...string) {
	for _, ns := range namespaces {
		if err := s.cache.Invalidate(ctx, ns); err != nil {
			s.log.Warn("Cache invalidate failed", "namespace", ns, "entity", entity, "id", id, "error", err)
		}
		s.notify.ContentChanged(ctx, ns, entity, id)
	}
}

// purgeLessons removes lessons together with the progress and bookmark rows
// that reference them. dbc should carry the caller's transaction.
func purgeLessons(dbc dbctx.Context, lessons repos.LessonRepo, progress repos.ProgressRepo, bookmarks repos.BookmarkRepo, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	if err := progress.DeleteByLessonIDs(dbc, ids); err != nil {
		return err
	}
	if err := bookmarks.DeleteByLessonIDs(dbc, ids); err != nil {
		return err
	}
	return lessons.DeleteByIDs(dbc, ids)
}
