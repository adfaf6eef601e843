package services

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/scripture-study-backend/internal/data/db"
	"github.com/yungbote/scripture-study-backend/internal/data/repos"
	types "github.com/yungbote/scripture-study-backend/internal/domain"
	"github.com/yungbote/scripture-study-backend/internal/platform/apierr"
	"github.com/yungbote/scripture-study-backend/internal/platform/dbctx"
	"github.com/yungbote/scripture-study-backend/internal/platform/logger"
	"github.com/yungbote/scripture-study-backend/internal/platform/validate"
)

const maxBookmarkNotes = 10000

type BookmarkEntry struct {
	Bookmark *types.Bookmark `json:"bookmark"`
	LessonContext
}

type BookmarkService interface {
	ListForUser(ctx context.Context) ([]*BookmarkEntry, error)
	Create(ctx context.Context, lessonID uuid.UUID, notes string) (*types.Bookmark, error)
	GetForLesson(ctx context.Context, lessonID uuid.UUID) (*types.Bookmark, error)
	UpdateNotes(ctx context.Context, id uuid.UUID, notes string) (*types.Bookmark, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type bookmarkService struct {
	db           *gorm.DB
	log          *logger.Logger
	bookmarkRepo repos.BookmarkRepo
	lessonRepo   repos.LessonRepo
	resolver     lessonResolver
	notify       Notifier
}

func NewBookmarkService(
	db *gorm.DB,
	log *logger.Logger,
	bookmarkRepo repos.BookmarkRepo,
	lessonRepo repos.LessonRepo,
	mainRepo repos.MainRepo,
	classRepo repos.ClassRepo,
	notify Notifier,
) BookmarkService {
	return &bookmarkService{
		db:           db,
		log:          log.With("service", "BookmarkService"),
		bookmarkRepo: bookmarkRepo,
		lessonRepo:   lessonRepo,
		resolver:     lessonResolver{lessons: lessonRepo, mains: mainRepo, classes: classRepo},
		notify:       notify,
	}
}

func (s *bookmarkService) ListForUser(ctx context.Context) ([]*BookmarkEntry, error) {
	a, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.bookmarkRepo.ListByUser(dbctx.Context{Ctx: ctx}, a.ID)
	if err != nil {
		return nil, storeErr("list bookmarks", err)
	}
	ids := make([]uuid.UUID, len(rows))
	for i, b := range rows {
		ids[i] = b.LessonID
	}
	resolved, err := s.resolver.resolve(ctx, ids, a.isAdmin())
	if err != nil {
		return nil, storeErr("list bookmarks", err)
	}
	out := make([]*BookmarkEntry, 0, len(rows))
	for i, b := range rows {
		if resolved[i] == nil {
			continue
		}
		out = append(out, &BookmarkEntry{Bookmark: b, LessonContext: *resolved[i]})
	}
	return out, nil
}

func (s *bookmarkService) Create(ctx context.Context, lessonID uuid.UUID, notes string) (*types.Bookmark, error) {
	a, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	notes, err = cleanNotes(notes)
	if err != nil {
		return nil, err
	}
	b := &types.Bookmark{UserID: a.ID, LessonID: lessonID, Notes: notes}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		l, err := s.lessonRepo.Get(dbc, lessonID)
		if err != nil {
			return err
		}
		if l == nil || (!a.isAdmin() && !l.IsPublished()) {
			return apierr.NotFound("lesson_not_found", "lesson %s", lessonID)
		}
		existing, err := s.bookmarkRepo.GetByUserAndLesson(dbc, a.ID, lessonID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apierr.Conflict("bookmark_exists", "lesson is already bookmarked")
		}
		_, err = s.bookmarkRepo.Create(dbc, []*types.Bookmark{b})
		return err
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apierr.Conflict("bookmark_exists", "lesson is already bookmarked")
		}
		return nil, storeErr("create bookmark", err)
	}
	s.notify.BookmarksChanged(ctx, a.ID, lessonID)
	return b, nil
}

// GetForLesson returns the caller's bookmark on the lesson, or nil.
func (s *bookmarkService) GetForLesson(ctx context.Context, lessonID uuid.UUID) (*types.Bookmark, error) {
	a, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	b, err := s.bookmarkRepo.GetByUserAndLesson(dbctx.Context{Ctx: ctx}, a.ID, lessonID)
	if err != nil {
		return nil, storeErr("get bookmark", err)
	}
	return b, nil
}

func (s *bookmarkService) UpdateNotes(ctx context.Context, id uuid.UUID, notes string) (*types.Bookmark, error) {
	a, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	notes, err = cleanNotes(notes)
	if err != nil {
		return nil, err
	}
	var b *types.Bookmark
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		b, err = s.owned(dbc, a, id)
		if err != nil {
			return err
		}
		if err := s.bookmarkRepo.UpdateNotes(dbc, id, notes); err != nil {
			return err
		}
		b.Notes = notes
		return nil
	})
	if err != nil {
		return nil, storeErr("update bookmark", err)
	}
	s.notify.BookmarksChanged(ctx, a.ID, b.LessonID)
	return b, nil
}

func (s *bookmarkService) Delete(ctx context.Context, id uuid.UUID) error {
	a, err := actorFrom(ctx)
	if err != nil {
		return err
	}
	var b *types.Bookmark
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		b, err = s.owned(dbc, a, id)
		if err != nil {
			return err
		}
		return s.bookmarkRepo.DeleteByIDs(dbc, []uuid.UUID{id})
	})
	if err != nil {
		return storeErr("delete bookmark", err)
	}
	s.notify.BookmarksChanged(ctx, a.ID, b.LessonID)
	return nil
}

func (s *bookmarkService) owned(dbc dbctx.Context, a actor, id uuid.UUID) (*types.Bookmark, error) {
	b, err := s.bookmarkRepo.Get(dbc, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, apierr.NotFound("bookmark_not_found", "bookmark %s", id)
	}
	if b.UserID != a.ID {
		return nil, apierr.Forbidden("not_owner", "bookmark belongs to another user")
	}
	return b, nil
}

func cleanNotes(notes string) (string, error) {
	notes = strings.TrimSpace(notes)
	if err := validate.Field("notes", notes, "max="+strconv.Itoa(maxBookmarkNotes)); err != nil {
		return "", err
	}
	return notes, nil
}
