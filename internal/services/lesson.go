package services

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/scripture-study-backend/internal/data/repos"
	types "github.com/yungbote/scripture-study-backend/internal/domain"
	"github.com/yungbote/scripture-study-backend/internal/platform/apierr"
	"github.com/yungbote/scripture-study-backend/internal/platform/dbctx"
	"github.com/yungbote/scripture-study-backend/internal/platform/logger"
	"github.com/yungbote/scripture-study-backend/internal/platform/querycache"
	"github.com/yungbote/scripture-study-backend/internal/platform/validate"
	"github.com/yungbote/scripture-study-backend/internal/richtext"
)

const DefaultSearchCeiling = 2000

type LessonInput struct {
	MainID         uuid.UUID  `json:"main_id" binding:"required"`
	ClassID        *uuid.UUID `json:"class_id"`
	Title          string     `json:"title" binding:"notblank"`
	BibleReference string     `json:"bible_reference"`
	Content        string     `json:"content"`
	Images         []string   `json:"images" binding:"dive,http_url"`
	Category       string     `json:"category"`
	Difficulty     string     `json:"difficulty" binding:"omitempty,oneof=beginner intermediate advanced"`
	Status         string     `json:"status" binding:"omitempty,oneof=draft published archived"`
	Order          int        `json:"order"`
}

// LessonPatch merges the non-nil fields. ClearClass detaches the lesson from its class.
type LessonPatch struct {
	MainID         *uuid.UUID `json:"main_id"`
	ClassID        *uuid.UUID `json:"class_id"`
	ClearClass     bool       `json:"clear_class"`
	Title          *string    `json:"title" binding:"omitnil,notblank"`
	BibleReference *string    `json:"bible_reference"`
	Content        *string    `json:"content"`
	Images         *[]string  `json:"images" binding:"omitnil,dive,http_url"`
	Category       *string    `json:"category"`
	Difficulty     *string    `json:"difficulty"`
	Status         *string    `json:"status" binding:"omitnil,oneof=draft published archived"`
	Order          *int       `json:"order"`
}

type LessonQuery struct {
	Filter types.LessonFilter `json:"filter"`
	Q      string             `json:"q"`
}

// LessonPage is a list or search result. Truncated means the search only
// scanned the newest rows up to the corpus ceiling.
type LessonPage struct {
	Lessons   []*types.Lesson `json:"lessons"`
	Truncated bool            `json:"truncated"`
}

type LessonService interface {
	List(ctx context.Context, query LessonQuery) (*LessonPage, error)
	ListAll(ctx context.Context, query LessonQuery) (*LessonPage, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Lesson, error)
	// ListForMain returns a main's published lessons in reading order.
	ListForMain(ctx context.Context, mainID uuid.UUID, classID *uuid.UUID) ([]*types.Lesson, error)
	Create(ctx context.Context, in LessonInput) (*types.Lesson, error)
	Update(ctx context.Context, id uuid.UUID, patch LessonPatch) (*types.Lesson, error)
	Delete(ctx context.Context, id uuid.UUID) error
	RecordView(ctx context.Context, id uuid.UUID)
	// Wait blocks until pending view increments finish.
	Wait()
}

type lessonService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	mainRepo      repos.MainRepo
	classRepo     repos.ClassRepo
	lessonRepo    repos.LessonRepo
	progressRepo  repos.ProgressRepo
	bookmarkRepo  repos.BookmarkRepo
	cache         querycache.Cache
	cacheTTL      time.Duration
	notify        Notifier
	searchCeiling int
	views         sync.WaitGroup
}

func NewLessonService(
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
	searchCeiling int,
) LessonService {
	if searchCeiling <= 0 {
		searchCeiling = DefaultSearchCeiling
	}
	return &lessonService{
		db:            db,
		log:           log.With("service", "LessonService"),
		userRepo:      userRepo,
		mainRepo:      mainRepo,
		classRepo:     classRepo,
		lessonRepo:    lessonRepo,
		progressRepo:  progressRepo,
		bookmarkRepo:  bookmarkRepo,
		cache:         cache,
		cacheTTL:      cacheTTL,
		notify:        notify,
		searchCeiling: searchCeiling,
	}
}

// List is the reader-facing listing. Callers who are not admins only ever see
// published lessons, whatever status they ask for.
func (s *lessonService) List(ctx context.Context, query LessonQuery) (*LessonPage, error) {
	a, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if !a.isAdmin() {
		query.Filter.Status = types.LessonStatusPublished
	}
	return s.cachedSearch(ctx, a.Role, query)
}

func (s *lessonService) ListAll(ctx context.Context, query LessonQuery) (*LessonPage, error) {
	if _, err := requireAdmin(ctx, s.userRepo); err != nil {
		return nil, err
	}
	return s.cachedSearch(ctx, types.RoleAdmin, query)
}

func (s *lessonService) cachedSearch(ctx context.Context, role string, query LessonQuery) (*LessonPage, error) {
	if err := validate.Field("status", query.Filter.Status, "omitempty,oneof=draft published archived"); err != nil {
		return nil, err
	}
	query.Q = strings.TrimSpace(query.Q)
	rawKey, _ := json.Marshal(query)
	key := role + "|" + string(rawKey)

	var page LessonPage
	err := s.cache.GetOrLoad(ctx, nsLessons, key, s.cacheTTL, &page, func(ctx context.Context) (any, error) {
		return s.search(dbctx.Context{Ctx: ctx}, query)
	})
	if err != nil {
		return nil, storeErr("list lessons", err)
	}
	if page.Lessons == nil {
		page.Lessons = []*types.Lesson{}
	}
	return &page, nil
}

// search is a substring scan over the filtered set. It only suits a small
// corpus: at most searchCeiling of the newest rows are examined.
func (s *lessonService) search(dbc dbctx.Context, query LessonQuery) (*LessonPage, error) {
	if query.Q == "" {
		rows, err := s.lessonRepo.List(dbc, query.Filter, 0)
		if err != nil {
			return nil, err
		}
		return &LessonPage{Lessons: rows}, nil
	}

	rows, err := s.lessonRepo.List(dbc, query.Filter, s.searchCeiling+1)
	if err != nil {
		return nil, err
	}
	page := &LessonPage{Lessons: []*types.Lesson{}}
	if len(rows) > s.searchCeiling {
		rows = rows[:s.searchCeiling]
		page.Truncated = true
		s.log.Warn("Lesson search hit corpus ceiling", "ceiling", s.searchCeiling)
	}
	needle := strings.ToLower(query.Q)
	for _, l := range rows {
		if lessonMatches(l, needle) {
			page.Lessons = append(page.Lessons, l)
		}
	}
	return page, nil
}

func lessonMatches(l *types.Lesson, needle string) bool {
	for _, hay := range []string{l.Title, l.BibleReference, l.Category, richtext.PlainText(l.Content)} {
		if strings.Contains(strings.ToLower(hay), needle) {
			return true
		}
	}
	return false
}

func (s *lessonService) Get(ctx context.Context, id uuid.UUID) (*types.Lesson, error) {
	a, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	l, err := s.lessonRepo.Get(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, storeErr("get lesson", err)
	}
	if l == nil || (!a.isAdmin() && !l.IsPublished()) {
		return nil, apierr.NotFound("lesson_not_found", "lesson %s", id)
	}
	return l, nil
}

func (s *lessonService) ListForMain(ctx context.Context, mainID uuid.UUID, classID *uuid.UUID) ([]*types.Lesson, error) {
	if _, err := actorFrom(ctx); err != nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	m, err := s.mainRepo.Get(dbc, mainID)
	if err != nil {
		return nil, storeErr("get main", err)
	}
	if m == nil {
		return nil, apierr.NotFound("main_not_found", "main %s", mainID)
	}
	lessons, err := s.lessonRepo.ListPublished(dbc, &mainID, classID)
	if err != nil {
		return nil, storeErr("list published lessons", err)
	}
	return lessons, nil
}

func (s *lessonService) Create(ctx context.Context, in LessonInput) (*types.Lesson, error) {
	admin, err := requireAdmin(ctx, s.userRepo)
	if err != nil {
		return nil, err
	}
	if in.Status == "" {
		in.Status = types.LessonStatusDraft
	}
	l := &types.Lesson{
		MainID:         in.MainID,
		ClassID:        in.ClassID,
		Title:          strings.TrimSpace(in.Title),
		BibleReference: strings.TrimSpace(in.BibleReference),
		Content:        richtext.Sanitize(in.Content),
		Images:         datatypes.JSONSlice[string](nonNilImages(in.Images)),
		Category:       strings.TrimSpace(in.Category),
		Difficulty:     strings.TrimSpace(in.Difficulty),
		Status:         in.Status,
		Order:          in.Order,
		CreatedBy:      admin.ID,
	}
	if err := validateLesson(l); err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := s.checkPlacement(dbc, l.MainID, l.ClassID); err != nil {
			return err
		}
		_, err := s.lessonRepo.Create(dbc, []*types.Lesson{l})
		return err
	})
	if err != nil {
		return nil, storeErr("create lesson", err)
	}
	s.changed(ctx, l.ID)
	return l, nil
}

func (s *lessonService) Update(ctx context.Context, id uuid.UUID, patch LessonPatch) (*types.Lesson, error) {
	if _, err := requireAdmin(ctx, s.userRepo); err != nil {
		return nil, err
	}
	var updated *types.Lesson
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		l, err := s.lessonRepo.Get(dbc, id)
		if err != nil {
			return err
		}
		if l == nil {
			return apierr.NotFound("lesson_not_found", "lesson %s", id)
		}
		fields := applyLessonPatch(l, patch)
		if err := validateLesson(l); err != nil {
			return err
		}
		if patch.MainID != nil || patch.ClassID != nil {
			if err := s.checkPlacement(dbc, l.MainID, l.ClassID); err != nil {
				return err
			}
		}
		if err := s.lessonRepo.Update(dbc, id, fields); err != nil {
			return err
		}
		updated, err = s.lessonRepo.Get(dbc, id)
		return err
	})
	if err != nil {
		return nil, storeErr("update lesson", err)
	}
	s.changed(ctx, id)
	return updated, nil
}

// applyLessonPatch writes patch onto l and returns the column map to persist.
func applyLessonPatch(l *types.Lesson, p LessonPatch) map[string]any {
	fields := map[string]any{}
	if p.MainID != nil {
		l.MainID = *p.MainID
		fields["main_id"] = *p.MainID
	}
	switch {
	case p.ClearClass:
		l.ClassID = nil
		fields["class_id"] = nil
	case p.ClassID != nil:
		l.ClassID = p.ClassID
		fields["class_id"] = *p.ClassID
	}
	if p.Title != nil {
		l.Title = strings.TrimSpace(*p.Title)
		fields["title"] = l.Title
	}
	if p.BibleReference != nil {
		l.BibleReference = strings.TrimSpace(*p.BibleReference)
		fields["bible_reference"] = l.BibleReference
	}
	if p.Content != nil {
		l.Content = richtext.Sanitize(*p.Content)
		fields["content"] = l.Content
	}
	if p.Images != nil {
		l.Images = datatypes.JSONSlice[string](nonNilImages(*p.Images))
		fields["images"] = l.Images
	}
	if p.Category != nil {
		l.Category = strings.TrimSpace(*p.Category)
		fields["category"] = l.Category
	}
	if p.Difficulty != nil {
		l.Difficulty = strings.TrimSpace(*p.Difficulty)
		fields["difficulty"] = l.Difficulty
	}
	if p.Status != nil {
		l.Status = strings.TrimSpace(*p.Status)
		fields["status"] = l.Status
	}
	if p.Order != nil {
		l.Order = *p.Order
		fields["sort_order"] = l.Order
	}
	return fields
}

// validateLesson checks the merged row, so a patch cannot leave it invalid.
func validateLesson(l *types.Lesson) error {
	return validate.Struct(l)
}

// checkPlacement verifies the main exists and, when set, that the class belongs to it.
func (s *lessonService) checkPlacement(dbc dbctx.Context, mainID uuid.UUID, classID *uuid.UUID) error {
	m, err := s.mainRepo.Get(dbc, mainID)
	if err != nil {
		return err
	}
	if m == nil {
		return apierr.Invalid("main_not_found", "main %s does not exist", mainID)
	}
	if classID == nil {
		return nil
	}
	c, err := s.classRepo.Get(dbc, *classID)
	if err != nil {
		return err
	}
	if c == nil {
		return apierr.Invalid("class_not_found", "class %s does not exist", *classID)
	}
	if c.MainID != mainID {
		return apierr.Invalid("class_main_mismatch", "class %s belongs to a different main", *classID)
	}
	return nil
}

func (s *lessonService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := requireAdmin(ctx, s.userRepo); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		l, err := s.lessonRepo.Get(dbc, id)
		if err != nil {
			return err
		}
		if l == nil {
			return apierr.NotFound("lesson_not_found", "lesson %s", id)
		}
		return purgeLessons(dbc, s.lessonRepo, s.progressRepo, s.bookmarkRepo, []uuid.UUID{id})
	})
	if err != nil {
		return storeErr("delete lesson", err)
	}
	s.changed(ctx, id)
	return nil
}

// RecordView bumps the counter in the background. Failures are logged only;
// a reader never sees them.
func (s *lessonService) RecordView(ctx context.Context, id uuid.UUID) {
	s.views.Add(1)
	go func() {
		defer s.views.Done()
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.lessonRepo.IncrementViews(dbctx.Context{Ctx: bg}, id); err != nil {
			s.log.Warn("View increment failed", "lesson_id", id, "error", err)
		}
	}()
}

func (s *lessonService) Wait() { s.views.Wait() }

func (s *lessonService) changed(ctx context.Context, id uuid.UUID) {
	if err := s.cache.Invalidate(ctx, nsLessons); err != nil {
		s.log.Warn("Cache invalidate failed", "namespace", nsLessons, "lesson_id", id, "error", err)
	}
	s.notify.ContentChanged(ctx, nsLessons, "lesson", id)
}

func nonNilImages(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
