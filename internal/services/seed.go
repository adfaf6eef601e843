package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/scripture-study-backend/internal/data/repos"
	types "github.com/yungbote/scripture-study-backend/internal/domain"
	"github.com/yungbote/scripture-study-backend/internal/domain/curriculum"
	"github.com/yungbote/scripture-study-backend/internal/platform/dbctx"
	"github.com/yungbote/scripture-study-backend/internal/platform/logger"
	"github.com/yungbote/scripture-study-backend/internal/platform/querycache"
	"github.com/yungbote/scripture-study-backend/internal/richtext"
)

// SeedFile is the YAML layout of a curriculum import.
type SeedFile struct {
	AdminEmail string     `yaml:"admin_email"`
	Mains      []SeedMain `yaml:"mains"`
}

type SeedMain struct {
	Title       string       `yaml:"title"`
	Description string       `yaml:"description"`
	Order       int          `yaml:"order"`
	Classes     []SeedClass  `yaml:"classes"`
	Lessons     []SeedLesson `yaml:"lessons"`
}

type SeedClass struct {
	Title       string       `yaml:"title"`
	Description string       `yaml:"description"`
	Order       int          `yaml:"order"`
	Lessons     []SeedLesson `yaml:"lessons"`
}

type SeedLesson struct {
	Title          string   `yaml:"title"`
	BibleReference string   `yaml:"bible_reference"`
	Content        string   `yaml:"content"`
	Images         []string `yaml:"images"`
	Category       string   `yaml:"category"`
	Difficulty     string   `yaml:"difficulty"`
	Status         string   `yaml:"status"`
	Order          int      `yaml:"order"`
}

type SeedReport struct {
	MainsCreated   int `json:"mains_created"`
	ClassesCreated int `json:"classes_created"`
	LessonsCreated int `json:"lessons_created"`
	Skipped        int `json:"skipped"`
}

type SeedService interface {
	Import(ctx context.Context, r io.Reader) (*SeedReport, error)
}

type seedService struct {
	db         *gorm.DB
	log        *logger.Logger
	userRepo   repos.UserRepo
	mainRepo   repos.MainRepo
	classRepo  repos.ClassRepo
	lessonRepo repos.LessonRepo
	cache      querycache.Cache
}

func NewSeedService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	mainRepo repos.MainRepo,
	classRepo repos.ClassRepo,
	lessonRepo repos.LessonRepo,
	cache querycache.Cache,
) SeedService {
	return &seedService{
		db:         db,
		log:        log.With("service", "SeedService"),
		userRepo:   userRepo,
		mainRepo:   mainRepo,
		classRepo:  classRepo,
		lessonRepo: lessonRepo,
		cache:      cache,
	}
}

// Import creates whatever part of the file is not already present. Entries
// are matched by title within their parent, so re-running a file is a no-op.
func (s *seedService) Import(ctx context.Context, r io.Reader) (*SeedReport, error) {
	var file SeedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}

	report := &SeedReport{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		owner, err := s.owner(dbc, file.AdminEmail)
		if err != nil {
			return err
		}
		for _, sm := range file.Mains {
			m, err := s.ensureMain(dbc, owner, sm, report)
			if err != nil {
				return err
			}
			for _, sl := range sm.Lessons {
				if err := s.ensureLesson(dbc, owner, m.ID, nil, sl, report); err != nil {
					return err
				}
			}
			for _, sc := range sm.Classes {
				c, err := s.ensureClass(dbc, owner, m.ID, sc, report)
				if err != nil {
					return err
				}
				for _, sl := range sc.Lessons {
					if err := s.ensureLesson(dbc, owner, m.ID, &c.ID, sl, report); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		for _, ns := range []string{nsCurriculum, nsLessons} {
			if err := s.cache.Invalidate(ctx, ns); err != nil {
				s.log.Warn("Cache invalidate failed", "namespace", ns, "error", err)
			}
		}
	}
	s.log.Info("Seed import finished",
		"mains", report.MainsCreated,
		"classes", report.ClassesCreated,
		"lessons", report.LessonsCreated,
		"skipped", report.Skipped,
	)
	return report, nil
}

func (s *seedService) owner(dbc dbctx.Context, email string) (uuid.UUID, error) {
	if email = normalizeEmail(email); email != "" {
		users, err := s.userRepo.GetByEmails(dbc, []string{email})
		if err != nil {
			return uuid.Nil, err
		}
		if len(users) == 0 || !users[0].IsAdmin() {
			return uuid.Nil, fmt.Errorf("seed owner %s is not an admin", email)
		}
		return users[0].ID, nil
	}
	users, err := s.userRepo.List(dbc)
	if err != nil {
		return uuid.Nil, err
	}
	for _, u := range users {
		if u.IsAdmin() {
			return u.ID, nil
		}
	}
	return uuid.Nil, fmt.Errorf("no admin user exists; register one before seeding")
}

func (s *seedService) ensureMain(dbc dbctx.Context, owner uuid.UUID, sm SeedMain, report *SeedReport) (*types.Main, error) {
	title := strings.TrimSpace(sm.Title)
	if title == "" {
		return nil, fmt.Errorf("seed: main without title")
	}
	existing, err := s.mainRepo.GetByTitle(dbc, title)
	if err != nil || existing != nil {
		if existing != nil {
			report.Skipped++
		}
		return existing, err
	}
	m := &types.Main{Title: title, Description: strings.TrimSpace(sm.Description), Order: sm.Order, CreatedBy: owner}
	if _, err := s.mainRepo.Create(dbc, []*types.Main{m}); err != nil {
		return nil, err
	}
	report.MainsCreated++
	return m, nil
}

func (s *seedService) ensureClass(dbc dbctx.Context, owner, mainID uuid.UUID, sc SeedClass, report *SeedReport) (*types.Class, error) {
	title := strings.TrimSpace(sc.Title)
	if title == "" {
		return nil, fmt.Errorf("seed: class without title")
	}
	existing, err := s.classRepo.GetByTitle(dbc, mainID, title)
	if err != nil || existing != nil {
		if existing != nil {
			report.Skipped++
		}
		return existing, err
	}
	c := &types.Class{MainID: mainID, Title: title, Description: strings.TrimSpace(sc.Description), Order: sc.Order, CreatedBy: owner}
	if _, err := s.classRepo.Create(dbc, []*types.Class{c}); err != nil {
		return nil, err
	}
	report.ClassesCreated++
	return c, nil
}

func (s *seedService) ensureLesson(dbc dbctx.Context, owner, mainID uuid.UUID, classID *uuid.UUID, sl SeedLesson, report *SeedReport) error {
	title := strings.TrimSpace(sl.Title)
	existing, err := s.lessonRepo.GetByTitle(dbc, mainID, classID, title)
	if err != nil {
		return err
	}
	if existing != nil {
		report.Skipped++
		return nil
	}
	status := sl.Status
	if status == "" {
		status = curriculum.StatusPublished
	}
	l := &types.Lesson{
		MainID:         mainID,
		ClassID:        classID,
		Title:          title,
		BibleReference: strings.TrimSpace(sl.BibleReference),
		Content:        richtext.Sanitize(sl.Content),
		Images:         datatypes.JSONSlice[string](nonNilImages(sl.Images)),
		Category:       strings.TrimSpace(sl.Category),
		Difficulty:     strings.TrimSpace(sl.Difficulty),
		Status:         status,
		Order:          sl.Order,
		CreatedBy:      owner,
	}
	if err := validateLesson(l); err != nil {
		return fmt.Errorf("seed lesson %q: %w", title, err)
	}
	if _, err := s.lessonRepo.Create(dbc, []*types.Lesson{l}); err != nil {
		return err
	}
	report.LessonsCreated++
	return nil
}
