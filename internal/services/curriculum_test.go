package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/scripture-study-backend/internal/data/repos/testutil"
	types "github.com/yungbote/scripture-study-backend/internal/domain"
	"github.com/yungbote/scripture-study-backend/internal/platform/querycache"
	"github.com/yungbote/scripture-study-backend/internal/realtime"
)

func TestCreateMainAndClass(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	svc := env.curriculumService()
	admin := testutil.SeedUser(t, env.db, "admin@example.com", types.RoleAdmin)
	reader := testutil.SeedUser(t, env.db, "reader@example.com", types.RoleUser)

	m, err := svc.CreateMain(as(admin), MainInput{Title: "  Old Testament ", Order: 1})
	if err != nil {
		t.Fatalf("CreateMain: %v", err)
	}
	if m.Title != "Old Testament" || m.CreatedBy != admin.ID {
		t.Fatalf("main = %+v", m)
	}

	_, err = svc.CreateMain(as(reader), MainInput{Title: "Sneaky"})
	wantAPIError(t, err, http.StatusForbidden, "forbidden")

	_, err = svc.CreateMain(as(admin), MainInput{Title: "   "})
	wantAPIError(t, err, http.StatusBadRequest, "title_required")

	c, err := svc.CreateClass(as(admin), ClassInput{MainID: m.ID, Title: "Pentateuch"})
	if err != nil {
		t.Fatalf("CreateClass: %v", err)
	}
	if c.MainID != m.ID {
		t.Fatalf("class main = %s", c.MainID)
	}

	_, err = svc.CreateClass(as(admin), ClassInput{MainID: uuid.New(), Title: "Orphan"})
	wantAPIError(t, err, http.StatusBadRequest, "main_not_found")

	_, err = svc.CreateClass(as(admin), ClassInput{Title: "No parent"})
	wantAPIError(t, err, http.StatusBadRequest, "main_required")

	if env.events.count(realtime.ChannelContent, realtime.SSEEventContentInvalidated) < 2 {
		t.Fatalf("expected content invalidation events")
	}
}

func TestListMainsIsCachedUntilWrite(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	svc := env.curriculumService()
	admin := testutil.SeedUser(t, env.db, "admin@example.com", types.RoleAdmin)
	testutil.SeedMain(t, env.db, "Gospels", 1, admin.ID)

	first, err := svc.ListMains(context.Background())
	if err != nil || len(first) != 1 {
		t.Fatalf("ListMains = %d, %v", len(first), err)
	}

	// Written behind the service's back, so the cached list is still served.
	testutil.SeedMain(t, env.db, "Epistles", 2, admin.ID)
	cached, _ := svc.ListMains(context.Background())
	if len(cached) != 1 {
		t.Fatalf("expected cached list of 1, got %d", len(cached))
	}

	if _, err := svc.CreateMain(as(admin), MainInput{Title: "Prophets", Order: 3}); err != nil {
		t.Fatalf("CreateMain: %v", err)
	}
	fresh, _ := svc.ListMains(context.Background())
	if len(fresh) != 3 {
		t.Fatalf("expected 3 mains after invalidation, got %d", len(fresh))
	}
	if fresh[0].Title != "Gospels" || fresh[2].Title != "Prophets" {
		t.Fatalf("mains not ordered: %s, %s", fresh[0].Title, fresh[2].Title)
	}
}

func TestUpdateMain(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	svc := env.curriculumService()
	admin := testutil.SeedUser(t, env.db, "admin@example.com", types.RoleAdmin)
	m := testutil.SeedMain(t, env.db, "Gospels", 1, admin.ID)

	got, err := svc.UpdateMain(as(admin), m.ID, MainPatch{Description: ptr("Four accounts"), Order: ptr(5)})
	if err != nil {
		t.Fatalf("UpdateMain: %v", err)
	}
	if got.Title != "Gospels" || got.Description != "Four accounts" || got.Order != 5 {
		t.Fatalf("main = %+v", got)
	}

	_, err = svc.UpdateMain(as(admin), uuid.New(), MainPatch{Title: ptr("Ghost")})
	wantAPIError(t, err, http.StatusNotFound, "main_not_found")

	_, err = svc.UpdateMain(as(admin), m.ID, MainPatch{Title: ptr("")})
	wantAPIError(t, err, http.StatusBadRequest, "title_required")
}

func TestDeleteMainRefusesChildrenUnlessCascade(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	svc := env.curriculumService()
	admin := testutil.SeedUser(t, env.db, "admin@example.com", types.RoleAdmin)
	reader := testutil.SeedUser(t, env.db, "reader@example.com", types.RoleUser)
	m := testutil.SeedMain(t, env.db, "Gospels", 1, admin.ID)
	c := testutil.SeedClass(t, env.db, m.ID, "Synoptics", 1, admin.ID)
	inClass := testutil.SeedLesson(t, env.db, m.ID, "Sermon on the Mount", admin.ID, testutil.WithClass(c.ID))
	direct := testutil.SeedLesson(t, env.db, m.ID, "Prologue", admin.ID)
	other := testutil.SeedMain(t, env.db, "Epistles", 2, admin.ID)
	kept := testutil.SeedLesson(t, env.db, other.ID, "Romans 8", admin.ID)

	done := true
	for _, l := range []*types.Lesson{inClass, direct, kept} {
		if _, err := env.progress.Upsert(env.dbc(), reader.ID, l.ID, types.ProgressPatch{Completed: &done}); err != nil {
			t.Fatalf("seed progress: %v", err)
		}
		if _, err := env.bookmarks.Create(env.dbc(), []*types.Bookmark{{UserID: reader.ID, LessonID: l.ID}}); err != nil {
			t.Fatalf("seed bookmark: %v", err)
		}
	}

	_, err := svc.DeleteMain(as(reader), m.ID, true)
	wantAPIError(t, err, http.StatusForbidden, "forbidden")

	_, err = svc.DeleteMain(as(admin), m.ID, false)
	wantAPIError(t, err, http.StatusConflict, "main_has_children")

	summary, err := svc.DeleteMain(as(admin), m.ID, true)
	if err != nil {
		t.Fatalf("DeleteMain(cascade): %v", err)
	}
	if summary.Mains != 1 || summary.Classes != 1 || summary.Lessons != 2 {
		t.Fatalf("summary = %+v", summary)
	}

	if got, _ := env.mains.Get(env.dbc(), m.ID); got != nil {
		t.Fatalf("main still present")
	}
	if got, _ := env.classes.Get(env.dbc(), c.ID); got != nil {
		t.Fatalf("class still present")
	}
	rows, _ := env.progress.ListByUser(env.dbc(), reader.ID)
	if len(rows) != 1 || rows[0].LessonID != kept.ID {
		t.Fatalf("progress not purged: %d rows", len(rows))
	}
	marks, _ := env.bookmarks.ListByUser(env.dbc(), reader.ID)
	if len(marks) != 1 || marks[0].LessonID != kept.ID {
		t.Fatalf("bookmarks not purged: %d rows", len(marks))
	}

	_, err = svc.DeleteMain(as(admin), m.ID, true)
	wantAPIError(t, err, http.StatusNotFound, "main_not_found")
}

func TestDeleteEmptyMain(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	svc := env.curriculumService()
	admin := testutil.SeedUser(t, env.db, "admin@example.com", types.RoleAdmin)
	m := testutil.SeedMain(t, env.db, "Empty", 1, admin.ID)

	summary, err := svc.DeleteMain(as(admin), m.ID, false)
	if err != nil {
		t.Fatalf("DeleteMain: %v", err)
	}
	if summary.Mains != 1 || summary.Classes != 0 || summary.Lessons != 0 {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestDeleteClass(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	svc := env.curriculumService()
	admin := testutil.SeedUser(t, env.db, "admin@example.com", types.RoleAdmin)
	m := testutil.SeedMain(t, env.db, "Gospels", 1, admin.ID)
	c := testutil.SeedClass(t, env.db, m.ID, "Synoptics", 1, admin.ID)
	inClass := testutil.SeedLesson(t, env.db, m.ID, "Beatitudes", admin.ID, testutil.WithClass(c.ID))
	direct := testutil.SeedLesson(t, env.db, m.ID, "Prologue", admin.ID)

	_, err := svc.DeleteClass(as(admin), c.ID, false)
	wantAPIError(t, err, http.StatusConflict, "class_has_children")

	summary, err := svc.DeleteClass(as(admin), c.ID, true)
	if err != nil {
		t.Fatalf("DeleteClass: %v", err)
	}
	if summary.Classes != 1 || summary.Lessons != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if got, _ := env.lessons.Get(env.dbc(), inClass.ID); got != nil {
		t.Fatalf("lesson in deleted class survived")
	}
	if got, _ := env.lessons.Get(env.dbc(), direct.ID); got == nil {
		t.Fatalf("lesson directly under main was removed")
	}
	if got, _ := env.mains.Get(env.dbc(), m.ID); got == nil {
		t.Fatalf("parent main was removed")
	}

	_, err = svc.DeleteClass(as(admin), uuid.New(), true)
	wantAPIError(t, err, http.StatusNotFound, "class_not_found")
}

func TestMovingClassMovesLessons(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	svc := env.curriculumService()
	admin := testutil.SeedUser(t, env.db, "admin@example.com", types.RoleAdmin)
	from := testutil.SeedMain(t, env.db, "From", 1, admin.ID)
	to := testutil.SeedMain(t, env.db, "To", 2, admin.ID)
	c := testutil.SeedClass(t, env.db, from.ID, "Wanderer", 1, admin.ID)
	l := testutil.SeedLesson(t, env.db, from.ID, "Exodus 14", admin.ID, testutil.WithClass(c.ID))

	moved, err := svc.UpdateClass(as(admin), c.ID, ClassPatch{MainID: &to.ID, Title: ptr("Wanderer II")})
	if err != nil {
		t.Fatalf("UpdateClass: %v", err)
	}
	if moved.MainID != to.ID || moved.Title != "Wanderer II" {
		t.Fatalf("class = %+v", moved)
	}
	got, _ := env.lessons.Get(env.dbc(), l.ID)
	if got == nil || got.MainID != to.ID {
		t.Fatalf("lesson did not follow its class")
	}

	_, err = svc.UpdateClass(as(admin), c.ID, ClassPatch{MainID: ptr(uuid.New())})
	wantAPIError(t, err, http.StatusBadRequest, "main_not_found")

	_, err = svc.ListClasses(context.Background(), uuid.New())
	wantAPIError(t, err, http.StatusNotFound, "main_not_found")

	classes, err := svc.ListClasses(context.Background(), to.ID)
	if err != nil || len(classes) != 1 {
		t.Fatalf("ListClasses = %d, %v", len(classes), err)
	}
}

type bumpFails struct {
	querycache.Store
}

func (bumpFails) Bump(ctx context.Context, namespace string) (int64, error) {
	return 0, errors.New("redis down")
}

func TestWritesSurviveCacheInvalidateFailure(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.cache = querycache.New(env.log, bumpFails{Store: querycache.NewMemoryStore()})
	admin := testutil.SeedUser(t, env.db, "admin@example.com", types.RoleAdmin)

	m, err := env.curriculumService().CreateMain(as(admin), MainInput{Title: "Prophets", Order: 1})
	if err != nil {
		t.Fatalf("CreateMain: %v", err)
	}
	l, err := env.lessonService(0).Create(as(admin), LessonInput{MainID: m.ID, Title: "Isaiah"})
	if err != nil {
		t.Fatalf("Create lesson: %v", err)
	}
	if l.MainID != m.ID {
		t.Fatalf("lesson main = %s", l.MainID)
	}
	if env.events.count(realtime.ChannelContent, realtime.SSEEventContentInvalidated) < 2 {
		t.Fatalf("clients should still be told about the change")
	}
}
