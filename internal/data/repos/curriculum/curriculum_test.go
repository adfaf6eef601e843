package curriculum

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/scripture-study-backend/internal/data/repos/testutil"
	types "github.com/yungbote/scripture-study-backend/internal/domain"
)

func TestMainAndClassRepo(t *testing.T) {
	t.Parallel()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := testutil.Ctx(tx)
	log := testutil.Logger(t)

	mains := NewMainRepo(db, log)
	classes := NewClassRepo(db, log)
	admin := testutil.SeedUser(t, tx, "admin@example.com", types.RoleAdmin)

	second := testutil.SeedMain(t, tx, "Epistles", 2, admin.ID)
	first := testutil.SeedMain(t, tx, "Gospels", 1, admin.ID)

	list, err := mains.List(dbc)
	if err != nil || len(list) != 2 {
		t.Fatalf("List: err=%v len=%d", err, len(list))
	}
	if list[0].ID != first.ID || list[1].ID != second.ID {
		t.Fatalf("List: want order asc, got %q then %q", list[0].Title, list[1].Title)
	}

	if got, err := mains.Get(dbc, uuid.New()); err != nil || got != nil {
		t.Fatalf("Get(missing): got=%v err=%v", got, err)
	}
	if got, err := mains.GetByTitle(dbc, "Gospels"); err != nil || got == nil || got.ID != first.ID {
		t.Fatalf("GetByTitle: got=%v err=%v", got, err)
	}

	if err := mains.Update(dbc, first.ID, map[string]any{"title": "The Gospels"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := mains.Update(dbc, uuid.New(), map[string]any{"title": "x"}); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("Update(missing): want ErrRecordNotFound got %v", err)
	}

	cB := testutil.SeedClass(t, tx, first.ID, "Mark", 2, admin.ID)
	cA := testutil.SeedClass(t, tx, first.ID, "Matthew", 1, admin.ID)
	testutil.SeedClass(t, tx, second.ID, "Romans", 1, admin.ID)

	byMain, err := classes.ListByMain(dbc, first.ID)
	if err != nil || len(byMain) != 2 || byMain[0].ID != cA.ID || byMain[1].ID != cB.ID {
		t.Fatalf("ListByMain: err=%v rows=%+v", err, byMain)
	}
	if n, err := classes.CountByMain(dbc, first.ID); err != nil || n != 2 {
		t.Fatalf("CountByMain: err=%v n=%d", err, n)
	}
	if err := classes.DeleteByMainIDs(dbc, []uuid.UUID{first.ID}); err != nil {
		t.Fatalf("DeleteByMainIDs: %v", err)
	}
	if n, err := classes.CountByMain(dbc, second.ID); err != nil || n != 1 {
		t.Fatalf("other main's classes touched: err=%v n=%d", err, n)
	}
}

func TestLessonRepoFiltersAndOrder(t *testing.T) {
	t.Parallel()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := testutil.Ctx(tx)
	repo := NewLessonRepo(db, testutil.Logger(t))

	admin := testutil.SeedUser(t, tx, "admin@example.com", types.RoleAdmin)
	m := testutil.SeedMain(t, tx, "Old Testament", 0, admin.ID)
	other := testutil.SeedMain(t, tx, "New Testament", 1, admin.ID)
	c := testutil.SeedClass(t, tx, m.ID, "Torah", 0, admin.ID)

	base := time.Now().UTC().Add(-time.Hour)
	older := testutil.SeedLesson(t, tx, m.ID, "Creation", admin.ID,
		testutil.WithClass(c.ID), testutil.WithOrder(2), testutil.WithCategory("history"), testutil.WithUpdatedAt(base))
	newer := testutil.SeedLesson(t, tx, m.ID, "Exodus", admin.ID,
		testutil.WithClass(c.ID), testutil.WithOrder(1), testutil.WithUpdatedAt(base.Add(time.Minute)))
	draft := testutil.SeedLesson(t, tx, m.ID, "Draft notes", admin.ID,
		testutil.WithStatus(types.LessonStatusDraft), testutil.WithUpdatedAt(base.Add(2*time.Minute)))
	testutil.SeedLesson(t, tx, other.ID, "Acts", admin.ID, testutil.WithUpdatedAt(base.Add(3*time.Minute)))

	all, err := repo.List(dbc, types.LessonFilter{MainID: &m.ID}, 0)
	if err != nil || len(all) != 3 {
		t.Fatalf("List(main): err=%v len=%d", err, len(all))
	}
	if all[0].ID != draft.ID || all[2].ID != older.ID {
		t.Fatalf("List: want updated_at desc, got %q first", all[0].Title)
	}

	published, err := repo.List(dbc, types.LessonFilter{MainID: &m.ID, Status: types.LessonStatusPublished}, 0)
	if err != nil || len(published) != 2 {
		t.Fatalf("List(published): err=%v len=%d", err, len(published))
	}
	for _, l := range published {
		if l.Status != types.LessonStatusPublished {
			t.Fatalf("status filter leaked %q", l.Status)
		}
	}

	byCat, err := repo.List(dbc, types.LessonFilter{Category: "history"}, 0)
	if err != nil || len(byCat) != 1 || byCat[0].ID != older.ID {
		t.Fatalf("List(category): err=%v rows=%d", err, len(byCat))
	}

	limited, err := repo.List(dbc, types.LessonFilter{}, 2)
	if err != nil || len(limited) != 2 {
		t.Fatalf("List(limit): err=%v len=%d", err, len(limited))
	}

	ordered, err := repo.ListPublished(dbc, &m.ID, &c.ID)
	if err != nil || len(ordered) != 2 || ordered[0].ID != newer.ID {
		t.Fatalf("ListPublished: err=%v rows=%+v", err, ordered)
	}

	if n, err := repo.Count(dbc, types.LessonFilter{Status: types.LessonStatusPublished}); err != nil || n != 3 {
		t.Fatalf("Count(published): err=%v n=%d", err, n)
	}

	ids, err := repo.IDsByClass(dbc, c.ID)
	if err != nil || len(ids) != 2 {
		t.Fatalf("IDsByClass: err=%v len=%d", err, len(ids))
	}
	ids, err = repo.IDsByMain(dbc, m.ID)
	if err != nil || len(ids) != 3 {
		t.Fatalf("IDsByMain: err=%v len=%d", err, len(ids))
	}

	got, err := repo.GetByTitle(dbc, m.ID, nil, "Draft notes")
	if err != nil || got == nil || got.ID != draft.ID {
		t.Fatalf("GetByTitle(no class): got=%v err=%v", got, err)
	}
	got, err = repo.GetByTitle(dbc, m.ID, &c.ID, "Draft notes")
	if err != nil || got != nil {
		t.Fatalf("GetByTitle(wrong class): got=%v err=%v", got, err)
	}
}

func TestLessonConcurrentViews(t *testing.T) {
	t.Parallel()
	db := testutil.DB(t)
	dbc := testutil.Ctx(nil)
	repo := NewLessonRepo(db, testutil.Logger(t))

	admin := testutil.SeedUser(t, db, "admin@example.com", types.RoleAdmin)
	m := testutil.SeedMain(t, db, "Psalms", 0, admin.ID)
	l := testutil.SeedLesson(t, db, m.ID, "Psalm 23", admin.ID)

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.IncrementViews(dbc, l.ID); err != nil {
				t.Errorf("IncrementViews: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := repo.Get(dbc, l.ID)
	if err != nil || got == nil {
		t.Fatalf("Get: got=%v err=%v", got, err)
	}
	if got.Views != n {
		t.Fatalf("views: want=%d got=%d", n, got.Views)
	}
	if err := repo.IncrementViews(dbc, uuid.New()); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("IncrementViews(missing): want ErrRecordNotFound got %v", err)
	}
}
