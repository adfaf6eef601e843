package user

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/scripture-study-backend/internal/data/repos/testutil"
	types "github.com/yungbote/scripture-study-backend/internal/domain"
)

func TestUserRepo(t *testing.T) {
	t.Parallel()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := testutil.Ctx(tx)

	repo := NewUserRepo(db, testutil.Logger(t))

	created, err := repo.Create(dbc, []*types.User{
		{Email: "userrepo@example.com", DisplayName: "A B"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created) != 1 || created[0].ID == uuid.Nil {
		t.Fatalf("Create: unexpected result: %+v", created)
	}
	if created[0].Role != types.RoleUser {
		t.Fatalf("Create: default role want=%q got=%q", types.RoleUser, created[0].Role)
	}

	gotByIDs, err := repo.GetByIDs(dbc, []uuid.UUID{created[0].ID})
	if err != nil {
		t.Fatalf("GetByIDs: %v", err)
	}
	if len(gotByIDs) != 1 || gotByIDs[0].ID != created[0].ID {
		t.Fatalf("GetByIDs: unexpected result: %+v", gotByIDs)
	}

	gotByEmails, err := repo.GetByEmails(dbc, []string{created[0].Email})
	if err != nil {
		t.Fatalf("GetByEmails: %v", err)
	}
	if len(gotByEmails) != 1 || gotByEmails[0].Email != created[0].Email {
		t.Fatalf("GetByEmails: unexpected result: %+v", gotByEmails)
	}

	exists, err := repo.EmailExists(dbc, created[0].Email)
	if err != nil || !exists {
		t.Fatalf("EmailExists: exists=%v err=%v", exists, err)
	}
	exists, err = repo.EmailExists(dbc, "does-not-exist@example.com")
	if err != nil || exists {
		t.Fatalf("EmailExists (missing): exists=%v err=%v", exists, err)
	}

	if err := repo.UpdateRole(dbc, created[0].ID, types.RoleAdmin); err != nil {
		t.Fatalf("UpdateRole: %v", err)
	}
	if err := repo.UpdateRole(dbc, uuid.New(), types.RoleAdmin); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("UpdateRole (missing): want ErrRecordNotFound got %v", err)
	}

	now := time.Now().UTC()
	if err := repo.UpdateLastLogin(dbc, created[0].ID, now); err != nil {
		t.Fatalf("UpdateLastLogin: %v", err)
	}
	if err := repo.MarkEmailVerified(dbc, created[0].ID, now); err != nil {
		t.Fatalf("MarkEmailVerified: %v", err)
	}
	if err := repo.UpdateAvatarFields(dbc, created[0].ID, "avatars/x.png", "https://cdn/avatars/x.png"); err != nil {
		t.Fatalf("UpdateAvatarFields: %v", err)
	}

	rows, err := repo.GetByIDs(dbc, []uuid.UUID{created[0].ID})
	if err != nil || len(rows) != 1 {
		t.Fatalf("reload: err=%v len=%d", err, len(rows))
	}
	u := rows[0]
	if u.Role != types.RoleAdmin || u.LastLogin == nil || u.EmailVerifiedAt == nil || u.AvatarURL == "" {
		t.Fatalf("updates not applied: %+v", u)
	}

	testutil.SeedUser(t, tx, "second@example.com", types.RoleUser)
	list, err := repo.List(dbc)
	if err != nil || len(list) != 2 {
		t.Fatalf("List: err=%v len=%d", err, len(list))
	}
	if n, err := repo.Count(dbc); err != nil || n != 2 {
		t.Fatalf("Count: err=%v n=%d", err, n)
	}
}

func TestUserRepoDuplicateEmail(t *testing.T) {
	t.Parallel()
	db := testutil.DB(t)
	dbc := testutil.Ctx(nil)
	repo := NewUserRepo(db, testutil.Logger(t))

	if _, err := repo.Create(dbc, []*types.User{{Email: "dup@example.com", DisplayName: "x"}}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := repo.Create(dbc, []*types.User{{Email: "dup@example.com", DisplayName: "y"}}); err == nil {
		t.Fatalf("expected unique violation on duplicate email")
	}
}
