package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/scripture-study-backend/internal/data/repos"
	types "github.com/yungbote/scripture-study-backend/internal/domain"
	"github.com/yungbote/scripture-study-backend/internal/platform/ctxutil"
	"github.com/yungbote/scripture-study-backend/internal/platform/dbctx"
)

func TestRegisterFirstUserBecomesAdmin(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	svc := env.authService(nil, nil)
	ctx := context.Background()

	var roles []string
	for i := 0; i < 3; i++ {
		s, err := svc.Register(ctx, fmt.Sprintf("User%d@Example.com", i), "password123", "")
		if err != nil {
			t.Fatalf("Register(%d): %v", i, err)
		}
		if s.User.LastLogin == nil {
			t.Fatalf("Register(%d): last_login not set", i)
		}
		roles = append(roles, s.User.Role)
	}
	if roles[0] != types.RoleAdmin || roles[1] != types.RoleUser || roles[2] != types.RoleUser {
		t.Fatalf("roles = %v, want [admin user user]", roles)
	}

	users, err := env.users.GetByEmails(env.dbc(), []string{"user0@example.com"})
	if err != nil || len(users) != 1 {
		t.Fatalf("email should be stored lower-cased: users=%v err=%v", users, err)
	}
	if users[0].DisplayName != "user0" {
		t.Fatalf("display name default: %q", users[0].DisplayName)
	}
}

func TestRegisterConcurrentYieldsOneAdmin(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	svc := env.authService(nil, nil)

	const n = 6
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Register(context.Background(), fmt.Sprintf("racer%d@example.com", i), "password123", "Racer")
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Register: %v", err)
		}
	}

	users, err := env.users.List(env.dbc())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	admins := 0
	for _, u := range users {
		if u.IsAdmin() {
			admins++
		}
	}
	if len(users) != n || admins != 1 {
		t.Fatalf("users=%d admins=%d, want %d users and exactly one admin", len(users), admins, n)
	}
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	svc := env.authService(nil, nil)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "taken@example.com", "password123", "A"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, err := svc.Register(ctx, "TAKEN@example.com", "password123", "B")
	wantAPIError(t, err, http.StatusConflict, "email_taken")

	_, err = svc.Register(ctx, "not-an-email", "password123", "C")
	wantAPIError(t, err, http.StatusBadRequest, "invalid_email")

	_, err = svc.Register(ctx, "short@example.com", "short", "D")
	wantAPIError(t, err, http.StatusBadRequest, "invalid_password")
}

func TestLoginRefreshLogout(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	svc := env.authService(nil, nil)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "reader@example.com", "password123", "Reader"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, err := svc.Login(ctx, "reader@example.com", "wrong-password")
	wantAPIError(t, err, http.StatusUnauthorized, "invalid_credentials")
	_, err = svc.Login(ctx, "nobody@example.com", "password123")
	wantAPIError(t, err, http.StatusUnauthorized, "invalid_credentials")

	login, err := svc.Login(ctx, " Reader@example.com ", "password123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	authed, err := svc.SetContextFromToken(ctx, login.AccessToken)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	rd := ctxutil.GetRequestData(authed)
	if rd == nil || rd.UserID != login.User.ID || rd.Role != types.RoleAdmin {
		t.Fatalf("request data = %+v", rd)
	}

	rotated, err := svc.Refresh(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if rotated.RefreshToken == login.RefreshToken || rotated.AccessToken == login.AccessToken {
		t.Fatalf("Refresh did not rotate tokens")
	}
	_, err = svc.Refresh(ctx, login.RefreshToken)
	wantAPIError(t, err, http.StatusUnauthorized, "invalid_refresh_token")
	_, err = svc.SetContextFromToken(ctx, login.AccessToken)
	wantAPIError(t, err, http.StatusUnauthorized, "session_revoked")

	authed, err = svc.SetContextFromToken(ctx, rotated.AccessToken)
	if err != nil {
		t.Fatalf("SetContextFromToken(rotated): %v", err)
	}
	if err := svc.Logout(authed); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	_, err = svc.SetContextFromToken(ctx, rotated.AccessToken)
	wantAPIError(t, err, http.StatusUnauthorized, "session_revoked")

	_, err = svc.SetContextFromToken(ctx, "garbage")
	wantAPIError(t, err, http.StatusUnauthorized, "invalid_token")
}

func TestRoleIsReadFromStore(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	svc := env.authService(nil, nil)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "admin@example.com", "password123", "Admin"); err != nil {
		t.Fatalf("Register(admin): %v", err)
	}
	s, err := svc.Register(ctx, "student@example.com", "password123", "Student")
	if err != nil {
		t.Fatalf("Register(student): %v", err)
	}
	if err := env.users.UpdateRole(env.dbc(), s.User.ID, types.RoleAdmin); err != nil {
		t.Fatalf("UpdateRole: %v", err)
	}
	authed, err := svc.SetContextFromToken(ctx, s.AccessToken)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	if got := ctxutil.GetRequestData(authed).Role; got != types.RoleAdmin {
		t.Fatalf("role from token context = %q, want admin", got)
	}
}

func TestVerifyEmail(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	mailer := &fakeMailer{}
	svc := env.authService(mailer, nil)
	ctx := context.Background()

	s, err := svc.Register(ctx, "verify@example.com", "password123", "Verify")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	msg := mailer.last()
	if len(msg.To) != 1 || msg.To[0].Email != "verify@example.com" {
		t.Fatalf("verification mail not sent: %+v", msg)
	}
	_, after, ok := strings.Cut(msg.Text, "token=")
	if !ok {
		t.Fatalf("no token in mail body: %q", msg.Text)
	}
	token := strings.Fields(after)[0]

	if err := svc.VerifyEmail(ctx, token); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}
	users, err := env.users.GetByIDs(env.dbc(), []uuid.UUID{s.User.ID})
	if err != nil || len(users) != 1 || users[0].EmailVerifiedAt == nil {
		t.Fatalf("email not marked verified: %+v err=%v", users, err)
	}
	wantAPIError(t, svc.VerifyEmail(ctx, token), http.StatusConflict, "already_verified")
	wantAPIError(t, svc.VerifyEmail(ctx, "nope"), http.StatusBadRequest, "invalid_verification_token")
}

// rotatedElsewhere deletes each token right after it is read, as a parallel
// refresh of the same token would.
type rotatedElsewhere struct {
	repos.UserTokenRepo
}

func (r rotatedElsewhere) GetByRefreshTokens(dbc dbctx.Context, refreshTokens []string) ([]*types.UserToken, error) {
	rows, err := r.UserTokenRepo.GetByRefreshTokens(dbc, refreshTokens)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	if err := r.UserTokenRepo.DeleteByIDs(dbc, ids); err != nil {
		return nil, err
	}
	return rows, nil
}

func TestRefreshRejectsTokenConsumedAfterRead(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	session, err := env.authService(nil, nil).Register(ctx, "ruth@example.com", "password123", "Ruth")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	env.tokens = rotatedElsewhere{UserTokenRepo: env.tokens}
	_, err = env.authService(nil, nil).Refresh(ctx, session.RefreshToken)
	wantAPIError(t, err, http.StatusUnauthorized, "invalid_refresh_token")

	left, err := env.tokens.GetByUserIDs(env.dbc(), []uuid.UUID{session.User.ID})
	if err != nil {
		t.Fatalf("GetByUserIDs: %v", err)
	}
	if len(left) != 0 {
		t.Fatalf("losing refresh minted %d session(s)", len(left))
	}
}
