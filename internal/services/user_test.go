package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/scripture-study-backend/internal/data/repos/testutil"
	types "github.com/yungbote/scripture-study-backend/internal/domain"
	"github.com/yungbote/scripture-study-backend/internal/realtime"
)

func TestUpdateRole(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	svc := NewUserService(env.db, env.log, env.users, env.notify)
	admin := testutil.SeedUser(t, env.db, "admin@example.com", types.RoleAdmin)
	reader := testutil.SeedUser(t, env.db, "reader@example.com", types.RoleUser)

	got, err := svc.UpdateRole(as(admin), reader.ID, types.RoleAdmin)
	if err != nil {
		t.Fatalf("UpdateRole: %v", err)
	}
	if got.Role != types.RoleAdmin {
		t.Fatalf("role = %q", got.Role)
	}
	if env.events.count(realtime.UserChannel(reader.ID), realtime.SSEEventUserRoleChanged) != 1 {
		t.Fatalf("expected a role change event on the user channel")
	}

	_, err = svc.UpdateRole(as(admin), admin.ID, types.RoleUser)
	wantAPIError(t, err, http.StatusConflict, "self_demotion")

	_, err = svc.UpdateRole(as(admin), reader.ID, "owner")
	wantAPIError(t, err, http.StatusBadRequest, "invalid_role")

	_, err = svc.UpdateRole(as(admin), uuid.New(), types.RoleUser)
	wantAPIError(t, err, http.StatusNotFound, "not_found")
}

func TestUserAdminRoutesRejectReaders(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	svc := NewUserService(env.db, env.log, env.users, env.notify)
	reader := testutil.SeedUser(t, env.db, "reader@example.com", types.RoleUser)
	other := testutil.SeedUser(t, env.db, "other@example.com", types.RoleUser)

	_, err := svc.ListUsers(as(reader))
	wantAPIError(t, err, http.StatusForbidden, "forbidden")

	_, err = svc.UpdateRole(as(reader), other.ID, types.RoleAdmin)
	wantAPIError(t, err, http.StatusForbidden, "forbidden")

	// A stale admin claim in the context is not trusted.
	forged := *reader
	forged.Role = types.RoleAdmin
	_, err = svc.ListUsers(as(&forged))
	wantAPIError(t, err, http.StatusForbidden, "forbidden")

	_, err = svc.GetMe(context.Background())
	wantAPIError(t, err, http.StatusUnauthorized, "unauthorized")

	me, err := svc.GetMe(as(reader))
	if err != nil || me.ID != reader.ID {
		t.Fatalf("GetMe = %v, %v", me, err)
	}
}
