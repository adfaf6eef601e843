package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/scripture-study-backend/internal/data/repos"
	types "github.com/yungbote/scripture-study-backend/internal/domain"
	"github.com/yungbote/scripture-study-backend/internal/platform/apierr"
	"github.com/yungbote/scripture-study-backend/internal/platform/ctxutil"
	"github.com/yungbote/scripture-study-backend/internal/platform/dbctx"
)

// actor is the caller as established by the auth middleware. Role was read
// from the store for this request.
type actor struct {
	ID   uuid.UUID
	Role string
}

func (a actor) isAdmin() bool { return a.Role == types.RoleAdmin }

func actorFrom(ctx context.Context) (actor, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return actor{}, apierr.Unauthorized("unauthorized", "not authenticated")
	}
	return actor{ID: rd.UserID, Role: rd.Role}, nil
}

// requireAdmin reloads the caller and rejects anyone whose stored role is not admin.
func requireAdmin(ctx context.Context, userRepo repos.UserRepo) (*types.User, error) {
	a, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	users, err := userRepo.GetByIDs(dbctx.Context{Ctx: ctx}, []uuid.UUID{a.ID})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, apierr.Unauthorized("unauthorized", "user no longer exists")
	}
	if !users[0].IsAdmin() {
		return nil, apierr.Forbidden("forbidden", "admin role required")
	}
	return users[0], nil
}
