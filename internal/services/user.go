package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/scripture-study-backend/internal/data/repos"
	types "github.com/yungbote/scripture-study-backend/internal/domain"
	"github.com/yungbote/scripture-study-backend/internal/platform/apierr"
	"github.com/yungbote/scripture-study-backend/internal/platform/dbctx"
	"github.com/yungbote/scripture-study-backend/internal/platform/logger"
	"github.com/yungbote/scripture-study-backend/internal/platform/validate"
)

type UserService interface {
	GetMe(ctx context.Context) (*types.User, error)
	ListUsers(ctx context.Context) ([]*types.User, error)
	UpdateRole(ctx context.Context, userID uuid.UUID, role string) (*types.User, error)
}

type userService struct {
	db       *gorm.DB
	log      *logger.Logger
	userRepo repos.UserRepo
	notify   Notifier
}

func NewUserService(db *gorm.DB, log *logger.Logger, userRepo repos.UserRepo, notify Notifier) UserService {
	serviceLog := log.With("service", "UserService")
	return &userService{db: db, log: serviceLog, userRepo: userRepo, notify: notify}
}

func (us *userService) GetMe(ctx context.Context) (*types.User, error) {
	a, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	users, err := us.userRepo.GetByIDs(dbctx.Context{Ctx: ctx}, []uuid.UUID{a.ID})
	if err != nil {
		return nil, storeErr("get me", err)
	}
	if len(users) == 0 {
		return nil, apierr.NotFound("user_not_found", "user %s", a.ID)
	}
	return users[0], nil
}

func (us *userService) ListUsers(ctx context.Context) ([]*types.User, error) {
	if _, err := requireAdmin(ctx, us.userRepo); err != nil {
		return nil, err
	}
	users, err := us.userRepo.List(dbctx.Context{Ctx: ctx})
	if err != nil {
		return nil, storeErr("list users", err)
	}
	return users, nil
}

// UpdateRole lets an admin promote or demote another user. Admins cannot
// change their own role.
func (us *userService) UpdateRole(ctx context.Context, userID uuid.UUID, role string) (*types.User, error) {
	admin, err := requireAdmin(ctx, us.userRepo)
	if err != nil {
		return nil, err
	}
	if err := validate.Field("role", role, "oneof="+types.RoleAdmin+" "+types.RoleUser); err != nil {
		return nil, err
	}
	if admin.ID == userID {
		return nil, apierr.Conflict("self_demotion", "admins cannot change their own role")
	}

	var updated *types.User
	err = us.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := us.userRepo.UpdateRole(dbc, userID, role); err != nil {
			return err
		}
		users, err := us.userRepo.GetByIDs(dbc, []uuid.UUID{userID})
		if err != nil {
			return err
		}
		if len(users) == 0 {
			return gorm.ErrRecordNotFound
		}
		updated = users[0]
		return nil
	})
	if err != nil {
		return nil, storeErr("update role", err)
	}
	us.log.Info("User role changed", "user_id", userID, "role", role, "by", admin.ID)
	us.notify.RoleChanged(ctx, userID, role)
	return updated, nil
}
