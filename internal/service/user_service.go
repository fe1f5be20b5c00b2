package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"members/internal/credential"
	"members/internal/model"
	"members/internal/permission"
	"members/internal/repository"
	"members/internal/webmodel"
)

// --- DTOs ---

type UpdateUserRequest struct {
	Email     *string `json:"email" binding:"omitempty,email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

type AssignRoleRequest struct {
	RoleID uint `json:"role_id" binding:"required"`
}

// --- Interface ---

type UserService interface {
	ListUsers(ctx context.Context, actor permission.Actor, page, limit int) ([]webmodel.UserView, int64, error)
	GetUser(ctx context.Context, actor permission.Actor, id uint) (*webmodel.UserView, error)
	UpdateUser(ctx context.Context, actor permission.Actor, id uint, req UpdateUserRequest) (*webmodel.UserView, error)
	ChangePassword(ctx context.Context, actor permission.Actor, id uint, req ChangePasswordRequest) error
	ApproveUser(ctx context.Context, actor permission.Actor, id uint) (*webmodel.UserView, error)
	AssignRole(ctx context.Context, actor permission.Actor, id uint, req AssignRoleRequest) (*webmodel.UserView, error)
	DeleteUser(ctx context.Context, actor permission.Actor, id uint) error
}

type userService struct {
	users     repository.UserRepository
	roles     repository.RoleRepository
	sessions  repository.SessionRepository
	txManager repository.TransactionManager
	authz     Authorizer
	audit     AuditService
	hasher    *credential.Hasher
}

// NewUserService returns a new instance of UserService
func NewUserService(
	users repository.UserRepository,
	roles repository.RoleRepository,
	sessions repository.SessionRepository,
	txManager repository.TransactionManager,
	authz Authorizer,
	audit AuditService,
	hasher *credential.Hasher,
) UserService {
	return &userService{
		users:     users,
		roles:     roles,
		sessions:  sessions,
		txManager: txManager,
		authz:     authz,
		audit:     audit,
		hasher:    hasher,
	}
}

// selfOrManage allows callers acting on their own account and holders of USER_MANAGE.
func (s *userService) selfOrManage(ctx context.Context, actor permission.Actor, id uint) error {
	if actor.Authenticated && actor.UserID() == id {
		return nil
	}
	return authorize(ctx, s.authz, actor, permission.Flag(model.PermUserManage))
}

func (s *userService) load(ctx context.Context, id uint) (*webmodel.UserView, error) {
	user, err := s.users.FindWithRelations(ctx, id)
	if err != nil {
		return nil, notFoundAs("user", err)
	}
	return webmodel.FromDBModel[webmodel.UserView](user)
}

func (s *userService) ListUsers(ctx context.Context, actor permission.Actor, page, limit int) ([]webmodel.UserView, int64, error) {
	if err := authorize(ctx, s.authz, actor, permission.Flag(model.PermUserViewAll)); err != nil {
		return nil, 0, err
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	users, total, err := s.users.List(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}
	views, err := webmodel.FromDBModels[webmodel.UserView](users)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

func (s *userService) GetUser(ctx context.Context, actor permission.Actor, id uint) (*webmodel.UserView, error) {
	if err := authorize(ctx, s.authz, actor, permission.On(permission.ScopeUserView, id)); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

func (s *userService) UpdateUser(ctx context.Context, actor permission.Actor, id uint, req UpdateUserRequest) (*webmodel.UserView, error) {
	if err := s.selfOrManage(ctx, actor, id); err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundAs("user", err)
	}

	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, validationError("invalid email address")
		}
		if email != user.Email {
			if _, err := s.users.FindByEmail(ctx, email); err == nil {
				return nil, fmt.Errorf("%w: email already registered", ErrConflict)
			}
			user.Email = email
		}
	}
	if req.FirstName != nil {
		if strings.TrimSpace(*req.FirstName) == "" {
			return nil, validationError("first_name cannot be empty")
		}
		user.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		if strings.TrimSpace(*req.LastName) == "" {
			return nil, validationError("last_name cannot be empty")
		}
		user.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Phone != nil {
		user.Phone = req.Phone
		if *req.Phone == "" {
			user.Phone = nil
		}
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.users.Update(txCtx, user); err != nil {
			return conflictAs("email already registered", err)
		}
		return s.audit.Record(txCtx, AuditEntry{
			UserID: actorID(actor), Action: model.ActionUpdateUser, EntityType: "user", EntityID: id,
			Details: req,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// ChangePassword requires the old password when callers change their own.
// Other sessions of the target are ended when someone else changes it.
func (s *userService) ChangePassword(ctx context.Context, actor permission.Actor, id uint, req ChangePasswordRequest) error {
	if err := authorize(ctx, s.authz, actor, permission.On(permission.ScopeChangePassword, id)); err != nil {
		return err
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return notFoundAs("user", err)
	}

	self := actor.UserID() == id
	if self {
		if req.OldPassword == "" {
			return validationError("old_password is required")
		}
		ok, err := s.hasher.Verify(ctx, req.OldPassword, user.PasswordSalt, user.PasswordHash)
		if err != nil {
			return err
		}
		if !ok {
			return &AuthenticationError{Reason: "old password incorrect"}
		}
	}

	salt, err := credential.GenerateSalt(credential.SaltLength)
	if err != nil {
		return err
	}
	hash, err := s.hasher.Hash(ctx, req.NewPassword, salt)
	if err != nil {
		if errors.Is(err, credential.ErrInvalidArgument) {
			return validationError("new_password is required")
		}
		return err
	}
	user.PasswordSalt = salt
	user.PasswordHash = hash

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.users.Update(txCtx, user); err != nil {
			return err
		}
		if !self {
			if err := s.sessions.DeleteByUser(txCtx, id); err != nil {
				return err
			}
		}
		return s.audit.Record(txCtx, AuditEntry{
			UserID: actorID(actor), Action: model.ActionChangePassword, EntityType: "user", EntityID: id,
		})
	})
}

func (s *userService) ApproveUser(ctx context.Context, actor permission.Actor, id uint) (*webmodel.UserView, error) {
	if err := authorize(ctx, s.authz, actor, permission.Flag(model.PermUserManage)); err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundAs("user", err)
	}
	if user.Approved {
		return s.load(ctx, id)
	}
	user.Approved = true

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.users.Update(txCtx, user); err != nil {
			return err
		}
		return s.audit.Record(txCtx, AuditEntry{
			UserID: actorID(actor), Action: model.ActionApproveUser, EntityType: "user", EntityID: id,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

func (s *userService) AssignRole(ctx context.Context, actor permission.Actor, id uint, req AssignRoleRequest) (*webmodel.UserView, error) {
	if err := authorize(ctx, s.authz, actor, permission.Flag(model.PermRoleAssign)); err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundAs("user", err)
	}
	role, err := s.roles.FindByID(ctx, req.RoleID)
	if err != nil {
		return nil, notFoundAs("role", err)
	}
	if role.Name == model.AnonymousRoleName {
		return nil, validationError("the %q role cannot be assigned to an account", role.Name)
	}
	user.RoleID = role.ID

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.users.Update(txCtx, user); err != nil {
			return err
		}
		return s.audit.Record(txCtx, AuditEntry{
			UserID: actorID(actor), Action: model.ActionAssignRole, EntityType: "user", EntityID: id,
			Details: map[string]any{"role_id": role.ID, "role": role.Name},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// DeleteUser removes the account. Sessions, memberships and subscriptions
// cascade in the database.
func (s *userService) DeleteUser(ctx context.Context, actor permission.Actor, id uint) error {
	if err := s.selfOrManage(ctx, actor, id); err != nil {
		return err
	}
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.audit.Record(txCtx, AuditEntry{
			UserID: actorID(actor), Action: model.ActionDeleteUser, EntityType: "user", EntityID: id,
		}); err != nil {
			return err
		}
		if err := s.users.Delete(txCtx, id); err != nil {
			return notFoundAs("user", err)
		}
		return nil
	})
}
