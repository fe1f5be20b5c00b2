package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"members/internal/codec"
	"members/internal/model"
	"members/internal/permission"
	"members/internal/repository"
	"members/internal/webmodel"
)

// --- DTOs ---

type CreateRoleRequest struct {
	Name        string          `json:"name" binding:"required"`
	Permissions map[string]bool `json:"permissions"`
}

type UpdateRoleRequest struct {
	Name        *string         `json:"name"`
	Permissions map[string]bool `json:"permissions"` // only the listed flags change
}

// ImportRoleRequest carries a role in the legacy packed form: a dictionary of
// capability name to "true"/"false" joined with the codec delimiter.
type ImportRoleRequest struct {
	Name   string `json:"name" binding:"required"`
	Packed string `json:"packed"`
}

type ExportRoleResponse struct {
	Name   string `json:"name"`
	Packed string `json:"packed"`
}

// --- Interface ---

type RoleService interface {
	ListRoles(ctx context.Context, actor permission.Actor) ([]webmodel.RoleView, error)
	GetRole(ctx context.Context, actor permission.Actor, id uint) (*webmodel.RoleView, error)
	CreateRole(ctx context.Context, actor permission.Actor, req CreateRoleRequest) (*webmodel.RoleView, error)
	UpdateRole(ctx context.Context, actor permission.Actor, id uint, req UpdateRoleRequest) (*webmodel.RoleView, error)
	DeleteRole(ctx context.Context, actor permission.Actor, id uint) error
	ImportRole(ctx context.Context, actor permission.Actor, req ImportRoleRequest) (*webmodel.RoleView, error)
	ExportRole(ctx context.Context, actor permission.Actor, id uint) (*ExportRoleResponse, error)
	SeedDefaultRoles(ctx context.Context) error
}

type roleService struct {
	roles     repository.RoleRepository
	users     repository.UserRepository
	txManager repository.TransactionManager
	authz     Authorizer
	audit     AuditService
}

func NewRoleService(
	roles repository.RoleRepository,
	users repository.UserRepository,
	txManager repository.TransactionManager,
	authz Authorizer,
	audit AuditService,
) RoleService {
	return &roleService{roles: roles, users: users, txManager: txManager, authz: authz, audit: audit}
}

// --- Implementation ---

func (s *roleService) ListRoles(ctx context.Context, actor permission.Actor) ([]webmodel.RoleView, error) {
	if err := authorize(ctx, s.authz, actor, permission.Flag(model.PermRoleView)); err != nil {
		return nil, err
	}
	roles, err := s.roles.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roles: %w", err)
	}
	return webmodel.FromDBModels[webmodel.RoleView](roles)
}

func (s *roleService) GetRole(ctx context.Context, actor permission.Actor, id uint) (*webmodel.RoleView, error) {
	if err := authorize(ctx, s.authz, actor, permission.Flag(model.PermRoleView)); err != nil {
		return nil, err
	}
	role, err := s.roles.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundAs("role", err)
	}
	return webmodel.FromDBModel[webmodel.RoleView](role)
}

func (s *roleService) CreateRole(ctx context.Context, actor permission.Actor, req CreateRoleRequest) (*webmodel.RoleView, error) {
	if err := authorize(ctx, s.authz, actor, permission.Flag(model.PermRoleManage)); err != nil {
		return nil, err
	}
	role := &model.Role{Name: strings.TrimSpace(req.Name)}
	if role.Name == "" {
		return nil, validationError("name is required")
	}
	if err := applyFlags(&role.Permissions, req.Permissions); err != nil {
		return nil, err
	}
	if err := s.create(ctx, actor, role, model.ActionCreateRole); err != nil {
		return nil, err
	}
	return webmodel.FromDBModel[webmodel.RoleView](role)
}

func (s *roleService) create(ctx context.Context, actor permission.Actor, role *model.Role, action string) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.roles.Create(txCtx, role); err != nil {
			return conflictAs(fmt.Sprintf("role %q already exists", role.Name), err)
		}
		return s.audit.Record(txCtx, AuditEntry{
			UserID: actorID(actor), Action: action, EntityType: "role", EntityID: role.ID,
			Details: map[string]any{"name": role.Name, "permissions": role.Permissions.Map()},
		})
	})
}

func (s *roleService) UpdateRole(ctx context.Context, actor permission.Actor, id uint, req UpdateRoleRequest) (*webmodel.RoleView, error) {
	if err := authorize(ctx, s.authz, actor, permission.Flag(model.PermRoleManage)); err != nil {
		return nil, err
	}
	role, err := s.roles.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundAs("role", err)
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, validationError("name cannot be empty")
		}
		if role.IsSystem && name != role.Name {
			return nil, fmt.Errorf("%w: system role %q cannot be renamed", ErrConflict, role.Name)
		}
		role.Name = name
	}
	if err := applyFlags(&role.Permissions, req.Permissions); err != nil {
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.roles.Update(txCtx, role); err != nil {
			return conflictAs(fmt.Sprintf("role %q already exists", role.Name), err)
		}
		return s.audit.Record(txCtx, AuditEntry{
			UserID: actorID(actor), Action: model.ActionUpdateRole, EntityType: "role", EntityID: role.ID,
			Details: req,
		})
	})
	if err != nil {
		return nil, err
	}
	return webmodel.FromDBModel[webmodel.RoleView](role)
}

// DeleteRole refuses system roles and roles still assigned to a user.
func (s *roleService) DeleteRole(ctx context.Context, actor permission.Actor, id uint) error {
	if err := authorize(ctx, s.authz, actor, permission.Flag(model.PermRoleManage)); err != nil {
		return err
	}
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		role, err := s.roles.FindByID(txCtx, id)
		if err != nil {
			return notFoundAs("role", err)
		}
		if role.IsSystem {
			return fmt.Errorf("%w: cannot delete system role %q", ErrConflict, role.Name)
		}
		n, err := s.users.CountByRole(txCtx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: role %q is assigned to %d users", ErrConflict, role.Name, n)
		}
		if err := s.roles.Delete(txCtx, id); err != nil {
			return notFoundAs("role", err)
		}
		return s.audit.Record(txCtx, AuditEntry{
			UserID: actorID(actor), Action: model.ActionDeleteRole, EntityType: "role", EntityID: id,
			Details: map[string]any{"name": role.Name},
		})
	})
}

// ImportRole creates a role from a legacy packed permission dictionary.
func (s *roleService) ImportRole(ctx context.Context, actor permission.Actor, req ImportRoleRequest) (*webmodel.RoleView, error) {
	if err := authorize(ctx, s.authz, actor, permission.Flag(model.PermRoleManage)); err != nil {
		return nil, err
	}
	flags, err := codec.DecodeBoolDict(req.Packed)
	if err != nil {
		return nil, validationError("packed permissions: %v", err)
	}
	role := &model.Role{Name: strings.TrimSpace(req.Name)}
	if role.Name == "" {
		return nil, validationError("name is required")
	}
	if err := applyFlags(&role.Permissions, flags); err != nil {
		return nil, err
	}
	if err := s.create(ctx, actor, role, model.ActionImportRole); err != nil {
		return nil, err
	}
	return webmodel.FromDBModel[webmodel.RoleView](role)
}

// ExportRole packs a role's flags in the legacy dictionary form.
func (s *roleService) ExportRole(ctx context.Context, actor permission.Actor, id uint) (*ExportRoleResponse, error) {
	if err := authorize(ctx, s.authz, actor, permission.Flag(model.PermRoleView)); err != nil {
		return nil, err
	}
	role, err := s.roles.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundAs("role", err)
	}
	packed, err := codec.EncodeBoolDict(role.Permissions.Map())
	if err != nil {
		return nil, err
	}
	return &ExportRoleResponse{Name: role.Name, Packed: packed}, nil
}

// DefaultRoles returns the system roles every deployment starts with.
func DefaultRoles() []model.Role {
	anonymous := model.Role{Name: model.AnonymousRoleName, IsSystem: true}
	anonymous.Permissions.ActivityViewPublished = true
	anonymous.Permissions.PageView = true

	member := model.Role{Name: model.MemberRoleName, IsSystem: true}
	member.Permissions.ActivityViewPublished = true
	member.Permissions.PageView = true

	admin := model.Role{Name: model.AdminRoleName, IsSystem: true, Permissions: model.AllPermissions()}

	return []model.Role{anonymous, member, admin}
}

// SeedDefaultRoles creates the system roles that are missing. Existing roles
// keep their flags.
func (s *roleService) SeedDefaultRoles(ctx context.Context) error {
	for _, role := range DefaultRoles() {
		if err := s.roles.FindOrCreate(ctx, &role); err != nil {
			return fmt.Errorf("failed to seed role '%s': %w", role.Name, err)
		}
	}
	return nil
}

// --- Helpers ---

func applyFlags(perms *model.Permissions, flags map[string]bool) error {
	for name, value := range flags {
		if err := perms.SetFlag(name, value); err != nil {
			var unknown model.ErrUnknownPermission
			if errors.As(err, &unknown) {
				return validationError("unknown permission %q", unknown.Name)
			}
			return err
		}
	}
	return nil
}
