package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"members/internal/model"
	"members/internal/permission"
	"members/internal/repository"
	"members/internal/webmodel"
)

// --- DTOs ---

type CreateGroupRequest struct {
	FullName    string  `json:"full_name" binding:"required"`
	DisplayName string  `json:"display_name" binding:"required"`
	Description *string `json:"description"`
	Email       *string `json:"email"`
	CanOrganize bool    `json:"can_organize"`
	Type        string  `json:"type" binding:"required"`
}

type UpdateGroupRequest struct {
	FullName    *string `json:"full_name"`
	DisplayName *string `json:"display_name"`
	Description *string `json:"description"`
	Email       *string `json:"email"`
	CanOrganize *bool   `json:"can_organize"`
	Type        *string `json:"type"`
}

type MemberRequest struct {
	UserID   uint   `json:"user_id" binding:"required"`
	Function string `json:"function" binding:"required"`
}

type UpdateMemberRequest struct {
	Function string `json:"function" binding:"required"`
}

// --- Interface ---

type GroupService interface {
	ListGroups(ctx context.Context, groupType string) ([]webmodel.GroupView, error)
	GetGroup(ctx context.Context, id uint) (*webmodel.GroupView, error)
	CreateGroup(ctx context.Context, actor permission.Actor, req CreateGroupRequest) (*webmodel.GroupView, error)
	UpdateGroup(ctx context.Context, actor permission.Actor, id uint, req UpdateGroupRequest) (*webmodel.GroupView, error)
	DeleteGroup(ctx context.Context, actor permission.Actor, id uint) error
	AddMember(ctx context.Context, actor permission.Actor, groupID uint, req MemberRequest) (*webmodel.GroupView, error)
	UpdateMember(ctx context.Context, actor permission.Actor, groupID, userID uint, req UpdateMemberRequest) (*webmodel.GroupView, error)
	RemoveMember(ctx context.Context, actor permission.Actor, groupID, userID uint) error
}

type groupService struct {
	groups    repository.GroupRepository
	users     repository.UserRepository
	txManager repository.TransactionManager
	authz     Authorizer
	audit     AuditService
}

func NewGroupService(
	groups repository.GroupRepository,
	users repository.UserRepository,
	txManager repository.TransactionManager,
	authz Authorizer,
	audit AuditService,
) GroupService {
	return &groupService{groups: groups, users: users, txManager: txManager, authz: authz, audit: audit}
}

var validGroupTypes = map[string]bool{
	model.GroupTypeBoard:     true,
	model.GroupTypeCommittee: true,
	model.GroupTypeSociety:   true,
	model.GroupTypeWorkgroup: true,
	model.GroupTypeOther:     true,
}

func validateGroupType(t string) error {
	if !validGroupTypes[t] {
		return validationError("type must be one of: BOARD, COMMITTEE, SOCIETY, WORKGROUP, OTHER")
	}
	return nil
}

func optional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// --- Implementation ---

func (s *groupService) ListGroups(ctx context.Context, groupType string) ([]webmodel.GroupView, error) {
	if groupType != "" {
		if err := validateGroupType(groupType); err != nil {
			return nil, err
		}
	}
	groups, err := s.groups.List(ctx, groupType)
	if err != nil {
		return nil, err
	}
	return webmodel.FromDBModels[webmodel.GroupView](groups)
}

func (s *groupService) GetGroup(ctx context.Context, id uint) (*webmodel.GroupView, error) {
	group, err := s.groups.FindWithMembers(ctx, id)
	if err != nil {
		return nil, notFoundAs("group", err)
	}
	return webmodel.FromDBModel[webmodel.GroupView](group)
}

func (s *groupService) CreateGroup(ctx context.Context, actor permission.Actor, req CreateGroupRequest) (*webmodel.GroupView, error) {
	if err := authorize(ctx, s.authz, actor, permission.Flag(model.PermGroupManage)); err != nil {
		return nil, err
	}
	if err := validateGroupType(req.Type); err != nil {
		return nil, err
	}
	group := &model.Group{
		FullName:    strings.TrimSpace(req.FullName),
		DisplayName: strings.TrimSpace(req.DisplayName),
		Description: optional(req.Description),
		Email:       optional(req.Email),
		CanOrganize: req.CanOrganize,
		Type:        req.Type,
	}
	if group.FullName == "" || group.DisplayName == "" {
		return nil, validationError("full_name and display_name are required")
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.groups.Create(txCtx, group); err != nil {
			return conflictAs(fmt.Sprintf("group %q already exists", group.FullName), err)
		}
		return s.audit.Record(txCtx, AuditEntry{
			UserID: actorID(actor), Action: model.ActionCreateGroup, EntityType: "group", EntityID: group.ID,
			Details: req,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetGroup(ctx, group.ID)
}

func (s *groupService) UpdateGroup(ctx context.Context, actor permission.Actor, id uint, req UpdateGroupRequest) (*webmodel.GroupView, error) {
	if err := authorize(ctx, s.authz, actor, permission.Flag(model.PermGroupManage)); err != nil {
		return nil, err
	}
	group, err := s.groups.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundAs("group", err)
	}

	if req.FullName != nil {
		if strings.TrimSpace(*req.FullName) == "" {
			return nil, validationError("full_name cannot be empty")
		}
		group.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.DisplayName != nil {
		if strings.TrimSpace(*req.DisplayName) == "" {
			return nil, validationError("display_name cannot be empty")
		}
		group.DisplayName = strings.TrimSpace(*req.DisplayName)
	}
	if req.Description != nil {
		group.Description = optional(req.Description)
	}
	if req.Email != nil {
		group.Email = optional(req.Email)
	}
	if req.CanOrganize != nil {
		group.CanOrganize = *req.CanOrganize
	}
	if req.Type != nil {
		if err := validateGroupType(*req.Type); err != nil {
			return nil, err
		}
		group.Type = *req.Type
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.groups.Update(txCtx, group); err != nil {
			return conflictAs(fmt.Sprintf("group %q already exists", group.FullName), err)
		}
		return s.audit.Record(txCtx, AuditEntry{
			UserID: actorID(actor), Action: model.ActionUpdateGroup, EntityType: "group", EntityID: id,
			Details: req,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetGroup(ctx, id)
}

// DeleteGroup refuses groups that still organize activities.
func (s *groupService) DeleteGroup(ctx context.Context, actor permission.Actor, id uint) error {
	if err := authorize(ctx, s.authz, actor, permission.Flag(model.PermGroupManage)); err != nil {
		return err
	}
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		n, err := s.groups.CountActivities(txCtx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: group organizes %d activities", ErrConflict, n)
		}
		if err := s.groups.Delete(txCtx, id); err != nil {
			return notFoundAs("group", err)
		}
		return s.audit.Record(txCtx, AuditEntry{
			UserID: actorID(actor), Action: model.ActionDeleteGroup, EntityType: "group", EntityID: id,
		})
	})
}

func (s *groupService) AddMember(ctx context.Context, actor permission.Actor, groupID uint, req MemberRequest) (*webmodel.GroupView, error) {
	if err := authorize(ctx, s.authz, actor, permission.Flag(model.PermGroupManage)); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Function) == "" {
		return nil, validationError("function is required")
	}
	if _, err := s.groups.FindByID(ctx, groupID); err != nil {
		return nil, notFoundAs("group", err)
	}
	if _, err := s.users.FindByID(ctx, req.UserID); err != nil {
		return nil, notFoundAs("user", err)
	}

	membership := &model.GroupMembership{UserID: req.UserID, GroupID: groupID, Function: strings.TrimSpace(req.Function)}
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.groups.AddMember(txCtx, membership); err != nil {
			return conflictAs("user is already a member", err)
		}
		return s.audit.Record(txCtx, AuditEntry{
			UserID: actorID(actor), Action: model.ActionAddMember, EntityType: "group", EntityID: groupID,
			Details: req,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetGroup(ctx, groupID)
}

func (s *groupService) UpdateMember(ctx context.Context, actor permission.Actor, groupID, userID uint, req UpdateMemberRequest) (*webmodel.GroupView, error) {
	if err := authorize(ctx, s.authz, actor, permission.Flag(model.PermGroupManage)); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Function) == "" {
		return nil, validationError("function is required")
	}
	membership, err := s.groups.FindMembership(ctx, groupID, userID)
	if err != nil {
		return nil, notFoundAs("membership", err)
	}
	membership.Function = strings.TrimSpace(req.Function)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.groups.UpdateMember(txCtx, membership); err != nil {
			return err
		}
		return s.audit.Record(txCtx, AuditEntry{
			UserID: actorID(actor), Action: model.ActionUpdateMember, EntityType: "group", EntityID: groupID,
			Details: map[string]any{"user_id": userID, "function": membership.Function},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetGroup(ctx, groupID)
}

func (s *groupService) RemoveMember(ctx context.Context, actor permission.Actor, groupID, userID uint) error {
	if err := authorize(ctx, s.authz, actor, permission.Flag(model.PermGroupManage)); err != nil {
		return err
	}
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.groups.RemoveMember(txCtx, groupID, userID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: membership", ErrNotFound)
			}
			return err
		}
		return s.audit.Record(txCtx, AuditEntry{
			UserID: actorID(actor), Action: model.ActionRemoveMember, EntityType: "group", EntityID: groupID,
			Details: map[string]any{"user_id": userID},
		})
	})
}
