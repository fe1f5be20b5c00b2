package repository

import (
	"context"

	"members/internal/model"

	"gorm.io/gorm"
)

type GroupRepository interface {
	Create(ctx context.Context, group *model.Group) error
	Update(ctx context.Context, group *model.Group) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.Group, error)
	FindWithMembers(ctx context.Context, id uint) (*model.Group, error)
	List(ctx context.Context, groupType string) ([]model.Group, error)
	CountActivities(ctx context.Context, groupID uint) (int64, error)

	AddMember(ctx context.Context, membership *model.GroupMembership) error
	UpdateMember(ctx context.Context, membership *model.GroupMembership) error
	RemoveMember(ctx context.Context, groupID, userID uint) error
	FindMembership(ctx context.Context, groupID, userID uint) (*model.GroupMembership, error)
}

type groupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) Create(ctx context.Context, group *model.Group) error {
	return translate(GetDB(ctx, r.db).Omit("Memberships", "Activities").Create(group).Error)
}

func (r *groupRepository) Update(ctx context.Context, group *model.Group) error {
	return translate(GetDB(ctx, r.db).Omit("Memberships", "Activities").Save(group).Error)
}

func (r *groupRepository) Delete(ctx context.Context, id uint) error {
	res := GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Group{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *groupRepository) FindByID(ctx context.Context, id uint) (*model.Group, error) {
	var group model.Group
	if err := GetDB(ctx, r.db).First(&group, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &group, nil
}

// FindWithMembers loads the group with each membership and its user.
func (r *groupRepository) FindWithMembers(ctx context.Context, id uint) (*model.Group, error) {
	var group model.Group
	err := GetDB(ctx, r.db).
		Preload("Memberships", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Preload("Memberships.User").
		First(&group, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &group, nil
}

func (r *groupRepository) List(ctx context.Context, groupType string) ([]model.Group, error) {
	var groups []model.Group
	query := GetDB(ctx, r.db).Model(&model.Group{})
	if groupType != "" {
		query = query.Where("type = ?", groupType)
	}
	if err := query.Order("display_name asc").Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *groupRepository) CountActivities(ctx context.Context, groupID uint) (int64, error) {
	var n int64
	err := GetDB(ctx, r.db).Model(&model.Activity{}).Where("organizer_id = ?", groupID).Count(&n).Error
	return n, err
}

func (r *groupRepository) AddMember(ctx context.Context, membership *model.GroupMembership) error {
	return translate(GetDB(ctx, r.db).Omit("User", "Group").Create(membership).Error)
}

func (r *groupRepository) UpdateMember(ctx context.Context, membership *model.GroupMembership) error {
	return GetDB(ctx, r.db).Model(&model.GroupMembership{}).
		Where("id = ?", membership.ID).
		Update("function", membership.Function).Error
}

func (r *groupRepository) RemoveMember(ctx context.Context, groupID, userID uint) error {
	res := GetDB(ctx, r.db).Where("group_id = ? AND user_id = ?", groupID, userID).Delete(&model.GroupMembership{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *groupRepository) FindMembership(ctx context.Context, groupID, userID uint) (*model.GroupMembership, error) {
	var m model.GroupMembership
	if err := GetDB(ctx, r.db).First(&m, "group_id = ? AND user_id = ?", groupID, userID).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}
