package repository

import (
	"context"

	"members/internal/model"

	"gorm.io/gorm"
)

type RoleRepository interface {
	Create(ctx context.Context, role *model.Role) error
	Update(ctx context.Context, role *model.Role) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.Role, error)
	FindByName(ctx context.Context, name string) (*model.Role, error)
	ListAll(ctx context.Context) ([]model.Role, error)
	FindOrCreate(ctx context.Context, role *model.Role) error
}

type roleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) Create(ctx context.Context, role *model.Role) error {
	return translate(GetDB(ctx, r.db).Create(role).Error)
}

// Update writes every column, including capability flags turned off.
func (r *roleRepository) Update(ctx context.Context, role *model.Role) error {
	return translate(GetDB(ctx, r.db).Save(role).Error)
}

func (r *roleRepository) Delete(ctx context.Context, id uint) error {
	res := GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Role{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *roleRepository) FindByID(ctx context.Context, id uint) (*model.Role, error) {
	var role model.Role
	if err := GetDB(ctx, r.db).First(&role, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &role, nil
}

func (r *roleRepository) FindByName(ctx context.Context, name string) (*model.Role, error) {
	var role model.Role
	if err := GetDB(ctx, r.db).Where("name = ?", name).First(&role).Error; err != nil {
		return nil, translate(err)
	}
	return &role, nil
}

func (r *roleRepository) ListAll(ctx context.Context) ([]model.Role, error) {
	var roles []model.Role
	if err := GetDB(ctx, r.db).Order("id asc").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

// FindOrCreate inserts role unless a role with the same name exists; role is
// filled with the stored row either way.
func (r *roleRepository) FindOrCreate(ctx context.Context, role *model.Role) error {
	return GetDB(ctx, r.db).Where("name = ?", role.Name).FirstOrCreate(role).Error
}
