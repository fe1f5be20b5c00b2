package repository

import (
	"context"

	"members/internal/model"

	"gorm.io/gorm"
)

type PartnerRepository interface {
	Create(ctx context.Context, partner *model.Partner) error
	Update(ctx context.Context, partner *model.Partner) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.Partner, error)
	List(ctx context.Context, filter PartnerFilter, page, limit int) ([]model.Partner, int64, error)
}

// PartnerFilter narrows List. Zero values mean no restriction.
type PartnerFilter struct {
	Type       string
	Search     string
	ActiveOnly bool
}

type partnerRepository struct {
	db *gorm.DB
}

func NewPartnerRepository(db *gorm.DB) PartnerRepository {
	return &partnerRepository{db: db}
}

func (r *partnerRepository) Create(ctx context.Context, partner *model.Partner) error {
	return translate(GetDB(ctx, r.db).Create(partner).Error)
}

func (r *partnerRepository) Update(ctx context.Context, partner *model.Partner) error {
	return translate(GetDB(ctx, r.db).Save(partner).Error)
}

func (r *partnerRepository) Delete(ctx context.Context, id uint) error {
	res := GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Partner{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *partnerRepository) FindByID(ctx context.Context, id uint) (*model.Partner, error) {
	var partner model.Partner
	if err := GetDB(ctx, r.db).First(&partner, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &partner, nil
}

func (r *partnerRepository) List(ctx context.Context, filter PartnerFilter, page, limit int) ([]model.Partner, int64, error) {
	var partners []model.Partner
	var total int64

	scope := func(db *gorm.DB) *gorm.DB {
		if filter.Type != "" {
			db = db.Where("type = ?", filter.Type)
		}
		if filter.ActiveOnly {
			db = db.Where("is_active = ?", true)
		}
		if filter.Search != "" {
			db = db.Where("name ILIKE ?", "%"+filter.Search+"%")
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Partner{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Model(&model.Partner{}).Scopes(scope).
		Order("sponsorship_amount DESC, name ASC").
		Offset(offset(page, limit)).Limit(limit).
		Find(&partners).Error
	if err != nil {
		return nil, 0, err
	}
	return partners, total, nil
}
