package repository

import (
	"context"

	"members/internal/model"

	"gorm.io/gorm"
)

type PageRepository interface {
	Create(ctx context.Context, page *model.Page) error
	Update(ctx context.Context, page *model.Page) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.Page, error)
	FindBySlug(ctx context.Context, slug string) (*model.Page, error)
	List(ctx context.Context, publishedOnly bool) ([]model.Page, error)
}

type pageRepository struct {
	db *gorm.DB
}

func NewPageRepository(db *gorm.DB) PageRepository {
	return &pageRepository{db: db}
}

func (r *pageRepository) Create(ctx context.Context, page *model.Page) error {
	return translate(GetDB(ctx, r.db).Create(page).Error)
}

func (r *pageRepository) Update(ctx context.Context, page *model.Page) error {
	return translate(GetDB(ctx, r.db).Save(page).Error)
}

func (r *pageRepository) Delete(ctx context.Context, id uint) error {
	res := GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Page{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pageRepository) FindByID(ctx context.Context, id uint) (*model.Page, error) {
	var page model.Page
	if err := GetDB(ctx, r.db).First(&page, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &page, nil
}

func (r *pageRepository) FindBySlug(ctx context.Context, slug string) (*model.Page, error) {
	var page model.Page
	if err := GetDB(ctx, r.db).First(&page, "slug = ?", slug).Error; err != nil {
		return nil, translate(err)
	}
	return &page, nil
}

func (r *pageRepository) List(ctx context.Context, publishedOnly bool) ([]model.Page, error) {
	var pages []model.Page
	query := GetDB(ctx, r.db).Model(&model.Page{})
	if publishedOnly {
		query = query.Where("published = ?", true)
	}
	if err := query.Order("title asc").Find(&pages).Error; err != nil {
		return nil, err
	}
	return pages, nil
}
