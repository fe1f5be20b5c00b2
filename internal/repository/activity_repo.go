package repository

import (
	"context"

	"members/internal/model"

	"gorm.io/gorm"
)

type ActivityRepository interface {
	Create(ctx context.Context, activity *model.Activity) error
	Update(ctx context.Context, activity *model.Activity) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.Activity, error)
	FindWithOrganizer(ctx context.Context, id uint) (*model.Activity, error)
	List(ctx context.Context, filter ActivityFilter) ([]model.Activity, error)

	CreateSubscription(ctx context.Context, sub *model.Subscription) error
	FindSubscription(ctx context.Context, activityID, userID uint) (*model.Subscription, error)
	DeleteSubscription(ctx context.Context, activityID, userID uint) error
	ListSubscriptions(ctx context.Context, activityID uint) ([]model.Subscription, error)
}

// ActivityFilter narrows List. Zero values mean no restriction.
type ActivityFilter struct {
	OrganizerID   uint
	PublishedOnly bool
}

type activityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Create(ctx context.Context, activity *model.Activity) error {
	return translate(GetDB(ctx, r.db).Omit("Organizer", "Subscriptions").Create(activity).Error)
}

func (r *activityRepository) Update(ctx context.Context, activity *model.Activity) error {
	return translate(GetDB(ctx, r.db).Omit("Organizer", "Subscriptions").Save(activity).Error)
}

func (r *activityRepository) Delete(ctx context.Context, id uint) error {
	res := GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Activity{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *activityRepository) FindByID(ctx context.Context, id uint) (*model.Activity, error) {
	var activity model.Activity
	if err := GetDB(ctx, r.db).First(&activity, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &activity, nil
}

// FindWithOrganizer loads the activity, its organizing group and the group's memberships.
func (r *activityRepository) FindWithOrganizer(ctx context.Context, id uint) (*model.Activity, error) {
	var activity model.Activity
	err := GetDB(ctx, r.db).
		Preload("Organizer").
		Preload("Organizer.Memberships").
		First(&activity, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &activity, nil
}

func (r *activityRepository) List(ctx context.Context, filter ActivityFilter) ([]model.Activity, error) {
	var activities []model.Activity
	query := GetDB(ctx, r.db).Preload("Organizer").Preload("Organizer.Memberships")
	if filter.OrganizerID != 0 {
		query = query.Where("organizer_id = ?", filter.OrganizerID)
	}
	if filter.PublishedOnly {
		query = query.Where("published = ?", true)
	}
	if err := query.Order("starts_at asc NULLS LAST, id asc").Find(&activities).Error; err != nil {
		return nil, err
	}
	return activities, nil
}

func (r *activityRepository) CreateSubscription(ctx context.Context, sub *model.Subscription) error {
	return translate(GetDB(ctx, r.db).Omit("User", "Activity").Create(sub).Error)
}

func (r *activityRepository) FindSubscription(ctx context.Context, activityID, userID uint) (*model.Subscription, error) {
	var sub model.Subscription
	if err := GetDB(ctx, r.db).First(&sub, "activity_id = ? AND user_id = ?", activityID, userID).Error; err != nil {
		return nil, translate(err)
	}
	return &sub, nil
}

func (r *activityRepository) DeleteSubscription(ctx context.Context, activityID, userID uint) error {
	res := GetDB(ctx, r.db).Where("activity_id = ? AND user_id = ?", activityID, userID).Delete(&model.Subscription{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *activityRepository) ListSubscriptions(ctx context.Context, activityID uint) ([]model.Subscription, error) {
	var subs []model.Subscription
	err := GetDB(ctx, r.db).Preload("User").
		Where("activity_id = ?", activityID).
		Order("created_at asc").
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}
