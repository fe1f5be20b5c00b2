package repository

import (
	"context"
	"fmt"
	"time"

	"members/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type StatisticsRepository interface {
	CountMembers(ctx context.Context) (total, approved int64, err error)
	CountActivities(ctx context.Context, start, end time.Time) (int64, error)
	CountSubscriptions(ctx context.Context, start, end time.Time) (int64, error)
	ActiveSponsorship(ctx context.Context) (decimal.Decimal, error)
	TopActivities(ctx context.Context, start, end time.Time, limit int) ([]model.ActivityRanking, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func (r *statisticsRepository) CountMembers(ctx context.Context) (int64, int64, error) {
	var result struct {
		Total    int64
		Approved int64
	}
	if err := GetDB(ctx, r.db).Model(&model.User{}).
		Select("COUNT(*) AS total, COUNT(*) FILTER (WHERE approved) AS approved").
		Scan(&result).Error; err != nil {
		return 0, 0, fmt.Errorf("failed to count members: %w", err)
	}
	return result.Total, result.Approved, nil
}

// CountActivities counts activities starting inside [start, end].
func (r *statisticsRepository) CountActivities(ctx context.Context, start, end time.Time) (int64, error) {
	var n int64
	if err := GetDB(ctx, r.db).Model(&model.Activity{}).
		Where("starts_at >= ? AND starts_at <= ?", start, end).
		Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count activities: %w", err)
	}
	return n, nil
}

// CountSubscriptions counts subscriptions made inside [start, end].
func (r *statisticsRepository) CountSubscriptions(ctx context.Context, start, end time.Time) (int64, error) {
	var n int64
	if err := GetDB(ctx, r.db).Model(&model.Subscription{}).
		Where("created_at >= ? AND created_at <= ?", start, end).
		Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}
	return n, nil
}

func (r *statisticsRepository) ActiveSponsorship(ctx context.Context) (decimal.Decimal, error) {
	var result struct {
		Value string
	}
	if err := GetDB(ctx, r.db).Model(&model.Partner{}).
		Select("COALESCE(CAST(SUM(sponsorship_amount) AS TEXT), '0') AS value").
		Where("is_active = ?", true).
		Scan(&result).Error; err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum sponsorship: %w", err)
	}
	total, err := decimal.NewFromString(result.Value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse sponsorship total %q: %w", result.Value, err)
	}
	return total, nil
}

// TopActivities ranks activities starting inside [start, end] by subscriber count.
func (r *statisticsRepository) TopActivities(ctx context.Context, start, end time.Time, limit int) ([]model.ActivityRanking, error) {
	var rankings []model.ActivityRanking
	if err := GetDB(ctx, r.db).Table("activities").
		Select("activities.id AS activity_id, activities.name AS name, COUNT(subscriptions.id) AS subscribers").
		Joins("LEFT JOIN subscriptions ON subscriptions.activity_id = activities.id").
		Where("activities.starts_at >= ? AND activities.starts_at <= ?", start, end).
		Group("activities.id, activities.name").
		Order("subscribers DESC, activities.id").
		Limit(limit).
		Scan(&rankings).Error; err != nil {
		return nil, fmt.Errorf("failed to query top activities: %w", err)
	}
	return rankings, nil
}
