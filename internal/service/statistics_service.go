package service

import (
	"context"
	"time"

	"members/internal/model"
	"members/internal/permission"
	"members/internal/repository"
)

const topActivitiesLimit = 5

type StatisticsService interface {
	GetStatistics(ctx context.Context, actor permission.Actor, startDate, endDate time.Time) (model.StatisticsResponse, error)
}

type statisticsService struct {
	repo  repository.StatisticsRepository
	authz Authorizer
}

func NewStatisticsService(repo repository.StatisticsRepository, authz Authorizer) StatisticsService {
	return &statisticsService{repo: repo, authz: authz}
}

// GetStatistics gathers the dashboard figures. Member and sponsorship totals
// are current; activity and subscription figures are bounded by the range.
func (s *statisticsService) GetStatistics(ctx context.Context, actor permission.Actor, startDate, endDate time.Time) (model.StatisticsResponse, error) {
	var resp model.StatisticsResponse
	if err := authorize(ctx, s.authz, actor, permission.Flag(model.PermUserViewAll)); err != nil {
		return resp, err
	}
	if endDate.Before(startDate) {
		return resp, validationError("end_date is before start_date")
	}
	resp.TimeRangeStartDate = startDate
	resp.TimeRangeEndDate = endDate

	total, approved, err := s.repo.CountMembers(ctx)
	if err != nil {
		return resp, err
	}
	resp.TotalMembers = total
	resp.ApprovedMembers = approved
	resp.PendingMembers = total - approved

	if resp.ActivitiesInRange, err = s.repo.CountActivities(ctx, startDate, endDate); err != nil {
		return resp, err
	}
	if resp.SubscriptionsInRange, err = s.repo.CountSubscriptions(ctx, startDate, endDate); err != nil {
		return resp, err
	}
	if resp.ActiveSponsorship, err = s.repo.ActiveSponsorship(ctx); err != nil {
		return resp, err
	}
	if resp.TopActivities, err = s.repo.TopActivities(ctx, startDate, endDate, topActivitiesLimit); err != nil {
		return resp, err
	}
	if resp.TopActivities == nil {
		resp.TopActivities = []model.ActivityRanking{}
	}
	return resp, nil
}
