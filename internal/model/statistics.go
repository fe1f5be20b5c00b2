package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatisticsResponse aggregates membership and activity figures for a time range
type StatisticsResponse struct {
	TotalMembers         int64             `json:"total_members"`
	ApprovedMembers      int64             `json:"approved_members"`
	PendingMembers       int64             `json:"pending_members"`
	ActivitiesInRange    int64             `json:"activities_in_range"`
	SubscriptionsInRange int64             `json:"subscriptions_in_range"`
	ActiveSponsorship    decimal.Decimal   `json:"active_sponsorship"`
	TopActivities        []ActivityRanking `json:"top_activities"`
	TimeRangeStartDate   time.Time         `json:"time_range_start_date"`
	TimeRangeEndDate     time.Time         `json:"time_range_end_date"`
}

// ActivityRanking is an activity ranked by subscriptions
type ActivityRanking struct {
	ActivityID  uint   `json:"activity_id"`
	Name        string `json:"name"`
	Subscribers int64  `json:"subscribers"`
}
