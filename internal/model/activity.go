package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Activity is an event organized by a group, optionally with a subscription form.
// The five Question* columns are packed with the codec and must stay index aligned.
type Activity struct {
	ID                   uint            `gorm:"primaryKey" json:"id"`
	Name                 string          `gorm:"type:varchar(255);not null" json:"name"`
	Description          *string         `gorm:"type:text" json:"description"`
	Location             *string         `gorm:"type:varchar(255)" json:"location"`
	StartsAt             *time.Time      `gorm:"index" json:"starts_at"`
	EndsAt               *time.Time      `json:"ends_at"`
	SubscriptionDeadline *time.Time      `json:"subscription_deadline"`
	Published            bool            `gorm:"not null;index" json:"published"`
	CanSubscribe         bool            `gorm:"not null" json:"can_subscribe"`
	Price                decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"price"`
	OrganizerID          uint            `gorm:"not null;index" json:"organizer_id"`
	Organizer            Group           `gorm:"foreignKey:OrganizerID" json:"-"`
	QuestionTypes        string          `gorm:"type:text;not null;default:''" json:"-"`
	QuestionDescriptions string          `gorm:"type:text;not null;default:''" json:"-"`
	QuestionOptions      string          `gorm:"type:text;not null;default:''" json:"-"`
	QuestionRequired     string          `gorm:"type:text;not null;default:''" json:"-"`
	QuestionPrivacy      string          `gorm:"type:text;not null;default:''" json:"-"`
	Subscriptions        []Subscription  `gorm:"foreignKey:ActivityID;constraint:OnDelete:CASCADE;" json:"-"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// SubscriptionOpen reports whether new subscriptions are accepted at now.
func (a *Activity) SubscriptionOpen(now time.Time) bool {
	if !a.CanSubscribe {
		return false
	}
	return a.SubscriptionDeadline == nil || now.Before(*a.SubscriptionDeadline)
}

// Subscription is the join row between a user and an activity, holding packed answers
type Subscription struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_subscription_user_activity" json:"user_id"`
	ActivityID uint      `gorm:"not null;uniqueIndex:idx_subscription_user_activity;index" json:"activity_id"`
	Answers    string    `gorm:"type:text;not null;default:''" json:"-"`
	User       User      `gorm:"foreignKey:UserID" json:"-"`
	Activity   Activity  `gorm:"foreignKey:ActivityID" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
