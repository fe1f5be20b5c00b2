package webmodel

import (
	"time"

	"members/internal/codec"
	"members/internal/model"
)

// SubscriptionView is a subscription as listed on its activity.
type SubscriptionView struct {
	User      UserSummary `json:"user"`
	Answers   []string    `json:"answers"`
	CreatedAt time.Time   `json:"created_at"`
}

// NewSubscriptionView unpacks the answers of sub against form. Answers to
// private questions are blanked unless revealPrivate is set.
func NewSubscriptionView(sub *model.Subscription, form codec.Form, revealPrivate bool) (SubscriptionView, error) {
	answers, err := codec.DecodeStringListN(sub.Answers, form.Len())
	if err != nil {
		return SubscriptionView{}, err
	}
	if !revealPrivate {
		for i := range answers {
			if form.Private[i] {
				answers[i] = ""
			}
		}
	}
	return SubscriptionView{
		User:      summarizeUser(&sub.User),
		Answers:   answers,
		CreatedAt: sub.CreatedAt,
	}, nil
}
