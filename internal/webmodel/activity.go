package webmodel

import (
	"time"

	"members/internal/codec"
	"members/internal/model"

	"github.com/shopspring/decimal"
)

type ActivityView struct {
	ID                   uint            `json:"id"`
	Name                 string          `json:"name"`
	Description          string          `json:"description"`
	Location             string          `json:"location"`
	StartsAt             *time.Time      `json:"starts_at"`
	EndsAt               *time.Time      `json:"ends_at"`
	SubscriptionDeadline *time.Time      `json:"subscription_deadline"`
	Published            bool            `json:"published"`
	CanSubscribe         bool            `json:"can_subscribe"`
	Price                decimal.Decimal `json:"price"`
	OrganizerID          uint            `json:"organizer_id"`
	Organizer            *GroupSummary   `json:"organizer,omitempty"`
	DescriptionHTML      string          `json:"description_html"`
	QuestionTypes        []string        `json:"question_types"`
	QuestionDescriptions []string        `json:"question_descriptions"`
	QuestionOptions      [][]string      `json:"question_options"`
	QuestionRequired     []bool          `json:"question_required"`
	QuestionPrivacy      []bool          `json:"question_privacy"`
}

func (v *ActivityView) Copyable() []string {
	return []string{
		"id", "name", "description", "location", "starts_at", "ends_at", "subscription_deadline",
		"published", "can_subscribe", "price", "organizer_id", "organizer",
		"question_types", "question_descriptions", "question_options", "question_required", "question_privacy",
	}
}

// ProjectFrom copies a *model.Activity, unpacks its form columns and renders
// the description.
func (v *ActivityView) ProjectFrom(source any) error {
	activity, err := sourceAs[model.Activity](source)
	if err != nil {
		return err
	}
	form, err := codec.DecodeForm(FormColumns(activity))
	if err != nil {
		return err
	}

	v.ID = activity.ID
	v.Name = activity.Name
	patchString(&v.Description, activity.Description)
	patchString(&v.Location, activity.Location)
	if activity.StartsAt != nil {
		v.StartsAt = activity.StartsAt
	}
	if activity.EndsAt != nil {
		v.EndsAt = activity.EndsAt
	}
	if activity.SubscriptionDeadline != nil {
		v.SubscriptionDeadline = activity.SubscriptionDeadline
	}
	v.Published = activity.Published
	v.CanSubscribe = activity.CanSubscribe
	v.Price = activity.Price
	v.OrganizerID = activity.OrganizerID
	if activity.Organizer.ID != 0 {
		organizer := summarizeGroup(&activity.Organizer)
		v.Organizer = &organizer
	}

	v.QuestionTypes = form.Types
	v.QuestionDescriptions = form.Descriptions
	v.QuestionOptions = form.Options
	v.QuestionRequired = form.Required
	v.QuestionPrivacy = form.Private

	v.DescriptionHTML, err = RenderMarkdown(v.Description)
	return err
}

// FormColumns returns the packed form columns of an activity.
func FormColumns(a *model.Activity) codec.FormColumns {
	return codec.FormColumns{
		Types:        a.QuestionTypes,
		Descriptions: a.QuestionDescriptions,
		Options:      a.QuestionOptions,
		Required:     a.QuestionRequired,
		Privacy:      a.QuestionPrivacy,
	}
}
