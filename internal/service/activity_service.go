package service

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"members/internal/codec"
	"members/internal/model"
	"members/internal/permission"
	"members/internal/repository"
	"members/internal/webmodel"

	"github.com/shopspring/decimal"
)

// --- DTOs ---

type QuestionRequest struct {
	Type        string   `json:"type" binding:"required"`
	Description string   `json:"description" binding:"required"`
	Options     []string `json:"options"`
	Required    bool     `json:"required"`
	Private     bool     `json:"private"`
}

type CreateActivityRequest struct {
	Name                 string            `json:"name" binding:"required"`
	Description          *string           `json:"description"`
	Location             *string           `json:"location"`
	StartsAt             *time.Time        `json:"starts_at"`
	EndsAt               *time.Time        `json:"ends_at"`
	SubscriptionDeadline *time.Time        `json:"subscription_deadline"`
	Published            bool              `json:"published"`
	CanSubscribe         bool              `json:"can_subscribe"`
	Price                decimal.Decimal   `json:"price"`
	OrganizerID          uint              `json:"organizer_id" binding:"required"`
	Questions            []QuestionRequest `json:"questions"`
}

type UpdateActivityRequest struct {
	Name                 *string            `json:"name"`
	Description          *string            `json:"description"`
	Location             *string            `json:"location"`
	StartsAt             *time.Time         `json:"starts_at"`
	EndsAt               *time.Time         `json:"ends_at"`
	SubscriptionDeadline *time.Time         `json:"subscription_deadline"`
	Published            *bool              `json:"published"`
	CanSubscribe         *bool              `json:"can_subscribe"`
	Price                *decimal.Decimal   `json:"price"`
	OrganizerID          *uint              `json:"organizer_id"`
	Questions            *[]QuestionRequest `json:"questions"` // nil = keep the form, [] = remove it
}

// SubscribeRequest holds one answer per form question. Checkbox answers are
// the picked options joined with the codec option delimiter.
type SubscribeRequest struct {
	Answers []string `json:"answers"`
}

// --- Events ---

const (
	EventActivityCreated = "activity.created"
	EventActivityUpdated = "activity.updated"
	EventActivityDeleted = "activity.deleted"
)

// EventPublisher fans activity events out to live listeners.
type EventPublisher interface {
	Publish(eventType string, payload any)
}

// --- Interface ---

type ActivityService interface {
	ListActivities(ctx context.Context, actor permission.Actor, organizerID uint) ([]webmodel.ActivityView, error)
	GetActivity(ctx context.Context, actor permission.Actor, id uint) (*webmodel.ActivityView, error)
	CreateActivity(ctx context.Context, actor permission.Actor, req CreateActivityRequest) (*webmodel.ActivityView, error)
	UpdateActivity(ctx context.Context, actor permission.Actor, id uint, req UpdateActivityRequest) (*webmodel.ActivityView, error)
	DeleteActivity(ctx context.Context, actor permission.Actor, id uint) error
	Subscribe(ctx context.Context, actor permission.Actor, id uint, req SubscribeRequest) error
	Unsubscribe(ctx context.Context, actor permission.Actor, id uint) error
	ListSubscriptions(ctx context.Context, actor permission.Actor, id uint) ([]webmodel.SubscriptionView, error)
}

type activityService struct {
	activities repository.ActivityRepository
	txManager  repository.TransactionManager
	authz      Authorizer
	audit      AuditService
	events     EventPublisher
	now        func() time.Time
}

func NewActivityService(
	activities repository.ActivityRepository,
	txManager repository.TransactionManager,
	authz Authorizer,
	audit AuditService,
	events EventPublisher,
) ActivityService {
	return &activityService{
		activities: activities,
		txManager:  txManager,
		authz:      authz,
		audit:      audit,
		events:     events,
		now:        time.Now,
	}
}

// --- Implementation ---

// ListActivities returns the activities the actor may view, optionally those
// of one organizer only.
func (s *activityService) ListActivities(ctx context.Context, actor permission.Actor, organizerID uint) ([]webmodel.ActivityView, error) {
	if actor.Role == nil {
		return nil, fmt.Errorf("%w: actor has no role", permission.ErrResolution)
	}
	filter := repository.ActivityFilter{
		OrganizerID:   organizerID,
		PublishedOnly: !actor.Authenticated,
	}
	activities, err := s.activities.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch activities: %w", err)
	}

	visible := make([]model.Activity, 0, len(activities))
	for i := range activities {
		if permission.ActivityVisible(actor, &activities[i]) {
			visible = append(visible, activities[i])
		}
	}
	return webmodel.FromDBModels[webmodel.ActivityView](visible)
}

func (s *activityService) GetActivity(ctx context.Context, actor permission.Actor, id uint) (*webmodel.ActivityView, error) {
	if err := authorize(ctx, s.authz, actor, permission.On(permission.ScopeActivityView, id)); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

func (s *activityService) load(ctx context.Context, id uint) (*webmodel.ActivityView, error) {
	activity, err := s.activities.FindWithOrganizer(ctx, id)
	if err != nil {
		return nil, notFoundAs("activity", err)
	}
	return webmodel.FromDBModel[webmodel.ActivityView](activity)
}

func (s *activityService) CreateActivity(ctx context.Context, actor permission.Actor, req CreateActivityRequest) (*webmodel.ActivityView, error) {
	if err := authorize(ctx, s.authz, actor, permission.On(permission.ScopeGroupOrganize, req.OrganizerID)); err != nil {
		return nil, err
	}

	activity := &model.Activity{
		Name:                 strings.TrimSpace(req.Name),
		Description:          optional(req.Description),
		Location:             optional(req.Location),
		StartsAt:             req.StartsAt,
		EndsAt:               req.EndsAt,
		SubscriptionDeadline: req.SubscriptionDeadline,
		Published:            req.Published,
		CanSubscribe:         req.CanSubscribe,
		Price:                req.Price,
		OrganizerID:          req.OrganizerID,
	}
	if err := validateActivity(activity); err != nil {
		return nil, err
	}
	if err := setForm(activity, req.Questions); err != nil {
		return nil, err
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.activities.Create(txCtx, activity); err != nil {
			return err
		}
		return s.audit.Record(txCtx, AuditEntry{
			UserID: actorID(actor), Action: model.ActionCreateActivity, EntityType: "activity", EntityID: activity.ID,
			Details: map[string]any{"name": activity.Name, "organizer_id": activity.OrganizerID},
		})
	})
	if err != nil {
		return nil, err
	}

	view, err := s.load(ctx, activity.ID)
	if err != nil {
		return nil, err
	}
	if view.Published {
		s.events.Publish(EventActivityCreated, view)
	}
	return view, nil
}

func (s *activityService) UpdateActivity(ctx context.Context, actor permission.Actor, id uint, req UpdateActivityRequest) (*webmodel.ActivityView, error) {
	if err := authorize(ctx, s.authz, actor, permission.On(permission.ScopeActivityEdit, id)); err != nil {
		return nil, err
	}
	activity, err := s.activities.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundAs("activity", err)
	}
	wasPublished := activity.Published

	if req.OrganizerID != nil && *req.OrganizerID != activity.OrganizerID {
		if err := authorize(ctx, s.authz, actor, permission.On(permission.ScopeGroupOrganize, *req.OrganizerID)); err != nil {
			return nil, err
		}
		activity.OrganizerID = *req.OrganizerID
	}
	if req.Name != nil {
		activity.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		activity.Description = optional(req.Description)
	}
	if req.Location != nil {
		activity.Location = optional(req.Location)
	}
	if req.StartsAt != nil {
		activity.StartsAt = req.StartsAt
	}
	if req.EndsAt != nil {
		activity.EndsAt = req.EndsAt
	}
	if req.SubscriptionDeadline != nil {
		activity.SubscriptionDeadline = req.SubscriptionDeadline
	}
	if req.Published != nil {
		activity.Published = *req.Published
	}
	if req.CanSubscribe != nil {
		activity.CanSubscribe = *req.CanSubscribe
	}
	if req.Price != nil {
		activity.Price = *req.Price
	}
	if err := validateActivity(activity); err != nil {
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if req.Questions != nil {
			subs, err := s.activities.ListSubscriptions(txCtx, id)
			if err != nil {
				return err
			}
			if len(subs) > 0 {
				return fmt.Errorf("%w: the form cannot change once members have subscribed", ErrConflict)
			}
			if err := setForm(activity, *req.Questions); err != nil {
				return err
			}
		}
		if err := s.activities.Update(txCtx, activity); err != nil {
			return err
		}
		return s.audit.Record(txCtx, AuditEntry{
			UserID: actorID(actor), Action: model.ActionUpdateActivity, EntityType: "activity", EntityID: id,
			Details: req,
		})
	})
	if err != nil {
		return nil, err
	}

	view, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case view.Published:
		s.events.Publish(EventActivityUpdated, view)
	case wasPublished:
		s.events.Publish(EventActivityDeleted, map[string]uint{"id": id})
	}
	return view, nil
}

func (s *activityService) DeleteActivity(ctx context.Context, actor permission.Actor, id uint) error {
	if err := authorize(ctx, s.authz, actor, permission.On(permission.ScopeActivityEdit, id)); err != nil {
		return err
	}
	activity, err := s.activities.FindByID(ctx, id)
	if err != nil {
		return notFoundAs("activity", err)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.activities.Delete(txCtx, id); err != nil {
			return notFoundAs("activity", err)
		}
		return s.audit.Record(txCtx, AuditEntry{
			UserID: actorID(actor), Action: model.ActionDeleteActivity, EntityType: "activity", EntityID: id,
			Details: map[string]any{"name": activity.Name},
		})
	})
	if err != nil {
		return err
	}
	if activity.Published {
		s.events.Publish(EventActivityDeleted, map[string]uint{"id": id})
	}
	return nil
}

// Subscribe registers the actor for the activity after checking the answers
// against its form.
func (s *activityService) Subscribe(ctx context.Context, actor permission.Actor, id uint, req SubscribeRequest) error {
	if !actor.Authenticated {
		return ErrUnauthenticated
	}
	if err := authorize(ctx, s.authz, actor, permission.On(permission.ScopeActivityView, id)); err != nil {
		return err
	}
	activity, err := s.activities.FindByID(ctx, id)
	if err != nil {
		return notFoundAs("activity", err)
	}
	if !activity.SubscriptionOpen(s.now()) {
		return fmt.Errorf("%w: subscriptions for this activity are closed", ErrConflict)
	}

	form, err := codec.DecodeForm(webmodel.FormColumns(activity))
	if err != nil {
		return fmt.Errorf("activity %d form: %w", id, err)
	}
	answers := req.Answers
	if answers == nil {
		answers = []string{}
	}
	if err := validateAnswers(form, answers); err != nil {
		return err
	}
	packed, err := codec.EncodeStringListN(answers)
	if err != nil {
		return validationError("answers: %v", err)
	}

	sub := &model.Subscription{UserID: actor.UserID(), ActivityID: id, Answers: packed}
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.activities.CreateSubscription(txCtx, sub); err != nil {
			return conflictAs("already subscribed", err)
		}
		return s.audit.Record(txCtx, AuditEntry{
			UserID: actorID(actor), Action: model.ActionSubscribe, EntityType: "activity", EntityID: id,
		})
	})
}

// Unsubscribe is allowed while the activity still accepts subscriptions.
func (s *activityService) Unsubscribe(ctx context.Context, actor permission.Actor, id uint) error {
	if !actor.Authenticated {
		return ErrUnauthenticated
	}
	if err := authorize(ctx, s.authz, actor, permission.On(permission.ScopeActivityView, id)); err != nil {
		return err
	}
	activity, err := s.activities.FindByID(ctx, id)
	if err != nil {
		return notFoundAs("activity", err)
	}
	if !activity.SubscriptionOpen(s.now()) {
		return fmt.Errorf("%w: subscriptions for this activity are closed", ErrConflict)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.activities.DeleteSubscription(txCtx, id, actor.UserID()); err != nil {
			return notFoundAs("subscription", err)
		}
		return s.audit.Record(txCtx, AuditEntry{
			UserID: actorID(actor), Action: model.ActionUnsubscribe, EntityType: "activity", EntityID: id,
		})
	})
}

// ListSubscriptions shows private answers only to callers who may edit the activity.
func (s *activityService) ListSubscriptions(ctx context.Context, actor permission.Actor, id uint) ([]webmodel.SubscriptionView, error) {
	if err := authorize(ctx, s.authz, actor, permission.On(permission.ScopeActivityView, id)); err != nil {
		return nil, err
	}
	activity, err := s.activities.FindWithOrganizer(ctx, id)
	if err != nil {
		return nil, notFoundAs("activity", err)
	}
	form, err := codec.DecodeForm(webmodel.FormColumns(activity))
	if err != nil {
		return nil, fmt.Errorf("activity %d form: %w", id, err)
	}
	reveal := permission.ActivityEditable(actor, activity)

	subs, err := s.activities.ListSubscriptions(ctx, id)
	if err != nil {
		return nil, err
	}
	views := make([]webmodel.SubscriptionView, 0, len(subs))
	for i := range subs {
		view, err := webmodel.NewSubscriptionView(&subs[i], form, reveal)
		if err != nil {
			return nil, fmt.Errorf("subscription of user %d: %w", subs[i].UserID, err)
		}
		views = append(views, view)
	}
	return views, nil
}

// --- Helpers ---

func validateActivity(a *model.Activity) error {
	if a.Name == "" {
		return validationError("name is required")
	}
	if a.StartsAt != nil && a.EndsAt != nil && a.EndsAt.Before(*a.StartsAt) {
		return validationError("ends_at must not be before starts_at")
	}
	if a.Price.IsNegative() {
		return validationError("price must not be negative")
	}
	return nil
}

var questionTypes = map[string]bool{
	codec.QuestionText:     true,
	codec.QuestionNumber:   true,
	codec.QuestionChoice:   true,
	codec.QuestionCheckbox: true,
}

// buildForm checks the question definitions and collects them into a form.
func buildForm(questions []QuestionRequest) (codec.Form, error) {
	form := codec.EmptyForm()
	for i, q := range questions {
		if !questionTypes[q.Type] {
			return codec.Form{}, validationError("question %d: unknown type %q", i+1, q.Type)
		}
		if strings.TrimSpace(q.Description) == "" {
			return codec.Form{}, validationError("question %d: description is required", i+1)
		}
		options := q.Options
		if options == nil {
			options = []string{}
		}
		choice := q.Type == codec.QuestionChoice || q.Type == codec.QuestionCheckbox
		if choice && len(options) == 0 {
			return codec.Form{}, validationError("question %d: %s questions need at least one option", i+1, q.Type)
		}
		if !choice && len(options) > 0 {
			return codec.Form{}, validationError("question %d: %s questions take no options", i+1, q.Type)
		}
		for _, opt := range options {
			if opt == "" {
				return codec.Form{}, validationError("question %d: options cannot be empty", i+1)
			}
		}
		form.Types = append(form.Types, q.Type)
		form.Descriptions = append(form.Descriptions, strings.TrimSpace(q.Description))
		form.Options = append(form.Options, options)
		form.Required = append(form.Required, q.Required)
		form.Private = append(form.Private, q.Private)
	}
	return form, nil
}

func setForm(a *model.Activity, questions []QuestionRequest) error {
	form, err := buildForm(questions)
	if err != nil {
		return err
	}
	cols, err := codec.EncodeForm(form)
	if err != nil {
		return validationError("form: %v", err)
	}
	a.QuestionTypes = cols.Types
	a.QuestionDescriptions = cols.Descriptions
	a.QuestionOptions = cols.Options
	a.QuestionRequired = cols.Required
	a.QuestionPrivacy = cols.Privacy
	return nil
}

// validateAnswers checks one answer per question. Empty answers are allowed
// for optional questions of every type.
func validateAnswers(form codec.Form, answers []string) error {
	if len(answers) != form.Len() {
		return validationError("expected %d answers, got %d", form.Len(), len(answers))
	}
	for i, answer := range answers {
		if answer == "" {
			if form.Required[i] {
				return validationError("question %d is required", i+1)
			}
			continue
		}
		switch form.Types[i] {
		case codec.QuestionNumber:
			if _, err := strconv.ParseFloat(strings.TrimSpace(answer), 64); err != nil {
				return validationError("question %d: %q is not a number", i+1, answer)
			}
		case codec.QuestionChoice:
			if !slices.Contains(form.Options[i], answer) {
				return validationError("question %d: %q is not an option", i+1, answer)
			}
		case codec.QuestionCheckbox:
			for _, picked := range codec.DecodeSelections(answer) {
				if !slices.Contains(form.Options[i], picked) {
					return validationError("question %d: %q is not an option", i+1, picked)
				}
			}
		}
	}
	return nil
}
