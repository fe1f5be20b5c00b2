package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"members/internal/codec"
	"members/internal/model"
	"members/internal/permission"

	"github.com/shopspring/decimal"
)

func sampleQuestions() []QuestionRequest {
	return []QuestionRequest{
		{Type: codec.QuestionText, Description: "Dietary wishes", Private: true},
		{Type: codec.QuestionNumber, Description: "Guests", Required: true},
		{Type: codec.QuestionChoice, Description: "Menu", Options: []string{"Meat", "Fish", "Vegan"}, Required: true},
		{Type: codec.QuestionCheckbox, Description: "Extras", Options: []string{"Drinks", "Dessert"}},
	}
}

type activityFixture struct {
	*fixture
	organizer *model.User
	member    *model.User
	group     *model.Group
}

func newActivityFixture(t *testing.T) *activityFixture {
	t.Helper()
	f := newFixture(t)
	organizer := f.addUser(t, "org@example.com", "s3cret-pass", model.MemberRoleName)
	member := f.addUser(t, "mem@example.com", "s3cret-pass", model.MemberRoleName)
	group := f.addGroup(t, "Activity Committee", true, organizer)
	return &activityFixture{fixture: f, organizer: organizer, member: member, group: group}
}

func (af *activityFixture) create(t *testing.T, published bool, questions []QuestionRequest) uint {
	t.Helper()
	view, err := af.activities.CreateActivity(context.Background(), af.actor(t, af.organizer), CreateActivityRequest{
		Name:         "Summer dinner",
		Published:    published,
		CanSubscribe: true,
		Price:        decimal.RequireFromString("12.50"),
		OrganizerID:  af.group.ID,
		Questions:    questions,
	})
	if err != nil {
		t.Fatalf("create activity: %v", err)
	}
	return view.ID
}

func TestCreateActivityRequiresOrganizingGroup(t *testing.T) {
	af := newActivityFixture(t)
	_, err := af.activities.CreateActivity(context.Background(), af.actor(t, af.member), CreateActivityRequest{
		Name: "Unauthorized", OrganizerID: af.group.ID,
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for non-member, got %v", err)
	}

	_, err = af.activities.CreateActivity(context.Background(), af.anonymous(t), CreateActivityRequest{
		Name: "Unauthorized", OrganizerID: af.group.ID,
	})
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated for anonymous caller, got %v", err)
	}
}

func TestCreateActivityPacksForm(t *testing.T) {
	af := newActivityFixture(t)
	id := af.create(t, true, sampleQuestions())

	stored := af.store.activities[id]
	if stored.QuestionTypes != "text#,#number#,#choice#,#checkbox" {
		t.Fatalf("unexpected packed types %q", stored.QuestionTypes)
	}
	if stored.QuestionOptions != "#,##,#Meat#;#Fish#;#Vegan#,#Drinks#;#Dessert" {
		t.Fatalf("unexpected packed options %q", stored.QuestionOptions)
	}

	view, err := af.activities.GetActivity(context.Background(), af.anonymous(t), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(view.QuestionTypes) != 4 || view.QuestionOptions[2][1] != "Fish" || !view.QuestionPrivacy[0] {
		t.Fatalf("form did not round-trip: %+v", view)
	}
	if view.Organizer == nil || view.Organizer.ID != af.group.ID {
		t.Fatalf("organizer not projected: %+v", view.Organizer)
	}

	if len(af.events.events) != 1 || af.events.events[0].Type != EventActivityCreated {
		t.Fatalf("expected one created event, got %+v", af.events.events)
	}
}

func TestCreateActivityValidatesForm(t *testing.T) {
	af := newActivityFixture(t)
	cases := map[string][]QuestionRequest{
		"unknown type":        {{Type: "date", Description: "When"}},
		"missing description": {{Type: codec.QuestionText, Description: "  "}},
		"choice without opts": {{Type: codec.QuestionChoice, Description: "Pick"}},
		"text with options":   {{Type: codec.QuestionText, Description: "Say", Options: []string{"a"}}},
		"delimiter in option": {{Type: codec.QuestionChoice, Description: "Pick", Options: []string{"a#,#b"}}},
	}
	for name, questions := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := af.activities.CreateActivity(context.Background(), af.actor(t, af.organizer), CreateActivityRequest{
				Name: "Form", OrganizerID: af.group.ID, Questions: questions,
			})
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestUnpublishedActivityVisibility(t *testing.T) {
	af := newActivityFixture(t)
	ctx := context.Background()
	id := af.create(t, false, nil)

	if len(af.events.events) != 0 {
		t.Fatalf("unpublished activities must not be broadcast: %+v", af.events.events)
	}

	if _, err := af.activities.GetActivity(ctx, af.actor(t, af.organizer), id); err != nil {
		t.Fatalf("organizer should see own draft: %v", err)
	}
	if _, err := af.activities.GetActivity(ctx, af.actor(t, af.member), id); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for other member, got %v", err)
	}
	if _, err := af.activities.GetActivity(ctx, af.anonymous(t), id); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated for anonymous, got %v", err)
	}

	list, err := af.activities.ListActivities(ctx, af.actor(t, af.member), 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("member should not list the draft, got %d", len(list))
	}
	list, err = af.activities.ListActivities(ctx, af.actor(t, af.organizer), 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("organizer should list the draft, got %d", len(list))
	}
}

func TestGetMissingActivity(t *testing.T) {
	af := newActivityFixture(t)
	_, err := af.activities.GetActivity(context.Background(), af.anonymous(t), 9999)
	if !errors.Is(err, permission.ErrResourceNotFound) {
		t.Fatalf("expected resource not found, got %v", err)
	}
}

func TestSubscribeValidatesAnswers(t *testing.T) {
	af := newActivityFixture(t)
	ctx := context.Background()
	id := af.create(t, true, sampleQuestions())
	member := af.actor(t, af.member)

	bad := map[string][]string{
		"too few answers":      {"", "2"},
		"missing required":     {"", "", "Fish", ""},
		"not a number":         {"", "two", "Fish", ""},
		"unknown choice":       {"", "2", "Chicken", ""},
		"unknown checkbox opt": {"", "2", "Fish", "Drinks#;#Cake"},
	}
	for name, answers := range bad {
		t.Run(name, func(t *testing.T) {
			err := af.activities.Subscribe(ctx, member, id, SubscribeRequest{Answers: answers})
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	good := SubscribeRequest{Answers: []string{"no nuts", "2", "Fish", "Drinks#;#Dessert"}}
	if err := af.activities.Subscribe(ctx, member, id, good); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := af.activities.Subscribe(ctx, member, id, good); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict on second subscribe, got %v", err)
	}
	if got := af.store.subs[0].Answers; got != "no nuts#,#2#,#Fish#,#Drinks#;#Dessert" {
		t.Fatalf("unexpected packed answers %q", got)
	}
}

func TestSubscribeRequiresSessionAndOpenActivity(t *testing.T) {
	af := newActivityFixture(t)
	ctx := context.Background()
	id := af.create(t, true, nil)

	if err := af.activities.Subscribe(ctx, af.anonymous(t), id, SubscribeRequest{}); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}

	deadline := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	stored := af.store.activities[id]
	stored.SubscriptionDeadline = &deadline
	af.store.activities[id] = stored
	af.activities.now = func() time.Time { return deadline.Add(time.Minute) }

	if err := af.activities.Subscribe(ctx, af.actor(t, af.member), id, SubscribeRequest{}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict after deadline, got %v", err)
	}
}

func TestListSubscriptionsHidesPrivateAnswers(t *testing.T) {
	af := newActivityFixture(t)
	ctx := context.Background()
	id := af.create(t, true, sampleQuestions())

	answers := SubscribeRequest{Answers: []string{"no nuts", "2", "Fish", ""}}
	if err := af.activities.Subscribe(ctx, af.actor(t, af.member), id, answers); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	asMember, err := af.activities.ListSubscriptions(ctx, af.actor(t, af.member), id)
	if err != nil {
		t.Fatalf("list as member: %v", err)
	}
	if len(asMember) != 1 || asMember[0].Answers[0] != "" || asMember[0].Answers[2] != "Fish" {
		t.Fatalf("private answer leaked to member: %+v", asMember)
	}

	asOrganizer, err := af.activities.ListSubscriptions(ctx, af.actor(t, af.organizer), id)
	if err != nil {
		t.Fatalf("list as organizer: %v", err)
	}
	if asOrganizer[0].Answers[0] != "no nuts" {
		t.Fatalf("organizer should see private answers: %+v", asOrganizer)
	}
	if asOrganizer[0].User.ID != af.member.ID {
		t.Fatalf("unexpected subscriber %+v", asOrganizer[0].User)
	}
}

func TestUpdateActivityFormLockedBySubscriptions(t *testing.T) {
	af := newActivityFixture(t)
	ctx := context.Background()
	id := af.create(t, true, nil)
	organizer := af.actor(t, af.organizer)

	if err := af.activities.Subscribe(ctx, af.actor(t, af.member), id, SubscribeRequest{}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	questions := sampleQuestions()
	_, err := af.activities.UpdateActivity(ctx, organizer, id, UpdateActivityRequest{Questions: &questions})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	name := "Winter dinner"
	view, err := af.activities.UpdateActivity(ctx, organizer, id, UpdateActivityRequest{Name: &name})
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if view.Name != name {
		t.Fatalf("expected %q, got %q", name, view.Name)
	}
}

func TestUpdateActivityMovingOrganizerNeedsTargetGroup(t *testing.T) {
	af := newActivityFixture(t)
	ctx := context.Background()
	id := af.create(t, true, nil)
	other := af.addGroup(t, "Board", true)

	_, err := af.activities.UpdateActivity(ctx, af.actor(t, af.organizer), id, UpdateActivityRequest{OrganizerID: &other.ID})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestUnpublishBroadcastsRemoval(t *testing.T) {
	af := newActivityFixture(t)
	ctx := context.Background()
	id := af.create(t, true, nil)

	published := false
	if _, err := af.activities.UpdateActivity(ctx, af.actor(t, af.organizer), id, UpdateActivityRequest{Published: &published}); err != nil {
		t.Fatalf("update: %v", err)
	}
	last := af.events.events[len(af.events.events)-1]
	if last.Type != EventActivityDeleted {
		t.Fatalf("expected deleted event, got %s", last.Type)
	}
}

func TestDeleteActivity(t *testing.T) {
	af := newActivityFixture(t)
	ctx := context.Background()
	id := af.create(t, true, nil)

	if err := af.activities.DeleteActivity(ctx, af.actor(t, af.member), id); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	admin := af.addUser(t, "admin@example.com", "s3cret-pass", model.AdminRoleName)
	if err := af.activities.DeleteActivity(ctx, af.actor(t, admin), id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := af.store.activities[id]; ok {
		t.Fatal("activity still stored")
	}
}

func TestValidateAnswersAllowsEmptyOptional(t *testing.T) {
	form, err := buildForm(sampleQuestions())
	if err != nil {
		t.Fatalf("build form: %v", err)
	}
	if err := validateAnswers(form, []string{"", "3.5", "Vegan", ""}); err != nil {
		t.Fatalf("expected valid answers, got %v", err)
	}
}
