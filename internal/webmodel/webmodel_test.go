package webmodel

import (
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"members/internal/codec"
	"members/internal/model"

	"github.com/shopspring/decimal"
)

func ptr[T any](v T) *T { return &v }

func TestDisplayName(t *testing.T) {
	cases := []struct{ first, last, want string }{
		{"Ada", "Lovelace", "Ada Lovelace"},
		{"Ada", "", "Ada"},
		{"", "Lovelace", "Lovelace"},
		{"", "", ""},
	}
	for _, c := range cases {
		if got := DisplayName(c.first, c.last); got != c.want {
			t.Fatalf("DisplayName(%q, %q) = %q, want %q", c.first, c.last, got, c.want)
		}
	}
}

func TestUserProjection(t *testing.T) {
	user := &model.User{
		ID:           7,
		Email:        "ada@example.com",
		FirstName:    "Ada",
		LastName:     "Lovelace",
		PasswordHash: []byte("secret-hash"),
		PasswordSalt: "secret-salt",
		Approved:     true,
		RoleID:       2,
		Role:         model.Role{ID: 2, Name: model.MemberRoleName},
		Memberships: []model.GroupMembership{
			{UserID: 7, GroupID: 3, Function: "Treasurer", Group: model.Group{ID: 3, FullName: "Chess society", DisplayName: "Chess", CanOrganize: false}},
			{UserID: 7, GroupID: 4, Function: "Chair", Group: model.Group{ID: 4, FullName: "Board", DisplayName: "Board", CanOrganize: true}},
		},
	}

	view, err := FromDBModel[UserView](user)
	if err != nil {
		t.Fatalf("FromDBModel: %v", err)
	}
	if view.DisplayName != "Ada Lovelace" {
		t.Fatalf("unexpected display name %q", view.DisplayName)
	}
	if !view.CanOrganize {
		t.Fatalf("membership of an organizing group should set can_organize")
	}
	if view.Role == nil || view.Role.Name != model.MemberRoleName {
		t.Fatalf("expected nested role, got %+v", view.Role)
	}
	if len(view.Groups) != 2 || view.Groups[1].Function != "Chair" || view.Groups[1].Group.FullName != "Board" {
		t.Fatalf("unexpected groups %+v", view.Groups)
	}

	raw, err := json.Marshal(view)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(raw)
	for _, leaked := range []string{"secret-hash", "secret-salt", "password", "c2VjcmV0"} {
		if strings.Contains(body, leaked) {
			t.Fatalf("projection leaked %q: %s", leaked, body)
		}
	}
}

func TestUserProjectionSkipsUnloadedGroups(t *testing.T) {
	user := &model.User{
		ID:        7,
		FirstName: "Ada",
		Memberships: []model.GroupMembership{
			{UserID: 7, GroupID: 3, Function: "Treasurer"},
			{UserID: 7, GroupID: 4, Function: "Chair", Group: model.Group{ID: 4, FullName: "Board", DisplayName: "Board"}},
		},
	}
	view, err := FromDBModel[UserView](user)
	if err != nil {
		t.Fatalf("FromDBModel: %v", err)
	}
	if len(view.Groups) != 1 || view.Groups[0].Group.ID != 4 || view.Groups[0].Function != "Chair" {
		t.Fatalf("expected only the loaded group, got %+v", view.Groups)
	}
}

func TestUserCanOrganizeFromRole(t *testing.T) {
	user := &model.User{ID: 1, FirstName: "Grace"}
	user.Role = model.Role{ID: 9, Name: "Activities"}
	user.Role.Permissions.ActivityManage = true

	view, err := FromDBModel[UserView](user)
	if err != nil {
		t.Fatalf("FromDBModel: %v", err)
	}
	if !view.CanOrganize {
		t.Fatalf("ACTIVITY_MANAGE should set can_organize")
	}
	if view.DisplayName != "Grace" {
		t.Fatalf("unexpected display name %q", view.DisplayName)
	}

	user.Role.Permissions.ActivityManage = false
	view, _ = FromDBModel[UserView](user)
	if view.CanOrganize {
		t.Fatalf("expected can_organize to be false")
	}
}

func TestProjectionSkipsNilSourceValues(t *testing.T) {
	view := UserView{Phone: "+31 6 1234 5678"}
	if err := view.ProjectFrom(&model.User{ID: 1, FirstName: "Ada"}); err != nil {
		t.Fatalf("ProjectFrom: %v", err)
	}
	if view.Phone != "+31 6 1234 5678" {
		t.Fatalf("nil phone should leave the existing value, got %q", view.Phone)
	}

	if err := view.ProjectFrom(&model.User{ID: 1, Phone: ptr("")}); err != nil {
		t.Fatalf("ProjectFrom: %v", err)
	}
	if view.Phone != "" {
		t.Fatalf("a set phone should overwrite, got %q", view.Phone)
	}
}

func TestTypeMismatch(t *testing.T) {
	var user UserView
	if err := user.ProjectFrom(&model.Group{ID: 1}); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
	var nilUser *model.User
	if err := user.ProjectFrom(nilUser); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch for nil record, got %v", err)
	}
	if _, err := FromDBModel[ActivityView]("not an activity"); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
	if err := (&UserView{}).ProjectFrom(model.User{ID: 2}); err != nil {
		t.Fatalf("a record value should be accepted: %v", err)
	}
}

func TestGroupProjectionFlattensMembers(t *testing.T) {
	group := &model.Group{
		ID:          4,
		FullName:    "Board of the association",
		DisplayName: "Board",
		CanOrganize: true,
		Type:        model.GroupTypeBoard,
		Memberships: []model.GroupMembership{
			{UserID: 7, GroupID: 4, Function: "Chair", User: model.User{ID: 7, FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}},
			{UserID: 8, GroupID: 4, Function: "Secretary", User: model.User{ID: 8, FirstName: "Alan"}},
		},
	}
	view, err := FromDBModel[GroupView](group)
	if err != nil {
		t.Fatalf("FromDBModel: %v", err)
	}
	if view.Description != "" || view.Email != "" {
		t.Fatalf("nil optional fields should stay empty, got %+v", view)
	}
	if len(view.Members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(view.Members))
	}
	if view.Members[0].Function != "Chair" || view.Members[0].User.DisplayName != "Ada Lovelace" {
		t.Fatalf("unexpected member %+v", view.Members[0])
	}
	raw, _ := json.Marshal(view)
	if strings.Contains(string(raw), "ada@example.com") {
		t.Fatalf("member summaries must not carry email: %s", raw)
	}
}

func TestActivityProjection(t *testing.T) {
	cols, err := codec.EncodeForm(codec.Form{
		Types:        []string{codec.QuestionText, codec.QuestionChoice, codec.QuestionNumber, codec.QuestionCheckbox},
		Descriptions: []string{"Name on badge", "Diet", "Age", "Workshops"},
		Options:      [][]string{{}, {"vegan", "vegetarian", "none"}, {}, {"morning", "afternoon"}},
		Required:     []bool{true, true, false, false},
		Private:      []bool{false, true, true, false},
	})
	if err != nil {
		t.Fatalf("EncodeForm: %v", err)
	}

	starts := time.Date(2026, 11, 1, 19, 0, 0, 0, time.UTC)
	activity := &model.Activity{
		ID:                   12,
		Name:                 "Annual dinner",
		Description:          ptr("**Dress code**: smart casual"),
		StartsAt:             &starts,
		Published:            true,
		CanSubscribe:         true,
		Price:                decimal.RequireFromString("17.50"),
		OrganizerID:          4,
		Organizer:            model.Group{ID: 4, FullName: "Board", DisplayName: "Board", CanOrganize: true},
		QuestionTypes:        cols.Types,
		QuestionDescriptions: cols.Descriptions,
		QuestionOptions:      cols.Options,
		QuestionRequired:     cols.Required,
		QuestionPrivacy:      cols.Privacy,
	}

	view, err := FromDBModel[ActivityView](activity)
	if err != nil {
		t.Fatalf("FromDBModel: %v", err)
	}
	if len(view.QuestionTypes) != 4 || len(view.QuestionDescriptions) != 4 || len(view.QuestionOptions) != 4 ||
		len(view.QuestionRequired) != 4 || len(view.QuestionPrivacy) != 4 {
		t.Fatalf("form arrays are not aligned: %+v", view)
	}
	if view.QuestionDescriptions[2] != "Age" || !slices.Equal(view.QuestionOptions[1], []string{"vegan", "vegetarian", "none"}) {
		t.Fatalf("unexpected form %+v", view)
	}
	if !strings.Contains(view.DescriptionHTML, "<strong>Dress code</strong>") {
		t.Fatalf("unexpected description_html %q", view.DescriptionHTML)
	}
	if view.Organizer == nil || view.Organizer.ID != 4 {
		t.Fatalf("expected organizer summary, got %+v", view.Organizer)
	}
	if !view.Price.Equal(decimal.RequireFromString("17.5")) {
		t.Fatalf("unexpected price %s", view.Price)
	}
}

func TestActivityProjectionWithoutDescriptionOrForm(t *testing.T) {
	view, err := FromDBModel[ActivityView](&model.Activity{ID: 1, Name: "Drinks"})
	if err != nil {
		t.Fatalf("FromDBModel: %v", err)
	}
	if view.Description != "" || view.DescriptionHTML != "" {
		t.Fatalf("nil description should project to empty strings, got %q / %q", view.Description, view.DescriptionHTML)
	}
	if view.QuestionTypes == nil || len(view.QuestionTypes) != 0 {
		t.Fatalf("expected empty, non-nil question types, got %#v", view.QuestionTypes)
	}
}

func TestActivityProjectionRejectsMisalignedForm(t *testing.T) {
	activity := &model.Activity{
		ID:                   1,
		QuestionTypes:        "text#,#text",
		QuestionDescriptions: "only one",
		QuestionRequired:     "true#,#false",
		QuestionPrivacy:      "false#,#false",
		QuestionOptions:      "#,#",
	}
	if _, err := FromDBModel[ActivityView](activity); !errors.Is(err, codec.ErrDecoding) {
		t.Fatalf("expected ErrDecoding, got %v", err)
	}
}

func TestFromDBModels(t *testing.T) {
	roles := []model.Role{
		{ID: 1, Name: model.AnonymousRoleName, IsSystem: true},
		{ID: 3, Name: model.AdminRoleName, IsSystem: true, Permissions: model.AllPermissions()},
	}
	views, err := FromDBModels[RoleView](roles)
	if err != nil {
		t.Fatalf("FromDBModels: %v", err)
	}
	if len(views) != 2 || views[1].Name != model.AdminRoleName {
		t.Fatalf("unexpected views %+v", views)
	}
	if !views[1].Permissions[model.PermAuditView] || views[0].Permissions[model.PermAuditView] {
		t.Fatalf("unexpected permission maps %+v", views)
	}
	if len(views[0].Permissions) != len(model.PermissionNames) {
		t.Fatalf("expected every capability listed, got %d", len(views[0].Permissions))
	}

	empty, err := FromDBModels[PageView]([]model.Page{})
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty result, got %v err=%v", empty, err)
	}
}

func TestViewsOnlySerializeListedFields(t *testing.T) {
	derived := map[string]bool{"display_name": true, "can_organize": true, "description_html": true, "content_html": true}

	views := []Projection{
		mustProject(t, &UserView{}, &model.User{ID: 1}),
		mustProject(t, &GroupView{}, &model.Group{ID: 1}),
		mustProject(t, &ActivityView{}, &model.Activity{ID: 1, Organizer: model.Group{ID: 2}}),
		mustProject(t, &RoleView{}, &model.Role{ID: 1}),
		mustProject(t, &PageView{}, &model.Page{ID: 1}),
		mustProject(t, &PartnerView{}, &model.Partner{ID: 1}),
	}
	for _, v := range views {
		raw, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal %T: %v", v, err)
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			t.Fatalf("unmarshal %T: %v", v, err)
		}
		allowed := v.Copyable()
		for name := range fields {
			if !derived[name] && !slices.Contains(allowed, name) {
				t.Fatalf("%T serializes %q outside its copyable list", v, name)
			}
		}
	}
}

func mustProject(t *testing.T, v Projection, source any) Projection {
	t.Helper()
	if err := v.ProjectFrom(source); err != nil {
		t.Fatalf("ProjectFrom(%T): %v", source, err)
	}
	return v
}

func TestSubscriptionViewHidesPrivateAnswers(t *testing.T) {
	form := codec.Form{
		Types:        []string{codec.QuestionText, codec.QuestionText},
		Descriptions: []string{"Name", "Allergies"},
		Options:      [][]string{{}, {}},
		Required:     []bool{true, false},
		Private:      []bool{false, true},
	}
	sub := &model.Subscription{
		UserID:  7,
		Answers: "Ada#,#peanuts",
		User:    model.User{ID: 7, FirstName: "Ada", LastName: "Lovelace"},
	}

	public, err := NewSubscriptionView(sub, form, false)
	if err != nil {
		t.Fatalf("NewSubscriptionView: %v", err)
	}
	if !slices.Equal(public.Answers, []string{"Ada", ""}) {
		t.Fatalf("private answer leaked: %v", public.Answers)
	}

	full, _ := NewSubscriptionView(sub, form, true)
	if !slices.Equal(full.Answers, []string{"Ada", "peanuts"}) {
		t.Fatalf("unexpected answers %v", full.Answers)
	}
	if full.User.DisplayName != "Ada Lovelace" {
		t.Fatalf("unexpected user %+v", full.User)
	}
}

func TestRenderMarkdownOmitsRawHTML(t *testing.T) {
	html, err := RenderMarkdown("hello <script>alert(1)</script>")
	if err != nil {
		t.Fatalf("RenderMarkdown: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Fatalf("raw html should be omitted: %q", html)
	}
}
