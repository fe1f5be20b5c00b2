package webmodel

import (
	"time"

	"members/internal/model"
)

type UserView struct {
	ID          uint            `json:"id"`
	Email       string          `json:"email"`
	FirstName   string          `json:"first_name"`
	LastName    string          `json:"last_name"`
	Phone       string          `json:"phone"`
	Approved    bool            `json:"approved"`
	CreatedAt   time.Time       `json:"created_at"`
	DisplayName string          `json:"display_name"`
	CanOrganize bool            `json:"can_organize"`
	Role        *RoleView       `json:"role,omitempty"`
	Groups      []UserGroupView `json:"groups"`
}

// UserGroupView is one membership seen from the user side.
type UserGroupView struct {
	Group    GroupSummary `json:"group"`
	Function string       `json:"function"`
}

// UserSummary is the short form of a user nested inside other views.
type UserSummary struct {
	ID          uint   `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DisplayName string `json:"display_name"`
}

func (v *UserView) Copyable() []string {
	return []string{"id", "email", "first_name", "last_name", "phone", "approved", "created_at", "role", "groups"}
}

// ProjectFrom copies a *model.User. Role and Memberships.Group are projected
// when loaded.
func (v *UserView) ProjectFrom(source any) error {
	user, err := sourceAs[model.User](source)
	if err != nil {
		return err
	}
	v.ID = user.ID
	v.Email = user.Email
	v.FirstName = user.FirstName
	v.LastName = user.LastName
	patchString(&v.Phone, user.Phone)
	v.Approved = user.Approved
	v.CreatedAt = user.CreatedAt

	if user.Role.ID != 0 {
		var role RoleView
		if err := role.ProjectFrom(&user.Role); err != nil {
			return err
		}
		v.Role = &role
	}

	v.Groups = make([]UserGroupView, 0, len(user.Memberships))
	for i := range user.Memberships {
		m := &user.Memberships[i]
		if m.Group.ID == 0 {
			continue
		}
		v.Groups = append(v.Groups, UserGroupView{
			Group:    summarizeGroup(&m.Group),
			Function: m.Function,
		})
	}

	v.DisplayName = DisplayName(v.FirstName, v.LastName)
	v.CanOrganize = CanOrganize(user)
	return nil
}

// DisplayName joins first and last name, or returns whichever one is set.
func DisplayName(first, last string) string {
	switch {
	case first != "" && last != "":
		return first + " " + last
	case first != "":
		return first
	}
	return last
}

// CanOrganize reports whether the user's role manages activities or any of the
// loaded memberships is in an organizing group.
func CanOrganize(user *model.User) bool {
	if user.Role.Permissions.ActivityManage {
		return true
	}
	for _, m := range user.Memberships {
		if m.Group.CanOrganize {
			return true
		}
	}
	return false
}

func summarizeUser(user *model.User) UserSummary {
	return UserSummary{
		ID:          user.ID,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		DisplayName: DisplayName(user.FirstName, user.LastName),
	}
}
