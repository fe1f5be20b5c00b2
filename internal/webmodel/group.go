package webmodel

import "members/internal/model"

type GroupView struct {
	ID          uint              `json:"id"`
	FullName    string            `json:"full_name"`
	DisplayName string            `json:"display_name"`
	Description string            `json:"description"`
	Email       string            `json:"email"`
	CanOrganize bool              `json:"can_organize"`
	Type        string            `json:"type"`
	Members     []GroupMemberView `json:"members"`
}

// GroupMemberView is one membership seen from the group side.
type GroupMemberView struct {
	User     UserSummary `json:"user"`
	Function string      `json:"function"`
}

// GroupSummary is the short form of a group nested inside other views.
type GroupSummary struct {
	ID          uint   `json:"id"`
	FullName    string `json:"full_name"`
	DisplayName string `json:"display_name"`
	Type        string `json:"type"`
	CanOrganize bool   `json:"can_organize"`
}

func (v *GroupView) Copyable() []string {
	return []string{"id", "full_name", "display_name", "description", "email", "can_organize", "type", "members"}
}

// ProjectFrom copies a *model.Group. Members are listed when Memberships.User
// is loaded.
func (v *GroupView) ProjectFrom(source any) error {
	group, err := sourceAs[model.Group](source)
	if err != nil {
		return err
	}
	v.ID = group.ID
	v.FullName = group.FullName
	v.DisplayName = group.DisplayName
	patchString(&v.Description, group.Description)
	patchString(&v.Email, group.Email)
	v.CanOrganize = group.CanOrganize
	v.Type = group.Type

	v.Members = make([]GroupMemberView, 0, len(group.Memberships))
	for i := range group.Memberships {
		m := &group.Memberships[i]
		if m.User.ID == 0 {
			continue
		}
		v.Members = append(v.Members, GroupMemberView{
			User:     summarizeUser(&m.User),
			Function: m.Function,
		})
	}
	return nil
}

func summarizeGroup(group *model.Group) GroupSummary {
	return GroupSummary{
		ID:          group.ID,
		FullName:    group.FullName,
		DisplayName: group.DisplayName,
		Type:        group.Type,
		CanOrganize: group.CanOrganize,
	}
}
