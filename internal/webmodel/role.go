package webmodel

import "members/internal/model"

type RoleView struct {
	ID          uint            `json:"id"`
	Name        string          `json:"name"`
	IsSystem    bool            `json:"is_system"`
	Permissions map[string]bool `json:"permissions"`
}

func (v *RoleView) Copyable() []string {
	return []string{"id", "name", "is_system", "permissions"}
}

func (v *RoleView) ProjectFrom(source any) error {
	role, err := sourceAs[model.Role](source)
	if err != nil {
		return err
	}
	v.ID = role.ID
	v.Name = role.Name
	v.IsSystem = role.IsSystem
	v.Permissions = role.Permissions.Map()
	return nil
}
