package model

import (
	"fmt"
	"time"
)

// AnonymousRoleName is the role every request without a session resolves to.
const AnonymousRoleName = "Not logged in"

// Built-in role names seeded at startup
const (
	MemberRoleName = "Member"
	AdminRoleName  = "Administrator"
)

// Capability names as they appear in scopes, requests and legacy dictionaries
const (
	PermUserViewAll                = "USER_VIEW_ALL"
	PermUserManage                 = "USER_MANAGE"
	PermChangeAllPasswords         = "CHANGE_ALL_PASSWORDS"
	PermRoleView                   = "ROLE_VIEW"
	PermRoleManage                 = "ROLE_MANAGE"
	PermRoleAssign                 = "ROLE_ASSIGN"
	PermGroupManage                = "GROUP_MANAGE"
	PermGroupOrganizeWithAll       = "GROUP_ORGANIZE_WITH_ALL"
	PermActivityViewPublished      = "ACTIVITY_VIEW_PUBLISHED"
	PermActivityViewAllUnpublished = "ACTIVITY_VIEW_ALL_UNPUBLISHED"
	PermActivityManage             = "ACTIVITY_MANAGE"
	PermPageView                   = "PAGE_VIEW"
	PermPageManage                 = "PAGE_MANAGE"
	PermPartnerManage              = "PARTNER_MANAGE"
	PermAuditView                  = "AUDIT_VIEW"
)

// PermissionNames lists every capability in display order.
var PermissionNames = []string{
	PermUserViewAll,
	PermUserManage,
	PermChangeAllPasswords,
	PermRoleView,
	PermRoleManage,
	PermRoleAssign,
	PermGroupManage,
	PermGroupOrganizeWithAll,
	PermActivityViewPublished,
	PermActivityViewAllUnpublished,
	PermActivityManage,
	PermPageView,
	PermPageManage,
	PermPartnerManage,
	PermAuditView,
}

// ErrUnknownPermission is returned for a capability name outside PermissionNames.
type ErrUnknownPermission struct {
	Name string
}

func (e ErrUnknownPermission) Error() string {
	return fmt.Sprintf("unknown permission %q", e.Name)
}

// Permissions holds one column per capability.
type Permissions struct {
	UserViewAll                bool `gorm:"not null" json:"-"`
	UserManage                 bool `gorm:"not null" json:"-"`
	ChangeAllPasswords         bool `gorm:"not null" json:"-"`
	RoleView                   bool `gorm:"not null" json:"-"`
	RoleManage                 bool `gorm:"not null" json:"-"`
	RoleAssign                 bool `gorm:"not null" json:"-"`
	GroupManage                bool `gorm:"not null" json:"-"`
	GroupOrganizeWithAll       bool `gorm:"not null" json:"-"`
	ActivityViewPublished      bool `gorm:"not null" json:"-"`
	ActivityViewAllUnpublished bool `gorm:"not null" json:"-"`
	ActivityManage             bool `gorm:"not null" json:"-"`
	PageView                   bool `gorm:"not null" json:"-"`
	PageManage                 bool `gorm:"not null" json:"-"`
	PartnerManage              bool `gorm:"not null" json:"-"`
	AuditView                  bool `gorm:"not null" json:"-"`
}

func (p *Permissions) field(name string) (*bool, error) {
	switch name {
	case PermUserViewAll:
		return &p.UserViewAll, nil
	case PermUserManage:
		return &p.UserManage, nil
	case PermChangeAllPasswords:
		return &p.ChangeAllPasswords, nil
	case PermRoleView:
		return &p.RoleView, nil
	case PermRoleManage:
		return &p.RoleManage, nil
	case PermRoleAssign:
		return &p.RoleAssign, nil
	case PermGroupManage:
		return &p.GroupManage, nil
	case PermGroupOrganizeWithAll:
		return &p.GroupOrganizeWithAll, nil
	case PermActivityViewPublished:
		return &p.ActivityViewPublished, nil
	case PermActivityViewAllUnpublished:
		return &p.ActivityViewAllUnpublished, nil
	case PermActivityManage:
		return &p.ActivityManage, nil
	case PermPageView:
		return &p.PageView, nil
	case PermPageManage:
		return &p.PageManage, nil
	case PermPartnerManage:
		return &p.PartnerManage, nil
	case PermAuditView:
		return &p.AuditView, nil
	}
	return nil, ErrUnknownPermission{Name: name}
}

// Flag returns the value of the named capability.
func (p Permissions) Flag(name string) (bool, error) {
	f, err := p.field(name)
	if err != nil {
		return false, err
	}
	return *f, nil
}

// SetFlag sets the named capability.
func (p *Permissions) SetFlag(name string, value bool) error {
	f, err := p.field(name)
	if err != nil {
		return err
	}
	*f = value
	return nil
}

// Map returns every capability keyed by name.
func (p Permissions) Map() map[string]bool {
	m := make(map[string]bool, len(PermissionNames))
	for _, name := range PermissionNames {
		v, _ := p.Flag(name)
		m[name] = v
	}
	return m
}

// AllPermissions returns a set with every capability granted.
func AllPermissions() Permissions {
	var p Permissions
	for _, name := range PermissionNames {
		_ = p.SetFlag(name, true)
	}
	return p
}

// Role is a named bundle of capabilities. Every user has exactly one.
type Role struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	Name        string      `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	IsSystem    bool        `gorm:"not null" json:"is_system"` // seeded roles cannot be deleted
	Permissions Permissions `gorm:"embedded" json:"-"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
