package model

import (
	"time"
)

const (
	ActionRegisterUser   = "REGISTER_USER"
	ActionUpdateUser     = "UPDATE_USER"
	ActionApproveUser    = "APPROVE_USER"
	ActionAssignRole     = "ASSIGN_ROLE"
	ActionChangePassword = "CHANGE_PASSWORD"
	ActionDeleteUser     = "DELETE_USER"

	ActionCreateRole = "CREATE_ROLE"
	ActionUpdateRole = "UPDATE_ROLE"
	ActionDeleteRole = "DELETE_ROLE"
	ActionImportRole = "IMPORT_ROLE"

	ActionCreateGroup  = "CREATE_GROUP"
	ActionUpdateGroup  = "UPDATE_GROUP"
	ActionDeleteGroup  = "DELETE_GROUP"
	ActionAddMember    = "ADD_MEMBER"
	ActionUpdateMember = "UPDATE_MEMBER"
	ActionRemoveMember = "REMOVE_MEMBER"

	ActionCreateActivity = "CREATE_ACTIVITY"
	ActionUpdateActivity = "UPDATE_ACTIVITY"
	ActionDeleteActivity = "DELETE_ACTIVITY"
	ActionSubscribe      = "SUBSCRIBE"
	ActionUnsubscribe    = "UNSUBSCRIBE"

	ActionCreatePage    = "CREATE_PAGE"
	ActionUpdatePage    = "UPDATE_PAGE"
	ActionDeletePage    = "DELETE_PAGE"
	ActionCreatePartner = "CREATE_PARTNER"
	ActionUpdatePartner = "UPDATE_PARTNER"
	ActionDeletePartner = "DELETE_PARTNER"
)

// AuditLog tracks who changed what, and when. IDs are ULIDs so they sort by time.
type AuditLog struct {
	ID         string    `gorm:"type:char(26);primaryKey" json:"id"`
	UserID     *uint     `gorm:"index" json:"user_id"` // nil for anonymous actions such as registration
	User       *User     `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL;" json:"-"`
	Action     string    `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityType string    `gorm:"type:varchar(50);index" json:"entity_type"`
	EntityID   string    `gorm:"type:varchar(50);index" json:"entity_id"`
	Details    string    `gorm:"type:jsonb" json:"details"` // serialized JSON payload of the action
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}
