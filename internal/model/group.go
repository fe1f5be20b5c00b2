package model

import "time"

// GroupType enum constants
const (
	GroupTypeBoard     = "BOARD"
	GroupTypeCommittee = "COMMITTEE"
	GroupTypeSociety   = "SOCIETY"
	GroupTypeWorkgroup = "WORKGROUP"
	GroupTypeOther     = "OTHER"
)

// Group is a committee, board or other body of the association
type Group struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	FullName    string            `gorm:"type:varchar(255);uniqueIndex;not null" json:"full_name"`
	DisplayName string            `gorm:"type:varchar(100);not null" json:"display_name"`
	Description *string           `gorm:"type:text" json:"description"`
	Email       *string           `gorm:"type:varchar(255)" json:"email"`
	CanOrganize bool              `gorm:"not null" json:"can_organize"`
	Type        string            `gorm:"type:varchar(20);not null;index" json:"type"`
	Memberships []GroupMembership `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE;" json:"-"`
	Activities  []Activity        `gorm:"foreignKey:OrganizerID;constraint:OnDelete:RESTRICT;" json:"-"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// HasMember reports whether the loaded memberships include userID.
func (g *Group) HasMember(userID uint) bool {
	for _, m := range g.Memberships {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// GroupMembership is the join row between a user and a group
type GroupMembership struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_membership_user_group" json:"user_id"`
	GroupID   uint      `gorm:"not null;uniqueIndex:idx_membership_user_group;index" json:"group_id"`
	Function  string    `gorm:"type:varchar(100);not null" json:"function"` // e.g. "Chair", "Treasurer"
	User      User      `gorm:"foreignKey:UserID" json:"-"`
	Group     Group     `gorm:"foreignKey:GroupID" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
