package model

import (
	"time"
)

// User is a registered member of the association
type User struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	Email         string            `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"` // stored lower-cased
	FirstName     string            `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName      string            `gorm:"type:varchar(100);not null" json:"last_name"`
	Phone         *string           `gorm:"type:varchar(30)" json:"phone"`
	PasswordHash  []byte            `gorm:"type:bytea;not null" json:"-"`
	PasswordSalt  string            `gorm:"type:varchar(64);not null" json:"-"`
	Approved      bool              `gorm:"not null" json:"approved"`
	RoleID        uint              `gorm:"not null;index" json:"role_id"`
	Role          Role              `gorm:"foreignKey:RoleID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
	Memberships   []GroupMembership `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;" json:"-"`
	Subscriptions []Subscription    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;" json:"-"`
	CreatedAt     time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsMemberOf reports whether the user's loaded memberships include groupID.
func (u *User) IsMemberOf(groupID uint) bool {
	for _, m := range u.Memberships {
		if m.GroupID == groupID {
			return true
		}
	}
	return false
}

// Session maps an opaque token to a user until ExpiresAt
type Session struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	Token     string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	IPAddress string    `gorm:"type:varchar(64)" json:"ip_address"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Expired reports whether the session is no longer valid at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
