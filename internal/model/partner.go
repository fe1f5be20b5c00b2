package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PartnerType enum constants
const (
	PartnerTypeSponsor = "SPONSOR"
	PartnerTypePartner = "PARTNER"
)

// Partner represents a sponsor or partner organisation shown on the site
type Partner struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	Name              string          `gorm:"type:varchar(255);not null" json:"name"`
	Type              string          `gorm:"type:varchar(20);not null;index" json:"type"` // SPONSOR, PARTNER
	Description       *string         `gorm:"type:text" json:"description"`
	Website           *string         `gorm:"type:varchar(255)" json:"website"`
	LogoURL           *string         `gorm:"type:varchar(255)" json:"logo_url"`
	SponsorshipAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"sponsorship_amount"`
	IsActive          bool            `gorm:"default:true" json:"is_active"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	DeletedAt         gorm.DeletedAt  `gorm:"index" json:"-"`
}
