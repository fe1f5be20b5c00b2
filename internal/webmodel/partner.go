package webmodel

import (
	"members/internal/model"

	"github.com/shopspring/decimal"
)

type PartnerView struct {
	ID                uint            `json:"id"`
	Name              string          `json:"name"`
	Type              string          `json:"type"`
	Description       string          `json:"description"`
	Website           string          `json:"website"`
	LogoURL           string          `json:"logo_url"`
	SponsorshipAmount decimal.Decimal `json:"sponsorship_amount"`
	IsActive          bool            `json:"is_active"`
}

func (v *PartnerView) Copyable() []string {
	return []string{"id", "name", "type", "description", "website", "logo_url", "sponsorship_amount", "is_active"}
}

func (v *PartnerView) ProjectFrom(source any) error {
	partner, err := sourceAs[model.Partner](source)
	if err != nil {
		return err
	}
	v.ID = partner.ID
	v.Name = partner.Name
	v.Type = partner.Type
	patchString(&v.Description, partner.Description)
	patchString(&v.Website, partner.Website)
	patchString(&v.LogoURL, partner.LogoURL)
	v.SponsorshipAmount = partner.SponsorshipAmount
	v.IsActive = partner.IsActive
	return nil
}
