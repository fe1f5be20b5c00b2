package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"members/internal/model"
	"members/internal/permission"
	"members/internal/repository"
	"members/internal/webmodel"

	"github.com/shopspring/decimal"
)

// --- Partner DTOs ---

type CreatePartnerRequest struct {
	Name              string          `json:"name" binding:"required"`
	Type              string          `json:"type" binding:"required"`
	Description       *string         `json:"description"`
	Website           *string         `json:"website"`
	LogoURL           *string         `json:"logo_url"`
	SponsorshipAmount decimal.Decimal `json:"sponsorship_amount"`
}

type UpdatePartnerRequest struct {
	Name              *string          `json:"name"`
	Type              *string          `json:"type"`
	Description       *string          `json:"description"`
	Website           *string          `json:"website"`
	LogoURL           *string          `json:"logo_url"`
	SponsorshipAmount *decimal.Decimal `json:"sponsorship_amount"`
	IsActive          *bool            `json:"is_active"`
}

// PartnerQuery selects partners for listing. Inactive partners are only
// returned to PARTNER_MANAGE holders who ask for them.
type PartnerQuery struct {
	Type            string
	Search          string
	IncludeInactive bool
	Page            int
	Limit           int
}

// --- Interface ---

type PartnerService interface {
	GetPartners(ctx context.Context, actor permission.Actor, q PartnerQuery) ([]webmodel.PartnerView, int64, error)
	GetPartner(ctx context.Context, actor permission.Actor, id uint) (*webmodel.PartnerView, error)
	CreatePartner(ctx context.Context, actor permission.Actor, req CreatePartnerRequest) (*webmodel.PartnerView, error)
	UpdatePartner(ctx context.Context, actor permission.Actor, id uint, req UpdatePartnerRequest) (*webmodel.PartnerView, error)
	DeletePartner(ctx context.Context, actor permission.Actor, id uint) error
}

// --- Implementation ---

type partnerService struct {
	partnerRepo repository.PartnerRepository
	txManager   repository.TransactionManager
	authz       Authorizer
	audit       AuditService
}

func NewPartnerService(partnerRepo repository.PartnerRepository, txManager repository.TransactionManager, authz Authorizer, audit AuditService) PartnerService {
	return &partnerService{partnerRepo: partnerRepo, txManager: txManager, authz: authz, audit: audit}
}

// --- Validation helpers ---

var validPartnerTypes = map[string]bool{
	model.PartnerTypeSponsor: true,
	model.PartnerTypePartner: true,
}

func validatePartnerType(t string) error {
	if !validPartnerTypes[t] {
		return validationError("type must be one of: SPONSOR, PARTNER")
	}
	return nil
}

func validateLink(field string, link *string) error {
	if link == nil {
		return nil
	}
	u, err := url.Parse(*link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return validationError("%s must be an http or https URL", field)
	}
	return nil
}

func validateAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return validationError("sponsorship_amount must not be negative")
	}
	return nil
}

// --- CRUD ---

func (s *partnerService) GetPartners(ctx context.Context, actor permission.Actor, q PartnerQuery) ([]webmodel.PartnerView, int64, error) {
	if q.Type != "" {
		if err := validatePartnerType(q.Type); err != nil {
			return nil, 0, err
		}
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = 20
	}
	activeOnly := true
	if q.IncludeInactive {
		if err := authorize(ctx, s.authz, actor, permission.Flag(model.PermPartnerManage)); err != nil {
			return nil, 0, err
		}
		activeOnly = false
	}

	partners, total, err := s.partnerRepo.List(ctx, repository.PartnerFilter{
		Type:       q.Type,
		Search:     strings.TrimSpace(q.Search),
		ActiveOnly: activeOnly,
	}, q.Page, q.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch partners: %w", err)
	}

	res, err := webmodel.FromDBModels[webmodel.PartnerView](partners)
	if err != nil {
		return nil, 0, err
	}
	return res, total, nil
}

func (s *partnerService) GetPartner(ctx context.Context, actor permission.Actor, id uint) (*webmodel.PartnerView, error) {
	partner, err := s.partnerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundAs("partner", err)
	}
	if !partner.IsActive && !allowed(ctx, s.authz, actor, permission.Flag(model.PermPartnerManage)) {
		return nil, fmt.Errorf("%w: partner", ErrNotFound)
	}
	return webmodel.FromDBModel[webmodel.PartnerView](partner)
}

func (s *partnerService) CreatePartner(ctx context.Context, actor permission.Actor, req CreatePartnerRequest) (*webmodel.PartnerView, error) {
	if err := authorize(ctx, s.authz, actor, permission.Flag(model.PermPartnerManage)); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, validationError("name is required")
	}
	if err := validatePartnerType(req.Type); err != nil {
		return nil, err
	}
	website, logo := optional(req.Website), optional(req.LogoURL)
	if err := validateLink("website", website); err != nil {
		return nil, err
	}
	if err := validateLink("logo_url", logo); err != nil {
		return nil, err
	}
	if err := validateAmount(req.SponsorshipAmount); err != nil {
		return nil, err
	}

	partner := &model.Partner{
		Name:              strings.TrimSpace(req.Name),
		Type:              req.Type,
		Description:       optional(req.Description),
		Website:           website,
		LogoURL:           logo,
		SponsorshipAmount: req.SponsorshipAmount,
		IsActive:          true,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.partnerRepo.Create(txCtx, partner); err != nil {
			return fmt.Errorf("failed to create partner: %w", err)
		}
		return s.audit.Record(txCtx, AuditEntry{
			UserID: actorID(actor), Action: model.ActionCreatePartner, EntityType: "partner", EntityID: partner.ID,
			Details: req,
		})
	})
	if err != nil {
		return nil, err
	}
	return webmodel.FromDBModel[webmodel.PartnerView](partner)
}

func (s *partnerService) UpdatePartner(ctx context.Context, actor permission.Actor, id uint, req UpdatePartnerRequest) (*webmodel.PartnerView, error) {
	if err := authorize(ctx, s.authz, actor, permission.Flag(model.PermPartnerManage)); err != nil {
		return nil, err
	}
	partner, err := s.partnerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundAs("partner", err)
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, validationError("name cannot be empty")
		}
		partner.Name = strings.TrimSpace(*req.Name)
	}
	if req.Type != nil {
		if err := validatePartnerType(*req.Type); err != nil {
			return nil, err
		}
		partner.Type = *req.Type
	}
	if req.Description != nil {
		partner.Description = optional(req.Description)
	}
	if req.Website != nil {
		partner.Website = optional(req.Website)
		if err := validateLink("website", partner.Website); err != nil {
			return nil, err
		}
	}
	if req.LogoURL != nil {
		partner.LogoURL = optional(req.LogoURL)
		if err := validateLink("logo_url", partner.LogoURL); err != nil {
			return nil, err
		}
	}
	if req.SponsorshipAmount != nil {
		if err := validateAmount(*req.SponsorshipAmount); err != nil {
			return nil, err
		}
		partner.SponsorshipAmount = *req.SponsorshipAmount
	}
	if req.IsActive != nil {
		partner.IsActive = *req.IsActive
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.partnerRepo.Update(txCtx, partner); err != nil {
			return fmt.Errorf("failed to update partner: %w", err)
		}
		return s.audit.Record(txCtx, AuditEntry{
			UserID: actorID(actor), Action: model.ActionUpdatePartner, EntityType: "partner", EntityID: id,
			Details: req,
		})
	})
	if err != nil {
		return nil, err
	}
	return webmodel.FromDBModel[webmodel.PartnerView](partner)
}

func (s *partnerService) DeletePartner(ctx context.Context, actor permission.Actor, id uint) error {
	if err := authorize(ctx, s.authz, actor, permission.Flag(model.PermPartnerManage)); err != nil {
		return err
	}
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.partnerRepo.Delete(txCtx, id); err != nil {
			return notFoundAs("partner", err)
		}
		return s.audit.Record(txCtx, AuditEntry{
			UserID: actorID(actor), Action: model.ActionDeletePartner, EntityType: "partner", EntityID: id,
		})
	})
}
