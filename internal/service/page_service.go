package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"members/internal/model"
	"members/internal/permission"
	"members/internal/repository"
	"members/internal/webmodel"
)

// --- DTOs ---

type CreatePageRequest struct {
	Slug      string  `json:"slug" binding:"required"`
	Title     string  `json:"title" binding:"required"`
	Content   *string `json:"content"`
	Published bool    `json:"published"`
}

type UpdatePageRequest struct {
	Slug      *string `json:"slug"`
	Title     *string `json:"title"`
	Content   *string `json:"content"`
	Published *bool   `json:"published"`
}

// --- Interface ---

type PageService interface {
	ListPages(ctx context.Context, actor permission.Actor) ([]webmodel.PageView, error)
	GetPage(ctx context.Context, actor permission.Actor, slug string) (*webmodel.PageView, error)
	CreatePage(ctx context.Context, actor permission.Actor, req CreatePageRequest) (*webmodel.PageView, error)
	UpdatePage(ctx context.Context, actor permission.Actor, id uint, req UpdatePageRequest) (*webmodel.PageView, error)
	DeletePage(ctx context.Context, actor permission.Actor, id uint) error
}

type pageService struct {
	pages     repository.PageRepository
	txManager repository.TransactionManager
	authz     Authorizer
	audit     AuditService
}

func NewPageService(pages repository.PageRepository, txManager repository.TransactionManager, authz Authorizer, audit AuditService) PageService {
	return &pageService{pages: pages, txManager: txManager, authz: authz, audit: audit}
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

func validateSlug(slug string) error {
	if len(slug) > 100 || !slugPattern.MatchString(slug) {
		return validationError("slug must be lowercase letters, digits and single dashes")
	}
	return nil
}

// --- Implementation ---

// ListPages returns published pages to PAGE_VIEW holders and every page to
// PAGE_MANAGE holders.
func (s *pageService) ListPages(ctx context.Context, actor permission.Actor) ([]webmodel.PageView, error) {
	if err := authorize(ctx, s.authz, actor, permission.Flag(model.PermPageView)); err != nil {
		return nil, err
	}
	manage := allowed(ctx, s.authz, actor, permission.Flag(model.PermPageManage))
	pages, err := s.pages.List(ctx, !manage)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pages: %w", err)
	}
	return webmodel.FromDBModels[webmodel.PageView](pages)
}

// GetPage hides unpublished pages from callers without PAGE_MANAGE.
func (s *pageService) GetPage(ctx context.Context, actor permission.Actor, slug string) (*webmodel.PageView, error) {
	if err := authorize(ctx, s.authz, actor, permission.Flag(model.PermPageView)); err != nil {
		return nil, err
	}
	page, err := s.pages.FindBySlug(ctx, slug)
	if err != nil {
		return nil, notFoundAs("page", err)
	}
	if !page.Published && !allowed(ctx, s.authz, actor, permission.Flag(model.PermPageManage)) {
		return nil, fmt.Errorf("%w: page", ErrNotFound)
	}
	return webmodel.FromDBModel[webmodel.PageView](page)
}

func (s *pageService) CreatePage(ctx context.Context, actor permission.Actor, req CreatePageRequest) (*webmodel.PageView, error) {
	if err := authorize(ctx, s.authz, actor, permission.Flag(model.PermPageManage)); err != nil {
		return nil, err
	}
	page := &model.Page{
		Slug:      strings.TrimSpace(req.Slug),
		Title:     strings.TrimSpace(req.Title),
		Content:   req.Content,
		Published: req.Published,
	}
	if err := validateSlug(page.Slug); err != nil {
		return nil, err
	}
	if page.Title == "" {
		return nil, validationError("title is required")
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.pages.Create(txCtx, page); err != nil {
			return conflictAs(fmt.Sprintf("slug %q is taken", page.Slug), err)
		}
		return s.audit.Record(txCtx, AuditEntry{
			UserID: actorID(actor), Action: model.ActionCreatePage, EntityType: "page", EntityID: page.ID,
			Details: map[string]any{"slug": page.Slug, "title": page.Title},
		})
	})
	if err != nil {
		return nil, err
	}
	return webmodel.FromDBModel[webmodel.PageView](page)
}

func (s *pageService) UpdatePage(ctx context.Context, actor permission.Actor, id uint, req UpdatePageRequest) (*webmodel.PageView, error) {
	if err := authorize(ctx, s.authz, actor, permission.Flag(model.PermPageManage)); err != nil {
		return nil, err
	}
	page, err := s.pages.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundAs("page", err)
	}

	if req.Slug != nil {
		slug := strings.TrimSpace(*req.Slug)
		if err := validateSlug(slug); err != nil {
			return nil, err
		}
		page.Slug = slug
	}
	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return nil, validationError("title cannot be empty")
		}
		page.Title = strings.TrimSpace(*req.Title)
	}
	if req.Content != nil {
		page.Content = req.Content
	}
	if req.Published != nil {
		page.Published = *req.Published
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.pages.Update(txCtx, page); err != nil {
			return conflictAs(fmt.Sprintf("slug %q is taken", page.Slug), err)
		}
		return s.audit.Record(txCtx, AuditEntry{
			UserID: actorID(actor), Action: model.ActionUpdatePage, EntityType: "page", EntityID: id,
			Details: map[string]any{"slug": page.Slug, "published": page.Published},
		})
	})
	if err != nil {
		return nil, err
	}
	return webmodel.FromDBModel[webmodel.PageView](page)
}

func (s *pageService) DeletePage(ctx context.Context, actor permission.Actor, id uint) error {
	if err := authorize(ctx, s.authz, actor, permission.Flag(model.PermPageManage)); err != nil {
		return err
	}
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.pages.Delete(txCtx, id); err != nil {
			return notFoundAs("page", err)
		}
		return s.audit.Record(txCtx, AuditEntry{
			UserID: actorID(actor), Action: model.ActionDeletePage, EntityType: "page", EntityID: id,
		})
	})
}
