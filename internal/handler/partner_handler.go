package handler

import (
	"net/http"

	"members/internal/middleware"
	"members/internal/service"
	"members/pkg/pagination"
	"members/pkg/response"

	"github.com/gin-gonic/gin"
)

type PartnerHandler struct {
	partnerService service.PartnerService
}

func NewPartnerHandler(partnerService service.PartnerService) *PartnerHandler {
	return &PartnerHandler{partnerService: partnerService}
}

func (h *PartnerHandler) RegisterRoutes(router *gin.RouterGroup) {
	partners := router.Group("/partners")
	{
		partners.GET("", h.ListPartners)
		partners.GET("/:id", h.GetPartner)
		partners.POST("", middleware.RequireAuth(), h.CreatePartner)
		partners.PUT("/:id", middleware.RequireAuth(), h.UpdatePartner)
		partners.DELETE("/:id", middleware.RequireAuth(), h.DeletePartner)
	}
}

// ListPartners returns paginated partners with optional type/search filter
// @Summary      List partners
// @Tags         partners
// @Produce      json
// @Param        page              query     int     false  "Page number (default: 1)"
// @Param        limit             query     int     false  "Items per page (default: 20)"
// @Param        type              query     string  false  "Filter by type: SPONSOR, PARTNER"
// @Param        search            query     string  false  "Search by name or description"
// @Param        include_inactive  query     bool    false  "Also list inactive partners (PARTNER_MANAGE)"
// @Success      200               {object}  response.Response{data=response.PagedData}
// @Router       /api/partners [get]
func (h *PartnerHandler) ListPartners(c *gin.Context) {
	p := pagination.Parse(c)
	q := service.PartnerQuery{
		Type:            c.Query("type"),
		Search:          c.Query("search"),
		IncludeInactive: c.Query("include_inactive") == "true",
		Page:            p.Page,
		Limit:           p.Limit,
	}

	partners, total, err := h.partnerService.GetPartners(c.Request.Context(), middleware.ActorFrom(c), q)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, partners, p, total))
}

// GetPartner returns one partner
// @Summary      Get partner
// @Tags         partners
// @Produce      json
// @Param        id   path      int  true  "Partner ID"
// @Success      200  {object}  response.Response{data=webmodel.PartnerView}
// @Failure      404  {object}  response.Response
// @Router       /api/partners/{id} [get]
func (h *PartnerHandler) GetPartner(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	partner, err := h.partnerService.GetPartner(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, partner))
}

// CreatePartner creates a new partner
// @Summary      Create partner
// @Tags         partners
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreatePartnerRequest  true  "Partner payload"
// @Success      201  {object}  response.Response{data=webmodel.PartnerView}
// @Failure      400  {object}  response.Response
// @Router       /api/partners [post]
func (h *PartnerHandler) CreatePartner(c *gin.Context) {
	var req service.CreatePartnerRequest
	if !bindJSON(c, &req) {
		return
	}

	partner, err := h.partnerService.CreatePartner(c.Request.Context(), middleware.ActorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, partner))
}

// UpdatePartner updates an existing partner
// @Summary      Update partner
// @Tags         partners
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  int                           true  "Partner ID"
// @Param        payload  body  service.UpdatePartnerRequest  true  "Update payload"
// @Success      200  {object}  response.Response{data=webmodel.PartnerView}
// @Failure      400  {object}  response.Response
// @Router       /api/partners/{id} [put]
func (h *PartnerHandler) UpdatePartner(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req service.UpdatePartnerRequest
	if !bindJSON(c, &req) {
		return
	}

	partner, err := h.partnerService.UpdatePartner(c.Request.Context(), middleware.ActorFrom(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, partner))
}

// DeletePartner deletes a partner
// @Summary      Delete partner
// @Tags         partners
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  int  true  "Partner ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/partners/{id} [delete]
func (h *PartnerHandler) DeletePartner(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.partnerService.DeletePartner(c.Request.Context(), middleware.ActorFrom(c), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Partner deleted"}))
}
