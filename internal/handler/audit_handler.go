package handler

import (
	"net/http"
	"strconv"

	"members/internal/middleware"
	"members/internal/repository"
	"members/internal/service"
	"members/pkg/pagination"
	"members/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/audit-logs")
	group.Use(middleware.RequireAuth())
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs retrieves paginated audit records, newest first
// @Summary      Get audit logs
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Number of items per page (default 20)"
// @Param        action       query     string  false  "Filter by action"
// @Param        entity_type  query     string  false  "Filter by entity type"
// @Param        user_id      query     int     false  "Filter by acting user"
// @Success      200          {object}  response.Response{data=response.PagedData}
// @Failure      403          {object}  response.Response
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	p := pagination.Parse(c)
	filter := repository.AuditFilter{
		Action:     c.Query("action"),
		EntityType: c.Query("entity_type"),
	}
	if raw := c.Query("user_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid user_id"))
			return
		}
		filter.UserID = uint(id)
	}

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), middleware.ActorFrom(c), filter, p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, logs, p, total))
}
