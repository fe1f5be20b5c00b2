package handler

import (
	"net/http"

	"members/internal/middleware"
	"members/internal/service"
	"members/pkg/response"

	"github.com/gin-gonic/gin"
)

type PageHandler struct {
	pageService service.PageService
}

func NewPageHandler(pageService service.PageService) *PageHandler {
	return &PageHandler{pageService: pageService}
}

func (h *PageHandler) RegisterRoutes(router *gin.RouterGroup) {
	pages := router.Group("/pages")
	{
		pages.GET("", h.ListPages)
		pages.GET("/:slug", h.GetPage)
		pages.POST("", middleware.RequireAuth(), h.CreatePage)
		pages.PUT("/:id", middleware.RequireAuth(), h.UpdatePage)
		pages.DELETE("/:id", middleware.RequireAuth(), h.DeletePage)
	}
}

// ListPages returns the pages the caller may read
// @Summary      List pages
// @Tags         pages
// @Produce      json
// @Success      200  {object}  response.Response{data=[]webmodel.PageView}
// @Router       /api/pages [get]
func (h *PageHandler) ListPages(c *gin.Context) {
	pages, err := h.pageService.ListPages(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, pages))
}

// GetPage returns a page by slug with its content rendered to HTML
// @Summary      Get page
// @Tags         pages
// @Produce      json
// @Param        slug  path      string  true  "Page slug"
// @Success      200   {object}  response.Response{data=webmodel.PageView}
// @Failure      404   {object}  response.Response
// @Router       /api/pages/{slug} [get]
func (h *PageHandler) GetPage(c *gin.Context) {
	page, err := h.pageService.GetPage(c.Request.Context(), middleware.ActorFrom(c), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, page))
}

// CreatePage adds a page
// @Summary      Create page
// @Tags         pages
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreatePageRequest  true  "Page payload"
// @Success      201      {object}  response.Response{data=webmodel.PageView}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/pages [post]
func (h *PageHandler) CreatePage(c *gin.Context) {
	var req service.CreatePageRequest
	if !bindJSON(c, &req) {
		return
	}
	page, err := h.pageService.CreatePage(c.Request.Context(), middleware.ActorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, page))
}

// UpdatePage edits a page
// @Summary      Update page
// @Tags         pages
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int                        true  "Page ID"
// @Param        payload  body      service.UpdatePageRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=webmodel.PageView}
// @Failure      400      {object}  response.Response
// @Router       /api/pages/{id} [put]
func (h *PageHandler) UpdatePage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.UpdatePageRequest
	if !bindJSON(c, &req) {
		return
	}
	page, err := h.pageService.UpdatePage(c.Request.Context(), middleware.ActorFrom(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, page))
}

// DeletePage removes a page
// @Summary      Delete page
// @Tags         pages
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Page ID"
// @Success      200  {object}  response.Response
// @Router       /api/pages/{id} [delete]
func (h *PageHandler) DeletePage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.pageService.DeletePage(c.Request.Context(), middleware.ActorFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Page deleted"}))
}
