package handler

import (
	"net/http"

	"members/internal/middleware"
	"members/internal/service"
	"members/pkg/response"

	"github.com/gin-gonic/gin"
)

type GroupHandler struct {
	groupService service.GroupService
}

func NewGroupHandler(groupService service.GroupService) *GroupHandler {
	return &GroupHandler{groupService: groupService}
}

func (h *GroupHandler) RegisterRoutes(router *gin.RouterGroup) {
	groups := router.Group("/groups")
	{
		groups.GET("", h.ListGroups)
		groups.GET("/:id", h.GetGroup)
		groups.POST("", middleware.RequireAuth(), h.CreateGroup)
		groups.PUT("/:id", middleware.RequireAuth(), h.UpdateGroup)
		groups.DELETE("/:id", middleware.RequireAuth(), h.DeleteGroup)
		groups.POST("/:id/members", middleware.RequireAuth(), h.AddMember)
		groups.PUT("/:id/members/:userId", middleware.RequireAuth(), h.UpdateMember)
		groups.DELETE("/:id/members/:userId", middleware.RequireAuth(), h.RemoveMember)
	}
}

// ListGroups returns groups, optionally of one type
// @Summary      List groups
// @Tags         groups
// @Produce      json
// @Param        type  query     string  false  "BOARD, COMMITTEE, SOCIETY, WORKGROUP or OTHER"
// @Success      200   {object}  response.Response{data=[]webmodel.GroupView}
// @Failure      400   {object}  response.Response
// @Router       /api/groups [get]
func (h *GroupHandler) ListGroups(c *gin.Context) {
	groups, err := h.groupService.ListGroups(c.Request.Context(), c.Query("type"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, groups))
}

// GetGroup returns a group with its members
// @Summary      Get group
// @Tags         groups
// @Produce      json
// @Param        id   path      int  true  "Group ID"
// @Success      200  {object}  response.Response{data=webmodel.GroupView}
// @Failure      404  {object}  response.Response
// @Router       /api/groups/{id} [get]
func (h *GroupHandler) GetGroup(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	group, err := h.groupService.GetGroup(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, group))
}

// CreateGroup adds a group
// @Summary      Create group
// @Tags         groups
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateGroupRequest  true  "Group payload"
// @Success      201      {object}  response.Response{data=webmodel.GroupView}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/groups [post]
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	var req service.CreateGroupRequest
	if !bindJSON(c, &req) {
		return
	}
	group, err := h.groupService.CreateGroup(c.Request.Context(), middleware.ActorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, group))
}

// UpdateGroup edits a group
// @Summary      Update group
// @Tags         groups
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int                         true  "Group ID"
// @Param        payload  body      service.UpdateGroupRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=webmodel.GroupView}
// @Failure      400      {object}  response.Response
// @Router       /api/groups/{id} [put]
func (h *GroupHandler) UpdateGroup(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateGroupRequest
	if !bindJSON(c, &req) {
		return
	}
	group, err := h.groupService.UpdateGroup(c.Request.Context(), middleware.ActorFrom(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, group))
}

// DeleteGroup removes a group that organizes no activities
// @Summary      Delete group
// @Tags         groups
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Group ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/groups/{id} [delete]
func (h *GroupHandler) DeleteGroup(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.groupService.DeleteGroup(c.Request.Context(), middleware.ActorFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Group deleted"}))
}

// AddMember adds a user to a group
// @Summary      Add member
// @Tags         groups
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int                    true  "Group ID"
// @Param        payload  body      service.MemberRequest  true  "Member"
// @Success      201      {object}  response.Response{data=webmodel.GroupView}
// @Failure      409      {object}  response.Response
// @Router       /api/groups/{id}/members [post]
func (h *GroupHandler) AddMember(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.MemberRequest
	if !bindJSON(c, &req) {
		return
	}
	group, err := h.groupService.AddMember(c.Request.Context(), middleware.ActorFrom(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, group))
}

// UpdateMember changes a member's function
// @Summary      Update member
// @Tags         groups
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int                          true  "Group ID"
// @Param        userId   path      int                          true  "User ID"
// @Param        payload  body      service.UpdateMemberRequest  true  "Function"
// @Success      200      {object}  response.Response{data=webmodel.GroupView}
// @Failure      404      {object}  response.Response
// @Router       /api/groups/{id}/members/{userId} [put]
func (h *GroupHandler) UpdateMember(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	var req service.UpdateMemberRequest
	if !bindJSON(c, &req) {
		return
	}
	group, err := h.groupService.UpdateMember(c.Request.Context(), middleware.ActorFrom(c), id, userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, group))
}

// RemoveMember removes a user from a group
// @Summary      Remove member
// @Tags         groups
// @Security     BearerAuth
// @Produce      json
// @Param        id      path      int  true  "Group ID"
// @Param        userId  path      int  true  "User ID"
// @Success      200     {object}  response.Response
// @Failure      404     {object}  response.Response
// @Router       /api/groups/{id}/members/{userId} [delete]
func (h *GroupHandler) RemoveMember(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	if err := h.groupService.RemoveMember(c.Request.Context(), middleware.ActorFrom(c), id, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Member removed"}))
}
