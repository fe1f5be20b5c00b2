package handler

import (
	"net/http"
	"strconv"

	"members/internal/middleware"
	"members/internal/service"
	"members/pkg/response"

	"github.com/gin-gonic/gin"
)

type ActivityHandler struct {
	activityService service.ActivityService
}

func NewActivityHandler(activityService service.ActivityService) *ActivityHandler {
	return &ActivityHandler{activityService: activityService}
}

func (h *ActivityHandler) RegisterRoutes(router *gin.RouterGroup) {
	activities := router.Group("/activities")
	{
		activities.GET("", h.ListActivities)
		activities.GET("/:id", h.GetActivity)
		activities.GET("/:id/subscriptions", h.ListSubscriptions)
		activities.POST("", middleware.RequireAuth(), h.CreateActivity)
		activities.PUT("/:id", middleware.RequireAuth(), h.UpdateActivity)
		activities.DELETE("/:id", middleware.RequireAuth(), h.DeleteActivity)
		activities.POST("/:id/subscription", middleware.RequireAuth(), h.Subscribe)
		activities.DELETE("/:id/subscription", middleware.RequireAuth(), h.Unsubscribe)
	}
}

// ListActivities returns the activities the caller may see
// @Summary      List activities
// @Tags         activities
// @Produce      json
// @Param        organizer  query     int  false  "Only activities of this group"
// @Success      200        {object}  response.Response{data=[]webmodel.ActivityView}
// @Router       /api/activities [get]
func (h *ActivityHandler) ListActivities(c *gin.Context) {
	var organizerID uint
	if raw := c.Query("organizer"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid organizer"))
			return
		}
		organizerID = uint(id)
	}
	activities, err := h.activityService.ListActivities(c.Request.Context(), middleware.ActorFrom(c), organizerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, activities))
}

// GetActivity returns one activity with its form
// @Summary      Get activity
// @Tags         activities
// @Produce      json
// @Param        id   path      int  true  "Activity ID"
// @Success      200  {object}  response.Response{data=webmodel.ActivityView}
// @Failure      401  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/activities/{id} [get]
func (h *ActivityHandler) GetActivity(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	activity, err := h.activityService.GetActivity(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, activity))
}

// CreateActivity adds an activity organized by a group
// @Summary      Create activity
// @Tags         activities
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateActivityRequest  true  "Activity payload"
// @Success      201      {object}  response.Response{data=webmodel.ActivityView}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/activities [post]
func (h *ActivityHandler) CreateActivity(c *gin.Context) {
	var req service.CreateActivityRequest
	if !bindJSON(c, &req) {
		return
	}
	activity, err := h.activityService.CreateActivity(c.Request.Context(), middleware.ActorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, activity))
}

// UpdateActivity edits an activity
// @Summary      Update activity
// @Tags         activities
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int                            true  "Activity ID"
// @Param        payload  body      service.UpdateActivityRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=webmodel.ActivityView}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/activities/{id} [put]
func (h *ActivityHandler) UpdateActivity(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateActivityRequest
	if !bindJSON(c, &req) {
		return
	}
	activity, err := h.activityService.UpdateActivity(c.Request.Context(), middleware.ActorFrom(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, activity))
}

// DeleteActivity removes an activity and its subscriptions
// @Summary      Delete activity
// @Tags         activities
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Activity ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /api/activities/{id} [delete]
func (h *ActivityHandler) DeleteActivity(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.activityService.DeleteActivity(c.Request.Context(), middleware.ActorFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Activity deleted"}))
}

// Subscribe registers the caller for an activity
// @Summary      Subscribe
// @Tags         activities
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int                       true  "Activity ID"
// @Param        payload  body      service.SubscribeRequest  true  "Form answers"
// @Success      201      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/activities/{id}/subscription [post]
func (h *ActivityHandler) Subscribe(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.SubscribeRequest
	// an activity without a form takes an empty body
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	if err := h.activityService.Subscribe(c.Request.Context(), middleware.ActorFrom(c), id, req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, gin.H{"message": "Subscribed"}))
}

// Unsubscribe removes the caller's subscription
// @Summary      Unsubscribe
// @Tags         activities
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Activity ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/activities/{id}/subscription [delete]
func (h *ActivityHandler) Unsubscribe(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.activityService.Unsubscribe(c.Request.Context(), middleware.ActorFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Unsubscribed"}))
}

// ListSubscriptions returns the subscribers of an activity
// @Summary      List subscriptions
// @Description  Private answers are blank unless the caller may edit the activity.
// @Tags         activities
// @Produce      json
// @Param        id   path      int  true  "Activity ID"
// @Success      200  {object}  response.Response{data=[]webmodel.SubscriptionView}
// @Router       /api/activities/{id}/subscriptions [get]
func (h *ActivityHandler) ListSubscriptions(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	subs, err := h.activityService.ListSubscriptions(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, subs))
}
