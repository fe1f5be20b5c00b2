package handler

import (
	"net/http"
	"time"

	"members/internal/middleware"
	"members/internal/service"
	"members/pkg/response"

	"github.com/gin-gonic/gin"
)

type StatisticsHandler struct {
	statisticsService service.StatisticsService
	now               func() time.Time
}

func NewStatisticsHandler(statisticsService service.StatisticsService) *StatisticsHandler {
	return &StatisticsHandler{statisticsService: statisticsService, now: time.Now}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	statsGroup := router.Group("/statistics")
	statsGroup.Use(middleware.RequireAuth())
	{
		statsGroup.GET("", h.GetStatistics)
	}
}

// GetStatistics returns the membership dashboard
// @Summary      Get dashboard statistics
// @Description  Member counts, active sponsorship, and activity and subscription figures bounded by time. Defaults to the current month.
// @Tags         statistics
// @Security     BearerAuth
// @Produce      json
// @Param        start_date  query     string  false  "Start Date (RFC3339)"
// @Param        end_date    query     string  false  "End Date (RFC3339)"
// @Success      200         {object}  response.Response{data=model.StatisticsResponse}
// @Failure      400         {object}  response.Response
// @Failure      403         {object}  response.Response
// @Router       /api/statistics [get]
func (h *StatisticsHandler) GetStatistics(c *gin.Context) {
	now := h.now()
	startDate := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	endDate := now

	var err error
	if raw := c.Query("start_date"); raw != "" {
		if startDate, err = time.Parse(time.RFC3339, raw); err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid start_date format, expected RFC3339"))
			return
		}
	}
	if raw := c.Query("end_date"); raw != "" {
		if endDate, err = time.Parse(time.RFC3339, raw); err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid end_date format, expected RFC3339"))
			return
		}
	}

	stats, err := h.statisticsService.GetStatistics(c.Request.Context(), middleware.ActorFrom(c), startDate, endDate)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}
