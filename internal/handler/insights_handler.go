package handler

import (
	"net/http"
	"time"

	"smartsahuji/internal/service"
	"smartsahuji/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type InsightsHandler struct {
	insightsService service.InsightsService
	loc             *time.Location
	log             *zap.Logger
}

// NewInsightsHandler uses loc to place the default month boundary.
func NewInsightsHandler(insightsService service.InsightsService, loc *time.Location, log *zap.Logger) *InsightsHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &InsightsHandler{insightsService: insightsService, loc: loc, log: log}
}

func (h *InsightsHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/insights", h.GetInsights)
}

// @Summary      Get sales insights
// @Description  Sales and purchase totals, top products and categories, a daily series and suggestions
// @Tags         insights
// @Produce      json
// @Param        start_date query string false "Start Date (RFC3339), default first day of this month"
// @Param        end_date   query string false "End Date (RFC3339), default now"
// @Success      200 {object} response.Response{data=model.Insights}
// @Failure      400 {object} response.Response "Invalid date format"
// @Failure      401 {object} response.Response "Unauthorized"
// @Security     BearerAuth
// @Router       /api/insights [get]
func (h *InsightsHandler) GetInsights(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	startDate, endDate := service.DefaultRange(time.Now().In(h.loc))
	var err error
	if s := c.Query("start_date"); s != "" {
		startDate, err = time.Parse(time.RFC3339, s)
		if err != nil {
			badRequest(c, "invalid start_date format, expected RFC3339")
			return
		}
	}
	if s := c.Query("end_date"); s != "" {
		endDate, err = time.Parse(time.RFC3339, s)
		if err != nil {
			badRequest(c, "invalid end_date format, expected RFC3339")
			return
		}
	}

	insights, err := h.insightsService.Summary(c.Request.Context(), p.UserID, startDate, endDate)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, insights))
}
