package handler

import (
	"net/http"

	"smartsahuji/internal/service"
	"smartsahuji/pkg/pagination"
	"smartsahuji/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuditHandler struct {
	auditService service.AuditService
	log          *zap.Logger
}

func NewAuditHandler(auditService service.AuditService, log *zap.Logger) *AuditHandler {
	return &AuditHandler{auditService: auditService, log: log}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/audit-logs", h.GetAuditLogs)
}

// GetAuditLogs lists the caller's own stock history
// @Summary      Get audit logs
// @Description  Retrieves the caller's audit entries, newest first
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=pagination.Page}
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	pg := pagination.FromQuery(c)

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), p.UserID, pg.Page, pg.Limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, pg.Of(logs, total)))
}
