package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"bibliophile/server/internal/api/middleware"
	"bibliophile/server/internal/services"
)

type RestReportHandler struct {
	reportService services.IReportService
}

func NewRestReportHandler(reportService services.IReportService) *RestReportHandler {
	return &RestReportHandler{reportService: reportService}
}

// ReportBook handles PUT /reported/:id. A repeat report by the same user is
// acknowledged with alreadyReported instead of an error status.
func (h *RestReportHandler) ReportBook(c *gin.Context) {
	result, err := h.reportService.SubmitReport(c.Request.Context(), middleware.EmailFromContext(c), c.Param("id"))
	if errors.Is(err, services.ErrAlreadyReported) {
		c.JSON(http.StatusOK, gin.H{"alreadyReported": true, "acknowledged": false})
		return
	}
	if err != nil {
		respondError(c, err, "report book")
		return
	}
	c.JSON(http.StatusOK, result)
}
