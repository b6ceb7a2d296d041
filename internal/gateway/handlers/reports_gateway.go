package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	reports "gestvendas/internal/services/reports/handler"
)

type ReportsHTTPHandler struct {
	reports *reports.ReportsHandler
}

func NewReportsHTTPHandler(reportsHandler *reports.ReportsHandler) *ReportsHTTPHandler {
	return &ReportsHTTPHandler{reports: reportsHandler}
}

func (h *ReportsHTTPHandler) Dashboard(c *gin.Context) {
	stats, err := h.reports.Dashboard(c.Request.Context())
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Dashboard retrieved successfully", stats))
}

func (h *ReportsHTTPHandler) MonthlySales(c *gin.Context) {
	months, _ := strconv.Atoi(c.DefaultQuery("months", "12"))
	totals, err := h.reports.MonthlySales(c.Request.Context(), months)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Monthly sales retrieved successfully", totals))
}

func (h *ReportsHTTPHandler) TopProducts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	rows, err := h.reports.TopProducts(c.Request.Context(), limit)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Top products retrieved successfully", rows))
}
