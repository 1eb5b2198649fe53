package handlers

import (
	"github.com/gin-gonic/gin"

	"fieldstock/internal/core/apperror"
	"fieldstock/internal/domain/reports"
	"fieldstock/internal/infrastructure/http/v1/dto"
)

// ReportsHandler handles HTTP requests for aggregate reports.
type ReportsHandler struct {
	*BaseHandler
	service *reports.Service
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(base *BaseHandler, service *reports.Service) *ReportsHandler {
	return &ReportsHandler{
		BaseHandler: base,
		service:     service,
	}
}

func (h *ReportsHandler) dateRange(c *gin.Context) reports.DateRange {
	var rng reports.DateRange
	if from := h.ParseTimeQuery(c, "fromDate"); from != nil {
		rng.From = *from
	}
	if to := h.ParseTimeQuery(c, "toDate"); to != nil {
		rng.To = *to
	}
	return rng
}

// DiscrepancyStats handles GET /reports/discrepancies
func (h *ReportsHandler) DiscrepancyStats(c *gin.Context) {
	rows, err := h.service.DiscrepancyStats(c.Request.Context(), h.dateRange(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: rows, TotalCount: len(rows)})
}

// CheckoutStats handles GET /reports/checkouts
func (h *ReportsHandler) CheckoutStats(c *gin.Context) {
	rows, err := h.service.CheckoutStats(c.Request.Context(), h.dateRange(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: rows, TotalCount: len(rows)})
}

// MovementTurnover handles GET /reports/turnover
func (h *ReportsHandler) MovementTurnover(c *gin.Context) {
	sku := c.Query("sku")
	if sku == "" {
		h.Error(c, apperror.NewValidation("sku is required"))
		return
	}

	rows, err := h.service.MovementTurnover(c.Request.Context(), sku, h.dateRange(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: rows, TotalCount: len(rows)})
}

// RegisterRoutes registers report routes.
func (h *ReportsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/discrepancies", h.DiscrepancyStats)
	rg.GET("/checkouts", h.CheckoutStats)
	rg.GET("/turnover", h.MovementTurnover)
}
