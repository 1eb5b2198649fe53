package handlers

import (
	"github.com/gin-gonic/gin"

	"fieldstock/internal/core/apperror"
	"fieldstock/internal/domain/ledger"
	"fieldstock/internal/infrastructure/http/v1/dto"
)

// LedgerHandler handles HTTP requests for the stock ledger.
type LedgerHandler struct {
	*BaseHandler
	service *ledger.Service
}

// NewLedgerHandler creates a new ledger handler.
func NewLedgerHandler(base *BaseHandler, service *ledger.Service) *LedgerHandler {
	return &LedgerHandler{
		BaseHandler: base,
		service:     service,
	}
}

// PostMovement handles POST /ledger/movements
func (h *LedgerHandler) PostMovement(c *gin.Context) {
	var req dto.PostMovementRequest
	if !h.BindJSON(c, &req) {
		return
	}

	movement, summary, err := h.service.Post(c.Request.Context(), req.ToPostInput())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.PostMovementResponse{Movement: movement, Summary: summary})
}

// GetHistory handles GET /ledger/movements/:sku
func (h *LedgerHandler) GetHistory(c *gin.Context) {
	sku := c.Param("sku")
	if sku == "" {
		h.Error(c, apperror.NewValidation("sku is required"))
		return
	}

	filter := ledger.MovementFilter{
		FromDate: h.ParseTimeQuery(c, "fromDate"),
		ToDate:   h.ParseTimeQuery(c, "toDate"),
		Limit:    h.ParseIntQuery(c, "limit", 100),
		Offset:   h.ParseIntQuery(c, "offset", 0),
	}
	if t := c.Query("type"); t != "" {
		mt := ledger.MovementType(t)
		filter.Type = &mt
	}
	if rt := c.Query("refType"); rt != "" {
		filter.RefType = &rt
	}

	movements, err := h.service.History(c.Request.Context(), sku, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      movements,
		TotalCount: len(movements),
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
}

// GetSummary handles GET /ledger/summaries/:sku
func (h *LedgerHandler) GetSummary(c *gin.Context) {
	sku := c.Param("sku")
	if sku == "" {
		h.Error(c, apperror.NewValidation("sku is required"))
		return
	}

	summary, err := h.service.GetSummary(c.Request.Context(), sku)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, summary)
}

// ListSummaries handles GET /ledger/summaries
func (h *LedgerHandler) ListSummaries(c *gin.Context) {
	filter := ledger.SummaryFilter{
		LowStockOnly: c.Query("lowStock") == "true",
		Limit:        h.ParseIntQuery(c, "limit", 100),
		Offset:       h.ParseIntQuery(c, "offset", 0),
	}
	if skus := c.QueryArray("sku"); len(skus) > 0 {
		filter.SKUs = skus
	}

	summaries, err := h.service.ListSummaries(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      summaries,
		TotalCount: len(summaries),
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
}

// RebuildSummary handles POST /ledger/summaries/:sku/rebuild
func (h *LedgerHandler) RebuildSummary(c *gin.Context) {
	result, err := h.service.RebuildSummary(c.Request.Context(), c.Param("sku"))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromRebuildResult(result))
}

// VerifySummary handles GET /ledger/summaries/:sku/verify
func (h *LedgerHandler) VerifySummary(c *gin.Context) {
	result, err := h.service.VerifySummary(c.Request.Context(), c.Param("sku"))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromRebuildResult(result))
}

// RegisterRoutes registers ledger routes.
func (h *LedgerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/movements", h.PostMovement)
	rg.GET("/movements/:sku", h.GetHistory)
	rg.GET("/summaries", h.ListSummaries)
	rg.GET("/summaries/:sku", h.GetSummary)
	rg.POST("/summaries/:sku/rebuild", h.RebuildSummary)
	rg.GET("/summaries/:sku/verify", h.VerifySummary)
}
