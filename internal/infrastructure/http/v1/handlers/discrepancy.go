package handlers

import (
	"github.com/gin-gonic/gin"

	"fieldstock/internal/core/apperror"
	"fieldstock/internal/core/id"
	"fieldstock/internal/domain/discrepancy"
	"fieldstock/internal/infrastructure/http/v1/dto"
)

// DiscrepancyHandler handles HTTP requests for discrepancy reports.
type DiscrepancyHandler struct {
	*BaseHandler
	service *discrepancy.Service
}

// NewDiscrepancyHandler creates a new discrepancy handler.
func NewDiscrepancyHandler(base *BaseHandler, service *discrepancy.Service) *DiscrepancyHandler {
	return &DiscrepancyHandler{
		BaseHandler: base,
		service:     service,
	}
}

func (h *DiscrepancyHandler) reportID(c *gin.Context) (id.ID, bool) {
	parsed, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid discrepancy id format"))
		return id.Nil(), false
	}
	return parsed, true
}

// Create handles POST /discrepancies
func (h *DiscrepancyHandler) Create(c *gin.Context) {
	var req dto.CreateDiscrepancyRequest
	if !h.BindJSON(c, &req) {
		return
	}

	created, err := h.service.Create(c.Request.Context(), req.ToCreateInput())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, created)
}

// Get handles GET /discrepancies/:id
func (h *DiscrepancyHandler) Get(c *gin.Context) {
	reportID, ok := h.reportID(c)
	if !ok {
		return
	}

	found, err := h.service.GetByID(c.Request.Context(), reportID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, found)
}

// List handles GET /discrepancies
func (h *DiscrepancyHandler) List(c *gin.Context) {
	filter := discrepancy.ListFilter{
		InvoiceRef: c.Query("invoiceRef"),
		ReportedBy: c.Query("reportedBy"),
		FromDate:   h.ParseTimeQuery(c, "fromDate"),
		ToDate:     h.ParseTimeQuery(c, "toDate"),
		Limit:      h.ParseIntQuery(c, "limit", 50),
		Offset:     h.ParseIntQuery(c, "offset", 0),
	}
	if s := c.Query("status"); s != "" {
		status := discrepancy.Status(s)
		filter.Status = &status
	}
	if t := c.Query("type"); t != "" {
		dType := discrepancy.Type(t)
		filter.Type = &dType
	}

	reports, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      reports,
		TotalCount: len(reports),
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
}

// Update handles PATCH /discrepancies/:id
func (h *DiscrepancyHandler) Update(c *gin.Context) {
	reportID, ok := h.reportID(c)
	if !ok {
		return
	}

	var req dto.UpdateDiscrepancyRequest
	if !h.BindJSON(c, &req) {
		return
	}

	updated, err := h.service.Update(c.Request.Context(), reportID, req.ToUpdateInput())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, updated)
}

// Approve handles POST /discrepancies/:id/approve
func (h *DiscrepancyHandler) Approve(c *gin.Context) {
	h.resolve(c, true)
}

// Reject handles POST /discrepancies/:id/reject
func (h *DiscrepancyHandler) Reject(c *gin.Context) {
	h.resolve(c, false)
}

func (h *DiscrepancyHandler) resolve(c *gin.Context, approve bool) {
	reportID, ok := h.reportID(c)
	if !ok {
		return
	}

	var req dto.ResolveDiscrepancyRequest
	if !h.BindJSON(c, &req) {
		return
	}

	var (
		resolved *discrepancy.Discrepancy
		err      error
	)
	if approve {
		resolved, err = h.service.Approve(c.Request.Context(), reportID, req.ResolvedBy, req.Notes)
	} else {
		resolved, err = h.service.Reject(c.Request.Context(), reportID, req.ResolvedBy, req.Notes)
	}
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, resolved)
}

// BulkApprove handles POST /discrepancies/bulk-approve
func (h *DiscrepancyHandler) BulkApprove(c *gin.Context) {
	var req dto.BulkApproveRequest
	if !h.BindJSON(c, &req) {
		return
	}

	pending := discrepancy.StatusPending
	filter := discrepancy.ListFilter{
		Status:     &pending,
		InvoiceRef: req.InvoiceRef,
	}
	if req.Type != "" {
		dType := discrepancy.Type(req.Type)
		filter.Type = &dType
	}

	result, err := h.service.BulkApprove(c.Request.Context(), filter, req.ResolvedBy, req.Notes)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, result)
}

// RegisterRoutes registers discrepancy routes.
func (h *DiscrepancyHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.POST("/bulk-approve", h.BulkApprove)
	rg.GET("/:id", h.Get)
	rg.PATCH("/:id", h.Update)
	rg.POST("/:id/approve", h.Approve)
	rg.POST("/:id/reject", h.Reject)
}
