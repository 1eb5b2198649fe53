package handlers

import (
	"github.com/gin-gonic/gin"

	"fieldstock/internal/core/apperror"
	"fieldstock/internal/core/id"
	"fieldstock/internal/domain/checkout"
	"fieldstock/internal/infrastructure/http/v1/dto"
)

// CheckoutHandler handles HTTP requests for the checkout lifecycle.
type CheckoutHandler struct {
	*BaseHandler
	service *checkout.Service
}

// NewCheckoutHandler creates a new checkout handler.
func NewCheckoutHandler(base *BaseHandler, service *checkout.Service) *CheckoutHandler {
	return &CheckoutHandler{
		BaseHandler: base,
		service:     service,
	}
}

func (h *CheckoutHandler) checkoutID(c *gin.Context) (id.ID, bool) {
	parsed, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid checkout id format"))
		return id.Nil(), false
	}
	return parsed, true
}

// Create handles POST /checkouts
func (h *CheckoutHandler) Create(c *gin.Context) {
	var req dto.CreateCheckoutRequest
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

// Get handles GET /checkouts/:id
func (h *CheckoutHandler) Get(c *gin.Context) {
	checkoutID, ok := h.checkoutID(c)
	if !ok {
		return
	}

	found, err := h.service.GetByID(c.Request.Context(), checkoutID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, found)
}

// List handles GET /checkouts
func (h *CheckoutHandler) List(c *gin.Context) {
	filter := checkout.ListFilter{
		EmployeeName: c.Query("employee"),
		FromDate:     h.ParseTimeQuery(c, "fromDate"),
		ToDate:       h.ParseTimeQuery(c, "toDate"),
		Limit:        h.ParseIntQuery(c, "limit", 50),
		Offset:       h.ParseIntQuery(c, "offset", 0),
	}
	if s := c.Query("status"); s != "" {
		status := checkout.Status(s)
		filter.Status = &status
	}

	checkouts, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      checkouts,
		TotalCount: len(checkouts),
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
}

// Complete handles POST /checkouts/:id/complete
func (h *CheckoutHandler) Complete(c *gin.Context) {
	checkoutID, ok := h.checkoutID(c)
	if !ok {
		return
	}

	var req dto.CompleteCheckoutRequest
	if !h.BindJSON(c, &req) {
		return
	}

	completed, err := h.service.Complete(c.Request.Context(), checkoutID, req.InvoiceNumbers)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, completed)
}

// RunTally handles POST /checkouts/:id/tally
func (h *CheckoutHandler) RunTally(c *gin.Context) {
	checkoutID, ok := h.checkoutID(c)
	if !ok {
		return
	}

	tallied, err := h.service.RunTally(c.Request.Context(), checkoutID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, tallied)
}

// ProcessStock handles POST /checkouts/:id/process-stock
func (h *CheckoutHandler) ProcessStock(c *gin.Context) {
	checkoutID, ok := h.checkoutID(c)
	if !ok {
		return
	}

	report, err := h.service.ProcessStock(c.Request.Context(), checkoutID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, report)
}

// Cancel handles POST /checkouts/:id/cancel
func (h *CheckoutHandler) Cancel(c *gin.Context) {
	checkoutID, ok := h.checkoutID(c)
	if !ok {
		return
	}

	var req dto.CancelCheckoutRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cancelled, err := h.service.Cancel(c.Request.Context(), checkoutID, req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, cancelled)
}

// RegisterRoutes registers checkout routes.
func (h *CheckoutHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/complete", h.Complete)
	rg.POST("/:id/tally", h.RunTally)
	rg.POST("/:id/process-stock", h.ProcessStock)
	rg.POST("/:id/cancel", h.Cancel)
}
