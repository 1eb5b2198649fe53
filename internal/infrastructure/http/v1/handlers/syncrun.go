package handlers

import (
	"github.com/gin-gonic/gin"

	"fieldstock/internal/core/apperror"
	"fieldstock/internal/core/id"
	"fieldstock/internal/domain/syncrun"
	"fieldstock/internal/infrastructure/http/v1/dto"
)

// SyncRunHandler handles HTTP requests for ingestion sessions.
type SyncRunHandler struct {
	*BaseHandler
	service *syncrun.Service
}

// NewSyncRunHandler creates a new sync run handler.
func NewSyncRunHandler(base *BaseHandler, service *syncrun.Service) *SyncRunHandler {
	return &SyncRunHandler{
		BaseHandler: base,
		service:     service,
	}
}

func (h *SyncRunHandler) runID(c *gin.Context) (id.ID, bool) {
	parsed, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid run id format"))
		return id.Nil(), false
	}
	return parsed, true
}

// Start handles POST /sync-runs
func (h *SyncRunHandler) Start(c *gin.Context) {
	var req dto.StartRunRequest
	if !h.BindJSON(c, &req) {
		return
	}

	run, err := h.service.StartFetch(c.Request.Context(), req.Source, req.Kind, req.Params)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, run)
}

// Ingest handles POST /sync-runs/:id/records
func (h *SyncRunHandler) Ingest(c *gin.Context) {
	runID, ok := h.runID(c)
	if !ok {
		return
	}

	var req dto.IngestRequest
	if !h.BindJSON(c, &req) {
		return
	}

	run, err := h.service.GetByID(c.Request.Context(), runID)
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.Ingest(c.Request.Context(), runID, req.ToInvoices(run.Source))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, result)
}

// Complete handles POST /sync-runs/:id/complete
func (h *SyncRunHandler) Complete(c *gin.Context) {
	runID, ok := h.runID(c)
	if !ok {
		return
	}

	var req dto.CompleteRunRequest
	if !h.BindJSON(c, &req) {
		return
	}

	run, err := h.service.Complete(c.Request.Context(), runID, req.Success, req.Message)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, run)
}

// Get handles GET /sync-runs/:id
func (h *SyncRunHandler) Get(c *gin.Context) {
	runID, ok := h.runID(c)
	if !ok {
		return
	}

	run, err := h.service.GetByID(c.Request.Context(), runID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, run)
}

// List handles GET /sync-runs
func (h *SyncRunHandler) List(c *gin.Context) {
	filter := syncrun.ListFilter{
		Source:   c.Query("source"),
		FromDate: h.ParseTimeQuery(c, "fromDate"),
		ToDate:   h.ParseTimeQuery(c, "toDate"),
		Limit:    h.ParseIntQuery(c, "limit", 50),
		Offset:   h.ParseIntQuery(c, "offset", 0),
	}
	if s := c.Query("status"); s != "" {
		status := syncrun.Status(s)
		filter.Status = &status
	}

	runs, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      runs,
		TotalCount: len(runs),
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
}

// RegisterRoutes registers sync run routes.
func (h *SyncRunHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Start)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/records", h.Ingest)
	rg.POST("/:id/complete", h.Complete)
}
