package handlers

import (
	"github.com/gin-gonic/gin"

	"fieldstock/internal/core/id"
	"fieldstock/internal/domain/catalog"
	"fieldstock/internal/infrastructure/http/v1/dto"
)

// AliasHandler handles HTTP requests for the item alias catalog.
type AliasHandler struct {
	*BaseHandler
	service *catalog.Service
}

// NewAliasHandler creates a new alias handler.
func NewAliasHandler(base *BaseHandler, service *catalog.Service) *AliasHandler {
	return &AliasHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Upsert handles PUT /aliases
func (h *AliasHandler) Upsert(c *gin.Context) {
	var req dto.UpsertAliasRequest
	if !h.BindJSON(c, &req) {
		return
	}

	alias := &catalog.Alias{
		ID:            id.New(),
		Alias:         req.Alias,
		CanonicalName: req.CanonicalName,
		SKU:           req.SKU,
	}
	if err := h.service.Save(c.Request.Context(), alias); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, alias)
}

// Delete handles DELETE /aliases/:alias
func (h *AliasHandler) Delete(c *gin.Context) {
	if err := h.service.Remove(c.Request.Context(), c.Param("alias")); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// List handles GET /aliases
func (h *AliasHandler) List(c *gin.Context) {
	limit := h.ParseIntQuery(c, "limit", 100)
	offset := h.ParseIntQuery(c, "offset", 0)

	aliases, err := h.service.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      aliases,
		TotalCount: len(aliases),
		Limit:      limit,
		Offset:     offset,
	})
}

// Reload handles POST /aliases/reload
func (h *AliasHandler) Reload(c *gin.Context) {
	if err := h.service.Reload(c.Request.Context()); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "alias snapshot reloaded")
}

// RegisterRoutes registers alias routes.
func (h *AliasHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.PUT("", h.Upsert)
	rg.GET("", h.List)
	rg.POST("/reload", h.Reload)
	rg.DELETE("/:alias", h.Delete)
}
