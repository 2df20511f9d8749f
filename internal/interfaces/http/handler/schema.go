package handler

import (
	"context"

	auditapp "github.com/foodaudit/backend/internal/application/audit"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SchemaService is the schema and threshold API the handler drives
type SchemaService interface {
	Create(ctx context.Context, req auditapp.CreateSchemaRequest) (*auditapp.SchemaResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*auditapp.SchemaResponse, error)
	UpdateThresholds(ctx context.Context, id uuid.UUID, req auditapp.ThresholdsRequest) (*auditapp.SchemaResponse, error)
	Invalidate(ctx context.Context, id uuid.UUID) error
}

// SchemaHandler serves /schemas
type SchemaHandler struct {
	BaseHandler
	service SchemaService
}

// NewSchemaHandler creates a new SchemaHandler
func NewSchemaHandler(service SchemaService) *SchemaHandler {
	return &SchemaHandler{service: service}
}

// Create defines an audit schema.
// POST /schemas
func (h *SchemaHandler) Create(c *gin.Context) {
	var req auditapp.CreateSchemaRequest
	if !h.BindJSON(c, &req) {
		return
	}
	resp, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Get returns a schema summary.
// GET /schemas/:id
func (h *SchemaHandler) Get(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// UpdateThresholds replaces the pass thresholds of a schema.
// PUT /schemas/:id/thresholds
func (h *SchemaHandler) UpdateThresholds(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req auditapp.ThresholdsRequest
	if !h.BindJSON(c, &req) {
		return
	}
	resp, err := h.service.UpdateThresholds(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// InvalidateThresholds drops cached thresholds on every instance.
// POST /schemas/:id/thresholds/invalidate
func (h *SchemaHandler) InvalidateThresholds(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Invalidate(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// RegisterRoutes mounts the schema routes on rg
func (h *SchemaHandler) RegisterRoutes(rg *gin.RouterGroup) {
	schemas := rg.Group("/schemas")
	schemas.POST("", h.Create)
	schemas.GET("/:id", h.Get)
	schemas.PUT("/:id/thresholds", h.UpdateThresholds)
	schemas.POST("/:id/thresholds/invalidate", h.InvalidateThresholds)
}
