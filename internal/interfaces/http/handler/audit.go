package handler

import (
	"context"

	auditapp "github.com/foodaudit/backend/internal/application/audit"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditService is the audit lifecycle API the handler drives
type AuditService interface {
	Create(ctx context.Context, req auditapp.CreateAuditRequest) (*auditapp.AuditDetailResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*auditapp.AuditDetailResponse, error)
	SaveAnswers(ctx context.Context, id uuid.UUID, req auditapp.SaveAnswersRequest) (*auditapp.SaveAnswersResponse, error)
	Start(ctx context.Context, id uuid.UUID) (*auditapp.AuditResponse, error)
	Complete(ctx context.Context, id uuid.UUID) (*auditapp.AuditResponse, error)
	Reopen(ctx context.Context, id uuid.UUID, req auditapp.ReopenAuditRequest) (*auditapp.AuditResponse, error)
	RegisterEvidence(ctx context.Context, auditID, itemID uuid.UUID, req auditapp.RegisterEvidenceRequest) (*auditapp.EvidenceResponse, error)
}

// AuditHandler serves /audits
type AuditHandler struct {
	BaseHandler
	service AuditService
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(service AuditService) *AuditHandler {
	return &AuditHandler{service: service}
}

// Create opens a new audit.
// POST /audits
func (h *AuditHandler) Create(c *gin.Context) {
	var req auditapp.CreateAuditRequest
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

// Get returns an audit with its sections and items.
// GET /audits/:id
func (h *AuditHandler) Get(c *gin.Context) {
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

// SaveAnswers applies a batch of answers. Answers that fail validation are
// returned in the rejected list; the others are saved.
// PUT /audits/:id/answers
func (h *AuditHandler) SaveAnswers(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req auditapp.SaveAnswersRequest
	if !h.BindJSON(c, &req) {
		return
	}
	resp, err := h.service.SaveAnswers(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Start moves a draft audit to in progress.
// POST /audits/:id/start
func (h *AuditHandler) Start(c *gin.Context) {
	h.transition(c, h.service.Start)
}

// Complete freezes the audit score.
// POST /audits/:id/complete
func (h *AuditHandler) Complete(c *gin.Context) {
	h.transition(c, h.service.Complete)
}

// Reopen makes a completed audit editable again.
// POST /audits/:id/reopen
func (h *AuditHandler) Reopen(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req auditapp.ReopenAuditRequest
	if !h.BindJSON(c, &req) {
		return
	}
	resp, err := h.service.Reopen(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

func (h *AuditHandler) transition(c *gin.Context, fn func(context.Context, uuid.UUID) (*auditapp.AuditResponse, error)) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	resp, err := fn(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RegisterEvidence records an uploaded image against a checklist item.
// POST /audits/:id/items/:item_id/evidence
func (h *AuditHandler) RegisterEvidence(c *gin.Context) {
	auditID, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	itemID, ok := h.ParamUUID(c, "item_id")
	if !ok {
		return
	}
	var req auditapp.RegisterEvidenceRequest
	if !h.BindJSON(c, &req) {
		return
	}
	resp, err := h.service.RegisterEvidence(c.Request.Context(), auditID, itemID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// RegisterRoutes mounts the audit routes on rg
func (h *AuditHandler) RegisterRoutes(rg *gin.RouterGroup) {
	audits := rg.Group("/audits")
	audits.POST("", h.Create)
	audits.GET("/:id", h.Get)
	audits.PUT("/:id/answers", h.SaveAnswers)
	audits.POST("/:id/start", h.Start)
	audits.POST("/:id/complete", h.Complete)
	audits.POST("/:id/reopen", h.Reopen)
	audits.POST("/:id/items/:item_id/evidence", h.RegisterEvidence)
}
