package handler

import (
	"context"
	"strconv"
	"strings"

	reportapp "github.com/foodaudit/backend/internal/application/report"
	"github.com/foodaudit/backend/internal/domain/report"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReportService builds report read models
type ReportService interface {
	Generate(ctx context.Context, auditID uuid.UUID, opts reportapp.GenerateOptions) (*report.AuditReport, error)
	ActionPlan(ctx context.Context, auditID uuid.UUID, department string) (*report.ActionPlan, error)
}

// ReportQuery holds the report query string
type ReportQuery struct {
	Department string `form:"department" binding:"max=100"`
	// Cycles is a comma separated list of trend columns
	Cycles   string `form:"cycles" binding:"max=500"`
	Evidence string `form:"evidence" binding:"omitempty,oneof=true false 1 0"`
}

// ReportHandler serves the report endpoints
type ReportHandler struct {
	BaseHandler
	service ReportService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(service ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// Generate returns the full audit report. Evidence is attached unless
// evidence=false.
// GET /audits/:id/report
func (h *ReportHandler) Generate(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	var q ReportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BadRequest(c, "Invalid query: "+err.Error())
		return
	}

	opts := reportapp.GenerateOptions{
		Department:      strings.TrimSpace(q.Department),
		Cycles:          splitCycles(q.Cycles),
		IncludeEvidence: true,
	}
	if q.Evidence != "" {
		opts.IncludeEvidence, _ = strconv.ParseBool(q.Evidence)
	}

	rep, err := h.service.Generate(c.Request.Context(), id, opts)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rep)
}

// ActionPlan returns the findings of an audit, optionally for one department.
// GET /audits/:id/action-plan
func (h *ReportHandler) ActionPlan(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	plan, err := h.service.ActionPlan(c.Request.Context(), id, c.Query("department"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, plan)
}

// RegisterRoutes mounts the report routes on rg
func (h *ReportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/audits/:id/report", h.Generate)
	rg.GET("/audits/:id/action-plan", h.ActionPlan)
}

func splitCycles(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	cycles := make([]string, 0)
	for _, c := range strings.Split(raw, ",") {
		if c = strings.TrimSpace(c); c != "" {
			cycles = append(cycles, c)
		}
	}
	return cycles
}
