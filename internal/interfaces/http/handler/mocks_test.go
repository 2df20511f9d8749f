package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	auditapp "github.com/foodaudit/backend/internal/application/audit"
	reportapp "github.com/foodaudit/backend/internal/application/report"
	"github.com/foodaudit/backend/internal/domain/report"
	"github.com/foodaudit/backend/internal/infrastructure/logger"
	"github.com/foodaudit/backend/internal/interfaces/http/dto"
	"github.com/foodaudit/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

type routeRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

func newTestEngine(handlers ...routeRegistrar) *gin.Engine {
	r := gin.New()
	r.Use(logger.GinMiddleware(zap.NewNop()))
	api := r.Group("/api/v1")
	for _, h := range handlers {
		h.RegisterRoutes(api)
	}
	return r
}

func doRequest(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewBuffer(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) Create(ctx context.Context, req auditapp.CreateAuditRequest) (*auditapp.AuditDetailResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auditapp.AuditDetailResponse), args.Error(1)
}

func (m *MockAuditService) GetByID(ctx context.Context, id uuid.UUID) (*auditapp.AuditDetailResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auditapp.AuditDetailResponse), args.Error(1)
}

func (m *MockAuditService) SaveAnswers(ctx context.Context, id uuid.UUID, req auditapp.SaveAnswersRequest) (*auditapp.SaveAnswersResponse, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auditapp.SaveAnswersResponse), args.Error(1)
}

func (m *MockAuditService) Start(ctx context.Context, id uuid.UUID) (*auditapp.AuditResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auditapp.AuditResponse), args.Error(1)
}

func (m *MockAuditService) Complete(ctx context.Context, id uuid.UUID) (*auditapp.AuditResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auditapp.AuditResponse), args.Error(1)
}

func (m *MockAuditService) Reopen(ctx context.Context, id uuid.UUID, req auditapp.ReopenAuditRequest) (*auditapp.AuditResponse, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auditapp.AuditResponse), args.Error(1)
}

func (m *MockAuditService) RegisterEvidence(ctx context.Context, auditID, itemID uuid.UUID, req auditapp.RegisterEvidenceRequest) (*auditapp.EvidenceResponse, error) {
	args := m.Called(ctx, auditID, itemID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auditapp.EvidenceResponse), args.Error(1)
}

type MockSchemaService struct {
	mock.Mock
}

func (m *MockSchemaService) Create(ctx context.Context, req auditapp.CreateSchemaRequest) (*auditapp.SchemaResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auditapp.SchemaResponse), args.Error(1)
}

func (m *MockSchemaService) GetByID(ctx context.Context, id uuid.UUID) (*auditapp.SchemaResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auditapp.SchemaResponse), args.Error(1)
}

func (m *MockSchemaService) UpdateThresholds(ctx context.Context, id uuid.UUID, req auditapp.ThresholdsRequest) (*auditapp.SchemaResponse, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auditapp.SchemaResponse), args.Error(1)
}

func (m *MockSchemaService) Invalidate(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) Generate(ctx context.Context, auditID uuid.UUID, opts reportapp.GenerateOptions) (*report.AuditReport, error) {
	args := m.Called(ctx, auditID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*report.AuditReport), args.Error(1)
}

func (m *MockReportService) ActionPlan(ctx context.Context, auditID uuid.UUID, department string) (*report.ActionPlan, error) {
	args := m.Called(ctx, auditID, department)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*report.ActionPlan), args.Error(1)
}
