package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/foodaudit/backend/internal/domain/audit"
	"github.com/foodaudit/backend/internal/domain/shared"
	"github.com/foodaudit/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ThresholdProvider resolves the thresholds an audit is scored against
type ThresholdProvider interface {
	GetThresholds(ctx context.Context, schemaID uuid.UUID) audit.Thresholds
}

// AuditService handles the audit lifecycle: creation, answers and status changes
type AuditService struct {
	audits     audit.Repository
	schemas    audit.SchemaRepository
	thresholds ThresholdProvider
	evidence   audit.EvidenceIndex
	logger     *zap.Logger
	now        func() time.Time
}

// AuditServiceOption configures an AuditService
type AuditServiceOption func(*AuditService)

// WithEvidenceIndex enables evidence registration
func WithEvidenceIndex(index audit.EvidenceIndex) AuditServiceOption {
	return func(s *AuditService) {
		s.evidence = index
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) AuditServiceOption {
	return func(s *AuditService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for evidence timestamps
func WithClock(now func() time.Time) AuditServiceOption {
	return func(s *AuditService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewAuditService creates a new AuditService
func NewAuditService(
	audits audit.Repository,
	schemas audit.SchemaRepository,
	thresholds ThresholdProvider,
	opts ...AuditServiceOption,
) *AuditService {
	s := &AuditService{
		audits:     audits,
		schemas:    schemas,
		thresholds: thresholds,
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create opens a Draft audit with the schema's questions and a new document number
func (s *AuditService) Create(ctx context.Context, req CreateAuditRequest) (*AuditDetailResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "audit", "create",
		telemetry.WithAttribute(telemetry.SpanAttrSchemaID, req.SchemaID),
		telemetry.WithAttribute(telemetry.SpanAttrStoreID, req.StoreID),
	)
	defer span.End()

	schema, err := s.schemas.FindByID(ctx, req.SchemaID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	seq, err := s.audits.NextSequence(ctx, audit.DocumentPeriod(schema.DocumentPrefix, req.AuditDate))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("allocate document number: %w", err)
	}
	number, err := audit.FormatDocumentNumber(schema.DocumentPrefix, req.AuditDate, seq)
	if err != nil {
		return nil, err
	}

	a, err := audit.NewAudit(schema, req.StoreID, req.StoreName, req.Cycle, req.AuditDate, number)
	if err != nil {
		return nil, err
	}
	a.Auditor = strings.TrimSpace(req.Auditor)

	if err := s.audits.Save(ctx, a); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrAuditID, a.ID,
		telemetry.SpanAttrDocumentNumber, a.DocumentNumber,
	)
	s.logger.Info("Audit created",
		zap.String("audit_id", a.ID.String()),
		zap.String("document_number", a.DocumentNumber),
		zap.String("store_id", a.StoreID.String()),
		zap.String("cycle", a.Cycle))

	resp := ToAuditDetailResponse(a)
	return &resp, nil
}

// GetByID returns an audit with its sections and items
func (s *AuditService) GetByID(ctx context.Context, id uuid.UUID) (*AuditDetailResponse, error) {
	a, err := s.audits.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToAuditDetailResponse(a)
	return &resp, nil
}

// SaveAnswers applies a batch of answers and rescores the audit. Answers that
// fail validation are returned as rejected; the rest are saved.
func (s *AuditService) SaveAnswers(ctx context.Context, id uuid.UUID, req SaveAnswersRequest) (*SaveAnswersResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "audit", "save_answers",
		telemetry.WithAttribute(telemetry.SpanAttrAuditID, id),
		telemetry.WithAttribute(telemetry.SpanAttrItemCount, len(req.Answers)),
	)
	defer span.End()

	a, schema, err := s.load(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	answers := make([]audit.Answer, len(req.Answers))
	for i, r := range req.Answers {
		answers[i] = audit.Answer{
			ItemID:           r.ItemID,
			Choice:           r.Choice,
			FindingText:      r.FindingText,
			CorrectiveAction: r.CorrectiveAction,
			Priority:         r.Priority,
			Departments:      r.Departments,
			Escalate:         r.Escalate,
			HasPicture:       r.HasPicture,
		}
	}

	policy := schema.ScoringPolicy(s.thresholds.GetThresholds(ctx, schema.ID))
	rejected, err := a.SaveAnswers(answers, policy)
	if err != nil {
		return nil, err
	}
	if err := s.audits.Save(ctx, a); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	resp := &SaveAnswersResponse{
		Audit:    ToAuditResponse(a),
		Rejected: make([]RejectedAnswer, len(rejected)),
	}
	for i, r := range rejected {
		resp.Rejected[i] = RejectedAnswer{ItemID: r.ItemID, Message: r.Message}
	}
	if len(rejected) > 0 {
		s.logger.Warn("Answers rejected",
			zap.String("audit_id", id.String()),
			zap.Int("rejected", len(rejected)),
			zap.Int("submitted", len(answers)))
	}
	return resp, nil
}

// Start moves a Draft or Reopened audit into InProgress
func (s *AuditService) Start(ctx context.Context, id uuid.UUID) (*AuditResponse, error) {
	return s.transition(ctx, id, "start", func(a *audit.Audit, _ *audit.Schema) error {
		return a.Start()
	})
}

// Complete freezes the audit's scores against the current thresholds
func (s *AuditService) Complete(ctx context.Context, id uuid.UUID) (*AuditResponse, error) {
	return s.transition(ctx, id, "complete", func(a *audit.Audit, schema *audit.Schema) error {
		return a.Complete(schema.ScoringPolicy(s.thresholds.GetThresholds(ctx, schema.ID)))
	})
}

// Reopen makes a Completed audit editable again
func (s *AuditService) Reopen(ctx context.Context, id uuid.UUID, req ReopenAuditRequest) (*AuditResponse, error) {
	return s.transition(ctx, id, "reopen", func(a *audit.Audit, _ *audit.Schema) error {
		return a.Reopen(req.Reason)
	})
}

func (s *AuditService) transition(ctx context.Context, id uuid.UUID, op string, apply func(*audit.Audit, *audit.Schema) error) (*AuditResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "audit", op,
		telemetry.WithAttribute(telemetry.SpanAttrAuditID, id),
	)
	defer span.End()

	a, schema, err := s.load(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	from := a.Status
	if err := apply(a, schema); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.audits.Save(ctx, a); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrAuditStatus, a.Status.String())
	s.logger.Info("Audit status changed",
		zap.String("audit_id", id.String()),
		zap.String("from", from.String()),
		zap.String("to", a.Status.String()))

	resp := ToAuditResponse(a)
	return &resp, nil
}

// RegisterEvidence records an uploaded image against one checklist item
func (s *AuditService) RegisterEvidence(ctx context.Context, auditID, itemID uuid.UUID, req RegisterEvidenceRequest) (*EvidenceResponse, error) {
	if s.evidence == nil {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "evidence registration is not enabled")
	}
	tag, err := audit.ParseEvidenceTag(req.Tag)
	if err != nil {
		return nil, err
	}
	key := strings.TrimSpace(req.StorageKey)
	if key == "" {
		return nil, shared.NewValidationError("storage key cannot be empty")
	}

	a, err := s.audits.FindByID(ctx, auditID)
	if err != nil {
		return nil, err
	}
	item := a.Item(itemID)
	if item == nil {
		return nil, shared.NewNotFoundError("item not found in audit")
	}

	ref := &audit.EvidenceRef{
		ID:          uuid.New(),
		ItemID:      item.ID,
		Tag:         tag,
		ContentType: strings.TrimSpace(req.ContentType),
		StorageKey:  key,
		FileName:    strings.TrimSpace(req.FileName),
		CreatedAt:   s.now(),
	}
	if err := s.evidence.Save(ctx, ref); err != nil {
		return nil, err
	}

	s.logger.Info("Evidence registered",
		zap.String("audit_id", auditID.String()),
		zap.String("item_id", itemID.String()),
		zap.String("tag", string(tag)))

	resp := ToEvidenceResponse(ref)
	return &resp, nil
}

func (s *AuditService) load(ctx context.Context, id uuid.UUID) (*audit.Audit, *audit.Schema, error) {
	a, err := s.audits.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	schema, err := s.schemas.FindByID(ctx, a.SchemaID)
	if err != nil {
		return nil, nil, err
	}
	return a, schema, nil
}
