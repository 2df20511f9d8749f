package audit

import (
	"context"

	"github.com/foodaudit/backend/internal/domain/audit"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ThresholdInvalidator drops cached thresholds after they change
type ThresholdInvalidator interface {
	Invalidate(ctx context.Context, schemaID uuid.UUID) error
}

// SchemaService handles audit schema definitions and their thresholds
type SchemaService struct {
	schemas     audit.SchemaRepository
	invalidator ThresholdInvalidator
	logger      *zap.Logger
	strategy    audit.Strategy
	thresholds  *audit.Thresholds
}

// SchemaOption configures a SchemaService
type SchemaOption func(*SchemaService)

// WithDefaultStrategy sets the strategy of schemas created without one
func WithDefaultStrategy(strategy audit.Strategy) SchemaOption {
	return func(s *SchemaService) {
		if strategy.IsValid() {
			s.strategy = strategy
		}
	}
}

// WithDefaultThresholds sets the thresholds of schemas created without any
func WithDefaultThresholds(t audit.Thresholds) SchemaOption {
	return func(s *SchemaService) {
		s.thresholds = &t
	}
}

// NewSchemaService creates a new SchemaService. invalidator may be nil.
func NewSchemaService(schemas audit.SchemaRepository, invalidator ThresholdInvalidator, logger *zap.Logger, opts ...SchemaOption) *SchemaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &SchemaService{
		schemas:     schemas,
		invalidator: invalidator,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create defines a new schema from its sections and questions
func (s *SchemaService) Create(ctx context.Context, req CreateSchemaRequest) (*SchemaResponse, error) {
	sections := make([]audit.SectionTemplate, len(req.Sections))
	for i, sec := range req.Sections {
		questions := make([]audit.QuestionTemplate, len(sec.Questions))
		for j, q := range sec.Questions {
			domain, err := audit.ParseAnswerDomain(q.AnswerDomain)
			if err != nil {
				return nil, err
			}
			questions[j] = audit.QuestionTemplate{
				Reference:    q.Reference,
				Title:        q.Title,
				Weight:       q.Weight,
				AnswerDomain: domain,
				Departments:  q.Departments,
			}
		}
		sections[i] = audit.SectionTemplate{
			Number:    sec.Number,
			Title:     sec.Title,
			Category:  sec.Category,
			Questions: questions,
		}
	}

	schema, err := audit.NewSchema(req.Name, req.DocumentPrefix, sections)
	if err != nil {
		return nil, err
	}
	if s.strategy != "" {
		schema.Strategy = s.strategy
	}
	if s.thresholds != nil {
		schema.Thresholds = *s.thresholds
	}
	if req.Strategy != "" {
		schema.Strategy = audit.Strategy(req.Strategy)
	}
	if req.UnsetChoicePolicy != "" {
		schema.UnsetChoicePolicy = audit.UnsetChoicePolicy(req.UnsetChoicePolicy)
	}
	if req.Thresholds != nil {
		schema.Thresholds = toThresholds(*req.Thresholds)
	}
	if err := schema.Validate(); err != nil {
		return nil, err
	}

	if err := s.schemas.Save(ctx, schema); err != nil {
		return nil, err
	}
	s.logger.Info("Audit schema created",
		zap.String("schema_id", schema.ID.String()),
		zap.String("name", schema.Name),
		zap.String("strategy", string(schema.Strategy)))

	resp := ToSchemaResponse(schema)
	return &resp, nil
}

// GetByID returns a schema
func (s *SchemaService) GetByID(ctx context.Context, id uuid.UUID) (*SchemaResponse, error) {
	schema, err := s.schemas.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToSchemaResponse(schema)
	return &resp, nil
}

// UpdateThresholds stores new thresholds and invalidates cached copies.
// Completed audits keep the verdicts they were frozen with.
func (s *SchemaService) UpdateThresholds(ctx context.Context, id uuid.UUID, req ThresholdsRequest) (*SchemaResponse, error) {
	schema, err := s.schemas.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	t := toThresholds(req)
	if err := t.Validate(); err != nil {
		return nil, err
	}
	schema.Thresholds = t
	schema.Touch()

	if err := s.schemas.Save(ctx, schema); err != nil {
		return nil, err
	}
	if err := s.Invalidate(ctx, id); err != nil {
		return nil, err
	}

	resp := ToSchemaResponse(schema)
	return &resp, nil
}

// Invalidate drops the cached thresholds of a schema
func (s *SchemaService) Invalidate(ctx context.Context, id uuid.UUID) error {
	if s.invalidator == nil {
		return nil
	}
	if err := s.invalidator.Invalidate(ctx, id); err != nil {
		s.logger.Warn("Threshold invalidation failed",
			zap.String("schema_id", id.String()),
			zap.Error(err))
		return err
	}
	return nil
}

func toThresholds(r ThresholdsRequest) audit.Thresholds {
	return audit.Thresholds{Overall: r.Overall, Section: r.Section, Category: r.Category}
}
