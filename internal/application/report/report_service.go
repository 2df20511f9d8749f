package report

import (
	"context"
	"strings"
	"time"

	"github.com/foodaudit/backend/internal/domain/audit"
	"github.com/foodaudit/backend/internal/domain/report"
	"github.com/foodaudit/backend/internal/domain/shared"
	"github.com/foodaudit/backend/internal/infrastructure/cache"
	"github.com/foodaudit/backend/internal/infrastructure/retry"
	"github.com/foodaudit/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ThresholdProvider resolves thresholds for a schema. It never fails.
type ThresholdProvider interface {
	GetThresholds(ctx context.Context, schemaID uuid.UUID) audit.Thresholds
}

// MemoFactory creates the per-generation history memo
type MemoFactory func() shared.Cache[[]audit.HistoricalRecord]

// GenerateOptions narrows what a report contains
type GenerateOptions struct {
	// Department limits findings to one department; empty means all
	Department string
	// Cycles are the trend columns; empty derives them from history
	Cycles          []string
	IncludeEvidence bool
}

// ReportService assembles audit reports from scoring, findings, history and evidence
type ReportService struct {
	audits     audit.Repository
	schemas    audit.SchemaRepository
	thresholds ThresholdProvider
	evidence   *EvidenceResolver
	newMemo    MemoFactory
	retry      retry.Config
	window     int
	metrics    *telemetry.ReportMetrics
	logger     *zap.Logger
	now        func() time.Time
}

// ServiceOption configures a ReportService
type ServiceOption func(*ReportService)

// WithEvidenceResolver enables evidence attachment
func WithEvidenceResolver(r *EvidenceResolver) ServiceOption {
	return func(s *ReportService) {
		s.evidence = r
	}
}

// WithMemoFactory replaces the in-memory history memo
func WithMemoFactory(f MemoFactory) ServiceOption {
	return func(s *ReportService) {
		if f != nil {
			s.newMemo = f
		}
	}
}

// WithHistoryRetry sets the retry policy for history reads
func WithHistoryRetry(cfg retry.Config) ServiceOption {
	return func(s *ReportService) {
		s.retry = cfg
	}
}

// WithTrendCycles sets the default number of trend columns
func WithTrendCycles(n int) ServiceOption {
	return func(s *ReportService) {
		s.window = n
	}
}

// WithMetrics records report metrics
func WithMetrics(m *telemetry.ReportMetrics) ServiceOption {
	return func(s *ReportService) {
		s.metrics = m
	}
}

// WithServiceLogger sets the logger
func WithServiceLogger(logger *zap.Logger) ServiceOption {
	return func(s *ReportService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the generation timestamp source
func WithClock(now func() time.Time) ServiceOption {
	return func(s *ReportService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewReportService creates a new ReportService
func NewReportService(
	audits audit.Repository,
	schemas audit.SchemaRepository,
	thresholds ThresholdProvider,
	opts ...ServiceOption,
) *ReportService {
	s := &ReportService{
		audits:     audits,
		schemas:    schemas,
		thresholds: thresholds,
		newMemo:    defaultMemo,
		retry:      retry.DefaultConfig(),
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func defaultMemo() shared.Cache[[]audit.HistoricalRecord] {
	return cache.NewInMemoryCache[[]audit.HistoricalRecord](cache.WithCleanupInterval(0))
}

// sources is what a generation loads before assembling the report
type sources struct {
	header     *audit.Audit
	schema     *audit.Schema
	items      []*audit.ChecklistItem
	snapshots  []audit.SectionSnapshot
	thresholds audit.Thresholds
	historyErr error
}

// Generate builds the report of one audit. A missing audit or schema aborts
// with NOT_FOUND; unavailable history or evidence degrade to placeholders.
func (s *ReportService) Generate(ctx context.Context, auditID uuid.UUID, opts GenerateOptions) (*report.AuditReport, error) {
	start := time.Now()
	ctx, span := telemetry.StartServiceSpan(ctx, "report", "generate",
		telemetry.WithAttribute(telemetry.SpanAttrAuditID, auditID),
		telemetry.WithAttribute(telemetry.SpanAttrDepartment, opts.Department),
	)
	defer span.End()

	memo := s.newMemo()
	if closer, ok := memo.(interface{ Close() error }); ok {
		defer closer.Close()
	}
	trend := NewTrendResolver(s.audits, memo,
		WithTrendRetry(s.retry), WithTrendWindow(s.window), WithTrendLogger(s.logger))

	src, err := s.load(ctx, auditID, trend, opts.Cycles)
	if err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordReport(ctx, telemetry.OutcomeFailed, time.Since(start))
		return nil, err
	}

	sections := audit.AssembleSections(src.snapshots, src.items)
	score := s.score(src, sections)

	findings := audit.FilterByDepartment(audit.ExtractFindings(sections), opts.Department)
	groups := audit.GroupBySection(findings)

	r := &report.AuditReport{
		AuditID:        src.header.ID,
		DocumentNumber: src.header.DocumentNumber,
		StoreID:        src.header.StoreID,
		StoreName:      src.header.StoreName,
		SchemaID:       src.schema.ID,
		SchemaName:     src.schema.Name,
		Cycle:          src.header.Cycle,
		AuditDate:      src.header.AuditDate,
		Auditor:        src.header.Auditor,
		Status:         string(src.header.Status),
		GeneratedAt:    s.now(),
		Thresholds:     src.thresholds,
		Overall:        newScoreSummary(score),
		Categories:     newCategoryReports(score.Categories),
		Findings:       report.NewFindingReports(findings),
		FindingGroups:  report.NewFindingGroups(groups),
		Evidence:       report.EvidenceSummary{Items: []report.ItemEvidence{}},
	}

	degraded := false

	var evidence EvidenceResult
	if opts.IncludeEvidence && s.evidence != nil {
		evidence, err = s.evidence.Attach(ctx, itemIDs(sections))
		switch {
		case err != nil && ctx.Err() != nil:
			telemetry.RecordError(span, err)
			s.metrics.RecordReport(ctx, telemetry.OutcomeFailed, time.Since(start))
			return nil, err
		case err != nil:
			s.logger.Warn("Evidence unavailable, report degraded",
				zap.String("audit_id", auditID.String()),
				zap.Error(err))
			r.Placeholders = append(r.Placeholders, report.Placeholder{
				Code:    shared.ErrorCode(err),
				Subject: "evidence",
				Message: "Evidence images are not available",
			})
			s.metrics.RecordDegradation(ctx, "evidence")
			degraded = true
		default:
			r.Evidence = evidence.Summary
			for _, f := range evidence.Failures {
				r.Placeholders = append(r.Placeholders, report.Placeholder{
					Code:    shared.CodeExternalFetch,
					Subject: "evidence:" + f.EvidenceID.String(),
					Message: "Evidence image could not be fetched",
				})
			}
			if len(evidence.Failures) > 0 {
				telemetry.AddEvent(span, "evidence_degraded",
					"requested", evidence.Summary.Requested,
					"failed", evidence.Summary.Failed)
				degraded = true
			}
			s.metrics.RecordEvidence(ctx, evidence.Summary.Attached, evidence.Summary.Failed)
		}
	}
	r.Sections = newSectionReports(sections, score, evidence)

	q := TrendQuery{
		StoreID:        src.header.StoreID,
		SchemaID:       src.header.SchemaID,
		CurrentAuditID: src.header.ID,
		Cycles:         opts.Cycles,
		Sections:       trendSections(sections),
	}
	var tr TrendResult
	if src.historyErr != nil {
		s.logger.Warn("History unavailable, trend degraded",
			zap.String("audit_id", auditID.String()),
			zap.Error(src.historyErr))
		tr = trend.Degraded(q, src.historyErr)
	} else if tr, err = trend.Resolve(ctx, q); err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordReport(ctx, telemetry.OutcomeFailed, time.Since(start))
		return nil, err
	}
	if tr.Degraded {
		s.metrics.RecordDegradation(ctx, "history")
		degraded = true
	}
	r.Trend = tr.Table
	r.Placeholders = append(r.Placeholders, tr.Placeholders...)

	outcome := telemetry.OutcomeSuccess
	if degraded {
		outcome = telemetry.OutcomeDegraded
	}
	s.metrics.RecordScore(ctx, string(score.Strategy), string(score.Verdict), score.Percentage)
	s.metrics.RecordReport(ctx, outcome, time.Since(start))

	telemetry.SetAttributes(span,
		telemetry.SpanAttrDocumentNumber, r.DocumentNumber,
		telemetry.SpanAttrAuditStatus, r.Status,
		telemetry.SpanAttrStrategy, string(score.Strategy),
		telemetry.SpanAttrFindingCount, len(findings),
	)

	s.logger.Info("Audit report generated",
		zap.String("audit_id", auditID.String()),
		zap.String("document_number", r.DocumentNumber),
		zap.String("overall", r.Overall.Display),
		zap.String("verdict", r.Overall.Verdict),
		zap.Int("findings", len(r.Findings)),
		zap.Int("placeholders", len(r.Placeholders)),
		zap.Duration("duration", time.Since(start)))

	return r, nil
}

// load reads the header first, then fetches items, section snapshots, schema,
// thresholds and history concurrently. History failures are kept for the
// caller to degrade on; everything else is fatal.
func (s *ReportService) load(ctx context.Context, auditID uuid.UUID, trend *TrendResolver, cycles []string) (*sources, error) {
	header, err := s.audits.FindHeader(ctx, auditID)
	if err != nil {
		return nil, err
	}
	src := &sources{header: header}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := s.audits.FindItems(gctx, auditID)
		src.items = items
		return err
	})
	g.Go(func() error {
		snapshots, err := s.audits.FindSectionSnapshots(gctx, auditID)
		src.snapshots = snapshots
		return err
	})
	g.Go(func() error {
		schema, err := s.schemas.FindByID(gctx, header.SchemaID)
		src.schema = schema
		return err
	})
	g.Go(func() error {
		src.thresholds = s.thresholds.GetThresholds(gctx, header.SchemaID)
		return nil
	})
	g.Go(func() error {
		_, src.historyErr = trend.History(gctx, TrendQuery{
			StoreID:        header.StoreID,
			SchemaID:       header.SchemaID,
			CurrentAuditID: header.ID,
			Cycles:         cycles,
		})
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return src, nil
}

// score recomputes open audits. Completed audits keep their persisted
// section scores and overall result; only items are evaluated for display,
// and categories are judged against the thresholds frozen at completion.
func (s *ReportService) score(src *sources, sections []*audit.Section) audit.AuditScore {
	policy := src.schema.ScoringPolicy(src.thresholds)

	if !src.header.IsFrozen() {
		for _, sec := range sections {
			sec.Recalculate(policy.UnsetChoice)
		}
		score := audit.Aggregate(sections, policy.Strategy, policy.Thresholds)
		audit.ApplyVerdicts(sections, score)
		return score
	}

	for _, sec := range sections {
		for _, item := range sec.Items {
			item.Evaluate(policy.UnsetChoice)
		}
	}
	strategy := src.header.Score.Strategy
	if !strategy.IsValid() {
		strategy = policy.Strategy
	}
	thresholds := policy.Thresholds
	if src.header.FrozenThresholds != nil {
		thresholds = *src.header.FrozenThresholds
	}
	score := audit.Aggregate(sections, strategy, thresholds)
	for i, sec := range sections {
		if sec.Score.Verdict != "" {
			score.Sections[i].Score.Verdict = sec.Score.Verdict
		}
	}
	stored := src.header.Score
	if stored.Verdict != "" {
		score.Earned = stored.Earned
		score.Max = stored.Max
		score.Percentage = stored.Percentage
		score.Verdict = stored.Verdict
	}
	return score
}

// ActionPlan returns the findings of an audit, optionally for one department
func (s *ReportService) ActionPlan(ctx context.Context, auditID uuid.UUID, department string) (*report.ActionPlan, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "report", "action_plan",
		telemetry.WithAttribute(telemetry.SpanAttrAuditID, auditID),
		telemetry.WithAttribute(telemetry.SpanAttrDepartment, department),
	)
	defer span.End()

	a, err := s.audits.FindByID(ctx, auditID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	findings := audit.FilterByDepartment(audit.ExtractFindings(a.Sections), department)
	telemetry.SetAttributes(span, telemetry.SpanAttrFindingCount, len(findings))

	return &report.ActionPlan{
		AuditID:        a.ID,
		DocumentNumber: a.DocumentNumber,
		Department:     strings.TrimSpace(department),
		Findings:       report.NewFindingReports(findings),
		Groups:         report.NewFindingGroups(audit.GroupBySection(findings)),
	}, nil
}

func itemIDs(sections []*audit.Section) []uuid.UUID {
	ids := make([]uuid.UUID, 0)
	for _, sec := range sections {
		for _, item := range sec.Items {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

func trendSections(sections []*audit.Section) []TrendSection {
	out := make([]TrendSection, len(sections))
	for i, sec := range sections {
		out[i] = TrendSection{Number: sec.Number, Title: sec.Title}
	}
	return out
}

func newScoreSummary(score audit.AuditScore) report.ScoreSummary {
	return report.ScoreSummary{
		Strategy:   string(score.Strategy),
		Earned:     score.Earned,
		Max:        score.Max,
		Percentage: score.Percentage,
		Defined:    score.Percentage != nil,
		Display:    audit.FormatPercentage(score.Percentage),
		Verdict:    string(score.Verdict),
	}
}

func newCategoryReports(categories []audit.CategoryScore) []report.CategoryReport {
	out := make([]report.CategoryReport, len(categories))
	for i, c := range categories {
		out[i] = report.CategoryReport{
			Category:   c.Category,
			Percentage: c.Percentage,
			Display:    audit.FormatPercentage(c.Percentage),
			Verdict:    string(c.Verdict),
		}
	}
	return out
}

func newSectionReports(sections []*audit.Section, score audit.AuditScore, evidence EvidenceResult) []report.SectionReport {
	out := make([]report.SectionReport, len(sections))
	for i, sec := range sections {
		sc := sec.Score
		if i < len(score.Sections) {
			sc = score.Sections[i].Score
		}
		items := make([]report.ItemReport, len(sec.Items))
		for j, item := range sec.Items {
			items[j] = report.ItemReport{
				ItemID:          item.ID,
				Reference:       item.Reference,
				Title:           item.Title,
				Weight:          item.Weight,
				Choice:          item.Selected.String(),
				Value:           item.Value.Value(),
				State:           string(item.Value.State),
				ValidationError: item.ValidationError,
				EvidenceCount:   evidence.CountFor(item.ID),
			}
		}
		out[i] = report.SectionReport{
			Number:             sec.Number,
			Title:              sec.Title,
			Category:           sec.Category,
			Earned:             sc.Earned,
			Max:                sc.Max,
			Percentage:         sc.Percentage,
			Defined:            sc.IsDefined(),
			Display:            audit.FormatPercentage(sc.Percentage),
			Verdict:            string(sc.Verdict),
			AnsweredCount:      sc.AnsweredCount,
			UnansweredCount:    sc.UnansweredCount,
			NotApplicableCount: sc.NotApplicableCount,
			InvalidCount:       sc.InvalidCount,
			Items:              items,
		}
	}
	return out
}
