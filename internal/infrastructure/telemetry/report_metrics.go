package telemetry

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Report outcomes
const (
	OutcomeSuccess  = "success"
	OutcomeDegraded = "degraded"
	OutcomeFailed   = "failed"
)

// ReportMetrics tracks report generation and the scores it produces.
// A nil *ReportMetrics is valid and records nothing.
type ReportMetrics struct {
	logger *zap.Logger

	reportsTotal      *Counter
	reportDuration    *Histogram
	scorePercentage   *Histogram
	evidenceAttached  *Counter
	evidenceFailed    *Counter
	degradationsTotal *Counter
}

// NewReportMetrics creates the report instruments on meter.
func NewReportMetrics(meter metric.Meter, logger *zap.Logger) (*ReportMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &ReportMetrics{logger: logger}
	var err error

	m.reportsTotal, err = NewCounter(meter,
		"audit_report_generated_total",
		"Total number of audit reports generated",
		"{reports}",
	)
	if err != nil {
		return nil, err
	}

	m.reportDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "audit_report_duration_seconds",
		Description: "Audit report generation latency",
		Unit:        "s",
		Boundaries:  ReportDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	m.scorePercentage, err = NewHistogram(meter, HistogramOpts{
		Name:        "audit_score_percentage",
		Description: "Overall audit score percentage per generated report",
		Unit:        "%",
		Boundaries:  PercentageBuckets,
	})
	if err != nil {
		return nil, err
	}

	m.evidenceAttached, err = NewCounter(meter,
		"audit_evidence_attached_total",
		"Evidence images embedded into reports",
		"{images}",
	)
	if err != nil {
		return nil, err
	}

	m.evidenceFailed, err = NewCounter(meter,
		"audit_evidence_failed_total",
		"Evidence images that could not be fetched",
		"{images}",
	)
	if err != nil {
		return nil, err
	}

	m.degradationsTotal, err = NewCounter(meter,
		"audit_report_degradations_total",
		"Report sections produced with placeholder data",
		"{degradations}",
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordReport records one finished report generation.
func (m *ReportMetrics) RecordReport(ctx context.Context, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.reportsTotal.Inc(ctx, AttrOutcome.String(outcome))
	m.reportDuration.RecordDuration(ctx, d, AttrOutcome.String(outcome))
}

// RecordScore records the overall percentage of a report. Undefined scores are skipped.
func (m *ReportMetrics) RecordScore(ctx context.Context, strategy, verdict string, pct *decimal.Decimal) {
	if m == nil || pct == nil {
		return
	}
	m.scorePercentage.Record(ctx, pct.InexactFloat64(),
		AttrStrategy.String(strategy),
		AttrVerdict.String(verdict),
	)
}

// RecordEvidence records evidence fetch results for one report.
func (m *ReportMetrics) RecordEvidence(ctx context.Context, attached, failed int) {
	if m == nil {
		return
	}
	if attached > 0 {
		m.evidenceAttached.Add(ctx, int64(attached))
	}
	if failed > 0 {
		m.evidenceFailed.Add(ctx, int64(failed))
	}
}

// RecordDegradation records a dependency that fell back to placeholder data.
func (m *ReportMetrics) RecordDegradation(ctx context.Context, dependency string) {
	if m == nil {
		return
	}
	m.degradationsTotal.Inc(ctx, AttrDependency.String(dependency))
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewReportMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
