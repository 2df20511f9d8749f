package report

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/foodaudit/backend/internal/domain/audit"
	"github.com/foodaudit/backend/internal/domain/report"
	"github.com/foodaudit/backend/internal/domain/shared"
	"github.com/foodaudit/backend/internal/infrastructure/retry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultTrendCycles is how many past cycles are shown when none are requested
const DefaultTrendCycles = 4

// HistorySource lists prior completed audits of a store
type HistorySource interface {
	FindCompletedByStore(ctx context.Context, storeID, schemaID, excludeID uuid.UUID) ([]audit.HistoricalRecord, error)
}

// TrendSection identifies one row of the trend table
type TrendSection struct {
	Number int
	Title  string
}

// TrendQuery selects the history shown next to an audit
type TrendQuery struct {
	StoreID        uuid.UUID
	SchemaID       uuid.UUID
	CurrentAuditID uuid.UUID
	Cycles         []string
	Sections       []TrendSection
}

func (q TrendQuery) memoKey() string {
	return fmt.Sprintf("history:%s:%s:%s", q.StoreID, q.SchemaID, q.CurrentAuditID)
}

// TrendResult is a resolved trend table plus the gaps found while building it
type TrendResult struct {
	Table        report.TrendTable
	Placeholders []report.Placeholder
	Degraded     bool
}

// TrendResolver resolves per-cycle historical percentages for a store.
// History is fetched once per resolver and kept in memo, so one resolver
// should serve exactly one report generation.
type TrendResolver struct {
	source HistorySource
	memo   shared.Cache[[]audit.HistoricalRecord]
	retry  retry.Config
	window int
	logger *zap.Logger
}

// TrendOption configures a TrendResolver
type TrendOption func(*TrendResolver)

// WithTrendRetry sets the retry policy for history reads
func WithTrendRetry(cfg retry.Config) TrendOption {
	return func(r *TrendResolver) {
		r.retry = cfg
	}
}

// WithTrendWindow sets how many recent cycles are shown when none are requested
func WithTrendWindow(n int) TrendOption {
	return func(r *TrendResolver) {
		if n > 0 {
			r.window = n
		}
	}
}

// WithTrendLogger sets the logger
func WithTrendLogger(logger *zap.Logger) TrendOption {
	return func(r *TrendResolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewTrendResolver creates a resolver reading from source and memoizing into memo
func NewTrendResolver(source HistorySource, memo shared.Cache[[]audit.HistoricalRecord], opts ...TrendOption) *TrendResolver {
	r := &TrendResolver{
		source: source,
		memo:   memo,
		retry:  retry.DefaultConfig(),
		window: DefaultTrendCycles,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// History returns the completed audits of the query's store, newest first.
// The current audit is never part of the result.
func (r *TrendResolver) History(ctx context.Context, q TrendQuery) ([]audit.HistoricalRecord, error) {
	key := q.memoKey()
	if cached, ok, err := r.memo.Get(ctx, key); err == nil && ok {
		return cached, nil
	}

	var records []audit.HistoricalRecord
	err := retry.Do(ctx, r.retry, func(ctx context.Context) error {
		var fetchErr error
		records, fetchErr = r.source.FindCompletedByStore(ctx, q.StoreID, q.SchemaID, q.CurrentAuditID)
		return fetchErr
	}, func(err error, attempt int) {
		r.logger.Debug("Retrying history fetch",
			zap.String("store_id", q.StoreID.String()),
			zap.Int("attempt", attempt),
			zap.Error(err))
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, shared.NewExternalFetchError("audit history", err)
	}

	history := make([]audit.HistoricalRecord, 0, len(records))
	for _, rec := range records {
		if rec.AuditID == q.CurrentAuditID {
			continue
		}
		history = append(history, rec)
	}
	audit.SortHistory(history)

	if err := r.memo.Set(ctx, key, history, 0); err != nil {
		r.logger.Warn("Failed to memoize history", zap.String("key", key), zap.Error(err))
	}
	return history, nil
}

// SectionPercentage returns the percentage a section scored in the audit
// matched to cycle, or a NotAvailable value when there is none.
func (r *TrendResolver) SectionPercentage(ctx context.Context, q TrendQuery, cycle string, sectionNumber int) (report.TrendValue, error) {
	history, err := r.History(ctx, q)
	if err != nil {
		return report.NotAvailable(cycle), err
	}
	rec, ok := audit.SelectForCycle(history, cycle, q.CurrentAuditID)
	if !ok {
		return report.NotAvailable(cycle), nil
	}
	pct, _ := rec.SectionPercentage(sectionNumber)
	return report.NewTrendValue(cycle, rec, pct), nil
}

// Resolve builds the trend table for the query. Missing history never fails
// the call: unmatched cycles become NotAvailable values with a placeholder,
// and an unreachable history store yields an all-NotAvailable table.
// Only context cancellation is returned as an error.
func (r *TrendResolver) Resolve(ctx context.Context, q TrendQuery) (TrendResult, error) {
	history, err := r.History(ctx, q)
	if err != nil {
		if ctx.Err() != nil {
			return TrendResult{}, ctx.Err()
		}
		r.logger.Warn("History unavailable, trend degraded",
			zap.String("store_id", q.StoreID.String()),
			zap.String("audit_id", q.CurrentAuditID.String()),
			zap.Error(err))
		return r.Degraded(q, err), nil
	}

	cycles := q.Cycles
	if len(cycles) == 0 {
		cycles = recentCycles(history, r.window)
	}

	result := TrendResult{Table: newTrendTable(cycles, q.Sections)}
	for ci, cycle := range cycles {
		rec, ok := audit.SelectForCycle(history, cycle, q.CurrentAuditID)
		if !ok {
			result.Placeholders = append(result.Placeholders, report.Placeholder{
				Code:    shared.CodePartialData,
				Subject: "trend:" + cycle,
				Message: fmt.Sprintf("No completed audit found for cycle %s", cycle),
			})
			continue
		}
		result.Table.Overall[ci] = report.NewTrendValue(cycle, rec, rec.OverallPercentage)
		for si, sec := range q.Sections {
			pct, _ := rec.SectionPercentage(sec.Number)
			result.Table.Sections[si].Values[ci] = report.NewTrendValue(cycle, rec, pct)
		}
	}

	r.logger.Debug("Trend resolved",
		zap.String("audit_id", q.CurrentAuditID.String()),
		zap.Int("history", len(history)),
		zap.Int("cycles", len(cycles)),
		zap.Int("missing", len(result.Placeholders)))
	return result, nil
}

// Degraded returns an all-NotAvailable result for a history failure
func (r *TrendResolver) Degraded(q TrendQuery, err error) TrendResult {
	return TrendResult{
		Table: newTrendTable(q.Cycles, q.Sections),
		Placeholders: []report.Placeholder{{
			Code:    shared.ErrorCode(err),
			Subject: "trend",
			Message: "Historical audits are not available",
		}},
		Degraded: true,
	}
}

// newTrendTable returns a table where every cell is NotAvailable
func newTrendTable(cycles []string, sections []TrendSection) report.TrendTable {
	if cycles == nil {
		cycles = []string{}
	}
	table := report.TrendTable{
		Cycles:   cycles,
		Overall:  notAvailableRow(cycles),
		Sections: make([]report.TrendRow, len(sections)),
	}
	for i, sec := range sections {
		table.Sections[i] = report.TrendRow{
			SectionNumber: sec.Number,
			Title:         sec.Title,
			Values:        notAvailableRow(cycles),
		}
	}
	return table
}

func notAvailableRow(cycles []string) []report.TrendValue {
	row := make([]report.TrendValue, len(cycles))
	for i, c := range cycles {
		row[i] = report.NotAvailable(c)
	}
	return row
}

// recentCycles returns up to limit distinct cycle labels from newest-first
// history, oldest first so the table reads left to right in time.
func recentCycles(history []audit.HistoricalRecord, limit int) []string {
	seen := make(map[string]bool)
	cycles := make([]string, 0, limit)
	for _, rec := range history {
		label := strings.TrimSpace(rec.Cycle)
		key := strings.ToUpper(label)
		if label == "" || seen[key] {
			continue
		}
		seen[key] = true
		cycles = append(cycles, label)
		if len(cycles) == limit {
			break
		}
	}
	for i, j := 0, len(cycles)-1; i < j; i, j = i+1, j-1 {
		cycles[i], cycles[j] = cycles[j], cycles[i]
	}
	return cycles
}
