package audit

import (
	"context"

	"github.com/foodaudit/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Verdict is the pass/fail outcome of a score against its threshold
type Verdict string

const (
	VerdictPass     Verdict = "PASS"
	VerdictFail     Verdict = "FAIL"
	VerdictNotRated Verdict = "NOT_RATED"
)

// Thresholds are the passing percentages for a schema
type Thresholds struct {
	Overall  decimal.Decimal `json:"overall"`
	Section  decimal.Decimal `json:"section"`
	Category decimal.Decimal `json:"category"`
}

// DefaultThresholds is used whenever the configuration store cannot supply values
func DefaultThresholds() Thresholds {
	d := decimal.NewFromInt(83)
	return Thresholds{Overall: d, Section: d, Category: d}
}

// Validate checks that every threshold is within [0, 100]
func (t Thresholds) Validate() error {
	for _, v := range []decimal.Decimal{t.Overall, t.Section, t.Category} {
		if v.IsNegative() || v.GreaterThan(hundred) {
			return shared.NewValidationError("threshold must be between 0 and 100")
		}
	}
	return nil
}

// Judge compares a percentage against threshold. The threshold itself passes.
func Judge(pct *decimal.Decimal, threshold decimal.Decimal) Verdict {
	if pct == nil {
		return VerdictNotRated
	}
	if pct.GreaterThanOrEqual(threshold) {
		return VerdictPass
	}
	return VerdictFail
}

// ThresholdInvalidation announces that cached thresholds are stale
type ThresholdInvalidation struct {
	SchemaID  string `json:"schema_id,omitempty"`
	All       bool   `json:"all,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// ThresholdInvalidator broadcasts threshold invalidations between instances
type ThresholdInvalidator interface {
	Publish(ctx context.Context, msg ThresholdInvalidation) error
	// Subscribe blocks and calls callback for every received message until ctx is done
	Subscribe(ctx context.Context, callback func(msg ThresholdInvalidation)) error
	Close() error
}
