package audit

import (
	"fmt"

	"github.com/foodaudit/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ValueState describes how an item contributes to its section score
type ValueState string

const (
	ValueUnanswered    ValueState = "UNANSWERED"
	ValueScored        ValueState = "SCORED"
	ValueNotApplicable ValueState = "NOT_APPLICABLE"
	ValueInvalid       ValueState = "INVALID"
)

// UnsetChoicePolicy decides how unanswered items are scored
type UnsetChoicePolicy string

const (
	// UnsetScoreZero counts unanswered items as zero against the full weight
	UnsetScoreZero UnsetChoicePolicy = "score_zero"
	// UnsetExclude leaves unanswered items out of the denominator
	UnsetExclude UnsetChoicePolicy = "exclude"
)

// IsValid checks if the policy is known
func (p UnsetChoicePolicy) IsValid() bool {
	return p == UnsetScoreZero || p == UnsetExclude
}

var (
	partialFactor = decimal.NewFromFloat(0.5)
	hundred       = decimal.NewFromInt(100)
)

// ItemValue is the scored contribution of one checklist item.
// Earned and Max are both zero for items that do not count.
type ItemValue struct {
	State  ValueState
	Earned decimal.Decimal
	Max    decimal.Decimal
}

// Counts returns true if the item contributes to the denominator
func (v ItemValue) Counts() bool {
	return v.Max.IsPositive()
}

// Value returns the earned value, or nil when the item has no value (NA or excluded)
func (v ItemValue) Value() *decimal.Decimal {
	if !v.Counts() {
		return nil
	}
	earned := v.Earned
	return &earned
}

// ScoreChoice maps a choice and weight to an item value.
// Yes earns the full weight, Partially half, No nothing. NA earns no value and
// adds nothing to the maximum. Unset depends on the policy.
func ScoreChoice(choice Choice, weight decimal.Decimal, policy UnsetChoicePolicy) (ItemValue, error) {
	if !weight.IsPositive() {
		return ItemValue{State: ValueInvalid}, shared.NewValidationError(
			fmt.Sprintf("weight must be positive, got %s", weight.String()))
	}

	switch choice {
	case ChoiceYes:
		return ItemValue{State: ValueScored, Earned: weight, Max: weight}, nil
	case ChoicePartially:
		return ItemValue{State: ValueScored, Earned: weight.Mul(partialFactor), Max: weight}, nil
	case ChoiceNo:
		return ItemValue{State: ValueScored, Earned: decimal.Zero, Max: weight}, nil
	case ChoiceNotApplicable:
		return ItemValue{State: ValueNotApplicable, Earned: decimal.Zero, Max: decimal.Zero}, nil
	case ChoiceUnset:
		if policy == UnsetExclude {
			return ItemValue{State: ValueUnanswered, Earned: decimal.Zero, Max: decimal.Zero}, nil
		}
		return ItemValue{State: ValueUnanswered, Earned: decimal.Zero, Max: weight}, nil
	default:
		return ItemValue{State: ValueInvalid}, shared.NewValidationError(
			fmt.Sprintf("unrecognized choice %q", string(choice)))
	}
}

// Percentage returns earned/max*100 rounded to two decimals, or nil when max is zero.
// Rounding happens here only; sums are carried at full precision.
func Percentage(earned, max decimal.Decimal) *decimal.Decimal {
	if !max.IsPositive() {
		return nil
	}
	pct := earned.Div(max).Mul(hundred).Round(2)
	return &pct
}

// FormatPercentage renders a percentage for display, "N/A" when undefined
func FormatPercentage(pct *decimal.Decimal) string {
	if pct == nil {
		return "N/A"
	}
	return pct.StringFixed(2) + "%"
}
