package audit

import (
	"fmt"
	"strings"

	"github.com/foodaudit/backend/internal/domain/shared"
)

// Choice is the answer selected for a checklist question
type Choice string

const (
	ChoiceUnset         Choice = ""
	ChoiceYes           Choice = "YES"
	ChoicePartially     Choice = "PARTIALLY"
	ChoiceNo            Choice = "NO"
	ChoiceNotApplicable Choice = "NA"
)

// DefaultAnswerDomain is used for template questions that do not declare their own
func DefaultAnswerDomain() []Choice {
	return []Choice{ChoiceYes, ChoicePartially, ChoiceNo, ChoiceNotApplicable}
}

// IsValid checks if the choice is one of the known variants
func (c Choice) IsValid() bool {
	switch c {
	case ChoiceUnset, ChoiceYes, ChoicePartially, ChoiceNo, ChoiceNotApplicable:
		return true
	default:
		return false
	}
}

// IsSet returns true once an answer has been selected
func (c Choice) IsSet() bool {
	return c != ChoiceUnset
}

// IsNonCompliant returns true for answers that always surface as a finding
func (c Choice) IsNonCompliant() bool {
	return c == ChoiceNo || c == ChoicePartially
}

// String returns the display label
func (c Choice) String() string {
	switch c {
	case ChoiceYes:
		return "Yes"
	case ChoicePartially:
		return "Partially"
	case ChoiceNo:
		return "No"
	case ChoiceNotApplicable:
		return "NA"
	default:
		return ""
	}
}

// ParseChoice converts a raw answer label into a Choice.
// Unknown labels are rejected rather than scored.
func ParseChoice(raw string) (Choice, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "":
		return ChoiceUnset, nil
	case "YES", "Y":
		return ChoiceYes, nil
	case "PARTIALLY", "PARTIAL":
		return ChoicePartially, nil
	case "NO", "N":
		return ChoiceNo, nil
	case "NA", "N/A", "NOT APPLICABLE", "NOT_APPLICABLE":
		return ChoiceNotApplicable, nil
	default:
		return ChoiceUnset, shared.NewValidationError(fmt.Sprintf("unrecognized choice %q", raw))
	}
}

// ParseAnswerDomain parses a comma-separated list of choice labels.
// An empty string yields the default domain.
func ParseAnswerDomain(raw string) ([]Choice, error) {
	if strings.TrimSpace(raw) == "" {
		return DefaultAnswerDomain(), nil
	}
	parts := strings.Split(raw, ",")
	domain := make([]Choice, 0, len(parts))
	for _, p := range parts {
		c, err := ParseChoice(p)
		if err != nil {
			return nil, err
		}
		if c == ChoiceUnset {
			continue
		}
		domain = append(domain, c)
	}
	return domain, nil
}

// FormatAnswerDomain is the inverse of ParseAnswerDomain
func FormatAnswerDomain(domain []Choice) string {
	labels := make([]string, len(domain))
	for i, c := range domain {
		labels[i] = string(c)
	}
	return strings.Join(labels, ",")
}

// inDomain reports whether c is allowed by domain. Unset is always allowed.
func inDomain(c Choice, domain []Choice) bool {
	if c == ChoiceUnset {
		return true
	}
	for _, d := range domain {
		if d == c {
			return true
		}
	}
	return false
}
