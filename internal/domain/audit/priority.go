package audit

import (
	"fmt"
	"strings"

	"github.com/foodaudit/backend/internal/domain/shared"
)

// Priority is the urgency assigned to a checklist finding
type Priority string

const (
	PriorityUnset  Priority = ""
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// IsValid checks if the priority is one of the known variants
func (p Priority) IsValid() bool {
	switch p {
	case PriorityUnset, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// IsSet returns true when a priority was assigned
func (p Priority) IsSet() bool {
	return p != PriorityUnset
}

// Rank orders priorities for the action plan: High=1, Medium=2, Low=3, unset=4
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

// String returns the display label
func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "High"
	case PriorityMedium:
		return "Medium"
	case PriorityLow:
		return "Low"
	default:
		return ""
	}
}

// ParsePriority converts a raw label into a Priority
func ParsePriority(raw string) (Priority, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "":
		return PriorityUnset, nil
	case "HIGH", "H":
		return PriorityHigh, nil
	case "MEDIUM", "MED", "M":
		return PriorityMedium, nil
	case "LOW", "L":
		return PriorityLow, nil
	default:
		return PriorityUnset, shared.NewValidationError(fmt.Sprintf("unrecognized priority %q", raw))
	}
}
