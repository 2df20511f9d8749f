package audit

import (
	"strings"

	"github.com/foodaudit/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ChecklistItem is one scored question inside an audit section
type ChecklistItem struct {
	ID               uuid.UUID
	SectionNumber    int
	Reference        string
	Title            string
	Weight           decimal.Decimal
	AnswerDomain     []Choice
	Selected         Choice
	FindingText      string
	CorrectiveAction string
	Priority         Priority
	Departments      string
	Escalate         bool
	HasPicture       bool
	SortOrder        int

	// InputError is set when stored data for this item could not be parsed.
	// Such items are flagged invalid on every evaluation.
	InputError string

	// LabelWarning notes stored priority or answer-domain labels that were
	// replaced with defaults. It does not affect scoring.
	LabelWarning string

	// Value and ValidationError hold the result of the last Evaluate call
	Value           ItemValue
	ValidationError string
}

// NewChecklistItem creates an unanswered item from a question template
func NewChecklistItem(sectionNumber int, q QuestionTemplate, sortOrder int) *ChecklistItem {
	domain := q.AnswerDomain
	if len(domain) == 0 {
		domain = DefaultAnswerDomain()
	}
	return &ChecklistItem{
		ID:            uuid.New(),
		SectionNumber: sectionNumber,
		Reference:     q.Reference,
		Title:         q.Title,
		Weight:        q.Weight,
		AnswerDomain:  append([]Choice(nil), domain...),
		Selected:      ChoiceUnset,
		Departments:   q.Departments,
		SortOrder:     sortOrder,
	}
}

// Evaluate scores the item and records the outcome on the item.
// Problems are kept on the item; they never fail the enclosing section.
func (i *ChecklistItem) Evaluate(policy UnsetChoicePolicy) ItemValue {
	if i.InputError != "" {
		i.flagInvalid(i.InputError)
		return i.Value
	}
	if !inDomain(i.Selected, i.AnswerDomain) {
		i.flagInvalid("choice " + string(i.Selected) + " is not allowed for this question")
		return i.Value
	}

	value, err := ScoreChoice(i.Selected, i.Weight, policy)
	if err != nil {
		i.flagInvalid(err.Error())
		return i.Value
	}
	i.Value = value
	i.ValidationError = ""
	return i.Value
}

func (i *ChecklistItem) flagInvalid(reason string) {
	i.Value = ItemValue{State: ValueInvalid, Earned: decimal.Zero, Max: decimal.Zero}
	i.ValidationError = reason
}

// IsInvalid returns true when the last evaluation flagged the item
func (i *ChecklistItem) IsInvalid() bool {
	return i.Value.State == ValueInvalid
}

// IsFinding returns true for non-compliant answers, and for any item the
// auditor annotated (priority, texts, picture or escalation).
func (i *ChecklistItem) IsFinding() bool {
	switch {
	case i.Selected.IsNonCompliant():
		return true
	case i.Priority.IsSet(), i.HasPicture, i.Escalate:
		return true
	case strings.TrimSpace(i.FindingText) != "", strings.TrimSpace(i.CorrectiveAction) != "":
		return true
	default:
		return false
	}
}

// InDepartment reports whether the item is assigned to department
func (i *ChecklistItem) InDepartment(department string) bool {
	return MatchesDepartment(i.Departments, department)
}

// Answer holds the editable fields of one checklist item
type Answer struct {
	ItemID           uuid.UUID
	Choice           string
	FindingText      string
	CorrectiveAction string
	Priority         string
	Departments      *string
	Escalate         bool
	HasPicture       bool
}

// Apply parses and stores the answer on the item. On error the item is left unchanged.
func (i *ChecklistItem) Apply(a Answer) error {
	choice, err := ParseChoice(a.Choice)
	if err != nil {
		return err
	}
	if !inDomain(choice, i.AnswerDomain) {
		return shared.NewValidationError("choice " + choice.String() + " is not allowed for item " + i.Reference)
	}
	priority, err := ParsePriority(a.Priority)
	if err != nil {
		return err
	}

	i.Selected = choice
	i.FindingText = strings.TrimSpace(a.FindingText)
	i.CorrectiveAction = strings.TrimSpace(a.CorrectiveAction)
	i.Priority = priority
	if a.Departments != nil {
		i.Departments = strings.Join(SplitDepartments(*a.Departments), ", ")
	}
	i.Escalate = a.Escalate
	i.HasPicture = a.HasPicture
	i.InputError = ""
	i.LabelWarning = ""
	return nil
}
