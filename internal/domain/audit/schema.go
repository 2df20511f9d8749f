package audit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/foodaudit/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// QuestionTemplate is a master question copied into every new audit
type QuestionTemplate struct {
	Reference    string
	Title        string
	Weight       decimal.Decimal
	AnswerDomain []Choice
	Departments  string
}

// SectionTemplate is an ordered group of master questions
type SectionTemplate struct {
	Number    int
	Title     string
	Category  string
	Questions []QuestionTemplate
}

// Schema defines a class of audits
type Schema struct {
	shared.BaseAggregateRoot
	Name              string
	DocumentPrefix    string
	Thresholds        Thresholds
	Strategy          Strategy
	UnsetChoicePolicy UnsetChoicePolicy
	Sections          []SectionTemplate
}

// NewSchema creates a schema with default thresholds and scoring policy
func NewSchema(name, documentPrefix string, sections []SectionTemplate) (*Schema, error) {
	s := &Schema{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              strings.TrimSpace(name),
		DocumentPrefix:    strings.ToUpper(strings.TrimSpace(documentPrefix)),
		Thresholds:        DefaultThresholds(),
		Strategy:          StrategyWeightedGlobal,
		UnsetChoicePolicy: UnsetScoreZero,
		Sections:          sections,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the schema definition
func (s *Schema) Validate() error {
	if s.Name == "" {
		return shared.NewValidationError("schema name cannot be empty")
	}
	if s.DocumentPrefix == "" {
		return shared.NewValidationError("document prefix cannot be empty")
	}
	if !s.Strategy.IsValid() {
		return shared.NewValidationError("unknown aggregation strategy " + string(s.Strategy))
	}
	if !s.UnsetChoicePolicy.IsValid() {
		return shared.NewValidationError("unknown unset choice policy " + string(s.UnsetChoicePolicy))
	}
	if err := s.Thresholds.Validate(); err != nil {
		return err
	}

	seen := make(map[int]bool, len(s.Sections))
	for _, sec := range s.Sections {
		if seen[sec.Number] {
			return shared.NewValidationError(fmt.Sprintf("duplicate section number %d", sec.Number))
		}
		seen[sec.Number] = true
		for _, q := range sec.Questions {
			if !q.Weight.IsPositive() {
				return shared.NewValidationError(fmt.Sprintf("question %s: weight must be positive", q.Reference))
			}
		}
	}
	return nil
}

// SectionTemplate returns the template with number, if present
func (s *Schema) SectionTemplate(number int) (SectionTemplate, bool) {
	for _, t := range s.Sections {
		if t.Number == number {
			return t, true
		}
	}
	return SectionTemplate{}, false
}

// SectionNumbers lists section numbers in schema order
func (s *Schema) SectionNumbers() []int {
	out := make([]int, len(s.Sections))
	for i, t := range s.Sections {
		out[i] = t.Number
	}
	return out
}

// ScoringPolicy bundles what is needed to score an audit of this schema
func (s *Schema) ScoringPolicy(thresholds Thresholds) ScoringPolicy {
	return ScoringPolicy{
		Strategy:    s.Strategy,
		UnsetChoice: s.UnsetChoicePolicy,
		Thresholds:  thresholds,
	}
}

// ScoringPolicy is the full set of scoring knobs for one audit
type ScoringPolicy struct {
	Strategy    Strategy
	UnsetChoice UnsetChoicePolicy
	Thresholds  Thresholds
}

func sectionLabel(number int, title string) string {
	if strings.TrimSpace(title) == "" {
		return strconv.Itoa(number)
	}
	return strconv.Itoa(number) + ". " + title
}
