package report

import (
	"time"

	"github.com/foodaudit/backend/internal/domain/audit"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuditReport is the read model handed to the renderer.
// Gaps in history or evidence show up as placeholders, never as zero values.
type AuditReport struct {
	AuditID        uuid.UUID        `json:"audit_id"`
	DocumentNumber string           `json:"document_number"`
	StoreID        uuid.UUID        `json:"store_id"`
	StoreName      string           `json:"store_name"`
	SchemaID       uuid.UUID        `json:"schema_id"`
	SchemaName     string           `json:"schema_name"`
	Cycle          string           `json:"cycle"`
	AuditDate      time.Time        `json:"audit_date"`
	Auditor        string           `json:"auditor,omitempty"`
	Status         string           `json:"status"`
	GeneratedAt    time.Time        `json:"generated_at"`
	Thresholds     audit.Thresholds `json:"thresholds"`
	Overall        ScoreSummary     `json:"overall"`
	Sections       []SectionReport  `json:"sections"`
	Categories     []CategoryReport `json:"categories"`
	Findings       []FindingReport  `json:"findings"`
	FindingGroups  []FindingGroup   `json:"finding_groups"`
	Trend          TrendTable       `json:"trend"`
	Evidence       EvidenceSummary  `json:"evidence"`
	Placeholders   []Placeholder    `json:"placeholders,omitempty"`
}

// ScoreSummary is the overall result
type ScoreSummary struct {
	Strategy   string           `json:"strategy"`
	Earned     decimal.Decimal  `json:"earned"`
	Max        decimal.Decimal  `json:"max"`
	Percentage *decimal.Decimal `json:"percentage"`
	Defined    bool             `json:"defined"`
	Display    string           `json:"display"`
	Verdict    string           `json:"verdict"`
}

// SectionReport is one section with its items
type SectionReport struct {
	Number             int              `json:"number"`
	Title              string           `json:"title"`
	Category           string           `json:"category,omitempty"`
	Earned             decimal.Decimal  `json:"earned"`
	Max                decimal.Decimal  `json:"max"`
	Percentage         *decimal.Decimal `json:"percentage"`
	Defined            bool             `json:"defined"`
	Display            string           `json:"display"`
	Verdict            string           `json:"verdict"`
	AnsweredCount      int              `json:"answered_count"`
	UnansweredCount    int              `json:"unanswered_count"`
	NotApplicableCount int              `json:"not_applicable_count"`
	InvalidCount       int              `json:"invalid_count"`
	Items              []ItemReport     `json:"items"`
}

// ItemReport is one answered question
type ItemReport struct {
	ItemID          uuid.UUID        `json:"item_id"`
	Reference       string           `json:"reference"`
	Title           string           `json:"title"`
	Weight          decimal.Decimal  `json:"weight"`
	Choice          string           `json:"choice"`
	Value           *decimal.Decimal `json:"value"`
	State           string           `json:"state"`
	ValidationError string           `json:"validation_error,omitempty"`
	EvidenceCount   int              `json:"evidence_count"`
}

// CategoryReport is the rollup of sections sharing a category
type CategoryReport struct {
	Category   string           `json:"category"`
	Percentage *decimal.Decimal `json:"percentage"`
	Display    string           `json:"display"`
	Verdict    string           `json:"verdict"`
}

// FindingReport is one action plan entry
type FindingReport struct {
	ItemID           uuid.UUID `json:"item_id"`
	SectionNumber    int       `json:"section_number"`
	SectionLabel     string    `json:"section_label"`
	Reference        string    `json:"reference"`
	Title            string    `json:"title"`
	Choice           string    `json:"choice"`
	FindingText      string    `json:"finding_text,omitempty"`
	CorrectiveAction string    `json:"corrective_action,omitempty"`
	Priority         string    `json:"priority"`
	Departments      []string  `json:"departments"`
	HasPicture       bool      `json:"has_picture"`
	Escalate         bool      `json:"escalate"`
}

// FindingGroup is the findings of one section
type FindingGroup struct {
	SectionNumber int             `json:"section_number"`
	SectionLabel  string          `json:"section_label"`
	Findings      []FindingReport `json:"findings"`
}

// Placeholder marks data that could not be resolved
type Placeholder struct {
	Code    string `json:"code"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// NewFindingReport converts a domain finding
func NewFindingReport(f audit.Finding) FindingReport {
	departments := f.Departments
	if departments == nil {
		departments = []string{}
	}
	return FindingReport{
		ItemID:           f.ItemID,
		SectionNumber:    f.SectionNumber,
		SectionLabel:     f.SectionLabel(),
		Reference:        f.Reference,
		Title:            f.Title,
		Choice:           f.Selected.String(),
		FindingText:      f.FindingText,
		CorrectiveAction: f.CorrectiveAction,
		Priority:         f.Priority.String(),
		Departments:      departments,
		HasPicture:       f.HasPicture,
		Escalate:         f.Escalate,
	}
}

// NewFindingReports converts findings preserving order
func NewFindingReports(findings []audit.Finding) []FindingReport {
	out := make([]FindingReport, len(findings))
	for i, f := range findings {
		out[i] = NewFindingReport(f)
	}
	return out
}

// NewFindingGroups converts finding groups preserving order
func NewFindingGroups(groups []audit.FindingGroup) []FindingGroup {
	out := make([]FindingGroup, len(groups))
	for i, g := range groups {
		out[i] = FindingGroup{
			SectionNumber: g.SectionNumber,
			SectionLabel:  g.SectionLabel,
			Findings:      NewFindingReports(g.Findings),
		}
	}
	return out
}

// ActionPlan is the findings of one audit, optionally scoped to a department
type ActionPlan struct {
	AuditID        uuid.UUID       `json:"audit_id"`
	DocumentNumber string          `json:"document_number"`
	Department     string          `json:"department,omitempty"`
	Findings       []FindingReport `json:"findings"`
	Groups         []FindingGroup  `json:"groups"`
}
