package report

import (
	"github.com/foodaudit/backend/internal/domain/audit"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const notAvailable = "Not available"

// TrendValue is a historical percentage, or an explicit not-available marker
type TrendValue struct {
	Cycle          string           `json:"cycle"`
	Available      bool             `json:"available"`
	Percentage     *decimal.Decimal `json:"percentage"`
	DocumentNumber string           `json:"document_number,omitempty"`
	AuditID        *uuid.UUID       `json:"audit_id,omitempty"`
	Display        string           `json:"display"`
}

// NotAvailable returns the sentinel for a cycle without historical data
func NotAvailable(cycle string) TrendValue {
	return TrendValue{Cycle: cycle, Available: false, Display: notAvailable}
}

// NewTrendValue builds a value from a matched record. A nil percentage still
// yields an unavailable value since the section was not rated in that audit.
func NewTrendValue(cycle string, rec audit.HistoricalRecord, pct *decimal.Decimal) TrendValue {
	if pct == nil {
		v := NotAvailable(cycle)
		v.DocumentNumber = rec.DocumentNumber
		return v
	}
	id := rec.AuditID
	return TrendValue{
		Cycle:          cycle,
		Available:      true,
		Percentage:     pct,
		DocumentNumber: rec.DocumentNumber,
		AuditID:        &id,
		Display:        audit.FormatPercentage(pct),
	}
}

// TrendTable lists historical percentages per requested cycle
type TrendTable struct {
	Cycles   []string     `json:"cycles"`
	Overall  []TrendValue `json:"overall"`
	Sections []TrendRow   `json:"sections"`
}

// TrendRow is the history of one section, one value per cycle in table order
type TrendRow struct {
	SectionNumber int          `json:"section_number"`
	Title         string       `json:"title"`
	Values        []TrendValue `json:"values"`
}

// EvidenceSummary is the attached evidence with fetch counts
type EvidenceSummary struct {
	Requested int            `json:"requested"`
	Attached  int            `json:"attached"`
	Failed    int            `json:"failed"`
	Items     []ItemEvidence `json:"items"`
}

// ItemEvidence is the images attached to one checklist item
type ItemEvidence struct {
	ItemID uuid.UUID             `json:"item_id"`
	Images []audit.EvidenceImage `json:"images"`
}
