package models

import (
	"strings"
	"time"

	"github.com/foodaudit/backend/internal/domain/audit"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuditModel is the persistence model for the Audit aggregate root header.
// The overall score columns hold the frozen result once the audit is completed.
type AuditModel struct {
	AggregateModel
	DocumentNumber string              `gorm:"type:varchar(50);not null;uniqueIndex"`
	StoreID        uuid.UUID           `gorm:"type:uuid;not null;index:idx_audit_store_schema"`
	StoreName      string              `gorm:"type:varchar(200)"`
	SchemaID       uuid.UUID           `gorm:"type:uuid;not null;index:idx_audit_store_schema"`
	Cycle          string              `gorm:"type:varchar(50)"`
	AuditDate      time.Time           `gorm:"not null"`
	Auditor        string              `gorm:"type:varchar(200)"`
	Status         string              `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	Strategy       string              `gorm:"type:varchar(30)"`
	Earned         decimal.Decimal     `gorm:"type:decimal(18,4);not null"`
	MaxScore       decimal.Decimal     `gorm:"type:decimal(18,4);not null"`
	Percentage     decimal.NullDecimal `gorm:"type:decimal(9,4)"`
	Verdict        string              `gorm:"type:varchar(20)"`
	CompletedAt    *time.Time
	ReopenedAt     *time.Time
	ReopenReason   string `gorm:"type:text"`

	FrozenOverallThreshold  decimal.NullDecimal `gorm:"type:decimal(7,4)"`
	FrozenSectionThreshold  decimal.NullDecimal `gorm:"type:decimal(7,4)"`
	FrozenCategoryThreshold decimal.NullDecimal `gorm:"type:decimal(7,4)"`
}

// TableName returns the table name for GORM
func (AuditModel) TableName() string {
	return "audits"
}

// ToDomain converts the header to a domain Audit without sections
func (m *AuditModel) ToDomain() *audit.Audit {
	return &audit.Audit{
		BaseAggregateRoot: m.ToAggregateRoot(),
		DocumentNumber:    m.DocumentNumber,
		StoreID:           m.StoreID,
		StoreName:         m.StoreName,
		SchemaID:          m.SchemaID,
		Cycle:             m.Cycle,
		AuditDate:         m.AuditDate,
		Auditor:           m.Auditor,
		Status:            audit.Status(strings.ToUpper(m.Status)),
		Score: audit.AuditScore{
			Strategy:   audit.Strategy(m.Strategy),
			Earned:     m.Earned,
			Max:        m.MaxScore,
			Percentage: fromNullDecimal(m.Percentage),
			Verdict:    audit.Verdict(m.Verdict),
		},
		CompletedAt:      m.CompletedAt,
		ReopenedAt:       m.ReopenedAt,
		ReopenReason:     m.ReopenReason,
		FrozenThresholds: m.frozenThresholds(),
	}
}

func (m *AuditModel) frozenThresholds() *audit.Thresholds {
	if !m.FrozenOverallThreshold.Valid || !m.FrozenSectionThreshold.Valid || !m.FrozenCategoryThreshold.Valid {
		return nil
	}
	return &audit.Thresholds{
		Overall:  m.FrozenOverallThreshold.Decimal,
		Section:  m.FrozenSectionThreshold.Decimal,
		Category: m.FrozenCategoryThreshold.Decimal,
	}
}

// FromDomain populates the model from a domain Audit
func (m *AuditModel) FromDomain(a *audit.Audit) {
	m.FromDomainAggregateRoot(a.BaseAggregateRoot)
	m.DocumentNumber = a.DocumentNumber
	m.StoreID = a.StoreID
	m.StoreName = a.StoreName
	m.SchemaID = a.SchemaID
	m.Cycle = a.Cycle
	m.AuditDate = a.AuditDate
	m.Auditor = a.Auditor
	m.Status = string(a.Status)
	m.Strategy = string(a.Score.Strategy)
	m.Earned = a.Score.Earned
	m.MaxScore = a.Score.Max
	m.Percentage = toNullDecimal(a.Score.Percentage)
	m.Verdict = string(a.Score.Verdict)
	m.CompletedAt = a.CompletedAt
	m.ReopenedAt = a.ReopenedAt
	m.ReopenReason = a.ReopenReason
	m.FrozenOverallThreshold = decimal.NullDecimal{}
	m.FrozenSectionThreshold = decimal.NullDecimal{}
	m.FrozenCategoryThreshold = decimal.NullDecimal{}
	if t := a.FrozenThresholds; t != nil {
		m.FrozenOverallThreshold = toNullDecimal(&t.Overall)
		m.FrozenSectionThreshold = toNullDecimal(&t.Section)
		m.FrozenCategoryThreshold = toNullDecimal(&t.Category)
	}
}

// AuditModelFromDomain creates a new AuditModel from a domain Audit
func AuditModelFromDomain(a *audit.Audit) *AuditModel {
	m := &AuditModel{}
	m.FromDomain(a)
	return m
}

// AuditSectionModel stores the header and last computed score of one audit section
type AuditSectionModel struct {
	ID                 uuid.UUID           `gorm:"type:uuid;primary_key"`
	AuditID            uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex:idx_audit_section_number"`
	Number             int                 `gorm:"not null;uniqueIndex:idx_audit_section_number"`
	Title              string              `gorm:"type:varchar(200)"`
	Category           string              `gorm:"type:varchar(100)"`
	Earned             decimal.Decimal     `gorm:"type:decimal(18,4);not null"`
	MaxScore           decimal.Decimal     `gorm:"type:decimal(18,4);not null"`
	Percentage         decimal.NullDecimal `gorm:"type:decimal(9,4)"`
	AnsweredCount      int                 `gorm:"not null;default:0"`
	UnansweredCount    int                 `gorm:"not null;default:0"`
	NotApplicableCount int                 `gorm:"not null;default:0"`
	InvalidCount       int                 `gorm:"not null;default:0"`
	Verdict            string              `gorm:"type:varchar(20)"`
}

// TableName returns the table name for GORM
func (AuditSectionModel) TableName() string {
	return "audit_sections"
}

// ToDomain converts the model to a section snapshot
func (m *AuditSectionModel) ToDomain() audit.SectionSnapshot {
	verdict := audit.Verdict(m.Verdict)
	if verdict == "" {
		verdict = audit.VerdictNotRated
	}
	return audit.SectionSnapshot{
		ID:       m.ID,
		Number:   m.Number,
		Title:    m.Title,
		Category: m.Category,
		Score: audit.SectionScore{
			Earned:             m.Earned,
			Max:                m.MaxScore,
			Percentage:         fromNullDecimal(m.Percentage),
			AnsweredCount:      m.AnsweredCount,
			UnansweredCount:    m.UnansweredCount,
			NotApplicableCount: m.NotApplicableCount,
			InvalidCount:       m.InvalidCount,
			Verdict:            verdict,
		},
	}
}

// AuditSectionModelFromDomain creates a section model from a domain section
func AuditSectionModelFromDomain(auditID uuid.UUID, s *audit.Section) *AuditSectionModel {
	return &AuditSectionModel{
		ID:                 s.ID,
		AuditID:            auditID,
		Number:             s.Number,
		Title:              s.Title,
		Category:           s.Category,
		Earned:             s.Score.Earned,
		MaxScore:           s.Score.Max,
		Percentage:         toNullDecimal(s.Score.Percentage),
		AnsweredCount:      s.Score.AnsweredCount,
		UnansweredCount:    s.Score.UnansweredCount,
		NotApplicableCount: s.Score.NotApplicableCount,
		InvalidCount:       s.Score.InvalidCount,
		Verdict:            string(s.Score.Verdict),
	}
}

// AuditItemModel is the persistence model for a checklist item.
// Choice, Priority and AnswerDomain hold raw labels as captured.
type AuditItemModel struct {
	ID               uuid.UUID       `gorm:"type:uuid;primary_key"`
	AuditID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	SectionNumber    int             `gorm:"not null"`
	SortOrder        int             `gorm:"not null;default:0"`
	Reference        string          `gorm:"type:varchar(20);not null"`
	Title            string          `gorm:"type:text"`
	Weight           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	AnswerDomain     string          `gorm:"type:varchar(100)"`
	Choice           string          `gorm:"type:varchar(30)"`
	FindingText      string          `gorm:"type:text"`
	CorrectiveAction string          `gorm:"type:text"`
	Priority         string          `gorm:"type:varchar(20)"`
	Departments      string          `gorm:"type:varchar(500)"`
	Escalate         bool            `gorm:"not null;default:false"`
	HasPicture       bool            `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (AuditItemModel) TableName() string {
	return "audit_items"
}

// ToDomain converts the model to a domain item, normalizing stored labels.
// Only an unparseable choice sets InputError, which scoring flags invalid.
// A bad priority falls back to unset and a bad answer domain to the default
// domain; both are noted on LabelWarning.
func (m *AuditItemModel) ToDomain() *audit.ChecklistItem {
	item := &audit.ChecklistItem{
		ID:               m.ID,
		SectionNumber:    m.SectionNumber,
		Reference:        strings.TrimSpace(m.Reference),
		Title:            m.Title,
		Weight:           m.Weight,
		FindingText:      m.FindingText,
		CorrectiveAction: m.CorrectiveAction,
		Departments:      m.Departments,
		Escalate:         m.Escalate,
		HasPicture:       m.HasPicture,
		SortOrder:        m.SortOrder,
	}

	choice, err := audit.ParseChoice(m.Choice)
	if err != nil {
		item.InputError = err.Error()
	}
	item.Selected = choice

	var warnings []string
	domain, err := audit.ParseAnswerDomain(m.AnswerDomain)
	if err != nil {
		warnings = append(warnings, err.Error())
		domain = audit.DefaultAnswerDomain()
	}
	item.AnswerDomain = domain

	priority, err := audit.ParsePriority(m.Priority)
	if err != nil {
		warnings = append(warnings, err.Error())
		priority = audit.PriorityUnset
	}
	item.Priority = priority

	if len(warnings) > 0 {
		item.LabelWarning = strings.Join(warnings, "; ")
	}
	return item
}

// AuditItemModelFromDomain creates an item model from a domain item
func AuditItemModelFromDomain(auditID uuid.UUID, i *audit.ChecklistItem) *AuditItemModel {
	return &AuditItemModel{
		ID:               i.ID,
		AuditID:          auditID,
		SectionNumber:    i.SectionNumber,
		SortOrder:        i.SortOrder,
		Reference:        i.Reference,
		Title:            i.Title,
		Weight:           i.Weight,
		AnswerDomain:     audit.FormatAnswerDomain(i.AnswerDomain),
		Choice:           string(i.Selected),
		FindingText:      i.FindingText,
		CorrectiveAction: i.CorrectiveAction,
		Priority:         string(i.Priority),
		Departments:      i.Departments,
		Escalate:         i.Escalate,
		HasPicture:       i.HasPicture,
	}
}
