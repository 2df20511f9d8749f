package models

import (
	"sort"
	"time"

	"github.com/foodaudit/backend/internal/domain/audit"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SchemaModel is the persistence model for an audit schema
type SchemaModel struct {
	AggregateModel
	Name              string `gorm:"type:varchar(200);not null"`
	DocumentPrefix    string `gorm:"type:varchar(20);not null"`
	Strategy          string `gorm:"type:varchar(30);not null;default:'weighted_global'"`
	UnsetChoicePolicy string `gorm:"type:varchar(30);not null;default:'score_zero'"`
}

// TableName returns the table name for GORM
func (SchemaModel) TableName() string {
	return "audit_schemas"
}

// SchemaSectionModel is one section template of a schema
type SchemaSectionModel struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key"`
	SchemaID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_schema_section_number"`
	Number   int       `gorm:"not null;uniqueIndex:idx_schema_section_number"`
	Title    string    `gorm:"type:varchar(200)"`
	Category string    `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (SchemaSectionModel) TableName() string {
	return "schema_sections"
}

// SchemaQuestionModel is one master question of a schema
type SchemaQuestionModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key"`
	SchemaID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	SectionNumber int             `gorm:"not null"`
	SortOrder     int             `gorm:"not null;default:0"`
	Reference     string          `gorm:"type:varchar(20);not null"`
	Title         string          `gorm:"type:text"`
	Weight        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	AnswerDomain  string          `gorm:"type:varchar(100)"`
	Departments   string          `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (SchemaQuestionModel) TableName() string {
	return "schema_questions"
}

// SchemaThresholdModel is the configuration row holding pass thresholds
type SchemaThresholdModel struct {
	SchemaID  uuid.UUID       `gorm:"type:uuid;primary_key"`
	Overall   decimal.Decimal `gorm:"type:decimal(7,4);not null"`
	Section   decimal.Decimal `gorm:"type:decimal(7,4);not null"`
	Category  decimal.Decimal `gorm:"type:decimal(7,4);not null"`
	UpdatedAt time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SchemaThresholdModel) TableName() string {
	return "schema_thresholds"
}

// ToDomain converts the row to domain thresholds
func (m *SchemaThresholdModel) ToDomain() audit.Thresholds {
	return audit.Thresholds{Overall: m.Overall, Section: m.Section, Category: m.Category}
}

// SchemaRows is a schema with its child rows, as read from or written to the database
type SchemaRows struct {
	Schema     SchemaModel
	Sections   []SchemaSectionModel
	Questions  []SchemaQuestionModel
	Thresholds *SchemaThresholdModel
}

// SchemaRowsFromDomain splits a domain schema into its table rows
func SchemaRowsFromDomain(s *audit.Schema) *SchemaRows {
	rows := &SchemaRows{
		Schema: SchemaModel{
			Name:              s.Name,
			DocumentPrefix:    s.DocumentPrefix,
			Strategy:          string(s.Strategy),
			UnsetChoicePolicy: string(s.UnsetChoicePolicy),
		},
		Thresholds: &SchemaThresholdModel{
			SchemaID:  s.ID,
			Overall:   s.Thresholds.Overall,
			Section:   s.Thresholds.Section,
			Category:  s.Thresholds.Category,
			UpdatedAt: s.UpdatedAt,
		},
	}
	rows.Schema.FromDomainAggregateRoot(s.BaseAggregateRoot)

	for _, sec := range s.Sections {
		rows.Sections = append(rows.Sections, SchemaSectionModel{
			ID:       uuid.New(),
			SchemaID: s.ID,
			Number:   sec.Number,
			Title:    sec.Title,
			Category: sec.Category,
		})
		for idx, q := range sec.Questions {
			rows.Questions = append(rows.Questions, SchemaQuestionModel{
				ID:            uuid.New(),
				SchemaID:      s.ID,
				SectionNumber: sec.Number,
				SortOrder:     idx + 1,
				Reference:     q.Reference,
				Title:         q.Title,
				Weight:        q.Weight,
				AnswerDomain:  audit.FormatAnswerDomain(q.AnswerDomain),
				Departments:   q.Departments,
			})
		}
	}
	return rows
}

// ToDomain assembles the domain schema. Questions whose answer domain cannot
// be parsed fall back to the default domain. Missing thresholds fall back to
// the defaults.
func (r *SchemaRows) ToDomain() *audit.Schema {
	s := &audit.Schema{
		BaseAggregateRoot: r.Schema.ToAggregateRoot(),
		Name:              r.Schema.Name,
		DocumentPrefix:    r.Schema.DocumentPrefix,
		Strategy:          audit.Strategy(r.Schema.Strategy),
		UnsetChoicePolicy: audit.UnsetChoicePolicy(r.Schema.UnsetChoicePolicy),
		Thresholds:        audit.DefaultThresholds(),
	}
	if !s.Strategy.IsValid() {
		s.Strategy = audit.StrategyWeightedGlobal
	}
	if !s.UnsetChoicePolicy.IsValid() {
		s.UnsetChoicePolicy = audit.UnsetScoreZero
	}
	if r.Thresholds != nil {
		s.Thresholds = r.Thresholds.ToDomain()
	}

	questions := make(map[int][]SchemaQuestionModel, len(r.Sections))
	for _, q := range r.Questions {
		questions[q.SectionNumber] = append(questions[q.SectionNumber], q)
	}

	sections := append([]SchemaSectionModel(nil), r.Sections...)
	sort.Slice(sections, func(i, j int) bool { return sections[i].Number < sections[j].Number })
	for _, sec := range sections {
		qs := questions[sec.Number]
		sort.SliceStable(qs, func(i, j int) bool { return qs[i].SortOrder < qs[j].SortOrder })

		t := audit.SectionTemplate{Number: sec.Number, Title: sec.Title, Category: sec.Category}
		for _, q := range qs {
			domain, err := audit.ParseAnswerDomain(q.AnswerDomain)
			if err != nil {
				domain = audit.DefaultAnswerDomain()
			}
			t.Questions = append(t.Questions, audit.QuestionTemplate{
				Reference:    q.Reference,
				Title:        q.Title,
				Weight:       q.Weight,
				AnswerDomain: domain,
				Departments:  q.Departments,
			})
		}
		s.Sections = append(s.Sections, t)
	}
	return s
}
