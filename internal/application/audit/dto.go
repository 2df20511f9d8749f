package audit

import (
	"time"

	"github.com/foodaudit/backend/internal/domain/audit"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateAuditRequest represents a request to open a new audit for a store
type CreateAuditRequest struct {
	SchemaID  uuid.UUID `json:"schema_id" binding:"required"`
	StoreID   uuid.UUID `json:"store_id" binding:"required"`
	StoreName string    `json:"store_name" binding:"max=200"`
	Cycle     string    `json:"cycle" binding:"required,max=50"`
	AuditDate time.Time `json:"audit_date" binding:"required"`
	Auditor   string    `json:"auditor" binding:"max=100"`
}

// AnswerRequest is the editable state of one checklist item
type AnswerRequest struct {
	ItemID           uuid.UUID `json:"item_id" binding:"required"`
	Choice           string    `json:"choice" binding:"max=20"`
	FindingText      string    `json:"finding_text" binding:"max=4000"`
	CorrectiveAction string    `json:"corrective_action" binding:"max=4000"`
	Priority         string    `json:"priority" binding:"max=20"`
	Departments      *string   `json:"departments" binding:"omitempty,max=500"`
	Escalate         bool      `json:"escalate"`
	HasPicture       bool      `json:"has_picture"`
}

// SaveAnswersRequest represents a batch of answers for one audit
type SaveAnswersRequest struct {
	Answers []AnswerRequest `json:"answers" binding:"required,min=1,dive"`
}

// ReopenAuditRequest represents a request to reopen a completed audit
type ReopenAuditRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// RegisterEvidenceRequest records an image already uploaded to the object store
type RegisterEvidenceRequest struct {
	Tag         string `json:"tag" binding:"required"`
	ContentType string `json:"content_type" binding:"max=100"`
	StorageKey  string `json:"storage_key" binding:"required,max=500"`
	FileName    string `json:"file_name" binding:"max=255"`
}

// ThresholdsRequest holds pass/fail percentages
type ThresholdsRequest struct {
	Overall  decimal.Decimal `json:"overall" binding:"gte=0,lte=100"`
	Section  decimal.Decimal `json:"section" binding:"gte=0,lte=100"`
	Category decimal.Decimal `json:"category" binding:"gte=0,lte=100"`
}

// QuestionRequest is one template question
type QuestionRequest struct {
	Reference    string          `json:"reference" binding:"required,max=20"`
	Title        string          `json:"title" binding:"required,max=500"`
	Weight       decimal.Decimal `json:"weight"`
	AnswerDomain string          `json:"answer_domain" binding:"max=100"`
	Departments  string          `json:"departments" binding:"max=500"`
}

// SectionRequest is one template section
type SectionRequest struct {
	Number    int               `json:"number" binding:"required,min=1"`
	Title     string            `json:"title" binding:"max=200"`
	Category  string            `json:"category" binding:"max=100"`
	Questions []QuestionRequest `json:"questions" binding:"dive"`
}

// CreateSchemaRequest represents a request to define an audit schema
type CreateSchemaRequest struct {
	Name              string             `json:"name" binding:"required,min=1,max=200"`
	DocumentPrefix    string             `json:"document_prefix" binding:"required,min=1,max=10"`
	Strategy          string             `json:"strategy" binding:"omitempty,oneof=weighted_global section_average"`
	UnsetChoicePolicy string             `json:"unset_choice_policy" binding:"omitempty,oneof=score_zero exclude"`
	Thresholds        *ThresholdsRequest `json:"thresholds"`
	Sections          []SectionRequest   `json:"sections" binding:"required,min=1,dive"`
}

// AuditResponse represents an audit header in API responses
type AuditResponse struct {
	ID             uuid.UUID        `json:"id"`
	DocumentNumber string           `json:"document_number"`
	StoreID        uuid.UUID        `json:"store_id"`
	StoreName      string           `json:"store_name"`
	SchemaID       uuid.UUID        `json:"schema_id"`
	Cycle          string           `json:"cycle"`
	AuditDate      time.Time        `json:"audit_date"`
	Auditor        string           `json:"auditor"`
	Status         string           `json:"status"`
	Strategy       string           `json:"strategy"`
	Percentage     *decimal.Decimal `json:"percentage"`
	Display        string           `json:"display"`
	Verdict        string           `json:"verdict"`
	CompletedAt    *time.Time       `json:"completed_at,omitempty"`
	ReopenedAt     *time.Time       `json:"reopened_at,omitempty"`
	ReopenReason   string           `json:"reopen_reason,omitempty"`
	Version        int              `json:"version"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// ItemResponse represents a checklist item in API responses
type ItemResponse struct {
	ID               uuid.UUID        `json:"id"`
	Reference        string           `json:"reference"`
	Title            string           `json:"title"`
	Weight           decimal.Decimal  `json:"weight"`
	AnswerDomain     []string         `json:"answer_domain"`
	Choice           string           `json:"choice"`
	Value            *decimal.Decimal `json:"value"`
	State            string           `json:"state"`
	FindingText      string           `json:"finding_text,omitempty"`
	CorrectiveAction string           `json:"corrective_action,omitempty"`
	Priority         string           `json:"priority,omitempty"`
	Departments      string           `json:"departments,omitempty"`
	Escalate         bool             `json:"escalate"`
	HasPicture       bool             `json:"has_picture"`
	ValidationError  string           `json:"validation_error,omitempty"`
}

// SectionResponse represents a scored section in API responses
type SectionResponse struct {
	Number     int              `json:"number"`
	Title      string           `json:"title"`
	Category   string           `json:"category,omitempty"`
	Percentage *decimal.Decimal `json:"percentage"`
	Display    string           `json:"display"`
	Verdict    string           `json:"verdict"`
	Items      []ItemResponse   `json:"items"`
}

// AuditDetailResponse is an audit with its sections and items
type AuditDetailResponse struct {
	AuditResponse
	Sections []SectionResponse `json:"sections"`
}

// RejectedAnswer is an answer that was not applied
type RejectedAnswer struct {
	ItemID  uuid.UUID `json:"item_id"`
	Message string    `json:"message"`
}

// SaveAnswersResponse is the rescored audit plus any rejected answers
type SaveAnswersResponse struct {
	Audit    AuditResponse    `json:"audit"`
	Rejected []RejectedAnswer `json:"rejected"`
}

// EvidenceResponse represents a registered evidence reference
type EvidenceResponse struct {
	ID          uuid.UUID `json:"id"`
	ItemID      uuid.UUID `json:"item_id"`
	Tag         string    `json:"tag"`
	ContentType string    `json:"content_type"`
	StorageKey  string    `json:"storage_key"`
	FileName    string    `json:"file_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// SchemaResponse represents a schema in API responses
type SchemaResponse struct {
	ID                uuid.UUID        `json:"id"`
	Name              string           `json:"name"`
	DocumentPrefix    string           `json:"document_prefix"`
	Strategy          string           `json:"strategy"`
	UnsetChoicePolicy string           `json:"unset_choice_policy"`
	Thresholds        audit.Thresholds `json:"thresholds"`
	SectionCount      int              `json:"section_count"`
	QuestionCount     int              `json:"question_count"`
}

// ToAuditResponse converts a domain audit to a response
func ToAuditResponse(a *audit.Audit) AuditResponse {
	return AuditResponse{
		ID:             a.ID,
		DocumentNumber: a.DocumentNumber,
		StoreID:        a.StoreID,
		StoreName:      a.StoreName,
		SchemaID:       a.SchemaID,
		Cycle:          a.Cycle,
		AuditDate:      a.AuditDate,
		Auditor:        a.Auditor,
		Status:         a.Status.String(),
		Strategy:       string(a.Score.Strategy),
		Percentage:     a.Score.Percentage,
		Display:        audit.FormatPercentage(a.Score.Percentage),
		Verdict:        string(a.Score.Verdict),
		CompletedAt:    a.CompletedAt,
		ReopenedAt:     a.ReopenedAt,
		ReopenReason:   a.ReopenReason,
		Version:        a.Version,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

// ToAuditDetailResponse converts a domain audit with its sections
func ToAuditDetailResponse(a *audit.Audit) AuditDetailResponse {
	sections := make([]SectionResponse, len(a.Sections))
	for i, s := range a.Sections {
		items := make([]ItemResponse, len(s.Items))
		for j, item := range s.Items {
			domain := make([]string, len(item.AnswerDomain))
			for k, c := range item.AnswerDomain {
				domain[k] = c.String()
			}
			items[j] = ItemResponse{
				ID:               item.ID,
				Reference:        item.Reference,
				Title:            item.Title,
				Weight:           item.Weight,
				AnswerDomain:     domain,
				Choice:           item.Selected.String(),
				Value:            item.Value.Value(),
				State:            string(item.Value.State),
				FindingText:      item.FindingText,
				CorrectiveAction: item.CorrectiveAction,
				Priority:         item.Priority.String(),
				Departments:      item.Departments,
				Escalate:         item.Escalate,
				HasPicture:       item.HasPicture,
				ValidationError:  item.ValidationError,
			}
		}
		sections[i] = SectionResponse{
			Number:     s.Number,
			Title:      s.Title,
			Category:   s.Category,
			Percentage: s.Score.Percentage,
			Display:    audit.FormatPercentage(s.Score.Percentage),
			Verdict:    string(s.Score.Verdict),
			Items:      items,
		}
	}
	return AuditDetailResponse{AuditResponse: ToAuditResponse(a), Sections: sections}
}

// ToSchemaResponse converts a domain schema to a response
func ToSchemaResponse(s *audit.Schema) SchemaResponse {
	questions := 0
	for _, sec := range s.Sections {
		questions += len(sec.Questions)
	}
	return SchemaResponse{
		ID:                s.ID,
		Name:              s.Name,
		DocumentPrefix:    s.DocumentPrefix,
		Strategy:          string(s.Strategy),
		UnsetChoicePolicy: string(s.UnsetChoicePolicy),
		Thresholds:        s.Thresholds,
		SectionCount:      len(s.Sections),
		QuestionCount:     questions,
	}
}

// ToEvidenceResponse converts an evidence reference to a response
func ToEvidenceResponse(ref *audit.EvidenceRef) EvidenceResponse {
	return EvidenceResponse{
		ID:          ref.ID,
		ItemID:      ref.ItemID,
		Tag:         string(ref.Tag),
		ContentType: ref.ContentType,
		StorageKey:  ref.StorageKey,
		FileName:    ref.FileName,
		CreatedAt:   ref.CreatedAt,
	}
}
