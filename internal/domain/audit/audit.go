package audit

import (
	"fmt"
	"strings"
	"time"

	"github.com/foodaudit/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Audit is the aggregate root for one audit event at a store
type Audit struct {
	shared.BaseAggregateRoot
	DocumentNumber string
	StoreID        uuid.UUID
	StoreName      string
	SchemaID       uuid.UUID
	Cycle          string
	AuditDate      time.Time
	Auditor        string
	Status         Status
	Sections       []*Section
	Score          AuditScore
	CompletedAt    *time.Time
	ReopenedAt     *time.Time
	ReopenReason   string

	// FrozenThresholds are the thresholds the audit was judged against at
	// completion. Nil while the audit is open.
	FrozenThresholds *Thresholds
}

// NewAudit creates a Draft audit with items cloned from the schema templates
func NewAudit(schema *Schema, storeID uuid.UUID, storeName, cycle string, auditDate time.Time, documentNumber string) (*Audit, error) {
	if schema == nil {
		return nil, shared.NewValidationError("schema is required")
	}
	if storeID == uuid.Nil {
		return nil, shared.NewValidationError("store id cannot be empty")
	}
	if strings.TrimSpace(documentNumber) == "" {
		return nil, shared.NewValidationError("document number cannot be empty")
	}
	if auditDate.IsZero() {
		return nil, shared.NewValidationError("audit date is required")
	}

	a := &Audit{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		DocumentNumber:    documentNumber,
		StoreID:           storeID,
		StoreName:         strings.TrimSpace(storeName),
		SchemaID:          schema.ID,
		Cycle:             strings.TrimSpace(cycle),
		AuditDate:         auditDate,
		Status:            StatusDraft,
		Sections:          make([]*Section, 0, len(schema.Sections)),
	}
	for _, t := range schema.Sections {
		a.Sections = append(a.Sections, NewSection(t))
	}
	a.Recalculate(schema.ScoringPolicy(schema.Thresholds))
	return a, nil
}

// Start moves a Draft or Reopened audit into InProgress
func (a *Audit) Start() error {
	if !a.Status.CanTransitionTo(StatusInProgress) {
		return shared.NewInvalidStateError(fmt.Sprintf("cannot start audit in %s status", a.Status))
	}
	a.Status = StatusInProgress
	a.Touch()
	return nil
}

// AnswerError reports an answer that was rejected
type AnswerError struct {
	ItemID  uuid.UUID
	Message string
}

// SaveAnswers applies answers and recomputes every score. Rejected answers
// leave their item untouched and are returned; the rest are still saved.
func (a *Audit) SaveAnswers(answers []Answer, policy ScoringPolicy) ([]AnswerError, error) {
	if !a.Status.AcceptsAnswers() {
		return nil, shared.NewInvalidStateError(fmt.Sprintf("cannot save answers in %s status", a.Status))
	}

	rejected := make([]AnswerError, 0)
	for _, ans := range answers {
		item := a.Item(ans.ItemID)
		if item == nil {
			rejected = append(rejected, AnswerError{ItemID: ans.ItemID, Message: "item not found in audit"})
			continue
		}
		if err := item.Apply(ans); err != nil {
			rejected = append(rejected, AnswerError{ItemID: ans.ItemID, Message: err.Error()})
		}
	}

	if a.Status != StatusInProgress {
		a.Status = StatusInProgress
	}
	a.Recalculate(policy)
	a.Touch()
	return rejected, nil
}

// Recalculate rescores every section and the overall result
func (a *Audit) Recalculate(policy ScoringPolicy) AuditScore {
	for _, s := range a.Sections {
		s.Recalculate(policy.UnsetChoice)
	}
	a.Score = Aggregate(a.Sections, policy.Strategy, policy.Thresholds)
	ApplyVerdicts(a.Sections, a.Score)
	return a.Score
}

// Complete freezes the scores
func (a *Audit) Complete(policy ScoringPolicy) error {
	if !a.Status.CanTransitionTo(StatusCompleted) {
		return shared.NewInvalidStateError(fmt.Sprintf("cannot complete audit in %s status", a.Status))
	}
	a.Recalculate(policy)
	frozen := policy.Thresholds
	now := time.Now()
	a.Status = StatusCompleted
	a.CompletedAt = &now
	a.FrozenThresholds = &frozen
	a.Touch()
	return nil
}

// Reopen makes a Completed audit editable again
func (a *Audit) Reopen(reason string) error {
	if !a.Status.CanTransitionTo(StatusReopened) {
		return shared.NewInvalidStateError(fmt.Sprintf("cannot reopen audit in %s status", a.Status))
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.NewValidationError("reopen reason is required")
	}
	now := time.Now()
	a.Status = StatusReopened
	a.ReopenedAt = &now
	a.ReopenReason = reason
	a.FrozenThresholds = nil
	a.Touch()
	return nil
}

// IsFrozen returns true when scores must not be recomputed
func (a *Audit) IsFrozen() bool {
	return a.Status == StatusCompleted
}

// Item returns the item with id across all sections, or nil
func (a *Audit) Item(id uuid.UUID) *ChecklistItem {
	for _, s := range a.Sections {
		if item := s.Item(id); item != nil {
			return item
		}
	}
	return nil
}

// Items returns every item in section order
func (a *Audit) Items() []*ChecklistItem {
	out := make([]*ChecklistItem, 0)
	for _, s := range a.Sections {
		out = append(out, s.Items...)
	}
	return out
}

// ItemIDs returns the ids of every item in section order
func (a *Audit) ItemIDs() []uuid.UUID {
	items := a.Items()
	ids := make([]uuid.UUID, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return ids
}
