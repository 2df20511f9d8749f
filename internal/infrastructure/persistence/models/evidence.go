package models

import (
	"time"

	"github.com/foodaudit/backend/internal/domain/audit"
	"github.com/google/uuid"
)

// EvidenceModel is one row of the evidence index
type EvidenceModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	ItemID      uuid.UUID `gorm:"type:uuid;not null;index"`
	Tag         string    `gorm:"type:varchar(20);not null"`
	ContentType string    `gorm:"type:varchar(100)"`
	StorageKey  string    `gorm:"type:varchar(500);not null"`
	FileName    string    `gorm:"type:varchar(255)"`
	CreatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (EvidenceModel) TableName() string {
	return "evidence_refs"
}

// ToDomain converts the row to a domain reference. Legacy tag spellings are
// normalized; the second result is false when the tag is unrecognized.
func (m *EvidenceModel) ToDomain() (audit.EvidenceRef, bool) {
	tag, err := audit.ParseEvidenceTag(m.Tag)
	return audit.EvidenceRef{
		ID:          m.ID,
		ItemID:      m.ItemID,
		Tag:         tag,
		ContentType: m.ContentType,
		StorageKey:  m.StorageKey,
		FileName:    m.FileName,
		CreatedAt:   m.CreatedAt,
	}, err == nil
}

// EvidenceModelFromDomain creates a row from a domain reference
func EvidenceModelFromDomain(ref *audit.EvidenceRef) *EvidenceModel {
	return &EvidenceModel{
		ID:          ref.ID,
		ItemID:      ref.ItemID,
		Tag:         string(ref.Tag),
		ContentType: ref.ContentType,
		StorageKey:  ref.StorageKey,
		FileName:    ref.FileName,
		CreatedAt:   ref.CreatedAt,
	}
}
