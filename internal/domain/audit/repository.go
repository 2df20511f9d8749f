package audit

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for audit persistence
type Repository interface {
	// FindByID loads the full aggregate with sections and items
	FindByID(ctx context.Context, id uuid.UUID) (*Audit, error)
	// FindHeader loads the audit without sections
	FindHeader(ctx context.Context, id uuid.UUID) (*Audit, error)
	FindItems(ctx context.Context, auditID uuid.UUID) ([]*ChecklistItem, error)
	FindSectionSnapshots(ctx context.Context, auditID uuid.UUID) ([]SectionSnapshot, error)
	// FindCompletedByStore returns Completed audits of a store and schema,
	// never including excludeID, ordered by audit date then created at, newest first
	FindCompletedByStore(ctx context.Context, storeID, schemaID, excludeID uuid.UUID) ([]HistoricalRecord, error)
	Save(ctx context.Context, a *Audit) error
	// NextSequence returns the next document sequence for a "<PREFIX>-<YYYYMM>" period
	NextSequence(ctx context.Context, period string) (int, error)
}

// SchemaRepository defines the interface for schema persistence
type SchemaRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Schema, error)
	Save(ctx context.Context, s *Schema) error
}

// ThresholdSource is the configuration store for pass/fail thresholds
type ThresholdSource interface {
	FindThresholds(ctx context.Context, schemaID uuid.UUID) (Thresholds, error)
}

// EvidenceIndex lists the evidence references stored for checklist items
type EvidenceIndex interface {
	FindByItems(ctx context.Context, itemIDs []uuid.UUID) ([]EvidenceRef, error)
	Save(ctx context.Context, ref *EvidenceRef) error
}

// ObjectReader fetches evidence content from an object store
type ObjectReader interface {
	GetObject(ctx context.Context, key string) (data []byte, contentType string, err error)
}
