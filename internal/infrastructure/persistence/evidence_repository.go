package persistence

import (
	"context"
	"fmt"

	"github.com/foodaudit/backend/internal/domain/audit"
	"github.com/foodaudit/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GormEvidenceRepository implements audit.EvidenceIndex using GORM
type GormEvidenceRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormEvidenceRepository creates a new GormEvidenceRepository
func NewGormEvidenceRepository(db *gorm.DB, logger *zap.Logger) *GormEvidenceRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GormEvidenceRepository{db: db, logger: logger}
}

var _ audit.EvidenceIndex = (*GormEvidenceRepository)(nil)

// FindByItems lists the evidence of the given items, oldest first.
// Rows with an unrecognized tag are skipped.
func (r *GormEvidenceRepository) FindByItems(ctx context.Context, itemIDs []uuid.UUID) ([]audit.EvidenceRef, error) {
	if len(itemIDs) == 0 {
		return []audit.EvidenceRef{}, nil
	}

	var rows []models.EvidenceModel
	if err := r.db.WithContext(ctx).
		Where("item_id IN ?", itemIDs).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	refs := make([]audit.EvidenceRef, 0, len(rows))
	for i := range rows {
		ref, ok := rows[i].ToDomain()
		if !ok {
			r.logger.Warn("Skipping evidence with unknown tag",
				zap.String("evidence_id", rows[i].ID.String()),
				zap.String("tag", rows[i].Tag),
			)
			continue
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// Save stores an evidence reference
func (r *GormEvidenceRepository) Save(ctx context.Context, ref *audit.EvidenceRef) error {
	if ref.ID == uuid.Nil {
		ref.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(models.EvidenceModelFromDomain(ref)).Error; err != nil {
		return fmt.Errorf("save evidence %s: %w", ref.StorageKey, err)
	}
	return nil
}
