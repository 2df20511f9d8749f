package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/foodaudit/backend/internal/domain/audit"
	"github.com/foodaudit/backend/internal/domain/shared"
	"github.com/foodaudit/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormAuditRepository implements audit.Repository using GORM
type GormAuditRepository struct {
	db *gorm.DB
}

// NewGormAuditRepository creates a new GormAuditRepository
func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

var _ audit.Repository = (*GormAuditRepository)(nil)

// FindByID loads the audit with its sections and items
func (r *GormAuditRepository) FindByID(ctx context.Context, id uuid.UUID) (*audit.Audit, error) {
	a, err := r.FindHeader(ctx, id)
	if err != nil {
		return nil, err
	}
	snapshots, err := r.FindSectionSnapshots(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := r.FindItems(ctx, id)
	if err != nil {
		return nil, err
	}
	a.Sections = audit.AssembleSections(snapshots, items)
	return a, nil
}

// FindHeader loads the audit row only
func (r *GormAuditRepository) FindHeader(ctx context.Context, id uuid.UUID) (*audit.Audit, error) {
	var model models.AuditModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError(fmt.Sprintf("audit %s not found", id))
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindItems returns the checklist items of an audit in section order
func (r *GormAuditRepository) FindItems(ctx context.Context, auditID uuid.UUID) ([]*audit.ChecklistItem, error) {
	var rows []models.AuditItemModel
	if err := r.db.WithContext(ctx).
		Where("audit_id = ?", auditID).
		Order("section_number ASC, sort_order ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	items := make([]*audit.ChecklistItem, len(rows))
	for i := range rows {
		items[i] = rows[i].ToDomain()
	}
	return items, nil
}

// FindSectionSnapshots returns the stored section headers and scores
func (r *GormAuditRepository) FindSectionSnapshots(ctx context.Context, auditID uuid.UUID) ([]audit.SectionSnapshot, error) {
	var rows []models.AuditSectionModel
	if err := r.db.WithContext(ctx).
		Where("audit_id = ?", auditID).
		Order("number ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	snapshots := make([]audit.SectionSnapshot, len(rows))
	for i := range rows {
		snapshots[i] = rows[i].ToDomain()
	}
	return snapshots, nil
}

// FindCompletedByStore returns the completed audits of a store for a schema,
// newest first, with their stored section percentages
func (r *GormAuditRepository) FindCompletedByStore(ctx context.Context, storeID, schemaID, excludeID uuid.UUID) ([]audit.HistoricalRecord, error) {
	var headers []models.AuditModel
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND schema_id = ? AND status = ? AND id <> ?",
			storeID, schemaID, string(audit.StatusCompleted), excludeID).
		Order("audit_date DESC, created_at DESC").
		Find(&headers).Error; err != nil {
		return nil, err
	}
	if len(headers) == 0 {
		return []audit.HistoricalRecord{}, nil
	}

	ids := make([]uuid.UUID, len(headers))
	for i, h := range headers {
		ids[i] = h.ID
	}
	var sections []models.AuditSectionModel
	if err := r.db.WithContext(ctx).
		Where("audit_id IN ?", ids).
		Find(&sections).Error; err != nil {
		return nil, err
	}
	byAudit := make(map[uuid.UUID]map[int]*decimal.Decimal, len(headers))
	for i := range sections {
		snap := sections[i].ToDomain()
		if byAudit[sections[i].AuditID] == nil {
			byAudit[sections[i].AuditID] = make(map[int]*decimal.Decimal)
		}
		byAudit[sections[i].AuditID][snap.Number] = snap.Score.Percentage
	}

	records := make([]audit.HistoricalRecord, len(headers))
	for i := range headers {
		h := headers[i].ToDomain()
		records[i] = audit.HistoricalRecord{
			AuditID:            h.ID,
			DocumentNumber:     h.DocumentNumber,
			Cycle:              h.Cycle,
			AuditDate:          h.AuditDate,
			CreatedAt:          h.CreatedAt,
			OverallPercentage:  h.Score.Percentage,
			SectionPercentages: byAudit[h.ID],
		}
	}
	audit.SortHistory(records)
	return records, nil
}

// Save writes the audit header, section snapshots and items in one transaction
func (r *GormAuditRepository) Save(ctx context.Context, a *audit.Audit) error {
	header := models.AuditModelFromDomain(a)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(header).Error; err != nil {
			return fmt.Errorf("save audit %s: %w", a.DocumentNumber, err)
		}

		sections := make([]*models.AuditSectionModel, 0, len(a.Sections))
		var items []*models.AuditItemModel
		for _, s := range a.Sections {
			sections = append(sections, models.AuditSectionModelFromDomain(a.ID, s))
			for _, item := range s.Items {
				items = append(items, models.AuditItemModelFromDomain(a.ID, item))
			}
		}
		if len(sections) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&sections).Error; err != nil {
				return fmt.Errorf("save audit sections: %w", err)
			}
		}
		if len(items) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).CreateInBatches(&items, 200).Error; err != nil {
				return fmt.Errorf("save audit items: %w", err)
			}
		}
		return nil
	})
}

// NextSequence increments and returns the sequence of a document period
func (r *GormAuditRepository) NextSequence(ctx context.Context, period string) (int, error) {
	var next int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := models.DocumentSequenceModel{Period: period, LastValue: 1}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "period"}},
			DoUpdates: clause.Assignments(map[string]any{
				"last_value": gorm.Expr("document_sequences.last_value + 1"),
			}),
		}).Create(&row).Error; err != nil {
			return err
		}
		var current models.DocumentSequenceModel
		if err := tx.First(&current, "period = ?", period).Error; err != nil {
			return err
		}
		next = current.LastValue
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("next sequence for %s: %w", period, err)
	}
	return next, nil
}
