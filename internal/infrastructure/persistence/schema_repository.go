package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/foodaudit/backend/internal/domain/audit"
	"github.com/foodaudit/backend/internal/domain/shared"
	"github.com/foodaudit/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSchemaRepository implements audit.SchemaRepository and audit.ThresholdSource.
// Thresholds live in their own table so they can be changed without rewriting the schema.
type GormSchemaRepository struct {
	db *gorm.DB
}

// NewGormSchemaRepository creates a new GormSchemaRepository
func NewGormSchemaRepository(db *gorm.DB) *GormSchemaRepository {
	return &GormSchemaRepository{db: db}
}

var (
	_ audit.SchemaRepository = (*GormSchemaRepository)(nil)
	_ audit.ThresholdSource  = (*GormSchemaRepository)(nil)
)

// FindByID loads a schema with its section templates and thresholds
func (r *GormSchemaRepository) FindByID(ctx context.Context, id uuid.UUID) (*audit.Schema, error) {
	db := r.db.WithContext(ctx)
	rows := &models.SchemaRows{}
	if err := db.First(&rows.Schema, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError(fmt.Sprintf("schema %s not found", id))
		}
		return nil, err
	}
	if err := db.Where("schema_id = ?", id).Order("number ASC").Find(&rows.Sections).Error; err != nil {
		return nil, err
	}
	if err := db.Where("schema_id = ?", id).Order("section_number ASC, sort_order ASC").Find(&rows.Questions).Error; err != nil {
		return nil, err
	}

	var thresholds models.SchemaThresholdModel
	err := db.First(&thresholds, "schema_id = ?", id).Error
	switch {
	case err == nil:
		rows.Thresholds = &thresholds
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}
	return rows.ToDomain(), nil
}

// Save writes the schema. Section templates are replaced as a whole.
func (r *GormSchemaRepository) Save(ctx context.Context, s *audit.Schema) error {
	rows := models.SchemaRowsFromDomain(s)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rows.Schema).Error; err != nil {
			return fmt.Errorf("save schema %s: %w", s.Name, err)
		}
		if err := tx.Where("schema_id = ?", s.ID).Delete(&models.SchemaQuestionModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("schema_id = ?", s.ID).Delete(&models.SchemaSectionModel{}).Error; err != nil {
			return err
		}
		if len(rows.Sections) > 0 {
			if err := tx.Create(&rows.Sections).Error; err != nil {
				return fmt.Errorf("save schema sections: %w", err)
			}
		}
		if len(rows.Questions) > 0 {
			if err := tx.CreateInBatches(&rows.Questions, 200).Error; err != nil {
				return fmt.Errorf("save schema questions: %w", err)
			}
		}
		return upsertThresholds(tx, rows.Thresholds)
	})
}

// FindThresholds reads the configured thresholds of a schema.
// A schema without a thresholds row yields NOT_FOUND so callers can fall back to defaults.
func (r *GormSchemaRepository) FindThresholds(ctx context.Context, schemaID uuid.UUID) (audit.Thresholds, error) {
	var row models.SchemaThresholdModel
	if err := r.db.WithContext(ctx).First(&row, "schema_id = ?", schemaID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return audit.Thresholds{}, shared.NewNotFoundError(fmt.Sprintf("thresholds for schema %s not found", schemaID))
		}
		return audit.Thresholds{}, err
	}
	return row.ToDomain(), nil
}

func upsertThresholds(tx *gorm.DB, row *models.SchemaThresholdModel) error {
	if row == nil {
		return nil
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "schema_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"overall", "section", "category", "updated_at"}),
	}).Create(row).Error; err != nil {
		return fmt.Errorf("save thresholds: %w", err)
	}
	return nil
}
