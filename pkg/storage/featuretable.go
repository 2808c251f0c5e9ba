package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/synaptica-ai/noshow/pkg/common/models"
)

const saveChunkSize = 500

// FeatureTable is the offline store for computed feature rows.
type FeatureTable struct {
	db *gorm.DB
}

func NewFeatureTable(db *gorm.DB) *FeatureTable {
	return &FeatureTable{db: db}
}

func (t *FeatureTable) AutoMigrate() error {
	return t.db.AutoMigrate(&FeatureRow{})
}

// SaveBatch stores the rows of one batch. Re-saving the same batch replaces
// the feature columns of existing rows.
func (t *FeatureTable) SaveBatch(ctx context.Context, batchID string, records []models.FeatureRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := NewFeatureRows(batchID, records)
	now := time.Now().UTC()
	for i := range rows {
		rows[i].CreatedAt = now
	}

	err := t.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "patient_id"}, {Name: "scheduled_start"}, {Name: "batch_id"}},
			UpdateAll: true,
		}).
		CreateInBatches(rows, saveChunkSize).Error
	if err != nil {
		return fmt.Errorf("save %d feature rows for batch %s: %w", len(rows), batchID, err)
	}
	return nil
}

// ListByPatient returns the newest rows first. A zero limit means no limit.
func (t *FeatureTable) ListByPatient(ctx context.Context, patientID string, limit int) ([]models.FeatureRecord, error) {
	var rows []FeatureRow
	tx := t.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("scheduled_start desc").
		Order("id desc")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]models.FeatureRecord, len(rows))
	for i, r := range rows {
		out[i] = r.Record()
	}
	return out, nil
}

func (t *FeatureTable) CountBatch(ctx context.Context, batchID string) (int64, error) {
	var n int64
	err := t.db.WithContext(ctx).Model(&FeatureRow{}).Where("batch_id = ?", batchID).Count(&n).Error
	return n, err
}
