package serving

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PredictionLog is one scored appointment.
type PredictionLog struct {
	ID             uuid.UUID         `gorm:"primaryKey;column:id"`
	PatientID      string            `gorm:"column:patient_id;index"`
	ScheduledStart time.Time         `gorm:"column:scheduled_start"`
	Specialism     string            `gorm:"column:specialism"`
	ModelName      string            `gorm:"column:model_name"`
	ModelVersion   string            `gorm:"column:model_version"`
	Score          float64           `gorm:"column:score"`
	Features       datatypes.JSONMap `gorm:"column:features"`
	CreatedAt      time.Time         `gorm:"column:created_at"`
}

// TableName overrides gorm naming.
func (PredictionLog) TableName() string {
	return "prediction_logs"
}

// Repository handles prediction logs queries.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&PredictionLog{})
}

func newPredictionLog(s Scored, model, version string, features map[string]float64) PredictionLog {
	fm := make(datatypes.JSONMap, len(features))
	for k, v := range features {
		fm[k] = v
	}
	return PredictionLog{
		ID:             uuid.New(),
		PatientID:      s.Record.PatientID,
		ScheduledStart: s.Record.ScheduledStart.UTC(),
		Specialism:     s.Record.Specialism,
		ModelName:      model,
		ModelVersion:   version,
		Score:          s.Score,
		Features:       fm,
		CreatedAt:      time.Now().UTC(),
	}
}

func (r *Repository) RecordPrediction(ctx context.Context, s Scored, model, version string, features map[string]float64) error {
	log := newPredictionLog(s, model, version, features)
	return r.db.WithContext(ctx).Create(&log).Error
}

// Recent returns the most recent prediction logs up to limit.
func (r *Repository) Recent(ctx context.Context, limit int) ([]PredictionLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []PredictionLog
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
