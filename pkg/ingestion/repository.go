package ingestion

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("batch not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&Batch{})
}

func (r *Repository) Create(ctx context.Context, b *Batch) error {
	b.CreatedAt = time.Now().UTC()
	b.UpdatedAt = b.CreatedAt
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *Repository) UpdateStatus(ctx context.Context, id, status, errMsg string) error {
	return r.db.WithContext(ctx).Model(&Batch{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"error":      errMsg,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *Repository) Complete(ctx context.Context, id string, stats BatchStats) error {
	now := time.Now().UTC()
	dropped := datatypes.JSONMap{}
	for reason, n := range stats.Dropped {
		dropped[reason] = n
	}
	return r.db.WithContext(ctx).Model(&Batch{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       StatusCompleted,
			"input_rows":   stats.InputRows,
			"duplicates":   stats.Duplicates,
			"patients":     stats.Patients,
			"output_rows":  stats.OutputRows,
			"dropped":      dropped,
			"updated_at":   now,
			"completed_at": now,
		}).Error
}

func (r *Repository) Get(ctx context.Context, id string) (*Batch, error) {
	var b Batch
	result := r.db.WithContext(ctx).First(&b, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &b, result.Error
}

func (r *Repository) CleanupExpired(ctx context.Context, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	cutoff := time.Now().UTC().Add(-ttl)
	return r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&Batch{}).Error
}
