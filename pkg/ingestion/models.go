package ingestion

import (
	"time"

	"gorm.io/datatypes"
)

const (
	StatusAccepted  = "accepted"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Batch tracks one feature computation request.
type Batch struct {
	ID          string            `json:"id" gorm:"primaryKey;column:id"`
	Source      string            `json:"source" gorm:"column:source"`
	Status      string            `json:"status" gorm:"column:status;index"`
	InputRows   int               `json:"input_rows" gorm:"column:input_rows"`
	Duplicates  int               `json:"duplicates" gorm:"column:duplicates"`
	Patients    int               `json:"patients" gorm:"column:patients"`
	OutputRows  int               `json:"output_rows" gorm:"column:output_rows"`
	Dropped     datatypes.JSONMap `json:"dropped,omitempty" gorm:"column:dropped"`
	Error       string            `json:"error,omitempty" gorm:"column:error"`
	CreatedAt   time.Time         `json:"created_at" gorm:"column:created_at"`
	UpdatedAt   time.Time         `json:"updated_at" gorm:"column:updated_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty" gorm:"column:completed_at"`
}

func (Batch) TableName() string {
	return "feature_batches"
}

type BatchStats struct {
	InputRows  int
	Duplicates int
	Patients   int
	OutputRows int
	Dropped    map[string]int
}
