package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/synaptica-ai/noshow/pkg/common/kafka"
	"github.com/synaptica-ai/noshow/pkg/common/logger"
	"github.com/synaptica-ai/noshow/pkg/common/models"
	"github.com/synaptica-ai/noshow/pkg/observability/metrics"
	"github.com/synaptica-ai/noshow/pkg/pipeline"
	"github.com/synaptica-ai/noshow/pkg/storage"
)

const (
	EventAppointmentsExtracted = "appointments.extracted"
	EventFeaturesComputed      = "features.computed"
)

type BatchStore interface {
	Create(ctx context.Context, b *Batch) error
	UpdateStatus(ctx context.Context, id, status, errMsg string) error
	Complete(ctx context.Context, id string, stats BatchStats) error
	Get(ctx context.Context, id string) (*Batch, error)
}

type FeatureSink interface {
	SaveBatch(ctx context.Context, batchID string, records []models.FeatureRecord) error
	ListByPatient(ctx context.Context, patientID string, limit int) ([]models.FeatureRecord, error)
}

type FeatureCache interface {
	MaterializeLatest(ctx context.Context, records []models.FeatureRecord) (int, error)
	GetLatest(ctx context.Context, patientID string) (*models.FeatureRecord, error)
}

type Publisher interface {
	PublishEvent(ctx context.Context, partitionKey string, event models.Event) error
}

type Runner interface {
	Run(ctx context.Context, raws []models.RawAppointment, outputFrom *time.Time) (*pipeline.Result, error)
}

type Service struct {
	validator *Validator
	runner    Runner
	batches   BatchStore
	features  FeatureSink
	cache     FeatureCache
	publisher Publisher
}

// NewService wires the batch flow. cache and publisher may be nil when the
// online store or the event bus are disabled.
func NewService(validator *Validator, runner Runner, batches BatchStore, features FeatureSink, cache FeatureCache, publisher Publisher) *Service {
	return &Service{
		validator: validator,
		runner:    runner,
		batches:   batches,
		features:  features,
		cache:     cache,
		publisher: publisher,
	}
}

// Submit validates and runs one batch synchronously: preprocess, compute,
// persist, refresh the cache, announce the result.
func (s *Service) Submit(ctx context.Context, req models.BatchRequest) (*models.BatchResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	batch := &Batch{
		ID:        id,
		Source:    req.Source,
		Status:    StatusAccepted,
		InputRows: len(req.Records),
	}
	if err := s.batches.Create(ctx, batch); err != nil {
		return nil, fmt.Errorf("persisting batch record: %w", err)
	}

	log := logger.Log.WithFields(map[string]interface{}{
		"batch_id": id,
		"source":   req.Source,
		"records":  len(req.Records),
	})
	log.Info("Batch accepted")
	if err := s.batches.UpdateStatus(ctx, id, StatusRunning, ""); err != nil {
		log.WithError(err).Error("failed to mark batch running")
	}

	result, err := s.process(ctx, id, req)
	if err != nil {
		metrics.BatchFailed()
		log.WithError(err).Error("Batch failed")
		if uerr := s.batches.UpdateStatus(ctx, id, StatusFailed, err.Error()); uerr != nil {
			log.WithError(uerr).Error("failed to mark batch failed")
		}
		return nil, err
	}

	stats := BatchStats{
		InputRows:  len(req.Records),
		Duplicates: result.Features.Duplicates,
		Patients:   result.Features.Patients,
		OutputRows: len(result.Records),
		Dropped:    make(map[string]int, len(result.Preprocess.Dropped)),
	}
	for reason, n := range result.Preprocess.Dropped {
		stats.Dropped[string(reason)] = n
	}
	if err := s.batches.Complete(ctx, id, stats); err != nil {
		log.WithError(err).Error("failed to mark batch completed")
	}
	metrics.BatchSucceeded()

	s.announce(ctx, id, req.Source, stats)

	log.WithFields(map[string]interface{}{
		"patients":    stats.Patients,
		"rows":        stats.OutputRows,
		"duration_ms": result.Took.Milliseconds(),
	}).Info("Batch completed")

	return &models.BatchResponse{
		ID:         id,
		Status:     StatusCompleted,
		InputRows:  stats.InputRows,
		OutputRows: stats.OutputRows,
		Patients:   stats.Patients,
		Timestamp:  time.Now().UTC(),
	}, nil
}

func (s *Service) process(ctx context.Context, id string, req models.BatchRequest) (*pipeline.Result, error) {
	result, err := s.runner.Run(ctx, req.Records, req.OutputFrom)
	if err != nil {
		return nil, err
	}
	if err := s.features.SaveBatch(ctx, id, result.Records); err != nil {
		return nil, err
	}
	if s.cache != nil {
		// The offline table is the source of truth; a cache miss only costs
		// latency.
		if _, err := s.cache.MaterializeLatest(ctx, result.Records); err != nil {
			metrics.CacheWriteFailed()
			logger.Log.WithError(err).WithField("batch_id", id).Warn("failed to refresh feature cache")
		}
	}
	return result, nil
}

func (s *Service) announce(ctx context.Context, id, source string, stats BatchStats) {
	if s.publisher == nil {
		return
	}
	event := kafka.NewEvent(EventFeaturesComputed, source, map[string]interface{}{
		"batch_id":    id,
		"input_rows":  stats.InputRows,
		"output_rows": stats.OutputRows,
		"patients":    stats.Patients,
	})
	if err := s.publisher.PublishEvent(ctx, id, event); err != nil {
		logger.Log.WithError(err).WithField("batch_id", id).Error("failed to publish features event")
	}
}

func (s *Service) Status(ctx context.Context, id string) (*Batch, error) {
	return s.batches.Get(ctx, id)
}

// LatestFeatures serves from the cache and falls back to the feature table.
func (s *Service) LatestFeatures(ctx context.Context, patientID string) (*models.FeatureRecord, error) {
	if s.cache != nil {
		rec, err := s.cache.GetLatest(ctx, patientID)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, storage.ErrFeatureNotFound) {
			logger.Log.WithError(err).WithField("patient_id", patientID).Warn("feature cache read failed")
		}
	}

	rows, err := s.features.ListByPatient(ctx, patientID, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

// HandleEvent processes an appointments.extracted event whose data names a
// CSV extract on shared storage.
func (s *Service) HandleEvent(ctx context.Context, event models.Event) error {
	if event.Type != EventAppointmentsExtracted {
		logger.Log.WithField("event_type", event.Type).Debug("ignoring event")
		return nil
	}
	path, _ := event.Data["path"].(string)
	if path == "" {
		logger.Log.WithField("event_id", event.ID).Warn("extract event without path")
		return nil
	}

	raws, err := ReadCSVFile(path)
	if err != nil {
		return err
	}
	req := models.BatchRequest{Source: event.Source, Records: raws}
	if from, ok := event.Data["output_from"].(string); ok && from != "" {
		t, err := parseDate(from)
		if err != nil {
			return fmt.Errorf("event %s: output_from: %w", event.ID, err)
		}
		req.OutputFrom = &t
	}

	_, err = s.Submit(ctx, req)
	if IsValidationError(err) {
		// Redelivery cannot fix a bad extract.
		logger.Log.WithError(err).WithField("event_id", event.ID).Error("rejected extract")
		return nil
	}
	return err
}
