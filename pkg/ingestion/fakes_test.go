package ingestion

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/synaptica-ai/noshow/pkg/common/models"
	"github.com/synaptica-ai/noshow/pkg/cumulative"
	"github.com/synaptica-ai/noshow/pkg/pipeline"
	"github.com/synaptica-ai/noshow/pkg/preprocessing"
	"github.com/synaptica-ai/noshow/pkg/storage"
)

type memBatches struct {
	mu      sync.Mutex
	batches map[string]*Batch
	history []string
	// statusErr fails UpdateStatus for the given status.
	statusErr map[string]error
}

func newMemBatches() *memBatches {
	return &memBatches{batches: make(map[string]*Batch)}
}

func (m *memBatches) Create(_ context.Context, b *Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	m.batches[b.ID] = &cp
	m.history = append(m.history, b.Status)
	return nil
}

func (m *memBatches) UpdateStatus(_ context.Context, id, status, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.statusErr[status]; err != nil {
		return err
	}
	b, ok := m.batches[id]
	if !ok {
		return ErrNotFound
	}
	b.Status, b.Error = status, errMsg
	m.history = append(m.history, status)
	return nil
}

func (m *memBatches) Complete(_ context.Context, id string, stats BatchStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[id]
	if !ok {
		return ErrNotFound
	}
	b.Status = StatusCompleted
	b.InputRows, b.Duplicates, b.Patients, b.OutputRows = stats.InputRows, stats.Duplicates, stats.Patients, stats.OutputRows
	m.history = append(m.history, StatusCompleted)
	return nil
}

func (m *memBatches) Get(_ context.Context, id string) (*Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

type memFeatures struct {
	mu   sync.Mutex
	rows map[string][]models.FeatureRecord
	err  error
}

func newMemFeatures() *memFeatures {
	return &memFeatures{rows: make(map[string][]models.FeatureRecord)}
}

func (m *memFeatures) SaveBatch(_ context.Context, batchID string, records []models.FeatureRecord) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		m.rows[r.PatientID] = append(m.rows[r.PatientID], r)
	}
	return nil
}

func (m *memFeatures) ListByPatient(_ context.Context, patientID string, limit int) ([]models.FeatureRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := append([]models.FeatureRecord(nil), m.rows[patientID]...)
	sort.Slice(rows, func(i, j int) bool { return rows[i].ScheduledStart.After(rows[j].ScheduledStart) })
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

type memCache struct {
	latest map[string]models.FeatureRecord
	err    error
}

func (m *memCache) MaterializeLatest(_ context.Context, records []models.FeatureRecord) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.latest = storage.LatestPerPatient(records)
	return len(m.latest), nil
}

func (m *memCache) GetLatest(_ context.Context, patientID string) (*models.FeatureRecord, error) {
	rec, ok := m.latest[patientID]
	if !ok {
		return nil, storage.ErrFeatureNotFound
	}
	return &rec, nil
}

type memPublisher struct {
	events []models.Event
	keys   []string
}

func (m *memPublisher) PublishEvent(_ context.Context, key string, event models.Event) error {
	m.keys = append(m.keys, key)
	m.events = append(m.events, event)
	return nil
}

type failingRunner struct{}

func (failingRunner) Run(context.Context, []models.RawAppointment, *time.Time) (*pipeline.Result, error) {
	return nil, errors.New("engine exploded")
}

func newTestRunner() *pipeline.Runner {
	r, err := pipeline.NewRunner(preprocessing.DefaultRules(), nil, pipeline.Options{
		Window:     cumulative.DefaultOptions(),
		Preprocess: preprocessing.DefaultOptions(),
	})
	if err != nil {
		panic(err)
	}
	return r
}

func day(m time.Month, d int) time.Time {
	return time.Date(2023, m, d, 0, 0, 0, 0, time.UTC)
}

func rawVisit(patient string, start time.Time, status int) models.RawAppointment {
	reason := ""
	if status == 6 {
		reason = "No show (geen factuur)"
	}
	return models.RawAppointment{
		PatientID:         patient,
		EntryDate:         start.AddDate(0, 0, -10),
		StartDate:         start,
		StartTime:         "11:00",
		SpecCode:          "INT",
		ConsultType:       "V",
		StatusKey:         &status,
		CancelationReason: reason,
	}
}
