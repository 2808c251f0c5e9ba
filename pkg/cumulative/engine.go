package cumulative

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/synaptica-ai/noshow/pkg/common/logger"
	"github.com/synaptica-ai/noshow/pkg/common/models"
)

type RunStats struct {
	InputRows  int
	Duplicates int
	Patients   int
	OutputRows int
}

type Result struct {
	Records []models.FeatureRecord
	Stats   RunStats
}

// Engine computes cumulative history features. It holds no state besides its
// options, so repeated runs over the same input return identical output.
type Engine struct {
	opts Options
}

func NewEngine(opts Options) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Engine{opts: opts}, nil
}

func (e *Engine) Options() Options {
	return e.opts
}

// Compute normalizes raw appointment records and derives the feature table.
// Output rows are ordered by (scheduled start, patient).
func (e *Engine) Compute(ctx context.Context, records []models.Appointment) (*Result, error) {
	normalized := Normalize(records)
	histories, err := Partition(normalized)
	if err != nil {
		return nil, err
	}
	result, err := e.ComputeHistories(ctx, histories)
	if err != nil {
		return nil, err
	}
	result.Stats.InputRows = len(records)
	result.Stats.Duplicates = len(records) - len(normalized)
	return result, nil
}

// ComputeHistories runs the window builder, the as-of resolver and the
// composer for already grouped patients. Each history must hold the complete
// sequence of one patient; histories are validated before use and patients
// are processed independently.
func (e *Engine) ComputeHistories(ctx context.Context, histories []PatientHistory) (*Result, error) {
	perPatient := make([][]models.FeatureRecord, len(histories))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for i := range histories {
		h := histories[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rows, err := e.computePatient(h)
			if err != nil {
				return err
			}
			perPatient[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var total int
	for _, rows := range perPatient {
		total += len(rows)
	}
	out := make([]models.FeatureRecord, 0, total)
	for _, rows := range perPatient {
		out = append(out, rows...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := out[i].ScheduledStart, out[j].ScheduledStart
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return out[i].PatientID < out[j].PatientID
	})

	logger.Log.WithFields(map[string]interface{}{
		"patients": len(histories),
		"rows":     len(out),
	}).Debug("cumulative features computed")

	return &Result{
		Records: out,
		Stats: RunStats{
			InputRows:  total,
			Patients:   len(histories),
			OutputRows: len(out),
		},
	}, nil
}

func (e *Engine) computePatient(h PatientHistory) ([]models.FeatureRecord, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	windows := BuildWindows(h, e.opts)
	visits := ResolveLastVisits(h, e.opts)
	return Compose(h.Appointments, windows, visits)
}
