package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/synaptica-ai/noshow/pkg/common/config"
	"github.com/synaptica-ai/noshow/pkg/common/logger"
	"github.com/synaptica-ai/noshow/pkg/common/models"
	"github.com/synaptica-ai/noshow/pkg/cumulative"
	"github.com/synaptica-ai/noshow/pkg/observability/metrics"
	"github.com/synaptica-ai/noshow/pkg/preprocessing"
)

type Options struct {
	Window     cumulative.Options
	Preprocess preprocessing.Options
	// OutputFrom drops rows scheduled before this date from the output.
	// They still count as history for later rows.
	OutputFrom *time.Time
}

type Result struct {
	Records    []models.FeatureRecord
	Preprocess preprocessing.Stats
	Features   cumulative.RunStats
	Took       time.Duration
}

// Runner turns raw extract rows into feature rows: preprocess, compute
// cumulative history, filter by output date.
type Runner struct {
	pre    *preprocessing.Preprocessor
	engine *cumulative.Engine
	opts   Options
}

func NewRunner(rules preprocessing.Rules, zips preprocessing.ZipIndex, opts Options) (*Runner, error) {
	engine, err := cumulative.NewEngine(opts.Window)
	if err != nil {
		return nil, err
	}
	return &Runner{
		pre:    preprocessing.New(rules, zips, opts.Preprocess),
		engine: engine,
		opts:   opts,
	}, nil
}

// NewRunnerFromConfig loads cleaning rules and the zip code file named by cfg.
func NewRunnerFromConfig(cfg *config.Config) (*Runner, error) {
	rules, err := preprocessing.LoadRules(cfg.CleaningRulesPath)
	if err != nil {
		return nil, err
	}
	zips, err := preprocessing.LoadZipIndex(cfg.ZipCodesPath)
	if err != nil {
		return nil, err
	}
	return NewRunner(rules, zips, Options{
		Window: cfg.Window(),
		Preprocess: preprocessing.Options{
			ArrivalThresholdMinutes: cfg.ArrivalThresholdMinutes,
			MinLeadDays:             cfg.MinLeadDays,
		},
	})
}

func (r *Runner) Options() Options {
	return r.opts
}

// Run uses the runner's OutputFrom unless outputFrom is set.
func (r *Runner) Run(ctx context.Context, raws []models.RawAppointment, outputFrom *time.Time) (*Result, error) {
	start := time.Now()
	if outputFrom == nil {
		outputFrom = r.opts.OutputFrom
	}

	appts, preStats := r.pre.Process(raws)
	computed, err := r.engine.Compute(ctx, appts)
	if err != nil {
		return nil, fmt.Errorf("compute cumulative features: %w", err)
	}

	records := filterFrom(computed.Records, outputFrom)
	took := time.Since(start)

	metrics.ObserveRun(computed.Stats.InputRows, computed.Stats.Duplicates, computed.Stats.Patients, len(records), took)
	logger.Log.WithFields(map[string]interface{}{
		"raw_rows":     len(raws),
		"appointments": len(appts),
		"duplicates":   computed.Stats.Duplicates,
		"patients":     computed.Stats.Patients,
		"rows":         len(records),
		"duration_ms":  took.Milliseconds(),
	}).Info("Feature run completed")

	return &Result{
		Records:    records,
		Preprocess: preStats,
		Features:   computed.Stats,
		Took:       took,
	}, nil
}

// Run is a one-shot helper for callers without a long-lived Runner.
func Run(ctx context.Context, raws []models.RawAppointment, rules preprocessing.Rules, zips preprocessing.ZipIndex, opts Options) (*Result, error) {
	r, err := NewRunner(rules, zips, opts)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, raws, nil)
}

func filterFrom(records []models.FeatureRecord, from *time.Time) []models.FeatureRecord {
	if from == nil {
		return records
	}
	out := records[:0:0]
	for _, rec := range records {
		if !rec.ScheduledStart.Before(*from) {
			out = append(out, rec)
		}
	}
	return out
}
