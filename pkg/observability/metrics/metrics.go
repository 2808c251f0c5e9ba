package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

var (
	lastInputRows   atomic.Int64
	lastDuplicates  atomic.Int64
	lastPatients    atomic.Int64
	lastOutputRows  atomic.Int64
	lastDurationMs  atomic.Int64
	lastRunUnix     atomic.Int64
	batchesOK       atomic.Int64
	batchesFailed   atomic.Int64
	cacheWriteFails atomic.Int64
)

// ObserveRun records the counts of the most recent feature run.
func ObserveRun(input, duplicates, patients, output int, took time.Duration) {
	lastInputRows.Store(int64(input))
	lastDuplicates.Store(int64(duplicates))
	lastPatients.Store(int64(patients))
	lastOutputRows.Store(int64(output))
	lastDurationMs.Store(took.Milliseconds())
	lastRunUnix.Store(time.Now().Unix())
}

func BatchSucceeded() { batchesOK.Add(1) }

func BatchFailed() { batchesFailed.Add(1) }

func CacheWriteFailed() { cacheWriteFails.Add(1) }

type gauge struct {
	name  string
	help  string
	typ   string
	value *atomic.Int64
}

var gauges = []gauge{
	{"noshow_features_last_run_input_rows", "Appointment rows received by the latest feature run.", "gauge", &lastInputRows},
	{"noshow_features_last_run_duplicates", "Duplicate (patient, start) rows dropped by the latest run.", "gauge", &lastDuplicates},
	{"noshow_features_last_run_patients", "Patients processed by the latest run.", "gauge", &lastPatients},
	{"noshow_features_last_run_output_rows", "Feature rows produced by the latest run.", "gauge", &lastOutputRows},
	{"noshow_features_last_run_duration_ms", "Wall time of the latest run in milliseconds.", "gauge", &lastDurationMs},
	{"noshow_features_last_run_timestamp_seconds", "Unix time the latest run finished.", "gauge", &lastRunUnix},
	{"noshow_features_batches_succeeded_total", "Feature batches completed since start.", "counter", &batchesOK},
	{"noshow_features_batches_failed_total", "Feature batches failed since start.", "counter", &batchesFailed},
	{"noshow_features_cache_write_failures_total", "Online feature cache writes that failed.", "counter", &cacheWriteFails},
}

func Write(w io.Writer) {
	for _, g := range gauges {
		fmt.Fprintf(w, "# HELP %s %s\n", g.name, g.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", g.name, g.typ)
		fmt.Fprintf(w, "%s %d\n", g.name, g.value.Load())
	}
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	Write(w)
}

func Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		WritePrometheus(w)
	}
}
