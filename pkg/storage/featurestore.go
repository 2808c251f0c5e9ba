package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/synaptica-ai/noshow/pkg/common/logger"
	"github.com/synaptica-ai/noshow/pkg/common/models"
)

var ErrFeatureNotFound = errors.New("no cached features for patient")

// FeatureStore keeps the most recent feature row per patient in Redis for
// low latency reads by the serving side.
type FeatureStore struct {
	client   redis.Cmdable
	cacheTTL time.Duration
	prefix   string
}

func NewFeatureStore(client redis.Cmdable, cacheTTL time.Duration, prefix string) *FeatureStore {
	return &FeatureStore{client: client, cacheTTL: cacheTTL, prefix: prefix}
}

func (f *FeatureStore) key(patientID string) string {
	return f.prefix + patientID
}

// LatestPerPatient picks each patient's row with the greatest scheduled start.
func LatestPerPatient(records []models.FeatureRecord) map[string]models.FeatureRecord {
	latest := make(map[string]models.FeatureRecord)
	for _, rec := range records {
		cur, ok := latest[rec.PatientID]
		if !ok || rec.ScheduledStart.After(cur.ScheduledStart) {
			latest[rec.PatientID] = rec
		}
	}
	return latest
}

// storeIfNewer writes the record and its start (unix ms) into the patient
// hash unless the hash already holds a later appointment. Equal starts
// overwrite so a re-run of the same day refreshes the row.
var storeIfNewer = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'start')
if cur and tonumber(cur) > tonumber(ARGV[2]) then
	return 0
end
redis.call('HSET', KEYS[1], 'record', ARGV[1], 'start', ARGV[2])
if tonumber(ARGV[3]) > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return 1
`)

// MaterializeLatest caches the newest row of every patient in records and
// returns how many patients were written. A patient whose cached row is
// scheduled later than the batch's newest row keeps the cached one.
func (f *FeatureStore) MaterializeLatest(ctx context.Context, records []models.FeatureRecord) (int, error) {
	latest := LatestPerPatient(records)
	if len(latest) == 0 {
		return 0, nil
	}

	pipe := f.client.Pipeline()
	cmds := make([]*redis.Cmd, 0, len(latest))
	for patientID, rec := range latest {
		data, err := json.Marshal(rec)
		if err != nil {
			return 0, fmt.Errorf("marshal features for patient %s: %w", patientID, err)
		}
		cmds = append(cmds, storeIfNewer.Eval(ctx, pipe, []string{f.key(patientID)},
			data, rec.ScheduledStart.UnixMilli(), f.cacheTTL.Milliseconds()))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("cache latest features: %w", err)
	}

	written := 0
	for _, cmd := range cmds {
		if n, err := cmd.Int(); err == nil && n == 1 {
			written++
		}
	}

	logger.Log.WithFields(map[string]interface{}{
		"patients": len(latest),
		"written":  written,
		"ttl":      f.cacheTTL.String(),
	}).Debug("Materialized latest features")
	return written, nil
}

func (f *FeatureStore) GetLatest(ctx context.Context, patientID string) (*models.FeatureRecord, error) {
	data, err := f.client.HGet(ctx, f.key(patientID), "record").Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrFeatureNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read cached features: %w", err)
	}

	var rec models.FeatureRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode cached features: %w", err)
	}
	return &rec, nil
}
