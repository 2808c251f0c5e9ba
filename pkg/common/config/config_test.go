package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 5, cfg.HistoryYears)
	assert.Equal(t, 3, cfg.ExclusionDays)
	assert.Equal(t, 60, cfg.ArrivalThresholdMinutes)
	assert.Equal(t, 3, cfg.MinLeadDays)
	assert.Equal(t, "appointments.extracted", cfg.KafkaBatchTopic)
	assert.Equal(t, "features.computed", cfg.KafkaFeaturesTopic)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HISTORY_YEARS", "2")
	t.Setenv("EXCLUSION_DAYS", "0")
	t.Setenv("FEATURE_WORKERS", "8")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("KAFKA_ENABLED", "false")
	t.Setenv("FEATURE_CACHE_TTL", "90m")
	t.Setenv("MIN_LEAD_DAYS", "not-a-number")

	cfg := Load()

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, 90*time.Minute, cfg.FeatureCacheTTL)
	assert.Equal(t, 3, cfg.MinLeadDays)

	opts := cfg.Window()
	assert.Equal(t, 2, opts.HistoryYears)
	assert.Equal(t, 0, opts.ExclusionDays)
	assert.Equal(t, 8, opts.Workers)
	assert.NoError(t, opts.Validate())
}
