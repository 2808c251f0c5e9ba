package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/synaptica-ai/noshow/pkg/cumulative"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers       []string
	KafkaGroupID       string
	KafkaBatchTopic    string
	KafkaFeaturesTopic string
	KafkaEnabled       bool

	// Features
	HistoryYears            int
	ExclusionDays           int
	ArrivalThresholdMinutes int
	MinLeadDays             int
	FeatureWorkers          int

	// Feature Store
	FeatureCacheEnabled bool
	FeatureCacheTTL     time.Duration
	FeatureCachePrefix  string

	// Batches
	BatchRetention  time.Duration
	AllowedSources  []string
	MaxBatchRecords int

	// Reference data
	CleaningRulesPath string
	ZipCodesPath      string
	ModelArtifactDir  string
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 5*time.Minute),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 64*1024*1024)),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "noshow"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "noshow"),
		PostgresDB:       getEnv("POSTGRES_DB", "noshow"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:       getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:       getEnv("KAFKA_GROUP_ID", "noshow-features"),
		KafkaBatchTopic:    getEnv("KAFKA_BATCH_TOPIC", "appointments.extracted"),
		KafkaFeaturesTopic: getEnv("KAFKA_FEATURES_TOPIC", "features.computed"),
		KafkaEnabled:       getBoolEnv("KAFKA_ENABLED", true),

		HistoryYears:            getIntEnv("HISTORY_YEARS", 5),
		ExclusionDays:           getIntEnv("EXCLUSION_DAYS", 3),
		ArrivalThresholdMinutes: getIntEnv("ARRIVAL_THRESHOLD_MINUTES", 60),
		MinLeadDays:             getIntEnv("MIN_LEAD_DAYS", 3),
		FeatureWorkers:          getIntEnv("FEATURE_WORKERS", 1),

		FeatureCacheEnabled: getBoolEnv("FEATURE_CACHE_ENABLED", true),
		FeatureCacheTTL:     getDuration("FEATURE_CACHE_TTL", 24*time.Hour),
		FeatureCachePrefix:  getEnv("FEATURE_CACHE_PREFIX", "noshow:features:"),

		BatchRetention:  getDuration("BATCH_RETENTION", 90*24*time.Hour),
		AllowedSources:  getStringSliceEnv("ALLOWED_SOURCES", nil),
		MaxBatchRecords: getIntEnv("MAX_BATCH_RECORDS", 0),

		CleaningRulesPath: getEnv("CLEANING_RULES_PATH", ""),
		ZipCodesPath:      getEnv("ZIPCODES_PATH", ""),
		ModelArtifactDir:  getEnv("MODEL_ARTIFACT_DIR", "artifacts"),
	}
}

// Window is the one place feature options are built, so the window builder
// and the as-of resolver always see the same exclusion.
func (c *Config) Window() cumulative.Options {
	return cumulative.Options{
		HistoryYears:  c.HistoryYears,
		ExclusionDays: c.ExclusionDays,
		Workers:       c.FeatureWorkers,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var out []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
