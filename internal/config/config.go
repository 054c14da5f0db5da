package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/health-environment-etl/internal/domain"
)

// Supported table stores.
const (
	StorePostgres = "postgres"
	StoreFile     = "file"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	Store string

	// Warehouse.
	DatabaseURL    string
	RawSchema      string
	SilverSchema   string
	GoldSchema     string
	WriteBatchSize int

	// File store.
	DataDir   string
	OutputDir string

	Schedule          string
	RunOnce           bool
	PipelineStartDate time.Time
	LagMode           domain.LagMode
	FluRegion         string

	// Optional integrations; empty disables them.
	KafkaBrokers       []string
	KafkaFeaturesTopic string
	RedisAddr          string
	RunLockTTL         time.Duration

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parsePositiveDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	lockTTL, err := parsePositiveDuration("RUN_LOCK_TTL", "30m")
	if err != nil {
		return nil, err
	}

	batchSize, err := strconv.Atoi(envOrDefault("WRITE_BATCH_SIZE", "1000"))
	if err != nil || batchSize <= 0 {
		return nil, errors.New("invalid WRITE_BATCH_SIZE: must be a positive integer")
	}

	runOnce, err := strconv.ParseBool(envOrDefault("RUN_ONCE", "false"))
	if err != nil {
		return nil, errors.New("invalid RUN_ONCE: must be a boolean")
	}

	startDate, err := time.Parse(time.DateOnly, envOrDefault("PIPELINE_START_DATE", domain.PipelineStartDate.Format(time.DateOnly)))
	if err != nil {
		return nil, fmt.Errorf("invalid PIPELINE_START_DATE: %w", err)
	}

	lagMode, err := domain.ParseLagMode(envOrDefault("LAG_MODE", string(domain.LagBySequence)))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Store:              strings.ToLower(envOrDefault("STORE", StorePostgres)),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RawSchema:          envOrDefault("RAW_SCHEMA", "raw"),
		SilverSchema:       envOrDefault("SILVER_SCHEMA", "silver"),
		GoldSchema:         envOrDefault("GOLD_SCHEMA", "gold"),
		WriteBatchSize:     batchSize,
		DataDir:            envOrDefault("DATA_DIR", "data/mock"),
		OutputDir:          envOrDefault("OUTPUT_DIR", "data/out"),
		Schedule:           envOrDefault("SCHEDULE", "@daily"),
		RunOnce:            runOnce,
		PipelineStartDate:  startDate,
		LagMode:            lagMode,
		FluRegion:          os.Getenv("FLU_REGION"),
		KafkaBrokers:       parseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaFeaturesTopic: envOrDefault("KAFKA_FEATURES_TOPIC", "health-environment-features"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RunLockTTL:         lockTTL,
		HTTPAddr:           envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           envOrDefault("LOG_LEVEL", "info"),
		LogFormat:          envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
	}

	switch cfg.Store {
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required when STORE=postgres")
		}
	case StoreFile:
	default:
		return nil, fmt.Errorf("invalid STORE %q: must be %s or %s", cfg.Store, StorePostgres, StoreFile)
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaFeaturesTopic == "" {
		return nil, errors.New("KAFKA_FEATURES_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

// parseBrokers splits a comma-separated broker list, dropping blanks.
func parseBrokers(s string) []string {
	var brokers []string
	for b := range strings.SplitSeq(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
