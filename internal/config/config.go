package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// SoilGrids provider configuration.
	SoilGridsBaseURL   string
	SoilGridsTimeout   time.Duration
	SoilGridsRateLimit float64
	SoilGridsCacheSize int
	BreakerThreshold   uint32
	BreakerCooldown    time.Duration

	// Kafka enrichment pipeline configuration. The pipeline runs only when
	// KAFKA_BROKERS is set.
	PipelineEnabled  bool
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string

	BatchSize          int
	BatchFlushInterval time.Duration
}

const maxBatchSize = 1000

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parsePositiveDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	soilGridsTimeout, err := parsePositiveDuration("SOILGRIDS_TIMEOUT", "25s")
	if err != nil {
		return nil, err
	}
	breakerCooldown, err := parsePositiveDuration("SOILGRIDS_BREAKER_COOLDOWN", "30s")
	if err != nil {
		return nil, err
	}
	flushInterval, err := parsePositiveDuration("BATCH_FLUSH_INTERVAL", "500ms")
	if err != nil {
		return nil, err
	}

	rateLimit, err := parseRateLimit()
	if err != nil {
		return nil, err
	}
	cacheSize, err := parseCacheSize()
	if err != nil {
		return nil, err
	}
	breakerThreshold, err := parseBreakerThreshold()
	if err != nil {
		return nil, err
	}
	batchSize, err := parseBatchSize()
	if err != nil {
		return nil, err
	}

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		SoilGridsBaseURL:   envOrDefault("SOILGRIDS_BASE_URL", "https://rest.isric.org"),
		SoilGridsTimeout:   soilGridsTimeout,
		SoilGridsRateLimit: rateLimit,
		SoilGridsCacheSize: cacheSize,
		BreakerThreshold:   breakerThreshold,
		BreakerCooldown:    breakerCooldown,

		PipelineEnabled:  len(brokers) > 0,
		KafkaBrokers:     brokers,
		KafkaSourceTopic: envOrDefault("KAFKA_SOURCE_TOPIC", "raw-site-readings"),
		KafkaSinkTopic:   envOrDefault("KAFKA_SINK_TOPIC", "soil-enriched-readings"),
		KafkaGroupID:     envOrDefault("KAFKA_GROUP_ID", "soil-data-service"),

		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
	}

	if cfg.PipelineEnabled {
		if cfg.KafkaSourceTopic == "" {
			return nil, errors.New("KAFKA_SOURCE_TOPIC is required when KAFKA_BROKERS is set")
		}
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_SINK_TOPIC is required when KAFKA_BROKERS is set")
		}
		if cfg.KafkaGroupID == "" {
			return nil, errors.New("KAFKA_GROUP_ID is required when KAFKA_BROKERS is set")
		}
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
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

func parseBatchSize() (int, error) {
	n, err := strconv.Atoi(envOrDefault("BATCH_SIZE", "50"))
	if err != nil || n < 1 || n > maxBatchSize {
		return 0, fmt.Errorf("invalid BATCH_SIZE: must be between 1 and %d", maxBatchSize)
	}
	return n, nil
}

func parseCacheSize() (int, error) {
	n, err := strconv.Atoi(envOrDefault("SOILGRIDS_CACHE_SIZE", "0"))
	if err != nil || n < 0 {
		return 0, errors.New("invalid SOILGRIDS_CACHE_SIZE: must be zero or a positive integer")
	}
	return n, nil
}

func parseRateLimit() (float64, error) {
	v, err := strconv.ParseFloat(envOrDefault("SOILGRIDS_RATE_LIMIT", "0"), 64)
	if err != nil || v < 0 {
		return 0, errors.New("invalid SOILGRIDS_RATE_LIMIT: must be zero or a positive number")
	}
	return v, nil
}

func parseBreakerThreshold() (uint32, error) {
	n, err := strconv.Atoi(envOrDefault("SOILGRIDS_BREAKER_THRESHOLD", "5"))
	if err != nil || n < 1 {
		return 0, errors.New("invalid SOILGRIDS_BREAKER_THRESHOLD: must be a positive integer")
	}
	return uint32(n), nil
}

func parseBrokers(raw string) []string {
	parts := strings.Split(raw, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if b := strings.TrimSpace(p); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
