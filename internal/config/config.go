package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ServiceConfig captures all tunable parameters for the dispatcher
// process. Values are primarily loaded from environment variables with
// sane defaults so the binary can run locally without excessive setup.
type ServiceConfig struct {
	MetricsAddr     string
	ShutdownTimeout time.Duration
	TickInterval    time.Duration

	PGDSN string

	RedisAddr        string
	RedisPassword    string
	PolylineCacheTTL time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	PrefilterLimit  int
	MaxResults      int
	MaxPoolDetourKm float64

	LogLevel      string
	RunMigrations bool
}

func defaultServiceConfig() ServiceConfig {
	defaults := DefaultMatchConfig()
	return ServiceConfig{
		MetricsAddr:      ":2112",
		ShutdownTimeout:  15 * time.Second,
		TickInterval:     10 * time.Second,
		PolylineCacheTTL: 30 * time.Minute,
		KafkaTopic:       "pool-assignments",
		PrefilterLimit:   200,
		MaxResults:       defaults.MaxResults,
		MaxPoolDetourKm:  defaults.Optimizer.MaxPoolDetourKm,
		LogLevel:         "info",
	}
}

// LoadServiceConfig reads the environment over defaults, accumulating
// parse errors instead of failing on the first one.
func LoadServiceConfig() (ServiceConfig, error) {
	cfg := defaultServiceConfig()
	var errs []error

	setStringFromEnv(&cfg.MetricsAddr, "METRICS_ADDR")
	setDurationFromEnv(&cfg.ShutdownTimeout, "SHUTDOWN_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.TickInterval, "DISPATCH_TICK_INTERVAL", &errs)

	cfg.PGDSN = os.Getenv("PG_DSN")

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	setDurationFromEnv(&cfg.PolylineCacheTTL, "POLYLINE_CACHE_TTL", &errs)

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_TOPIC")

	setIntFromEnv(&cfg.PrefilterLimit, "PREFILTER_LIMIT", &errs)
	setIntFromEnv(&cfg.MaxResults, "MATCH_MAX_RESULTS", &errs)
	setFloatFromEnv(&cfg.MaxPoolDetourKm, "MAX_POOL_DETOUR_KM", &errs)

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	cfg.RunMigrations = strings.EqualFold(os.Getenv("MIGRATE"), "true")

	if cfg.PrefilterLimit <= 0 {
		errs = append(errs, fmt.Errorf("PREFILTER_LIMIT must be > 0"))
	}
	if cfg.MaxResults <= 0 {
		errs = append(errs, fmt.Errorf("MATCH_MAX_RESULTS must be > 0"))
	}

	return cfg, errors.Join(errs...)
}

// MatchOverrides expresses the env-tunable subset of MatchConfig as an
// override record for Merge.
func (c ServiceConfig) MatchOverrides() *MatchOverrides {
	return &MatchOverrides{
		MaxResults: &c.MaxResults,
		Optimizer:  &OptimizerOverrides{MaxPoolDetourKm: &c.MaxPoolDetourKm},
	}
}

func setDurationFromEnv(target *time.Duration, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = d
	}
}

func setFloatFromEnv(target *float64, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = f
	}
}

func setIntFromEnv(target *int, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = i
	}
}

func setStringFromEnv(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
