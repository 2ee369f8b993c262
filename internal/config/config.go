// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Functions accept context.Context as the first parameter.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"regexp"
	"runtime"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Bounds enforced by Validate.
const (
	minScoreFloor   = 0
	minScoreCeiling = 100
	maxDBConns      = 1000
)

var metricNamePart = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// RequestTimeoutS bounds synchronous HTTP handlers, in seconds.
	RequestTimeoutS int `koanf:"request_timeout_s"`

	// StoreDriver selects the donor source: memory, sqlite or postgres.
	StoreDriver string `koanf:"store_driver"`

	// SQLitePath is the database file used by the sqlite driver.
	SQLitePath string `koanf:"sqlite_path"`

	// DatabaseURL is the Postgres connection string used by the postgres driver.
	DatabaseURL string `koanf:"database_url"`

	// DBMaxConns and DBMinConns size the Postgres pool.
	DBMaxConns int `koanf:"db_max_conns"`
	DBMinConns int `koanf:"db_min_conns"`

	// DefaultMinScore applies when a request does not override minScore.
	DefaultMinScore int `koanf:"default_min_score"`

	// TargetLimit, ScanLimit and BatchLimit cap each mode's output.
	TargetLimit int `koanf:"target_limit"`
	ScanLimit   int `koanf:"scan_limit"`
	BatchLimit  int `koanf:"batch_limit"`

	// MaxBatchSize rejects import pre-checks with more candidates.
	MaxBatchSize int `koanf:"max_batch_size"`

	// ScanQueueSize bounds pending asynchronous scans.
	ScanQueueSize int `koanf:"scan_queue_size"`

	// ScanWorkerCount sets the number of asynchronous scan workers.
	ScanWorkerCount int `koanf:"scan_worker_count"`

	// ScanJobRetention caps how many scan jobs are remembered.
	ScanJobRetention int `koanf:"scan_job_retention"`

	// Weights overrides field weights, keyed by field name (email, phone, ...).
	Weights map[string]float64 `koanf:"weights"`

	// MetricsNamespace and MetricsSubsystem prefix every Prometheus metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`

	// MetricsLatencyBucketsMs overrides the latency histogram buckets. Empty keeps the defaults.
	MetricsLatencyBucketsMs []float64 `koanf:"metrics_latency_buckets_ms"`
}

// New creates a Config with defaults. Context is accepted first to satisfy the
// project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		RequestTimeoutS:  60,
		StoreDriver:      DriverSQLite,
		SQLitePath:       "dupscan.db",
		DBMaxConns:       10,
		DBMinConns:       1,
		DefaultMinScore:  50,
		TargetLimit:      20,
		ScanLimit:        100,
		BatchLimit:       5,
		MaxBatchSize:     5000,
		ScanQueueSize:    64,
		ScanWorkerCount:  max(1, runtime.NumCPU()/2),
		ScanJobRetention: 256,
		Weights:          map[string]float64{},
		MetricsNamespace: "dupscan",
		MetricsSubsystem: "engine",
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DefaultMinScore < minScoreFloor || c.DefaultMinScore > minScoreCeiling:
		return fmt.Errorf("%w: default_min_score must be within [0,100], got %d", ErrInvalidConfig, c.DefaultMinScore)
	case c.TargetLimit < 1 || c.ScanLimit < 1 || c.BatchLimit < 1:
		return fmt.Errorf("%w: target_limit, scan_limit and batch_limit must be positive", ErrInvalidConfig)
	case c.DBMaxConns < 0 || c.DBMaxConns > maxDBConns || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns:
		return fmt.Errorf("%w: db_min_conns and db_max_conns must satisfy 0 <= min <= max <= %d", ErrInvalidConfig, maxDBConns)
	}
	if err := c.validateMetrics(); err != nil {
		return err
	}
	for field, w := range c.Weights {
		if w <= 0 {
			return fmt.Errorf("%w: weight for %s must be positive, got %v", ErrInvalidConfig, field, w)
		}
	}

	switch c.StoreDriver {
	case DriverMemory:
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("%w: sqlite_path is required for the sqlite driver", ErrInvalidConfig)
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: database_url is required for the postgres driver", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}
	return nil
}

func (c *Config) validateMetrics() error {
	for key, v := range map[string]string{"metrics_namespace": c.MetricsNamespace, "metrics_subsystem": c.MetricsSubsystem} {
		if !metricNamePart.MatchString(v) {
			return fmt.Errorf("%w: %s %q is not a valid metric name part", ErrInvalidConfig, key, v)
		}
	}
	for i := 1; i < len(c.MetricsLatencyBucketsMs); i++ {
		if c.MetricsLatencyBucketsMs[i] <= c.MetricsLatencyBucketsMs[i-1] {
			return fmt.Errorf("%w: metrics_latency_buckets_ms must be strictly increasing", ErrInvalidConfig)
		}
	}
	return nil
}
