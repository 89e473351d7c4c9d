// Package worker holds the configuration and metrics for the
// long-running worker process: the scheduled live publish job, the
// pending-publication flush loop, and the backfill workers it hosts.
package worker

import (
	"fmt"
	"log/slog"
	"time"

	"archivefeed/internal/pkg/config"
)

// WorkerConfig controls the worker process schedule and limits.
//
// All fields carry defaults and validation rules; LoadConfigFromEnv
// never fails, it falls back to defaults field by field so a typo in
// one variable cannot keep the worker down.
type WorkerConfig struct {
	// PublishCronSchedule drives the live publish job.
	// Format: "minute hour day month weekday".
	PublishCronSchedule string

	// Timezone is the IANA timezone for cron scheduling.
	Timezone string

	// FlushInterval is how often the pending-publication queue is
	// flushed through the circuit breaker.
	FlushInterval time.Duration

	// JobTimeout bounds a single publish job run.
	JobTimeout time.Duration

	// HealthPort serves health checks and the metrics endpoint.
	HealthPort int
}

// DefaultConfig returns production defaults: hourly publish runs, a
// five-minute flush cadence and the common exporter port.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		PublishCronSchedule: "15 * * * *",
		Timezone:            "Europe/Moscow",
		FlushInterval:       5 * time.Minute,
		JobTimeout:          30 * time.Minute,
		HealthPort:          9091,
	}
}

// Validate checks all fields and aggregates the failures.
func (c *WorkerConfig) Validate() error {
	var errs []error

	if err := config.ValidateCronSchedule(c.PublishCronSchedule); err != nil {
		errs = append(errs, fmt.Errorf("publish cron schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidateDuration(c.FlushInterval, 10*time.Second, time.Hour); err != nil {
		errs = append(errs, fmt.Errorf("flush interval: %w", err))
	}
	if err := config.ValidatePositiveDuration(c.JobTimeout); err != nil {
		errs = append(errs, fmt.Errorf("job timeout: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

// LoadConfigFromEnv loads the worker configuration with per-field
// fallback to defaults. Invalid values are logged and counted in the
// config metrics; the returned configuration is always valid.
//
// Environment variables:
//   - PUBLISH_CRON_SCHEDULE: cron expression (default "15 * * * *")
//   - WORKER_TIMEZONE: IANA timezone name (default "Europe/Moscow")
//   - FLUSH_INTERVAL: duration 10s-1h (default 5m)
//   - JOB_TIMEOUT: duration 1m-4h (default 30m)
//   - WORKER_HEALTH_PORT: integer 1024-65535 (default 9091)
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()
	fallbackApplied := false

	apply := func(field string, result config.ConfigLoadResult) {
		if !result.FallbackApplied {
			return
		}
		fallbackApplied = true
		metrics.RecordValidationError(field)
		metrics.RecordFallback(field, "default")
		for _, warning := range result.Warnings {
			logger.Warn("configuration fallback applied",
				slog.String("field", field),
				slog.String("warning", warning))
		}
	}

	result := config.LoadEnvWithFallback("PUBLISH_CRON_SCHEDULE", cfg.PublishCronSchedule, config.ValidateCronSchedule)
	cfg.PublishCronSchedule = result.Value.(string)
	apply("publish_cron_schedule", result)

	result = config.LoadEnvWithFallback("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	cfg.Timezone = result.Value.(string)
	apply("timezone", result)

	result = config.LoadEnvDuration("FLUSH_INTERVAL", cfg.FlushInterval, func(d time.Duration) error {
		return config.ValidateDuration(d, 10*time.Second, time.Hour)
	})
	cfg.FlushInterval = result.Value.(time.Duration)
	apply("flush_interval", result)

	result = config.LoadEnvDuration("JOB_TIMEOUT", cfg.JobTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, time.Minute, 4*time.Hour)
	})
	cfg.JobTimeout = result.Value.(time.Duration)
	apply("job_timeout", result)

	result = config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})
	cfg.HealthPort = result.Value.(int)
	apply("health_port", result)

	metrics.SetFallbackActive("", fallbackApplied)
	metrics.RecordLoadTimestamp()

	return &cfg, nil
}
