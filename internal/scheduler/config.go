package scheduler

import (
	"time"

	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/config"
)

const (
	JobOutboxDispatch = "outbox_dispatch"
	JobOutboxPurge    = "outbox_purge"
)

// Config controls scheduler intervals and batch sizes.
type Config struct {
	RunInterval     time.Duration
	BatchSize       int
	MaxDispatchRuns int
	PurgeBatchSize  int
	Retention       time.Duration
	JobTimeout      time.Duration
	EnabledJobs     []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval:     2 * time.Second,
		BatchSize:       100,
		MaxDispatchRuns: 10,
		PurgeBatchSize:  500,
		Retention:       7 * 24 * time.Hour,
		JobTimeout:      30 * time.Second,
	}
}

// ProvideConfig derives the scheduler settings from the outbox configuration.
func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval: cfg.Events.PollInterval,
		BatchSize:   cfg.Events.BatchSize,
		Retention:   cfg.Events.Retention,
		EnabledJobs: cfg.SchedulerJobs,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.MaxDispatchRuns <= 0 {
		c.MaxDispatchRuns = defaults.MaxDispatchRuns
	}
	if c.PurgeBatchSize <= 0 {
		c.PurgeBatchSize = defaults.PurgeBatchSize
	}
	if c.Retention <= 0 {
		c.Retention = defaults.Retention
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	return c
}
