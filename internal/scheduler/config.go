package scheduler

import "time"

// Config controls scheduler cadence and per-job timeouts.
type Config struct {
	RunInterval time.Duration
	JobTimeout  time.Duration

	// LockTTL bounds how long a replica may hold the run lock.
	LockTTL time.Duration

	// EnabledJobs limits which jobs run; empty means all.
	EnabledJobs []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval: time.Minute,
		JobTimeout:  30 * time.Second,
		LockTTL:     2 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	return c
}
