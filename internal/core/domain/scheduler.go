package domain

import (
	"fmt"
	"time"
)

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	// PipelinesPath is the location of the pipelines document.
	PipelinesPath string

	// PollInterval is how often the scheduler re-checks schedules while
	// running continuously.
	PollInterval time.Duration

	// KeepHistory is how many execution results to retain per pipeline.
	KeepHistory int
}

// Validate checks the configuration.
func (c *SchedulerConfig) Validate() error {
	if c.PipelinesPath == "" {
		return fmt.Errorf("%w: pipelines document path is required", ErrConfigInvalid)
	}
	return nil
}

// DefaultSchedulerConfig returns sensible defaults for the scheduler.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		PollInterval: 10 * time.Second,
		KeepHistory:  100,
	}
}
