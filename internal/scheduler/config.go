// Package scheduler runs the workspace audit periodically inside the daemon.
package scheduler

import "time"

// Config defines the scheduler configuration.
type Config struct {
	// Interval between audit runs. Zero disables the scheduler.
	Interval time.Duration `yaml:"interval"`
	// RunTimeout bounds a single audit run.
	RunTimeout time.Duration `yaml:"run_timeout"`
	// RunOnStart runs an audit immediately instead of waiting one interval.
	RunOnStart bool `yaml:"run_on_start"`
	// NotifyWorkflow is triggered when a run finds new issues. Empty disables it.
	NotifyWorkflow string `yaml:"notify_workflow"`
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() *Config {
	return &Config{
		Interval:       time.Hour,
		RunTimeout:     2 * time.Minute,
		RunOnStart:     true,
		NotifyWorkflow: "audit",
	}
}

// Enabled reports whether periodic runs are configured.
func (c *Config) Enabled() bool {
	return c.Interval > 0
}
