package config

import (
	"time"
)

// WorkflowAutomationsEnabled turns the deal status automations on or off.
//
// Set via env:
// - WORKFLOW_AUTOMATIONS_ENABLED=false
func WorkflowAutomationsEnabled() bool {
	return boolFromEnv("WORKFLOW_AUTOMATIONS_ENABLED", true)
}

// ReminderSweepInterval is how often the air-date reminder sweep runs.
// Zero disables the background sweep.
//
// Set via env:
// - REMINDER_SWEEP_INTERVAL_MINUTES=60
func ReminderSweepInterval() time.Duration {
	minutes := intFromEnv("REMINDER_SWEEP_INTERVAL_MINUTES", 60)
	if minutes <= 0 {
		return 0
	}
	return time.Duration(minutes) * time.Minute
}

// SkipMigrations disables AutoMigrate on startup (run `synctl migrate` instead).
func SkipMigrations() bool {
	return boolFromEnv("SKIP_MIGRATIONS", false)
}
