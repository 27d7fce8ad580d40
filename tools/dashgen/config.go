package main

import "errors"

// KnownMetrics is the set of metric names exported by the buyback server
// plus recording rule names referenced in dashboards and alerts. Histogram
// series suffixes (_bucket, _sum, _count) resolve to their base name.
var KnownMetrics = map[string]bool{
	// HTTP metrics.
	"mbb_http_request_duration_seconds": true,
	"mbb_http_requests_total":           true,

	// Health metrics.
	"mbb_healthz_up": true,
	"mbb_readyz_up":  true,

	// Request lifecycle metrics.
	"mbb_requests_created_total":         true,
	"mbb_transitions_total":              true,
	"mbb_guard_violations_total":         true,
	"mbb_assessment_price_changed_total": true,
	"mbb_guarantee_applied_total":        true,
	"mbb_deduction_lookup_gaps_total":    true,

	// Completion metrics.
	"mbb_completions_total":           true,
	"mbb_completion_failures_total":   true,
	"mbb_completion_warnings_total":   true,
	"mbb_completion_duration_seconds": true,

	// Retention metrics.
	"mbb_retention_sweep_deleted_total":      true,
	"mbb_retention_sweep_last_run_timestamp": true,
	"mbb_retention_sweep_next_run_timestamp": true,

	// Notification metrics.
	"mbb_notifications_sent_total":      true,
	"mbb_notification_failures_total":   true,
	"mbb_notification_duration_seconds": true,

	// Recording rules.
	"mbb:http_requests:rate5m":         true,
	"mbb:http_errors:rate5m":           true,
	"mbb:transitions:rate5m":           true,
	"mbb:completion_failures:rate5m":   true,
	"mbb:notification_failures:rate5m": true,
	"mbb:notification_duration:p95_5m": true,

	// Standard Prometheus metrics referenced in dashboards.
	"up":                         true,
	"process_start_time_seconds": true,
}

// Config controls which artifacts the generator produces and where they go.
type Config struct {
	OutputDir        string
	DashboardEnabled bool
	RulesEnabled     bool
}

// DefaultConfig returns a Config that generates all artifacts into ../../deploy
// (relative to tools/dashgen/).
func DefaultConfig() Config {
	return Config{
		OutputDir:        "../../deploy",
		DashboardEnabled: true,
		RulesEnabled:     true,
	}
}

// Validate checks that the config is usable.
func (c Config) Validate() error {
	if c.OutputDir == "" {
		return errors.New("output directory must be set")
	}
	if !c.DashboardEnabled && !c.RulesEnabled {
		return errors.New("at least one of dashboard or rules must be enabled")
	}
	return nil
}
