package rules

// AlertRules returns a PrometheusRule CR containing alert rules for
// mailin-buyback operational monitoring.
func AlertRules() PrometheusRule {
	return PrometheusRule{
		APIVersion: "monitoring.coreos.com/v1",
		Kind:       "PrometheusRule",
		Metadata: PrometheusRuleMetadata{
			Name:   "mbb-alerts",
			Labels: ruleLabels(),
		},
		Spec: PrometheusRuleSpec{
			Groups: []RuleGroup{
				{
					Name: "mbb-alerts",
					Rules: []Rule{
						{
							Alert:  "MbbDown",
							Expr:   `absent(up{job="mailin-buyback"})`,
							For:    "2m",
							Labels: severity("critical"),
							Annotations: map[string]string{
								"summary":     "Mail-in buyback API is down",
								"description": "The mailin-buyback job has been absent for more than 2 minutes.",
							},
						},
						{
							Alert:  "MbbReadinessDown",
							Expr:   `mbb_readyz_up == 0`,
							For:    "2m",
							Labels: severity("critical"),
							Annotations: map[string]string{
								"summary":     "Mail-in buyback readiness check is failing",
								"description": "The database has been unreachable from the API for more than 2 minutes.",
							},
						},
						{
							Alert:  "MbbHighErrorRate",
							Expr:   `mbb:http_errors:rate5m / mbb:http_requests:rate5m > 0.05`,
							For:    "5m",
							Labels: severity("warning"),
							Annotations: map[string]string{
								"summary":     "High HTTP error rate on the buyback API",
								"description": "More than 5% of HTTP requests are returning 5xx errors over the last 5 minutes.",
							},
						},
						{
							Alert:  "MbbCompletionFailed",
							Expr:   `increase(mbb_completion_failures_total[15m]) > 0`,
							For:    "0m",
							Labels: severity("critical"),
							Annotations: map[string]string{
								"summary": "Payout completion failed at step {{ $labels.step }}",
								"description": "A payout completion failed after some records may have been written. " +
									"Check the API error response or logs for the partial record IDs before retrying.",
							},
						},
						{
							Alert:  "MbbRetirementPending",
							Expr:   `increase(mbb_completion_warnings_total{step="retire_request"}[1h]) > 0`,
							For:    "0m",
							Labels: severity("warning"),
							Annotations: map[string]string{
								"summary":     "Paid requests were left behind after payout",
								"description": "Completed payouts could not remove their request. Run 'bbctl requests retire <id>'.",
							},
						},
						{
							Alert:  "MbbNotificationFailures",
							Expr:   `mbb:notification_failures:rate5m > 0`,
							For:    "5m",
							Labels: severity("warning"),
							Annotations: map[string]string{
								"summary":     "Lifecycle notification delivery failures",
								"description": "Notifications for {{ $labels.action }} have been failing for 5 minutes.",
							},
						},
						{
							Alert:  "MbbRetentionSweepStale",
							Expr:   `time() - mbb_retention_sweep_last_run_timestamp > 86400`,
							For:    "10m",
							Labels: severity("warning"),
							Annotations: map[string]string{
								"summary":     "Retention sweep has not run in 24 hours",
								"description": "Returned requests past their retention period are not being purged.",
							},
						},
					},
				},
			},
		},
	}
}

func severity(s string) map[string]string {
	return map[string]string{"severity": s}
}
