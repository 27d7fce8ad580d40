package rules

// RecordingRules returns a PrometheusRule CR containing pre-computed rate
// expressions used by dashboards and alert rules.
func RecordingRules() PrometheusRule {
	return PrometheusRule{
		APIVersion: "monitoring.coreos.com/v1",
		Kind:       "PrometheusRule",
		Metadata: PrometheusRuleMetadata{
			Name:   "mbb-recording-rules",
			Labels: ruleLabels(),
		},
		Spec: PrometheusRuleSpec{
			Groups: []RuleGroup{
				{
					Name: "mbb-recording",
					Rules: []Rule{
						{
							Record: "mbb:http_requests:rate5m",
							Expr:   `sum(rate(mbb_http_requests_total[5m]))`,
						},
						{
							Record: "mbb:http_errors:rate5m",
							Expr:   `sum(rate(mbb_http_requests_total{status=~"5.."}[5m]))`,
						},
						{
							Record: "mbb:transitions:rate5m",
							Expr:   `sum(rate(mbb_transitions_total[5m])) by (to)`,
						},
						{
							Record: "mbb:completion_failures:rate5m",
							Expr:   `sum(rate(mbb_completion_failures_total[5m])) by (step)`,
						},
						{
							Record: "mbb:notification_failures:rate5m",
							Expr:   `sum(rate(mbb_notification_failures_total[5m])) by (action)`,
						},
						{
							Record: "mbb:notification_duration:p95_5m",
							Expr:   `histogram_quantile(0.95, sum(rate(mbb_notification_duration_seconds_bucket[5m])) by (le, backend))`,
						},
					},
				},
			},
		},
	}
}
