package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// CompletionsRate returns a stat panel showing payouts completed in the
// past 24 hours.
func CompletionsRate() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Payouts (24h)").
		Description("Requests materialized into customer, buyback, and inventory records").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(StatWidth).
		WithTarget(PromQuery(`sum(increase(`+jobSel("mbb_completions_total")+`[24h]))`, "", "A")).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemeThresholds()).
		GraphMode(common.BigValueGraphModeArea)
}

// CompletionFailures returns a timeseries panel showing fatal completion
// failures by step. Each failure may leave partial records behind.
func CompletionFailures() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Completion Failures").
		Description("Fatal payout completion failures by step").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(StatWidth).
		WithTarget(PromQuery(`mbb:completion_failures:rate5m`, "{{step}}", "A")).
		Unit("ops").
		FillOpacity(10).
		LineWidth(2).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleBars)
}

// CompletionWarnings returns a timeseries panel showing non-fatal completion
// step failures, such as a request left behind after payout.
func CompletionWarnings() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Completion Warnings").
		Description("Non-fatal completion step failures by step").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(StatWidth).
		WithTarget(PromQuery(
			`sum(increase(`+jobSel("mbb_completion_warnings_total")+`[1h])) by (step)`,
			"{{step}}", "A",
		)).
		FillOpacity(10).
		LineWidth(2).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleBars)
}

// CompletionLatency returns a timeseries panel showing p95 completion time.
func CompletionLatency() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Completion Latency (p95)").
		Description("95th percentile payout completion duration").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(StatWidth).
		WithTarget(PromQuery(
			`histogram_quantile(0.95, sum(rate(`+jobSel("mbb_completion_duration_seconds_bucket")+`[5m])) by (le))`,
			"p95", "A",
		)).
		Unit("s").
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenYellowRed(1, 5)).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}
