package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// IntakeRate returns a timeseries panel showing new requests per hour.
func IntakeRate() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Intake").
		Description("Mail-in requests accepted per hour").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(`sum(increase(`+jobSel("mbb_requests_created_total")+`[1h]))`, "requests/h", "A")).
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleBars)
}

// TransitionsRate returns a timeseries panel showing status transitions by
// target status.
func TransitionsRate() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Transitions").
		Description("Successful status transitions per second by target status").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(`mbb:transitions:rate5m`, "{{to}}", "A")).
		Unit("ops").
		FillOpacity(10).
		LineWidth(2).
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// GuardViolations returns a timeseries panel showing actions rejected
// because the request was in the wrong status.
func GuardViolations() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Guard Violations").
		Description("Actions rejected for the request's current status, by action").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(
			`sum(increase(`+jobSel("mbb_guard_violations_total")+`[1h])) by (action)`,
			"{{action}}", "A",
		)).
		FillOpacity(10).
		LineWidth(2).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleBars)
}
