package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// PriceChangedRatio returns a stat panel showing the share of assessments
// that moved the price away from the customer's estimate.
func PriceChangedRatio() *stat.PanelBuilder {
	expr := `sum(increase(` + jobSel("mbb_assessment_price_changed_total") + `[24h])) / ` +
		`sum(increase(` + jobSel("mbb_transitions_total", `to="assessed"`) + `[24h])) * 100`
	return stat.NewPanelBuilder().
		Title("Assessments Repriced (24h)").
		Description("Percentage of final assessments whose price differed from the estimate").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(expr, "", "A")).
		Unit("percent").
		Thresholds(ThresholdsGreenYellowRed(30, 60)).
		ColorScheme(ColorSchemeThresholds()).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeArea)
}

// GuaranteeApplied returns a timeseries panel showing how often item prices
// were raised to their guaranteed minimum.
func GuaranteeApplied() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Guarantee Applied").
		Description("Item prices raised to the guaranteed minimum, per hour").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(`sum(increase(`+jobSel("mbb_guarantee_applied_total")+`[1h]))`, "items/h", "A")).
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// LookupGaps returns a stat panel counting deduction lookups with no
// matching price table row, which price as zero.
func LookupGaps() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Deduction Table Gaps (24h)").
		Description("Deduction lookups with no table row; add rows for the affected models").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(`sum(increase(`+jobSel("mbb_deduction_lookup_gaps_total")+`[24h]))`, "", "A")).
		Thresholds(ThresholdsGreenYellowRed(1, 20)).
		ColorScheme(ColorSchemeThresholds()).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeArea)
}
