// Package dashboards assembles Grafana dashboard definitions from panel builders.
package dashboards

import (
	"github.com/grafana/grafana-foundation-sdk/go/dashboard"

	"github.com/donaldgifford/mailin-buyback/tools/dashgen/panels"
)

// OverviewUID is the stable dashboard UID used for links and provisioning.
const OverviewUID = "mbb-overview"

// BuildOverview constructs the buyback overview dashboard with all metric rows.
func BuildOverview() *dashboard.DashboardBuilder {
	b := dashboard.NewDashboardBuilder("Mail-in Buyback Overview").
		Uid(OverviewUID).
		Tags([]string{"mbb", "mailin-buyback"}).
		Refresh("1m").
		Time("now-24h", "now").
		Timezone("browser").
		Editable().
		Tooltip(dashboard.DashboardCursorSyncCrosshair).
		WithVariable(datasourceVar())

	b.WithRow(dashboard.NewRowBuilder("Overview").
		WithPanel(panels.HealthzStat()).
		WithPanel(panels.ReadyzStat()).
		WithPanel(panels.UptimeStat()).
		WithPanel(panels.NextSweepStat()))

	b.WithRow(dashboard.NewRowBuilder("HTTP").
		WithPanel(panels.RequestRate()).
		WithPanel(panels.LatencyPercentiles()).
		WithPanel(panels.ErrorRate()))

	b.WithRow(dashboard.NewRowBuilder("Request Lifecycle").
		WithPanel(panels.IntakeRate()).
		WithPanel(panels.TransitionsRate()).
		WithPanel(panels.GuardViolations()))

	b.WithRow(dashboard.NewRowBuilder("Pricing").
		WithPanel(panels.PriceChangedRatio()).
		WithPanel(panels.GuaranteeApplied()).
		WithPanel(panels.LookupGaps()))

	b.WithRow(dashboard.NewRowBuilder("Payout Completion").
		WithPanel(panels.CompletionsRate()).
		WithPanel(panels.CompletionFailures()).
		WithPanel(panels.CompletionWarnings()).
		WithPanel(panels.CompletionLatency()))

	b.WithRow(dashboard.NewRowBuilder("Notifications & Retention").
		WithPanel(panels.NotificationsSent()).
		WithPanel(panels.NotificationLatency()).
		WithPanel(panels.NotificationFailures()).
		WithPanel(panels.SweepDeleted()))

	return b
}

func datasourceVar() *dashboard.DatasourceVariableBuilder {
	return dashboard.NewDatasourceVariableBuilder("datasource").
		Label("Datasource").
		Type("prometheus")
}
