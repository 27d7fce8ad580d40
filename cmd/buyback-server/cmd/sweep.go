package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete returned requests older than the retention period once",
	Long: "Runs the retention sweep that serve schedules, then exits. Useful as a\n" +
		"Kubernetes CronJob when the server runs with more than one replica.",
	RunE: runSweep,
}

func runSweep(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close() //nolint:errcheck // best effort on exit

	deleted, err := a.engine().SweepReturned(cmd.Context(), time.Now())
	if err != nil {
		return fmt.Errorf("sweeping returned requests: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "deleted %d returned request(s) older than %s\n",
		deleted, a.cfg.Retention.ReturnedRetention)
	return nil
}
