// Package cmd implements the bbctl CLI commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	apiclient "github.com/donaldgifford/mailin-buyback/internal/api/client"
)

var (
	cfgFile string
	rootCmd = newRootCmd()
)

// Root returns the root cobra command for documentation generation.
func Root() *cobra.Command {
	return rootCmd
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "bbctl",
		Short: "CLI client for the mail-in buyback service",
		Long: "bbctl is a command-line client for the mail-in buyback API.\n" +
			"It lets staff register requests, record kit shipments, assessments\n" +
			"and customer decisions, complete payouts and returns, and price\n" +
			"devices from the terminal.",
		SilenceUsage: true,
	}

	root.PersistentFlags().
		StringVar(&cfgFile, "config", "", "config file (default $HOME/.bbctl.yaml)")
	root.PersistentFlags().
		String("server", "http://localhost:8080", "API server URL")
	root.PersistentFlags().
		String("output", "table", "output format (table, json)")

	cobra.CheckErr(viper.BindPFlag("server", root.PersistentFlags().Lookup("server")))
	cobra.CheckErr(viper.BindPFlag("output", root.PersistentFlags().Lookup("output")))

	root.AddCommand(requestsCmd())
	root.AddCommand(quoteCmd())

	return root
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".bbctl")
	}

	viper.SetEnvPrefix("BBCTL")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newClient tags every call with a fresh request ID so server logs can be
// matched to a CLI invocation.
func newClient() *apiclient.Client {
	return apiclient.New(viper.GetString("server"),
		apiclient.WithRequestID(func() string { return "bbctl-" + uuid.NewString() }),
	)
}

func jsonOutput() bool {
	return viper.GetString("output") == "json"
}
