// Package cmd provides the CLI commands for pipeline-cost.
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"pipeline-cost/internal/config"
	"pipeline-cost/internal/logging"

	// backends register themselves with the default registry
	_ "pipeline-cost/clouds/azure/datafactory"
	_ "pipeline-cost/clouds/azure/synapse"
	_ "pipeline-cost/clouds/file"
)

// Version is set at build time
var Version = "0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "pipeline-cost",
	Short: "Report the cost of Synapse and Data Factory pipeline runs",
	Long: `pipeline-cost walks the pipeline runs of an Azure Synapse workspace or
Data Factory, reads the billing data each activity run reports, and prices
it into a per-activity cost report.

Examples:
  pipeline-cost report --workspace contoso-syn
  pipeline-cost report --backend datafactory --subscription $SUB --resource-group rg --factory adf -o ./reports
  pipeline-cost report --backend file --fixture runs.json --format table
  pipeline-cost rates`,
	SilenceUsage: true,
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the CLI with a cancellable context
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file, JSON or YAML (default is $HOME/.pipeline-cost/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	// Add subcommands
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(ratesCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
}

func defaultConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".pipeline-cost", "config.yaml")
}

func initConfig() {
	path := cfgFile
	if path == "" {
		path = defaultConfigPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	config.Set(cfg)

	// Initialize logging
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
	}
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "pipeline-cost version %s\n", Version)
	},
}
