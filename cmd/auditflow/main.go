// Command auditflow runs variance analyses and sample selections from the
// command line and serves the audit API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/auditflow/internal/infrastructure/config"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "auditflow",
	Short: "Audit workflow: variance analysis, sample selection and engagement tracking",
	Long: `auditflow classifies trial-balance variances, selects audit samples
from purchase and sales ledgers, and serves the client and task API.

Commands run in preview mode unless --save is given.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd, varianceCmd, sampleCmd, migrateCmd)
}

// loadConfig reads --config, falling back to the environment
func loadConfig() *config.Config {
	return config.LoadOrEnv_WithPath(configPath)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
