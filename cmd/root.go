package cmd

import (
	"github.com/spf13/cobra"
)

// Version is overridden at startup from the embedded VERSION file.
var Version = "dev"

var (
	logLevelFlag string
	jsonLogFlag  bool
)

var rootCmd = &cobra.Command{
	Use:     "shoebox",
	Short:   "Shoebox media batch triage",
	Long:    "Shoebox imports batches of media files, picks the most trustworthy timestamp for each and finds exact and near duplicates for review.",
	Version: Version,
}

func Execute() error {
	return rootCmd.Execute()
}

// ApplyVersion re-applies the Version variable to the root command.
func ApplyVersion() {
	rootCmd.Version = Version
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonLogFlag, "json-log", false, "Emit JSON log lines instead of console output")
}
