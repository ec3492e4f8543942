package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"shoebox/internal"
)

var (
	statusBatchFlag  string
	statusFormatFlag string
	allBatchesFlag   bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the most recent batch",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := internal.LoadConfig()
		if err != nil {
			return err
		}

		store, err := internal.OpenStore(conf.Database)
		if err != nil {
			return err
		}
		defer store.Close()

		if allBatchesFlag {
			batches, err := store.ListBatches()
			if err != nil {
				return err
			}
			for _, b := range batches {
				fmt.Printf("%s  %s  %s\n", b.ID, b.CreatedAt.Format("2006-01-02 15:04"), b.SourceDir)
			}
			return nil
		}

		batchID := statusBatchFlag
		if batchID == "" {
			batchID, err = store.LatestBatchID()
			if err != nil {
				return err
			}
		}

		batch, err := store.LoadBatch(batchID)
		if err != nil {
			return err
		}

		report := internal.BuildReport(batch)
		if statusFormatFlag == "json" {
			return report.WriteJSON(os.Stdout)
		}
		return report.WriteText(os.Stdout)
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusBatchFlag, "batch", "", "Batch id (default: most recent)")
	statusCmd.Flags().StringVar(&statusFormatFlag, "format", "text", "Output format (text, json)")
	statusCmd.Flags().BoolVar(&allBatchesFlag, "all", false, "List all stored batches")

	rootCmd.AddCommand(statusCmd)
}
