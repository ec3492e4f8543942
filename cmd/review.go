package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"shoebox/internal"
)

var batchFlag string

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review and resolve duplicate groups",
}

var reviewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the open duplicate groups of a batch",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, batch, cleanup, err := openBatch()
		if err != nil {
			return err
		}
		defer cleanup()

		report := internal.BuildReport(batch)
		if formatFlag == "json" {
			return report.WriteJSON(os.Stdout)
		}

		printGroups := func(title string, groups []internal.GroupReport) {
			fmt.Printf("%s:\n", title)
			for _, g := range groups {
				if g.State != "open" {
					continue
				}
				fmt.Printf("  %s [%s", g.ID, g.Confidence)
				if g.Kind != "" {
					fmt.Printf(" %s", g.Kind)
				}
				fmt.Printf("]\n")
				for _, m := range g.Members {
					if f, ok := batch.Files[m]; ok && f.Discarded {
						continue
					}
					fmt.Printf("    - %s\n", m)
				}
			}
		}

		fmt.Printf("Batch %s\n\n", batch.ID)
		printGroups("Exact groups", report.ExactGroups)
		fmt.Println()
		printGroups("Similar groups", report.SimilarGroups)
		return nil
	},
}

var keepFlag []string

var reviewResolveCmd = &cobra.Command{
	Use:   "resolve [group-id]",
	Short: "Resolve a group by keeping the named files and discarding the rest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(keepFlag) == 0 {
			return fmt.Errorf("at least one --keep file id is required")
		}
		groupID := args[0]

		store, batch, cleanup, err := openBatch()
		if err != nil {
			return err
		}
		defer cleanup()

		log := internal.NewLogger(logLevelFlag, !jsonLogFlag)
		resolver, err := internal.NewResolver(batch, mustConfig().DetectParams(), log)
		if err != nil {
			return err
		}

		before := groupMembers(batch, groupID)

		if _, ok := batch.ExactGroups[groupID]; ok {
			if len(keepFlag) != 1 {
				return fmt.Errorf("exact groups keep exactly one file")
			}
			err = resolver.ResolveExact(groupID, keepFlag[0])
		} else {
			err = resolver.ResolveSimilar(groupID, keepFlag)
		}
		if err != nil {
			return err
		}

		var discarded []string
		for _, id := range before {
			if !containsID(keepFlag, id) {
				discarded = append(discarded, id)
			}
		}

		if err := store.SaveBatch(batch); err != nil {
			return err
		}
		if err := logResolution(batch, func(m *internal.Manifest) error {
			return m.LogResolved(groupID, keepFlag, discarded)
		}); err != nil {
			return err
		}

		fmt.Printf("Resolved %s: kept %d, discarded %d\n", groupID, len(keepFlag), len(discarded))
		return nil
	},
}

var reviewKeepAllCmd = &cobra.Command{
	Use:   "keep-all [group-id]",
	Short: "Dissolve a group, keeping every member",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		groupID := args[0]

		store, batch, cleanup, err := openBatch()
		if err != nil {
			return err
		}
		defer cleanup()

		log := internal.NewLogger(logLevelFlag, !jsonLogFlag)
		resolver, err := internal.NewResolver(batch, mustConfig().DetectParams(), log)
		if err != nil {
			return err
		}

		kept := groupMembers(batch, groupID)
		if err := resolver.KeepAll(groupID); err != nil {
			return err
		}

		if err := store.SaveBatch(batch); err != nil {
			return err
		}
		if err := logResolution(batch, func(m *internal.Manifest) error {
			return m.LogKeepAll(groupID, kept)
		}); err != nil {
			return err
		}

		fmt.Printf("Dissolved %s, kept all %d members\n", groupID, len(kept))
		return nil
	},
}

var reviewUndiscardCmd = &cobra.Command{
	Use:   "undiscard [file-id]",
	Short: "Restore a discarded file and re-evaluate its duplicates",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fileID := args[0]

		store, batch, cleanup, err := openBatch()
		if err != nil {
			return err
		}
		defer cleanup()

		log := internal.NewLogger(logLevelFlag, !jsonLogFlag)
		resolver, err := internal.NewResolver(batch, mustConfig().DetectParams(), log)
		if err != nil {
			return err
		}

		if err := resolver.Undiscard(fileID); err != nil {
			return err
		}

		if err := store.SaveBatch(batch); err != nil {
			return err
		}
		if err := logResolution(batch, func(m *internal.Manifest) error {
			return m.LogUndiscard(fileID)
		}); err != nil {
			return err
		}

		f := batch.Files[fileID]
		switch {
		case f.ExactGroupID != "":
			fmt.Printf("Restored %s, rejoined exact group %s\n", fileID, f.ExactGroupID)
		case f.SimilarGroupID != "":
			fmt.Printf("Restored %s, rejoined similar group %s\n", fileID, f.SimilarGroupID)
		default:
			fmt.Printf("Restored %s, no duplicates found\n", fileID)
		}
		return nil
	},
}

// openBatch loads the batch named by --batch, defaulting to the latest.
// The caller must invoke the returned cleanup unless err is non-nil.
func openBatch() (*internal.Store, *internal.Batch, func(), error) {
	conf, err := internal.LoadConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	store, err := internal.OpenStore(conf.Database)
	if err != nil {
		return nil, nil, nil, err
	}

	batchID := batchFlag
	if batchID == "" {
		batchID, err = store.LatestBatchID()
		if err != nil {
			store.Close()
			return nil, nil, nil, err
		}
	}

	batch, err := store.LoadBatch(batchID)
	if err != nil {
		store.Close()
		return nil, nil, nil, err
	}

	return store, batch, func() { store.Close() }, nil
}

// mustConfig reloads the config for detection parameters. openBatch already
// proved it loads, so a second failure here is unreachable in practice.
func mustConfig() *internal.Config {
	conf, err := internal.LoadConfig()
	if err != nil {
		panic(err)
	}
	return conf
}

func logResolution(batch *internal.Batch, fn func(*internal.Manifest) error) error {
	conf, err := internal.LoadConfig()
	if err != nil {
		return err
	}
	manifest, err := internal.OpenManifest(conf.Library, batch.ID)
	if err != nil {
		return err
	}
	defer manifest.Close()
	return fn(manifest)
}

func groupMembers(batch *internal.Batch, groupID string) []string {
	if g, ok := batch.ExactGroups[groupID]; ok {
		return append([]string(nil), g.Members...)
	}
	if g, ok := batch.SimilarGroups[groupID]; ok {
		return append([]string(nil), g.Members...)
	}
	return nil
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func init() {
	reviewCmd.PersistentFlags().StringVar(&batchFlag, "batch", "", "Batch id (default: most recent)")
	reviewListCmd.Flags().StringVar(&formatFlag, "format", "text", "Listing format (text, json)")
	reviewResolveCmd.Flags().StringSliceVar(&keepFlag, "keep", nil, "File ids to keep (repeatable)")

	reviewCmd.AddCommand(reviewListCmd)
	reviewCmd.AddCommand(reviewResolveCmd)
	reviewCmd.AddCommand(reviewKeepAllCmd)
	reviewCmd.AddCommand(reviewUndiscardCmd)
	rootCmd.AddCommand(reviewCmd)
}
