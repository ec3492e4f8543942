package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"shoebox/internal"
)

var (
	useExifTool bool
	dryRunFlag  bool
	watchFlag   bool
	settleFlag  time.Duration
	formatFlag  string
)

var importCmd = &cobra.Command{
	Use:   "import [folder]",
	Short: "Import a folder of media and detect duplicates",
	Long: `Import scans a folder, reads content and perceptual hashes plus
candidate timestamps for every media file, then runs duplicate detection
and stores the batch for review. With --watch the inbox is monitored and
a new batch runs each time it settles after new files arrive.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := internal.LoadConfig()
		if err != nil {
			return err
		}

		folder := conf.Inbox
		if len(args) == 1 {
			folder = args[0]
		}
		info, err := os.Stat(folder)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("folder does not exist or is not a directory: %s", folder)
		}

		log := internal.NewLogger(logLevelFlag, !jsonLogFlag)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := runImport(ctx, folder, conf, log); err != nil {
			return err
		}
		if !watchFlag {
			return nil
		}

		watcher, err := internal.NewInboxWatcher(folder, conf, settleFlag)
		if err != nil {
			return fmt.Errorf("failed to watch %s: %w", folder, err)
		}
		defer watcher.Close()

		log.Info().Str("folder", folder).Dur("settle", settleFlag).Msg("watching inbox")
		for {
			select {
			case <-ctx.Done():
				return nil
			case err := <-watcher.Errors():
				log.Warn().Err(err).Msg("watcher error")
			case path := <-watcher.Settled():
				log.Info().Str("last_file", path).Msg("inbox settled, importing")
				if err := runImport(ctx, folder, conf, log); err != nil {
					log.Error().Err(err).Msg("import failed")
				}
			}
		}
	},
}

// runImport executes one full scan / ingest / detect / store cycle.
func runImport(ctx context.Context, folder string, conf *internal.Config, log zerolog.Logger) error {
	entries, err := internal.ScanMedia(folder, conf)
	if err != nil {
		return err
	}
	fmt.Printf("Found %d media files\n", len(entries))
	if len(entries) == 0 {
		return nil
	}
	if dryRunFlag {
		for _, e := range entries {
			fmt.Println(e.Path)
		}
		return nil
	}

	extractor, err := internal.NewExtractor(useExifTool)
	if err != nil {
		return err
	}
	defer extractor.Close()

	batch, failures, err := internal.BuildBatch(ctx, folder, entries, extractor, log)
	if err != nil {
		return err
	}

	stats := internal.NewErrorStats()
	for _, procErr := range failures {
		stats.Add(procErr)
	}
	if abort, reason := stats.ShouldAbort(); abort {
		return fmt.Errorf("%s", reason)
	}

	manifest, err := internal.OpenManifest(conf.Library, batch.ID)
	if err != nil {
		return err
	}
	defer manifest.Close()

	if err := manifest.LogBatchStart(folder, len(batch.Files)); err != nil {
		return err
	}
	for _, procErr := range failures {
		id, relErr := filepath.Rel(folder, procErr.FilePath)
		if relErr != nil {
			id = procErr.FilePath
		}
		if err := manifest.LogFileFlagged(id, procErr); err != nil {
			return err
		}
	}

	detector := internal.NewDetector(conf.DetectParams(), log)
	summary, err := detector.Run(ctx, batch)
	if err != nil {
		return err
	}
	if err := manifest.LogDetection(summary); err != nil {
		return err
	}

	store, err := internal.OpenStore(conf.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.SaveBatch(batch); err != nil {
		return err
	}
	if err := manifest.LogBatchEnd(summary); err != nil {
		return err
	}

	if failureReport := stats.Report(); failureReport != "" {
		fmt.Fprint(os.Stderr, failureReport)
	}

	report := internal.BuildReport(batch)
	if formatFlag == "json" {
		return report.WriteJSON(os.Stdout)
	}
	return report.WriteText(os.Stdout)
}

func init() {
	importCmd.Flags().BoolVar(&useExifTool, "exiftool", false, "Force to use exiftool binary")
	importCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "List files without importing")
	importCmd.Flags().BoolVar(&watchFlag, "watch", false, "Keep watching the folder and import when it settles")
	importCmd.Flags().DurationVar(&settleFlag, "settle", 10*time.Second, "Quiet period before a watched import triggers")
	importCmd.Flags().StringVar(&formatFlag, "format", "text", "Report format (text, json)")

	rootCmd.AddCommand(importCmd)
}
