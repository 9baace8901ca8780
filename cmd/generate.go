package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/modelforge/database"
	"github.com/ridoystarlord/modelforge/loader"
	"github.com/ridoystarlord/modelforge/prompt"
	"github.com/ridoystarlord/modelforge/runner"
	"github.com/ridoystarlord/modelforge/schema"
)

var (
	batchFile      string
	assumeYes      bool
	dryRunGenerate bool
	watchGenerate  bool
	liveGenerate   bool
)

func init() {
	generateCmd.Flags().StringVarP(&batchFile, "file", "f", "batch.yaml", "Batch YAML file to load")
	generateCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Answer yes to every confirmation")
	generateCmd.Flags().BoolVar(&dryRunGenerate, "dry-run", false, "Preview the files that would be written")
	generateCmd.Flags().BoolVarP(&watchGenerate, "watch", "w", false, "Re-run whenever the batch file changes")
	generateCmd.Flags().BoolVar(&liveGenerate, "live", false, "Also read existing columns and indexes from DATABASE_URL")
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate models and migrations from a batch file",
	Long: `Generate or update models and migrations from a YAML batch file.

Fields, relations and indexes the model and its migrations already declare
are skipped, so running the same batch twice writes nothing.

Examples:
  modelforge generate                     # Use batch.yaml
  modelforge generate -f post.yaml --yes  # No confirmations
  modelforge generate --dry-run           # Preview only
  modelforge generate --watch             # Re-run on every save
  modelforge generate --live              # Merge columns from DATABASE_URL
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		var p prompt.Prompter = prompt.NewTerminal()
		if assumeYes {
			p = &prompt.Scripted{AssumeYes: true}
		}
		opts := runner.OptionsFromConfig(cfg)
		opts.DryRun = dryRunGenerate
		r := runner.New(fileStore, p, opts)

		if liveGenerate {
			pool, err := database.Connect(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()
			r.WithLive(pool)
		}

		if err := generateFromFile(ctx, r, batchFile); err != nil && !watchGenerate {
			return err
		} else if err != nil {
			fmt.Println("❌", err)
		}

		if watchGenerate {
			return watchBatchFile(ctx, r, batchFile)
		}
		return nil
	},
}

func generateFromFile(ctx context.Context, r *runner.Runner, file string) error {
	batches, err := loader.LoadBatchesFromYAML(fileStore, file)
	if err != nil {
		return fmt.Errorf("loading %s: %w", file, err)
	}
	for _, batch := range batches {
		if err := runBatch(ctx, r, batch); err != nil {
			return err
		}
	}
	return nil
}

// runBatch runs one batch and reports the outcome. An empty batch is not an
// error.
func runBatch(ctx context.Context, r *runner.Runner, batch schema.Batch) error {
	report, err := r.Run(ctx, batch)
	switch {
	case errors.Is(err, runner.ErrEmptyBatch):
		if report.Plan != nil {
			printPlan(report.Plan)
		}
		successf("No changes detected for %s.", batch.Record)
		return nil
	case errors.Is(err, runner.ErrDeclined), errors.Is(err, prompt.ErrCancelled):
		return fmt.Errorf("%s: aborted, no files were written", batch.Record)
	case err != nil:
		if report != nil && report.Plan != nil && report.Plan.Validation != nil && !report.Plan.Validation.Valid {
			printValidation(report.Plan.Validation)
		}
		return err
	}
	printReport(report)
	return nil
}

// watchBatchFile re-runs file on every write until ctx is done.
func watchBatchFile(ctx context.Context, r *runner.Runner, file string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("file watcher failed: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(file)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watching %s: %w", file, err)
	}
	infof("Watching %s (ctrl+c to stop)", file)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			infof("%s changed, regenerating", file)
			if err := generateFromFile(ctx, r, file); err != nil {
				fmt.Println("❌", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			warnf("watcher: %v", err)
		}
	}
}
