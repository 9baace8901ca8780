package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/modelforge/diff"
	"github.com/ridoystarlord/modelforge/generator"
	"github.com/ridoystarlord/modelforge/loader"
	"github.com/ridoystarlord/modelforge/prompt"
	"github.com/ridoystarlord/modelforge/runner"
)

var (
	diffVisual bool
	diffFile   string
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Show what a batch would change",
	Long: `Show the operations a batch file would plan against the current model and
migration history, with the guarded up and down statements. Nothing is written.

Examples:
  modelforge diff                    # Show differences in text format
  modelforge diff --visual           # Show differences grouped by table
  modelforge diff -f post.yaml       # Use another batch file
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		batches, err := loader.LoadBatchesFromYAML(fileStore, diffFile)
		if err != nil {
			return fmt.Errorf("error loading batch: %w", err)
		}

		// unknown index columns are kept, as generate --yes would
		r := runner.New(fileStore, &prompt.Scripted{AssumeYes: true}, runner.OptionsFromConfig(cfg))
		for _, batch := range batches {
			plan, err := r.Prepare(cmd.Context(), batch)
			if errors.Is(err, runner.ErrEmptyBatch) {
				successf("No differences found for %s", batch.Record)
				continue
			}
			if err != nil {
				if plan != nil && plan.Validation != nil && !plan.Validation.Valid {
					printValidation(plan.Validation)
				}
				return err
			}

			fmt.Printf("\n🔎 %s\n", batch.Record)
			if diffVisual {
				printVisualOperations(plan.Operations)
			} else {
				printOperations(plan.Operations)
			}
			if err := printStatements(plan.Operations); err != nil {
				return err
			}
			printPlan(plan)
			for _, f := range plan.Files {
				switch {
				case f.Kind == runner.ModelFile && f.New:
					infof("Model %s would be created", f.Path)
				case f.Kind == runner.ModelFile:
					infof("Model %s would be updated", f.Path)
				}
			}
		}
		return nil
	},
}

// printStatements shows the guarded statements of the table's alter or
// create migration.
func printStatements(ops []diff.Operation) error {
	tableOps, _ := diff.Split(ops)
	statements, err := generator.GenerateStatements(tableOps)
	if err != nil {
		return err
	}
	if len(statements) == 0 {
		return nil
	}

	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	fmt.Println("\n-- Up --")
	for _, s := range statements {
		green.Printf("if (! %s) %s\n", s.Guard, strings.Join(s.Up, " "))
	}
	fmt.Println("\n-- Down (Rollback) --")
	if diff.Creates(ops) {
		red.Printf("Schema::dropIfExists('%s');\n", ops[0].TableName)
		return nil
	}
	for _, s := range generator.Reverse(statements) {
		red.Printf("if (%s) %s\n", s.Guard, strings.Join(s.Down, " "))
	}
	return nil
}

func init() {
	diffCmd.Flags().BoolVarP(&diffVisual, "visual", "v", false, "Show changes grouped by table")
	diffCmd.Flags().StringVarP(&diffFile, "file", "f", "batch.yaml", "Batch file to use")
}
