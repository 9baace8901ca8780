package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/modelforge/loader"
	"github.com/ridoystarlord/modelforge/prompt"
	"github.com/ridoystarlord/modelforge/runner"
	"github.com/ridoystarlord/modelforge/validator"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a batch file against naming rules and existing files",
	Long: `Validate every batch in a YAML file without writing anything.

This command checks:
- Record, field and relation names
- Field types, enum values and casts
- Relation kinds and targets, junction flags
- Index columns against the model and its migration history
- Relation names that collide with existing methods or fields

Examples:
  modelforge validate                   # Validate batch.yaml
  modelforge validate -f post.yaml      # Validate another file
  modelforge validate --format json     # Output results as JSON
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		results, err := validateBatches(cmd, validateBatchFile)
		if err != nil {
			return err
		}

		if validateFormat == "json" {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(results); err != nil {
				return err
			}
		} else {
			for _, r := range results {
				fmt.Printf("\n🔎 %s\n", r.Record)
				printValidation(r.Result)
			}
		}

		for _, r := range results {
			if !r.Result.Valid {
				return fmt.Errorf("batch validation failed")
			}
		}
		if validateFormat != "json" {
			fmt.Printf("\n🎉 Your batch is valid and ready for generation!\n")
		}
		return nil
	},
}

var (
	validateBatchFile  string
	validateFormat string
)

func init() {
	validateCmd.Flags().StringVarP(&validateBatchFile, "file", "f", "batch.yaml", "Batch file to validate")
	validateCmd.Flags().StringVar(&validateFormat, "format", "text", "Output format (text, json)")
}

type batchResult struct {
	Record string                      `json:"record"`
	Result *validator.ValidationResult `json:"result"`
}

func validateBatches(cmd *cobra.Command, file string) ([]batchResult, error) {
	batches, err := loader.LoadBatchesFromYAML(fileStore, file)
	if err != nil {
		return nil, fmt.Errorf("failed to load batch: %w", err)
	}

	r := runner.New(fileStore, prompt.NewScripted(), runner.OptionsFromConfig(cfg))
	var results []batchResult
	for _, batch := range batches {
		k, err := r.Load(cmd.Context(), batch.Record)
		if err != nil {
			return nil, err
		}
		results = append(results, batchResult{
			Record: batch.Record,
			Result: validator.NewBatchValidator(k.Known(batch.Fields), k.ModelSource).ValidateBatch(batch),
		})
	}
	return results, nil
}
