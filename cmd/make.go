package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/modelforge/prompt"
	"github.com/ridoystarlord/modelforge/runner"
)

var dryRunMake bool

var makeCmd = &cobra.Command{
	Use:   "make <Record>",
	Short: "Interactively add fields, relations and indexes to a record type",
	Long: `Ask for fields, relations and indexes, then create or update the model
and write the migrations.

Examples:
  modelforge make Post
  modelforge make Blog/Post --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := prompt.NewTerminal()
		batch, err := runner.Collect(p, args[0])
		if err != nil {
			return err
		}

		opts := runner.OptionsFromConfig(cfg)
		opts.DryRun = dryRunMake
		return runBatch(cmd.Context(), runner.New(fileStore, p, opts), batch)
	},
}

func init() {
	makeCmd.Flags().BoolVar(&dryRunMake, "dry-run", false, "Preview the files that would be written")
}
