package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/modelforge/database"
	"github.com/ridoystarlord/modelforge/extractor"
	"github.com/ridoystarlord/modelforge/naming"
	"github.com/ridoystarlord/modelforge/prompt"
	"github.com/ridoystarlord/modelforge/runner"
)

var liveInspect bool

var inspectCmd = &cobra.Command{
	Use:   "inspect <Record>",
	Short: "Show what the model and its migrations declare",
	Long: `Print the declared slots of a record type's model and every column and
index its migration history knows about.

Examples:
  modelforge inspect Blog/Post
  modelforge inspect Post --live`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		record := args[0]
		r := runner.New(fileStore, prompt.NewScripted(), runner.OptionsFromConfig(cfg))
		if liveInspect {
			pool, err := database.Connect(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()
			r.WithLive(pool)
		}

		k, err := r.Load(cmd.Context(), record)
		if err != nil {
			return err
		}

		bold := color.New(color.Bold)
		bold.Printf("📋 %s (table %s)\n", record, naming.TableName(record))

		if !k.ModelExists {
			fmt.Printf("\n📄 Model: %s (not created yet)\n", k.ModelPath)
		} else {
			fmt.Printf("\n📄 Model: %s\n", k.ModelPath)
			state := extractor.Extract(k.ModelSource)
			printList("fillable", state.Fillable)
			printList("hidden", state.Hidden)
			printList("appends", state.Appends)
			var casts []string
			for _, key := range state.Casts.Keys() {
				v, _ := state.Casts.Get(key)
				casts = append(casts, key+" => "+v)
			}
			printList("casts", casts)
		}

		fmt.Printf("\n🗂  Migrations (%d):\n", len(k.History.Files))
		for _, f := range k.History.Files {
			fmt.Printf("  • %s\n", f)
		}

		fmt.Println("\n📝 Known columns:")
		printList("columns", k.Known(nil).Sorted())

		var indexes []string
		for name := range k.History.Indexes {
			indexes = append(indexes, name)
		}
		sort.Strings(indexes)
		fmt.Println("\n🔍 Indexes:")
		printList("indexes", indexes)
		return nil
	},
}

func printList(label string, items []string) {
	if len(items) == 0 {
		fmt.Printf("  %-9s -\n", label)
		return
	}
	fmt.Printf("  %-9s %s\n", label, strings.Join(items, ", "))
}

func init() {
	inspectCmd.Flags().BoolVar(&liveInspect, "live", false, "Also read existing columns and indexes from DATABASE_URL")
}
