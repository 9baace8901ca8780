package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/modelforge/config"
	"github.com/ridoystarlord/modelforge/logging"
	"github.com/ridoystarlord/modelforge/store"
)

var (
	configPath string
	envPath    string
	logLevel   string

	cfg       *config.Config
	fileStore = store.OS()
)

var rootCmd = &cobra.Command{
	Use:   "modelforge",
	Short: "Generate and incrementally update Laravel models and migrations",
	Long: `modelforge writes Eloquent model classes and schema migrations, and keeps
them up to date: re-running a batch only adds what is missing.

Examples:

  modelforge init
  modelforge make Blog/Post
  modelforge generate -f batch.yaml
`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(fileStore, configPath, envPath)
		if err != nil {
			return err
		}
		cfg = loaded
		if cmd.Flags().Changed("log-level") {
			cfg.Logging.Level = logLevel
		}
		logging.Setup(cfg.Logging.Level, os.Stderr)
		return nil
	},
}

// Execute runs the CLI
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("❌", err)
		os.Exit(1)
	}
}

// Register subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Config file")
	rootCmd.PersistentFlags().StringVar(&envPath, "env", config.DefaultEnvPath, "Environment file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(makeCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(diffCmd)
}
