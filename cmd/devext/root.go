package main

import (
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/devext/internal/infrastructure/config"
	"github.com/GriffinCanCode/devext/internal/infrastructure/logging"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "devext",
		Short: "Supervise VS Code extension development host sessions",
		Long: `devext launches an editor as an extension development host against an
examples folder, hands the tester a prompt file, and reports the session's
output once it is stopped or the editor exits.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().Bool("dev", false, "human-readable debug logging")

	root.AddCommand(
		newServeCmd(),
		newRunCmd(),
		newPromptCmd(),
		newToolsCmd(),
	)
	return root
}

// loadConfig reads the environment and applies persistent flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if dev, _ := cmd.Flags().GetBool("dev"); dev {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	return logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
}
