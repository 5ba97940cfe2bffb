package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/devext/internal/domain/session"
	"github.com/GriffinCanCode/devext/internal/providers/devext"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <workspaceDir> <prompt...>",
		Short: "Launch one extension session and wait for it to finish",
		Long: `run launches the extension in <workspaceDir>/src against
<workspaceDir>/examples and blocks until the editor exits. Interrupting the
command kills the session.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()

			sup := session.NewSupervisor(
				session.WithLogger(logger),
				session.WithCommand(session.EditorCommand(cfg.Devext.EditorBin)),
				session.WithGracePeriod(cfg.Devext.GracePeriod),
			)
			defer sup.Close()

			provider := devext.NewProvider(sup,
				devext.WithOutputBudget(cfg.Devext.OutputBudget),
				devext.WithLogger(logger),
			)
			result, err := provider.Execute(cmd.Context(), devext.ToolLaunch, map[string]interface{}{
				"workspaceDir": args[0],
				"prompt":       strings.Join(args[1:], " "),
			}, nil)
			if err != nil {
				return err
			}
			if !result.Success {
				return fmt.Errorf("%s", result.Text)
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Text)
			return nil
		},
	}
}
