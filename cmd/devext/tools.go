package main

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/devext/internal/domain/session"
	"github.com/GriffinCanCode/devext/internal/infrastructure/logging"
	"github.com/GriffinCanCode/devext/internal/infrastructure/server"
	"github.com/GriffinCanCode/devext/internal/providers/llm"
)

func newToolsCmd() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Print the tool catalogue as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if debug {
				cfg.Devext.DebugTools = true
			}

			sup := session.NewSupervisor()
			defer sup.Close()

			client := llm.NewClient(llm.Config{APIKey: cfg.LLM.APIKey, BaseURL: cfg.LLM.BaseURL}, nil)
			registry, err := server.BuildRegistry(cfg, sup, client, logging.NewNop())
			if err != nil {
				return err
			}

			data, err := sonic.ConfigStd.MarshalIndent(registry.List(nil), "", "  ")
			if err != nil {
				return fmt.Errorf("encode catalogue: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	cmd.Flags().BoolVar(&debug, "debug-tools", false, "include debug-only tools")
	return cmd
}
