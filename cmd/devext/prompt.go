package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/devext/internal/domain/session"
	"github.com/GriffinCanCode/devext/internal/providers/devext"
)

func newPromptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prompt <workspaceDir> [prompt...]",
		Short: "Write the prompt files into <workspaceDir>/examples without launching",
		Long: `prompt writes examples/.PROMPT and examples/PROMPT.txt exactly as a
launch would. With no prompt arguments the text is read from stdin.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args[1:], " ")
			if len(args) == 1 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read prompt from stdin: %w", err)
				}
				text = string(data)
			}
			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("prompt is empty")
			}

			sup := session.NewSupervisor()
			defer sup.Close()

			provider := devext.NewProvider(sup, devext.WithDebugTools(true))
			result, err := provider.Execute(cmd.Context(), devext.ToolWritePrompt, map[string]interface{}{
				"workspaceDir": args[0],
				"prompt":       text,
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
