package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nahidhasan98/perfbudget/internal/config"
)

func newInitCmd(e *env) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default perf-budget.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(e.configPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", e.configPath)
			}

			data, err := config.DefaultProject().Marshal()
			if err != nil {
				return err
			}
			if err := os.WriteFile(e.configPath, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", e.configPath, err)
			}

			e.formatter.PrintSuccess(fmt.Sprintf("Wrote %s", e.configPath))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")
	return cmd
}
