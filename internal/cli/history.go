package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nahidhasan98/perfbudget/internal/storage"
)

func newHistoryCmd(e *env) *cobra.Command {
	var (
		branch string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := e.loadProject()
			if err != nil {
				return err
			}
			store, err := e.openStore(cmd.Context(), project, nil)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), storage.ListOptions{Branch: branch, Limit: limit})
			if err != nil {
				return err
			}
			return e.formatter.PrintRuns(runs)
		},
	}

	cmd.Flags().StringVar(&branch, "branch", "", "only runs of this branch")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs")
	return cmd
}

func newTrendCmd(e *env) *cobra.Command {
	var (
		branch string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "trend <metric>",
		Short: "Show one metric across stored runs",
		Long:  "Show one metric across stored runs, oldest first.\n\nMetrics: " + strings.Join(storage.TrendMetrics(), ", "),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			metric := args[0]
			if !slices.Contains(storage.TrendMetrics(), metric) {
				return fmt.Errorf("unknown metric %q (valid: %s)", metric, strings.Join(storage.TrendMetrics(), ", "))
			}

			project, err := e.loadProject()
			if err != nil {
				return err
			}
			store, err := e.openStore(cmd.Context(), project, nil)
			if err != nil {
				return err
			}
			defer store.Close()

			points, err := store.Trend(cmd.Context(), metric, branch, limit)
			if err != nil {
				return err
			}
			return e.formatter.PrintTrend(metric, points)
		},
	}

	cmd.Flags().StringVar(&branch, "branch", "", "only runs of this branch")
	cmd.Flags().IntVar(&limit, "limit", 30, "maximum number of points")
	return cmd
}
