package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nahidhasan98/perfbudget/internal/analyzer"
	"github.com/nahidhasan98/perfbudget/internal/config"
	"github.com/nahidhasan98/perfbudget/internal/scanner"
	"github.com/nahidhasan98/perfbudget/internal/storage"
	"github.com/nahidhasan98/perfbudget/internal/threshold"
)

func newDiffCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <base> <head>",
		Short: "Compare two chunk lists or stored runs",
		Long: `Compare two builds. Each argument is either a chunk JSON file written by
"analyze --write-chunks" or the id of a stored run.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := e.loadProject()
			if err != nil {
				return err
			}

			var store *storage.Store
			defer func() {
				if store != nil {
					_ = store.Close()
				}
			}()
			load := func(arg string) ([]analyzer.Chunk, error) {
				if _, err := os.Stat(arg); err == nil {
					return scanner.LoadChunks(arg)
				}
				if store == nil {
					if store, err = e.openStore(cmd.Context(), project, nil); err != nil {
						return nil, err
					}
				}
				return loadRunChunks(cmd.Context(), store, arg)
			}

			base, err := load(args[0])
			if err != nil {
				return err
			}
			head, err := load(args[1])
			if err != nil {
				return err
			}

			diff, result := compare(e, project.Thresholds, base, head)
			return e.formatter.PrintDiff(diff, result)
		},
	}
}

func loadRunChunks(ctx context.Context, store *storage.Store, id string) ([]analyzer.Chunk, error) {
	run, err := store.GetRun(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s is neither a chunk file nor a stored run: %w", id, err)
	}
	return run.Chunks, nil
}

func compare(e *env, t config.Thresholds, base, head []analyzer.Chunk) (*analyzer.BundleDiff, threshold.Result) {
	diff := analyzer.New(e.log).CompareBundles(head, base)
	result := threshold.Engine{}.CompareBundleSize(
		float64(totalSize(head)),
		float64(totalSize(base)),
		t.Regression,
		t.Warning,
	)
	return diff, result
}

func totalSize(chunks []analyzer.Chunk) int64 {
	var total int64
	for _, c := range chunks {
		total += c.Size
	}
	return total
}
